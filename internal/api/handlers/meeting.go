package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recovery_hub/internal/service"
)

type MeetingHandler struct {
	meetingService *service.MeetingService
}

func NewMeetingHandler(meetingService *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetingService: meetingService}
}

// ListMeetings 回傳所有啟用中的聚會
func (h *MeetingHandler) ListMeetings(c *gin.Context) {
	meetings, err := h.meetingService.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load meetings"})
		return
	}
	c.JSON(http.StatusOK, meetings)
}
