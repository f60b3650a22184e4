package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"recovery_hub/internal/models"
	"recovery_hub/internal/repository"
	"recovery_hub/internal/service"
)

// RoomHandler 提供即時房間的查詢端點
type RoomHandler struct {
	registry    *service.RoomRegistry
	messages    repository.MessageRepository
	userService *service.UserService
}

// NewRoomHandler 創建一個新的 RoomHandler 實例
func NewRoomHandler(registry *service.RoomRegistry, messages repository.MessageRepository, userService *service.UserService) *RoomHandler {
	return &RoomHandler{registry: registry, messages: messages, userService: userService}
}

// ListRooms 回傳目前有成員的房間與人數
func (h *RoomHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.registry.Rooms()})
}

// GetPresence 回傳房間人數與成員列表，房間不存在時人數為 0
func (h *RoomHandler) GetPresence(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("roomId"))
	participants := h.registry.Roster(roomID)
	c.JSON(http.StatusOK, gin.H{
		"roomId":       roomID,
		"count":        len(participants),
		"participants": participants,
	})
}

// GetMessages 回傳房間最近的消息，由舊到新
func (h *RoomHandler) GetMessages(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("roomId"))
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	if models.AdminOnlyRoom(roomID) {
		user, err := h.userService.GetUserByID(c.Request.Context(), c.GetString("userID"))
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
			return
		}
		if user == nil || !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
	}

	messages, err := h.messages.FindRecentByRoomID(c.Request.Context(), roomID, repository.DefaultHistoryLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, messages)
}
