package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"recovery_hub/internal/models"
	"recovery_hub/internal/repository"
	"recovery_hub/internal/utils"
)

const (
	maxAnnouncementLength = 400
	maxReportTargetLength = 60
	maxReportReasonLength = 300

	announcementChatName = "ADMIN"
	announcementSender   = "System Announcement"
	safetyBotUsername    = "safety-bot"
	safetyBotChatName    = "Safety Bot"
	safetyReportType     = "safety_report"
)

// handleAnnouncement 發送全域公告。管理員旗標在這裡重新向帳號儲存確認，
// 非管理員的請求靜默丟棄，不回傳錯誤
func (s *WebSocketService) handleAnnouncement(ctx context.Context, c *Client, p *AnnouncementPayload) error {
	identity := c.Identity()
	if identity == nil {
		return ErrForbidden
	}

	user, err := s.accounts.FindByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrForbidden
		}
		return storageError("Failed to send announcement", err)
	}
	if !user.IsAdmin {
		return ErrForbidden
	}

	text := strings.TrimSpace(p.Message)
	if text == "" {
		return validationError("Announcement cannot be empty")
	}
	if utils.Length(text) > maxAnnouncementLength {
		return validationError("Announcement is too long (max 400 characters)")
	}

	announcement := &models.Message{
		RoomID:   models.GlobalRoomID,
		UserID:   user.PublicID(),
		Username: user.Username,
		ChatName: announcementChatName,
		Text:     text,
		Type:     models.MessageTypeAnnouncement,
	}
	if err := s.messages.Create(ctx, announcement); err != nil {
		return storageError("Failed to send announcement", err)
	}

	log.Printf("[ws] announcement from %s", user.Username)
	return s.broadcaster.ToAll(EventNewAnnouncement, AnnouncementEvent{
		Message:   text,
		ChatName:  announcementSender,
		Timestamp: announcement.Timestamp,
	})
}

// handleReportRaw 不因 payload 格式錯誤而拒絕回報
func (s *WebSocketService) handleReportRaw(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decodePayload[ReportUserPayload](data)
	if err != nil {
		p = &ReportUserPayload{}
	}
	return s.handleReport(ctx, c, p)
}

// handleReport 一定會寫入一筆 alert，欄位缺少時使用預設值
func (s *WebSocketService) handleReport(ctx context.Context, c *Client, p *ReportUserPayload) error {
	reporter := "Unknown"
	userID := "system"
	if identity := c.Identity(); identity != nil {
		userID = identity.UserID
		if name := s.reporterName(ctx, identity.UserID); name != "" {
			reporter = name
		}
	}

	roomID := utils.CleanString(p.RoomID.Value, maxRoomIDLength)
	if roomID == "" {
		roomID = "unknown-room"
	}
	target := utils.CleanString(p.TargetChatName.Value, maxReportTargetLength)
	if target == "" {
		target = "Unknown"
	}
	reason := utils.CleanString(p.Reason.Value, maxReportReasonLength)
	if reason == "" {
		reason = "No reason provided"
	}

	text := fmt.Sprintf("SAFETY REPORT: %s reported %s in %s. Reason: %s", reporter, target, roomID, reason)
	alert := &models.Message{
		RoomID:   models.AdminAlertsRoomID,
		UserID:   userID,
		Username: safetyBotUsername,
		ChatName: safetyBotChatName,
		Text:     text,
		Type:     models.MessageTypeAlert,
	}
	if err := s.messages.Create(ctx, alert); err != nil {
		return storageError("Failed to submit report", err)
	}

	// 使用各連線加入房間時快取的管理員旗標
	if err := s.broadcaster.ToAdmins(EventAdminAlert, AdminAlertEvent{
		Type:      safetyReportType,
		Message:   text,
		RoomID:    roomID,
		Timestamp: alert.Timestamp,
	}); err != nil {
		log.Printf("[ws] admin alert: %v", err)
	}

	log.Printf("[ws] safety report in %s from %s", roomID, c.ID())
	s.sendTo(c, EventReportSubmitted, ReportSubmittedEvent{Success: true})
	return nil
}

// reporterName 查不到帳號時回傳空字串，回報流程不會因此中斷
func (s *WebSocketService) reporterName(ctx context.Context, userID string) string {
	user, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("[ws] reporter lookup %s: %v", userID, err)
		}
		return ""
	}
	if user.ChatName != "" {
		return user.ChatName
	}
	return user.Username
}
