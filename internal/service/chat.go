package service

import (
	"context"
	"log"
	"strings"

	"recovery_hub/internal/models"
	"recovery_hub/internal/utils"
)

const (
	maxMessageLength = 2000
	defaultChatName  = "Member"
)

// handleSendMessage 驗證、寫入並廣播一則聊天消息。
// 寫入與廣播沒有交易關係，寫入成功但沒送出的消息會在下次加入時重播
func (s *WebSocketService) handleSendMessage(ctx context.Context, c *Client, p *SendMessagePayload) error {
	roomID := strings.TrimSpace(p.RoomID)
	if roomID == "" {
		return validationError("Invalid message request")
	}
	if c.RoomID() != roomID {
		return validationError("Join the room before sending messages")
	}
	if models.ReservedRoom(roomID) {
		return forbiddenError("This room is read-only")
	}

	text := strings.TrimSpace(p.Message)
	if text == "" {
		return validationError("Message cannot be empty")
	}
	if utils.Length(text) > maxMessageLength {
		return validationError("Message is too long (max 2000 characters)")
	}

	chatName := utils.CleanString(p.ChatName.Value, maxChatNameLength)
	if chatName == "" {
		chatName = c.ChatName()
	}
	if chatName == "" {
		chatName = defaultChatName
	}
	username := utils.CleanString(p.Username.Value, maxChatNameLength)
	if username == "" {
		username = chatName
	}

	message := &models.Message{
		RoomID:   roomID,
		UserID:   c.UserID(),
		Username: username,
		ChatName: chatName,
		Text:     text,
		Type:     models.MessageTypeChat,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return storageError("Failed to send message", err)
	}

	log.Printf("[chat] message in %s from %s: %s", roomID, chatName, utils.Truncate(text, 50))
	return s.broadcaster.ToRoomMessage(message)
}

// 以下為不寫入資料庫的即時事件，roomId 缺少時直接丟棄

func (s *WebSocketService) handleTyping(event string) func(context.Context, *Client, *PresencePayload) error {
	return func(_ context.Context, c *Client, p *PresencePayload) error {
		roomID := strings.TrimSpace(p.RoomID)
		if roomID == "" {
			return errMalformed
		}
		return s.broadcaster.ToRoomExcept(roomID, c.ID(), event, ChatNameEvent{
			ChatName: utils.CleanString(p.ChatName, maxChatNameLength),
		})
	}
}

func (s *WebSocketService) handleHand(event string) func(context.Context, *Client, *PresencePayload) error {
	return func(_ context.Context, _ *Client, p *PresencePayload) error {
		roomID := strings.TrimSpace(p.RoomID)
		if roomID == "" {
			return errMalformed
		}
		return s.broadcaster.ToRoom(roomID, event, ChatNameEvent{
			ChatName: utils.CleanString(p.ChatName, maxChatNameLength),
		})
	}
}

func (s *WebSocketService) handleShareReading(_ context.Context, _ *Client, p *ShareReadingPayload) error {
	roomID := strings.TrimSpace(p.RoomID)
	if roomID == "" {
		return errMalformed
	}
	return s.broadcaster.ToRoom(roomID, EventReadingShared, ReadingSharedEvent{
		Title:   p.Title,
		Content: p.Content,
	})
}

func (s *WebSocketService) handleToggleVideo(_ context.Context, c *Client, p *ToggleVideoPayload) error {
	roomID := strings.TrimSpace(p.RoomID)
	if roomID == "" {
		return errMalformed
	}
	return s.broadcaster.ToRoomExcept(roomID, c.ID(), EventUserVideoToggled, VideoToggledEvent{
		SocketID:  c.ID(),
		IsVideoOn: p.IsVideoOn,
	})
}

func (s *WebSocketService) handleToggleAudio(_ context.Context, c *Client, p *ToggleAudioPayload) error {
	roomID := strings.TrimSpace(p.RoomID)
	if roomID == "" {
		return errMalformed
	}
	return s.broadcaster.ToRoomExcept(roomID, c.ID(), EventUserAudioToggled, AudioToggledEvent{
		SocketID:  c.ID(),
		IsAudioOn: p.IsAudioOn,
	})
}
