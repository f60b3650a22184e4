package models

import (
	"time"

	"gorm.io/gorm"
)

// MessageType 定義持久化消息的種類
type MessageType string

const (
	MessageTypeChat         MessageType = "chat"
	MessageTypeAnnouncement MessageType = "announcement"
	MessageTypeAlert        MessageType = "alert"
)

const (
	// GlobalRoomID 是公告寫入的固定房間
	GlobalRoomID = "global"
	// AdminAlertsRoomID 是安全回報寫入的固定房間
	AdminAlertsRoomID = "admin-alerts"
)

// ReservedRoom 回報 roomID 是否只由伺服器寫入
func ReservedRoom(roomID string) bool {
	return roomID == GlobalRoomID || roomID == AdminAlertsRoomID
}

// AdminOnlyRoom 回報 roomID 是否只有管理員能讀取
func AdminOnlyRoom(roomID string) bool {
	return roomID == AdminAlertsRoomID
}

// Now 回傳截到微秒的 UTC 時間，與 Postgres timestamptz 的精度一致
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Message 同時作為廣播內容與可重播的歷史紀錄，建立後不可修改
type Message struct {
	ID              uint        `gorm:"primarykey" json:"id"`
	RoomID          string      `gorm:"type:varchar(120);index:idx_messages_room_time,priority:1;not null" json:"roomId"`
	UserID          string      `gorm:"type:varchar(64)" json:"userId"`
	Username        string      `gorm:"type:varchar(60)" json:"username"`
	ChatName        string      `gorm:"type:varchar(60)" json:"chatName"`
	Text            string      `gorm:"type:text;not null" json:"message"`
	Timestamp       time.Time   `gorm:"index:idx_messages_room_time,priority:2;not null" json:"timestamp"`
	Type            MessageType `gorm:"type:varchar(20);not null;default:chat" json:"type"`
	IsSystemMessage bool        `gorm:"-" json:"isSystemMessage"`
}

// BeforeCreate 由儲存層指定時間戳，廣播時使用同一個值
func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = Now()
	}
	if m.Type == "" {
		m.Type = MessageTypeChat
	}
	return nil
}

// NewSystemMessage 創建一則不會寫入資料庫的系統消息
func NewSystemMessage(roomID, content string) Message {
	return Message{
		RoomID:          roomID,
		UserID:          "system",
		Username:        "System",
		ChatName:        "System",
		Text:            content,
		Timestamp:       Now(),
		Type:            MessageTypeChat,
		IsSystemMessage: true,
	}
}
