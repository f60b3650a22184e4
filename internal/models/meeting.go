package models

import (
	"gorm.io/gorm"
)

// Meeting 表示排定的聚會，RoomID 對應即時聊天室
type Meeting struct {
	gorm.Model
	Title       string `gorm:"not null" json:"title"`
	Type        string `gorm:"type:varchar(20)" json:"type"`   // AA、NA、Open
	Format      string `gorm:"type:varchar(20)" json:"format"` // text 或 video
	RoomID      string `gorm:"type:varchar(120);uniqueIndex;not null" json:"roomId"`
	Description string `json:"description"`
	DayOfWeek   int    `json:"dayOfWeek"`
	Time        string `gorm:"type:varchar(5)" json:"time"`
	Recurring   bool   `json:"recurring"`
	Source      string `json:"source"`
	IsExternal  bool   `json:"isExternal"`
	IsActive    bool   `gorm:"index" json:"isActive"`
}
