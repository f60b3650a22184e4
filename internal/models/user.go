package models

import (
	"strconv"

	"gorm.io/gorm"
)

// User 表示平台上的帳號
type User struct {
	gorm.Model        // 內嵌 gorm.Model，提供 ID、CreatedAt、UpdatedAt 和 DeletedAt 字段
	Username   string `gorm:"uniqueIndex;not null" json:"username"` // 用戶名，必須唯一
	Password   string `gorm:"not null" json:"-"`                    // 密碼，json 序列化時會被忽略
	ChatName   string `gorm:"size:60" json:"chatName"`              // 聊天室顯示名稱
	IsAdmin    bool   `gorm:"not null;default:false" json:"isAdmin"`
}

// PublicID 回傳對外使用的不透明用戶 ID
func (u *User) PublicID() string {
	return strconv.FormatUint(uint64(u.ID), 10)
}
