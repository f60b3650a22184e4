package repository

import (
	"errors"

	"recovery_hub/internal/storage"
)

// ErrNotFound 表示查詢的紀錄不存在
var ErrNotFound = errors.New("record not found")

type Repositories struct {
	User    UserRepository
	Message MessageRepository
	Meeting MeetingRepository
}

func NewRepositories(db *storage.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Message: NewMessageRepository(db),
		Meeting: NewMeetingRepository(db),
	}
}
