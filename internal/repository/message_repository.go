package repository

import (
	"context"

	"recovery_hub/internal/models"
	"recovery_hub/internal/storage"
)

// DefaultHistoryLimit 是加入房間時重播的消息數量
const DefaultHistoryLimit = 50

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindRecentByRoomID(ctx context.Context, roomID string, limit int) ([]models.Message, error)
}

type messageRepository struct {
	db *storage.DB
}

func NewMessageRepository(db *storage.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create 寫入消息，時間戳由 BeforeCreate 指定並回填到 message
func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// FindRecentByRoomID 取最新的 limit 筆，再反轉為由舊到新
func (r *messageRepository) FindRecentByRoomID(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = DefaultHistoryLimit
	}

	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("timestamp desc").
		Order("id desc").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
