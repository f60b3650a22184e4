package repository

import (
	"context"

	"recovery_hub/internal/models"
	"recovery_hub/internal/storage"
)

type MeetingRepository interface {
	CreateMany(ctx context.Context, meetings []models.Meeting) error
	CountActive(ctx context.Context) (int64, error)
	FindActive(ctx context.Context) ([]models.Meeting, error)
	FindByRoomID(ctx context.Context, roomID string) (*models.Meeting, error)
}

type meetingRepository struct {
	db *storage.DB
}

func NewMeetingRepository(db *storage.DB) MeetingRepository {
	return &meetingRepository{db: db}
}

func (r *meetingRepository) CreateMany(ctx context.Context, meetings []models.Meeting) error {
	if len(meetings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&meetings).Error
}

func (r *meetingRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Meeting{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

// FindActive 查詢所有啟用中的聚會
func (r *meetingRepository) FindActive(ctx context.Context) ([]models.Meeting, error) {
	var meetings []models.Meeting
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("day_of_week asc").
		Order("time asc").
		Find(&meetings).Error
	return meetings, err
}

func (r *meetingRepository) FindByRoomID(ctx context.Context, roomID string) (*models.Meeting, error) {
	var meeting models.Meeting
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&meeting).Error
	if err != nil {
		return nil, translate(err)
	}
	return &meeting, nil
}
