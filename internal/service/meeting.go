package service

import (
	"context"
	"errors"
	"fmt"

	"recovery_hub/internal/models"
	"recovery_hub/internal/repository"
)

// defaultMeetings 在沒有任何啟用中的聚會時寫入
var defaultMeetings = []models.Meeting{
	{
		Title:       "AA Daily Chat",
		Type:        "AA",
		Format:      "text",
		RoomID:      "aa",
		Description: "24/7 Alcoholics Anonymous support chat room.",
		DayOfWeek:   0,
		Time:        "00:00",
		Recurring:   true,
		Source:      "Internal",
		IsActive:    true,
	},
	{
		Title:       "NA Recovery Room",
		Type:        "NA",
		Format:      "text",
		RoomID:      "na",
		Description: "24/7 Narcotics Anonymous support chat room.",
		DayOfWeek:   0,
		Time:        "00:00",
		Recurring:   true,
		Source:      "Internal",
		IsActive:    true,
	},
	{
		Title:       "Open Recovery & Serenity",
		Type:        "Open",
		Format:      "text",
		RoomID:      "open",
		Description: "All fellowships welcome. Smart Recovery, Dharma, and peer support.",
		DayOfWeek:   0,
		Time:        "00:00",
		Recurring:   true,
		Source:      "Internal",
		IsActive:    true,
	},
	{
		Title:       "Newcomers Orientation",
		Type:        "Open",
		Format:      "video",
		RoomID:      "newcomers-daily",
		Description: "Introduction to recovery meetings and the basics of the program.",
		DayOfWeek:   1,
		Time:        "19:00",
		Recurring:   true,
		Source:      "Internal",
		IsActive:    true,
	},
}

type MeetingService struct {
	meetingRepo repository.MeetingRepository
}

func NewMeetingService(meetingRepo repository.MeetingRepository) *MeetingService {
	return &MeetingService{meetingRepo: meetingRepo}
}

// EnsureDefaultMeetings 回傳新寫入的聚會數量，已有啟用中的聚會時不做任何事。
// RoomID 已存在的預設聚會會被略過
func (s *MeetingService) EnsureDefaultMeetings(ctx context.Context) (int, error) {
	active, err := s.meetingRepo.CountActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("count meetings: %w", err)
	}
	if active > 0 {
		return 0, nil
	}

	var missing []models.Meeting
	for _, m := range defaultMeetings {
		_, err := s.meetingRepo.FindByRoomID(ctx, m.RoomID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("find meeting %s: %w", m.RoomID, err)
		}
		missing = append(missing, m)
	}

	if err := s.meetingRepo.CreateMany(ctx, missing); err != nil {
		return 0, fmt.Errorf("seed meetings: %w", err)
	}
	return len(missing), nil
}

func (s *MeetingService) ListActive(ctx context.Context) ([]models.Meeting, error) {
	return s.meetingRepo.FindActive(ctx)
}
