package service

import (
	"recovery_hub/internal/repository"
	"recovery_hub/internal/utils"
	"recovery_hub/pkg/config"
)

type Services struct {
	UserService      *UserService
	MeetingService   *MeetingService
	WebSocketService *WebSocketService
}

// NewServices 建立所有服務，registry 與連線集合只在這裡建立一次
func NewServices(repos *repository.Repositories, jwt *utils.JWT, cfg config.RealtimeConfig) *Services {
	wsService := NewWebSocketService(
		NewRoomRegistry(),
		NewConnectionManager(),
		repos.User,
		repos.Message,
		NewTokenIdentityResolver(jwt),
		cfg,
	)

	return &Services{
		UserService:      NewUserService(repos.User),
		MeetingService:   NewMeetingService(repos.Meeting),
		WebSocketService: wsService,
	}
}
