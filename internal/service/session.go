package service

import (
	"context"
	"strings"

	"recovery_hub/internal/models"
	"recovery_hub/internal/utils"
)

// Identity 是握手時驗證出的用戶身份
type Identity struct {
	UserID string
}

// Handshake 是建立連線時可用於驗證的資訊
type Handshake struct {
	Token      string
	RemoteAddr string
}

// IdentityResolver 讓即時核心不必依賴 HTTP session 的實作細節。
// 沒有提供憑證時回傳 (nil, nil)
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, hs Handshake) (*Identity, error)
}

// AccountStore 是即時核心需要的帳號查詢
type AccountStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// MessageStore 是即時核心需要的消息儲存
type MessageStore interface {
	Create(ctx context.Context, message *models.Message) error
	FindRecentByRoomID(ctx context.Context, roomID string, limit int) ([]models.Message, error)
}

type tokenIdentityResolver struct {
	jwt *utils.JWT
}

// NewTokenIdentityResolver 以 JWT 驗證握手時帶的 token
func NewTokenIdentityResolver(jwt *utils.JWT) IdentityResolver {
	return &tokenIdentityResolver{jwt: jwt}
}

func (r *tokenIdentityResolver) ResolveIdentity(_ context.Context, hs Handshake) (*Identity, error) {
	token := strings.TrimSpace(hs.Token)
	if token == "" {
		return nil, nil
	}
	claims, err := r.jwt.ParseToken(token)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: claims.UserID}, nil
}
