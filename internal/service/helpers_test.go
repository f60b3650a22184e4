package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"recovery_hub/internal/models"
	"recovery_hub/internal/repository"
	"recovery_hub/internal/storage"
	"recovery_hub/pkg/config"
)

var errBoom = errors.New("boom")

type harness struct {
	t        *testing.T
	svc      *WebSocketService
	db       *storage.DB
	repos    *repository.Repositories
	messages *flakyMessages
}

// flakyMessages 包裝真正的 MessageStore，可以讓寫入或查詢失敗
type flakyMessages struct {
	MessageStore
	failCreate  bool
	failHistory bool
	// afterHistory 在下一次歷史查詢完成後執行一次
	afterHistory func()
}

func (f *flakyMessages) Create(ctx context.Context, m *models.Message) error {
	if f.failCreate {
		return errBoom
	}
	return f.MessageStore.Create(ctx, m)
}

func (f *flakyMessages) FindRecentByRoomID(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	if f.failHistory {
		return nil, errBoom
	}
	msgs, err := f.MessageStore.FindRecentByRoomID(ctx, roomID, limit)
	if hook := f.afterHistory; hook != nil {
		f.afterHistory = nil
		hook()
	}
	return msgs, err
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Message{}, &models.Meeting{}))
	t.Cleanup(func() { _ = db.Close() })

	repos := repository.NewRepositories(db)
	messages := &flakyMessages{MessageStore: repos.Message}
	svc := NewWebSocketService(NewRoomRegistry(), NewConnectionManager(), repos.User, messages, nil, config.RealtimeConfig{
		HistoryLimit:   50,
		SendBuffer:     256,
		HandlerTimeout: 5 * time.Second,
	})
	return &harness{t: t, svc: svc, db: db, repos: repos, messages: messages}
}

func (h *harness) user(username, chatName string, admin bool) *models.User {
	h.t.Helper()
	u := &models.User{Username: username, Password: "x", ChatName: chatName, IsAdmin: admin}
	require.NoError(h.t, h.repos.User.Create(context.Background(), u))
	return u
}

// connect 建立一個沒有底層 websocket 的連線
func (h *harness) connect(u *models.User) *Client {
	var identity *Identity
	if u != nil {
		identity = &Identity{UserID: u.PublicID()}
	}
	return h.svc.Connect(identity, "127.0.0.1:1234", nil)
}

func (h *harness) emit(c *Client, event string, payload interface{}) {
	h.t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(h.t, err)
	raw, err := json.Marshal(Frame{Event: event, Data: data})
	require.NoError(h.t, err)
	h.svc.Dispatch(c, raw)
}

func (h *harness) join(c *Client, u *models.User, roomID string) {
	h.t.Helper()
	h.emit(c, EventJoinRoom, map[string]string{
		"roomId":   roomID,
		"userId":   u.PublicID(),
		"chatName": u.ChatName,
	})
	require.Equal(h.t, roomID, c.RoomID())
}

func (h *harness) setAdmin(u *models.User, admin bool) {
	h.t.Helper()
	require.NoError(h.t, h.db.Model(u).Update("is_admin", admin).Error)
}

func (h *harness) storedMessages(roomID string) []models.Message {
	h.t.Helper()
	msgs, err := h.repos.Message.FindRecentByRoomID(context.Background(), roomID, 200)
	require.NoError(h.t, err)
	return msgs
}

// drain 取出目前排在連線緩衝內的所有 frame
func drain(c *Client) []Frame {
	var frames []Frame
	for {
		select {
		case raw := <-c.send:
			var f Frame
			if err := json.Unmarshal(raw, &f); err == nil {
				frames = append(frames, f)
			}
		default:
			return frames
		}
	}
}

func eventNames(frames []Frame) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Event)
	}
	return names
}

func framesOf(frames []Frame, event string) []Frame {
	var out []Frame
	for _, f := range frames {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func decodeData[T any](t *testing.T, f Frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Data, &v))
	return v
}
