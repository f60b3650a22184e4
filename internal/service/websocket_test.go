package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recovery_hub/internal/models"
)

func TestJoinSendsHistoryThenPresence(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	ctx := context.Background()
	for _, text := range []string{"first", "second"} {
		require.NoError(t, h.repos.Message.Create(ctx, &models.Message{RoomID: "na", UserID: "1", ChatName: "Old", Text: text}))
		time.Sleep(2 * time.Millisecond)
	}

	c1 := h.connect(alice)
	h.join(c1, alice, "na")

	frames := drain(c1)
	assert.Equal(t, []string{EventMessageHistory, EventUserJoined, EventNewMessage, EventActiveUsers}, eventNames(frames))

	history := decodeData[[]models.Message](t, frames[0])
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Text)
	assert.Equal(t, "second", history[1].Text)

	joined := decodeData[UserJoinedEvent](t, frames[1])
	assert.Equal(t, UserJoinedEvent{UserID: alice.PublicID(), ChatName: "Alice", ActiveCount: 1}, joined)

	system := decodeData[models.Message](t, frames[2])
	assert.True(t, system.IsSystemMessage)
	assert.Equal(t, "system", system.UserID)
	assert.Equal(t, "Alice joined the room", system.Text)

	c2 := h.connect(bob)
	h.join(c2, bob, "na")

	frames = drain(c1)
	assert.Equal(t, []string{EventUserJoined, EventNewMessage, EventActiveUsers}, eventNames(frames))
	assert.Equal(t, 2, decodeData[UserJoinedEvent](t, frames[0]).ActiveCount)
	assert.Equal(t, []RosterEntry{
		{UserID: alice.PublicID(), ChatName: "Alice"},
		{UserID: bob.PublicID(), ChatName: "Bob"},
	}, decodeData[[]RosterEntry](t, frames[2]))

	assert.Equal(t, EventMessageHistory, drain(c2)[0].Event)

	// 系統消息不寫入資料庫
	assert.Len(t, h.storedMessages("na"), 2)
}

func TestJoinUnknownUserCreatesNoParticipant(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	watcher := h.connect(alice)
	h.join(watcher, alice, "na")
	drain(watcher)

	ghost := h.svc.Connect(&Identity{UserID: "4242"}, "127.0.0.1:1", nil)
	h.emit(ghost, EventJoinRoom, map[string]string{"roomId": "na", "userId": "4242", "chatName": "Ghost"})

	frames := drain(ghost)
	require.Len(t, frames, 1)
	assert.Equal(t, EventError, frames[0].Event)
	assert.Equal(t, "User not found", decodeData[ErrorEvent](t, frames[0]).Message)

	assert.Empty(t, drain(watcher))
	assert.Equal(t, 1, h.svc.Registry().Size("na"))
	_, ok := h.svc.Registry().RoomOf(ghost.ID())
	assert.False(t, ok)
}

func TestJoinRejectsInvalidRequests(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	tests := []struct {
		name    string
		user    *Identity
		payload map[string]interface{}
	}{
		{"no identity", nil, map[string]interface{}{"roomId": "na", "userId": alice.PublicID(), "chatName": "Alice"}},
		{"other user id", &Identity{UserID: alice.PublicID()}, map[string]interface{}{"roomId": "na", "userId": bob.PublicID(), "chatName": "Alice"}},
		{"blank room", &Identity{UserID: alice.PublicID()}, map[string]interface{}{"roomId": "   ", "chatName": "Alice"}},
		{"blank chat name", &Identity{UserID: alice.PublicID()}, map[string]interface{}{"roomId": "na", "chatName": " "}},
		{"room id too long", &Identity{UserID: alice.PublicID()}, map[string]interface{}{"roomId": strings.Repeat("r", 121), "chatName": "Alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := h.svc.Connect(tt.user, "127.0.0.1:1", nil)
			h.emit(c, EventJoinRoom, tt.payload)

			frames := drain(c)
			require.Len(t, frames, 1)
			assert.Equal(t, "Invalid room join request", decodeData[ErrorEvent](t, frames[0]).Message)
			assert.Empty(t, h.svc.Registry().Rooms())
		})
	}
}

func TestJoinAcceptsNumericUserIDAndTruncatesChatName(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	c := h.connect(alice)

	h.emit(c, EventJoinRoom, map[string]interface{}{
		"roomId":   "  open  ",
		"userId":   alice.ID,
		"chatName": strings.Repeat("a", 80),
	})

	members := h.svc.Registry().List("open")
	require.Len(t, members, 1)
	assert.Equal(t, strings.Repeat("a", 60), members[0].ChatName)
	assert.Equal(t, alice.PublicID(), members[0].UserID)
}

func TestJoinStorageFailureLeavesRegistryUntouched(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	c := h.connect(alice)
	h.join(c, alice, "aa")
	drain(c)

	h.messages.failHistory = true
	h.emit(c, EventJoinRoom, map[string]string{"roomId": "na", "userId": alice.PublicID(), "chatName": "Alice"})

	frames := drain(c)
	require.Len(t, frames, 1)
	assert.Equal(t, "Failed to join room", decodeData[ErrorEvent](t, frames[0]).Message)
	assert.Equal(t, "aa", c.RoomID())
	assert.Equal(t, 1, h.svc.Registry().Size("aa"))
	assert.False(t, h.svc.Registry().Has("na"))
}

func TestJoinAnotherRoomLeavesPrevious(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	c1 := h.connect(alice)
	c2 := h.connect(bob)
	h.join(c1, alice, "aa")
	h.join(c2, bob, "aa")
	drain(c1)
	drain(c2)

	h.join(c1, alice, "na")

	frames := drain(c2)
	assert.Equal(t, []string{EventUserLeft, EventNewMessage, EventActiveUsers}, eventNames(frames))
	left := decodeData[UserLeftEvent](t, frames[0])
	assert.Equal(t, UserLeftEvent{ChatName: "Alice", SocketID: c1.ID(), ActiveCount: 1}, left)

	assert.Equal(t, 1, h.svc.Registry().Size("aa"))
	assert.Equal(t, 1, h.svc.Registry().Size("na"))
}

func TestLeaveBroadcastsToRemainingMembers(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	c1 := h.connect(alice)
	c2 := h.connect(bob)
	h.join(c1, alice, "na")
	h.join(c2, bob, "na")
	drain(c1)
	drain(c2)

	// roomId 與 chatName 以連線自己的成員資料為準
	h.emit(c2, EventLeaveRoom, map[string]string{"roomId": "aa", "chatName": "Someone"})

	frames := drain(c1)
	assert.Equal(t, []string{EventUserLeft, EventNewMessage, EventActiveUsers}, eventNames(frames))
	assert.Equal(t, "Bob left the room", decodeData[models.Message](t, frames[1]).Text)
	assert.Equal(t, []RosterEntry{{UserID: alice.PublicID(), ChatName: "Alice"}}, decodeData[[]RosterEntry](t, frames[2]))
	assert.Empty(t, drain(c2))
	assert.Equal(t, "", c2.RoomID())

	h.emit(c1, EventLeaveRoom, nil)
	assert.Empty(t, drain(c1))
	assert.False(t, h.svc.Registry().Has("na"))
}

func TestLeaveWithoutRoomIsNoop(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	member := h.connect(bob)
	h.join(member, bob, "na")
	drain(member)

	idle := h.connect(alice)
	h.emit(idle, EventLeaveRoom, map[string]string{"roomId": "na", "chatName": "Alice"})
	assert.False(t, h.svc.Leave(idle))

	assert.Empty(t, drain(idle))
	assert.Empty(t, drain(member))
	assert.Equal(t, 1, h.svc.Registry().Size("na"))
}

func TestDisconnectCleansUpMembership(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	c1 := h.connect(alice)
	c2 := h.connect(bob)
	h.join(c1, alice, "na")
	h.join(c2, bob, "na")
	drain(c1)

	h.svc.Disconnect(c2)
	h.svc.Disconnect(c2)

	assert.Equal(t, []string{EventUserLeft, EventNewMessage, EventActiveUsers}, eventNames(drain(c1)))
	assert.Equal(t, 1, h.svc.ConnectionCount())
	assert.Equal(t, 1, h.svc.Registry().Size("na"))
	assert.False(t, c2.Send([]byte("{}")))
}

func TestDispatchIgnoresUnknownAndMalformedFrames(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	c := h.connect(alice)

	h.svc.Dispatch(c, []byte("not json"))
	h.svc.Dispatch(c, []byte(`{"data":{}}`))
	h.svc.Dispatch(c, []byte(`{"event":"does-not-exist","data":{}}`))
	h.svc.Dispatch(c, []byte(`{"event":"typing","data":"oops"}`))

	assert.Empty(t, drain(c))
}

func TestDispatchRecoversFromHandlerPanic(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	c := h.connect(alice)

	h.svc.routes["explode"] = func(context.Context, *Client, json.RawMessage) error {
		panic("kaboom")
	}
	h.svc.Dispatch(c, []byte(`{"event":"explode"}`))

	frames := drain(c)
	require.Len(t, frames, 1)
	assert.Equal(t, genericErrorMessage, decodeData[ErrorEvent](t, frames[0]).Message)

	// 之後的事件照常處理
	h.join(c, alice, "na")
	assert.Equal(t, 1, h.svc.Registry().Size("na"))
}

func TestSendBufferOverflowClosesConnection(t *testing.T) {
	c := newClient(nil, "127.0.0.1:1", nil, 2)

	assert.True(t, c.Send([]byte("1")))
	assert.True(t, c.Send([]byte("2")))
	assert.False(t, c.Send([]byte("3")))

	select {
	case <-c.done:
	default:
		t.Fatal("expected connection to be closed after overflow")
	}
	assert.False(t, c.Send([]byte("4")))
}

func TestShutdownClosesConnections(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	c := h.connect(alice)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.svc.Shutdown(ctx))

	select {
	case <-c.done:
	default:
		t.Fatal("expected connection to be closed")
	}
}

func TestJoinReplaysMessageSentWhileLoadingHistory(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	c1 := h.connect(alice)
	h.join(c1, alice, "na")
	drain(c1)

	// alice 在 bob 查完歷史、尚未加入房間時發言
	h.messages.afterHistory = func() {
		h.emit(c1, EventSendMessage, map[string]string{"roomId": "na", "message": "while you were loading"})
	}
	c2 := h.connect(bob)
	h.join(c2, bob, "na")

	frames := drain(c2)
	require.Equal(t, []string{EventMessageHistory, EventNewMessage, EventUserJoined, EventNewMessage, EventActiveUsers}, eventNames(frames))
	assert.Empty(t, decodeData[[]models.Message](t, frames[0]))
	missed := decodeData[models.Message](t, frames[1])
	assert.Equal(t, "while you were loading", missed.Text)
	assert.False(t, missed.IsSystemMessage)

	var own int
	for _, f := range framesOf(drain(c1), EventNewMessage) {
		if decodeData[models.Message](t, f).Text == "while you were loading" {
			own++
		}
	}
	assert.Equal(t, 1, own)
	assert.Len(t, h.storedMessages("na"), 1)
}

func TestStoredMessageNotRedeliveredAfterHistory(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	c1 := h.connect(alice)
	h.join(c1, alice, "na")
	drain(c1)

	// 已寫入但還沒廣播的消息會出現在 bob 的歷史裡
	msg := &models.Message{RoomID: "na", UserID: alice.PublicID(), ChatName: "Alice", Text: "late broadcast"}
	require.NoError(t, h.repos.Message.Create(context.Background(), msg))

	c2 := h.connect(bob)
	h.join(c2, bob, "na")
	history := decodeData[[]models.Message](t, drain(c2)[0])
	require.Len(t, history, 1)
	drain(c1)

	require.NoError(t, h.svc.broadcaster.ToRoomMessage(msg))
	assert.Empty(t, drain(c2))
	assert.Len(t, framesOf(drain(c1), EventNewMessage), 1)
}

func TestAdminAlertsRoomRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	member := h.user("member", "Member", false)
	admin := h.user("admin", "Admin", true)
	require.NoError(t, h.repos.Message.Create(context.Background(), &models.Message{
		RoomID: models.AdminAlertsRoomID, UserID: "1", ChatName: "Safety Bot", Text: "SAFETY REPORT: private", Type: models.MessageTypeAlert,
	}))

	c := h.connect(member)
	h.emit(c, EventJoinRoom, map[string]string{"roomId": models.AdminAlertsRoomID, "chatName": "Member"})
	frames := drain(c)
	require.Len(t, frames, 1)
	assert.Equal(t, EventError, frames[0].Event)
	assert.Equal(t, "Room is not available", decodeData[ErrorEvent](t, frames[0]).Message)
	assert.False(t, h.svc.Registry().Has(models.AdminAlertsRoomID))
	assert.Empty(t, c.RoomID())

	ac := h.connect(admin)
	h.join(ac, admin, models.AdminAlertsRoomID)
	history := decodeData[[]models.Message](t, drain(ac)[0])
	require.Len(t, history, 1)
	assert.Equal(t, "SAFETY REPORT: private", history[0].Text)
}
