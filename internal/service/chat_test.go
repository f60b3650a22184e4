package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recovery_hub/internal/models"
)

func TestSendMessageBroadcastsAndPersists(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	c1 := h.connect(alice)
	c2 := h.connect(bob)
	h.join(c1, alice, "na")
	h.join(c2, bob, "na")
	drain(c1)
	drain(c2)

	h.emit(c1, EventSendMessage, map[string]string{
		"roomId":   "na",
		"userId":   alice.PublicID(),
		"username": "alice",
		"chatName": "Alice",
		"message":  "hello",
	})

	received := framesOf(drain(c2), EventNewMessage)
	require.Len(t, received, 1)
	msg := decodeData[models.Message](t, received[0])
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, "Alice", msg.ChatName)
	assert.Equal(t, alice.PublicID(), msg.UserID)
	assert.False(t, msg.IsSystemMessage)
	assert.False(t, msg.Timestamp.IsZero())

	// 發送者自己也會收到
	assert.Len(t, framesOf(drain(c1), EventNewMessage), 1)

	stored := h.storedMessages("na")
	require.Len(t, stored, 1)
	assert.Equal(t, "hello", stored[0].Text)
	assert.Equal(t, "na", stored[0].RoomID)
	assert.True(t, stored[0].Timestamp.Equal(msg.Timestamp))
}

func TestSendMessageTooLong(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	c1 := h.connect(alice)
	c2 := h.connect(bob)
	h.join(c1, alice, "na")
	h.join(c2, bob, "na")
	drain(c1)
	drain(c2)

	h.emit(c1, EventSendMessage, map[string]string{
		"roomId":   "na",
		"chatName": "Alice",
		"message":  strings.Repeat("x", 2001),
	})

	frames := drain(c1)
	require.Len(t, frames, 1)
	assert.Equal(t, EventError, frames[0].Event)
	assert.Equal(t, "Message is too long (max 2000 characters)", decodeData[ErrorEvent](t, frames[0]).Message)
	assert.Empty(t, drain(c2))
	assert.Empty(t, h.storedMessages("na"))
}

func TestSendMessageValidation(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	c := h.connect(alice)
	h.join(c, alice, "na")
	drain(c)

	tests := []struct {
		name    string
		payload map[string]string
		want    string
	}{
		{"empty message", map[string]string{"roomId": "na", "message": "   "}, "Message cannot be empty"},
		{"missing room", map[string]string{"message": "hi"}, "Invalid message request"},
		{"not a member", map[string]string{"roomId": "aa", "message": "hi"}, "Join the room before sending messages"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.emit(c, EventSendMessage, tt.payload)
			frames := drain(c)
			require.Len(t, frames, 1)
			assert.Equal(t, tt.want, decodeData[ErrorEvent](t, frames[0]).Message)
		})
	}
	assert.Empty(t, h.storedMessages("na"))
}

func TestSendMessageFallbackNames(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	c := h.connect(alice)
	h.join(c, alice, "na")
	drain(c)

	h.emit(c, EventSendMessage, map[string]interface{}{"roomId": "na", "message": "hi", "chatName": 7})

	frames := framesOf(drain(c), EventNewMessage)
	require.Len(t, frames, 1)
	msg := decodeData[models.Message](t, frames[0])
	assert.Equal(t, "Alice", msg.ChatName)
	assert.Equal(t, "Alice", msg.Username)
}

func TestSendMessageStorageFailure(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	c := h.connect(alice)
	h.join(c, alice, "na")
	drain(c)

	h.messages.failCreate = true
	h.emit(c, EventSendMessage, map[string]string{"roomId": "na", "message": "hi"})

	frames := drain(c)
	require.Len(t, frames, 1)
	assert.Equal(t, "Failed to send message", decodeData[ErrorEvent](t, frames[0]).Message)
}

func TestTypingExcludesSender(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	c1 := h.connect(alice)
	c2 := h.connect(bob)
	h.join(c1, alice, "na")
	h.join(c2, bob, "na")
	drain(c1)
	drain(c2)

	h.emit(c1, EventTyping, map[string]string{"roomId": "na", "chatName": "Alice"})
	h.emit(c1, EventStopTyping, map[string]string{"roomId": "na", "chatName": "Alice"})

	assert.Empty(t, drain(c1))
	frames := drain(c2)
	assert.Equal(t, []string{EventUserTyping, EventUserStopTyping}, eventNames(frames))
	assert.Equal(t, "Alice", decodeData[ChatNameEvent](t, frames[0]).ChatName)
}

func TestRoomWideEphemeralEventsIncludeSender(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	c1 := h.connect(alice)
	c2 := h.connect(bob)
	h.join(c1, alice, "open")
	h.join(c2, bob, "open")
	drain(c1)
	drain(c2)

	h.emit(c1, EventRaiseHand, map[string]string{"roomId": "open", "chatName": "Alice"})
	h.emit(c1, EventLowerHand, map[string]string{"roomId": "open", "chatName": "Alice"})
	h.emit(c1, EventShareReading, map[string]string{"roomId": "open", "title": "Serenity", "content": "Grant me..."})

	want := []string{EventHandRaised, EventHandLowered, EventReadingShared}
	f1 := drain(c1)
	assert.Equal(t, want, eventNames(f1))
	assert.Equal(t, want, eventNames(drain(c2)))
	assert.Equal(t, ReadingSharedEvent{Title: "Serenity", Content: "Grant me..."}, decodeData[ReadingSharedEvent](t, f1[2]))

	// roomId 缺少時直接丟棄，不回報錯誤
	h.emit(c1, EventRaiseHand, map[string]string{"chatName": "Alice"})
	assert.Empty(t, drain(c1))
}

func TestToggleMediaGoesToOthers(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	c1 := h.connect(alice)
	c2 := h.connect(bob)
	h.join(c1, alice, "newcomers-daily")
	h.join(c2, bob, "newcomers-daily")
	drain(c1)
	drain(c2)

	h.emit(c1, EventToggleVideo, map[string]interface{}{"roomId": "newcomers-daily", "isVideoOn": true})
	h.emit(c1, EventToggleAudio, map[string]interface{}{"roomId": "newcomers-daily", "isAudioOn": false})

	assert.Empty(t, drain(c1))
	frames := drain(c2)
	require.Equal(t, []string{EventUserVideoToggled, EventUserAudioToggled}, eventNames(frames))
	assert.Equal(t, VideoToggledEvent{SocketID: c1.ID(), IsVideoOn: true}, decodeData[VideoToggledEvent](t, frames[0]))
	assert.Equal(t, AudioToggledEvent{SocketID: c1.ID(), IsAudioOn: false}, decodeData[AudioToggledEvent](t, frames[1]))
}

func TestRoomFanOutOrderIsConsistent(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	bob := h.user("bob", "Bob", false)

	c1 := h.connect(alice)
	c2 := h.connect(bob)
	h.join(c1, alice, "na")
	h.join(c2, bob, "na")
	drain(c1)
	drain(c2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			h.emit(c1, EventSendMessage, map[string]string{"roomId": "na", "message": "from alice"})
		}
	}()
	for i := 0; i < 20; i++ {
		h.emit(c2, EventSendMessage, map[string]string{"roomId": "na", "message": "from bob"})
	}
	<-done

	texts := func(frames []Frame) []string {
		var out []string
		for _, f := range framesOf(frames, EventNewMessage) {
			out = append(out, decodeData[models.Message](t, f).Text)
		}
		return out
	}
	got1 := texts(drain(c1))
	got2 := texts(drain(c2))
	assert.Len(t, got1, 40)
	assert.Equal(t, got1, got2)
}

func TestSendMessageIntoReservedRoomRejected(t *testing.T) {
	h := newHarness(t)
	alice := h.user("alice", "Alice", false)
	admin := h.user("admin", "Admin", true)

	for _, tc := range []struct {
		user   *models.User
		roomID string
	}{
		{alice, models.GlobalRoomID},
		{admin, models.AdminAlertsRoomID},
	} {
		c := h.connect(tc.user)
		h.join(c, tc.user, tc.roomID)
		drain(c)

		h.emit(c, EventSendMessage, map[string]string{"roomId": tc.roomID, "message": "hello"})
		frames := drain(c)
		require.Len(t, frames, 1, tc.roomID)
		assert.Equal(t, EventError, frames[0].Event)
		assert.Equal(t, "This room is read-only", decodeData[ErrorEvent](t, frames[0]).Message)
		assert.Empty(t, h.storedMessages(tc.roomID))
	}
}
