package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// 客戶端送出的事件
const (
	EventJoinRoom                = "join-room"
	EventLeaveRoom               = "leave-room"
	EventSendMessage             = "send-message"
	EventTyping                  = "typing"
	EventStopTyping              = "stop-typing"
	EventRaiseHand               = "raise-hand"
	EventLowerHand               = "lower-hand"
	EventShareReading            = "share-reading"
	EventToggleVideo             = "toggle-video"
	EventToggleAudio             = "toggle-audio"
	EventVideoOffer              = "video-offer"
	EventVideoAnswer             = "video-answer"
	EventNewICECandidate         = "new-ice-candidate"
	EventRequestVideoConnections = "request-video-connections"
	EventSendAnnouncement        = "send-announcement"
	EventReportUser              = "report-user"
)

// 伺服器送出的事件
const (
	EventError            = "error"
	EventMessageHistory   = "message-history"
	EventUserJoined       = "user-joined"
	EventUserLeft         = "user-left"
	EventActiveUsers      = "active-users"
	EventNewMessage       = "new-message"
	EventUserTyping       = "user-typing"
	EventUserStopTyping   = "user-stop-typing"
	EventHandRaised       = "hand-raised"
	EventHandLowered      = "hand-lowered"
	EventReadingShared    = "reading-shared"
	EventUserVideoToggled = "user-video-toggled"
	EventUserAudioToggled = "user-audio-toggled"
	EventNewAnnouncement  = "new-announcement"
	EventAdminAlert       = "admin-alert"
	EventReportSubmitted  = "report-submitted"
)

// Frame 是 websocket 上唯一的信封格式
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var errMalformed = errors.New("malformed payload")

// encodeFrame 把事件編碼一次，廣播時所有連線共用同一份 bytes
func encodeFrame(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

func decodeFrame(raw []byte) (*Frame, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, err
	}
	if frame.Event == "" {
		return nil, errMalformed
	}
	return &frame, nil
}

// decodePayload 在進入 handler 之前把 data 解成對應的型別
func decodePayload[T any](data json.RawMessage) (*T, error) {
	var payload T
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return &payload, nil
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errMalformed
	}
	return &payload, nil
}

// flexString 接受 JSON 字串或數字，用於客戶端送來的 userId
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// optionalString 永遠不會解碼失敗，非字串的值視為未提供
type optionalString struct {
	Value string
	Set   bool
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err == nil {
		o.Value = v
		o.Set = true
	}
	return nil
}

// 入站 payload

type JoinRoomPayload struct {
	RoomID   string     `json:"roomId"`
	UserID   flexString `json:"userId"`
	ChatName string     `json:"chatName"`
}

type LeaveRoomPayload struct {
	RoomID   string `json:"roomId"`
	ChatName string `json:"chatName"`
}

type SendMessagePayload struct {
	RoomID   string         `json:"roomId"`
	UserID   flexString     `json:"userId"`
	Username optionalString `json:"username"`
	ChatName optionalString `json:"chatName"`
	Message  string         `json:"message"`
}

type PresencePayload struct {
	RoomID   string `json:"roomId"`
	ChatName string `json:"chatName"`
}

type ShareReadingPayload struct {
	RoomID  string `json:"roomId"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type ToggleVideoPayload struct {
	RoomID    string `json:"roomId"`
	IsVideoOn bool   `json:"isVideoOn"`
}

type ToggleAudioPayload struct {
	RoomID    string `json:"roomId"`
	IsAudioOn bool   `json:"isAudioOn"`
}

type VideoOfferPayload struct {
	RoomID string          `json:"roomId"`
	To     string          `json:"to"`
	Offer  json.RawMessage `json:"offer"`
}

type VideoAnswerPayload struct {
	RoomID string          `json:"roomId"`
	To     string          `json:"to"`
	Answer json.RawMessage `json:"answer"`
}

type ICECandidatePayload struct {
	RoomID    string          `json:"roomId"`
	To        string          `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

type RequestConnectionsPayload struct {
	RoomID string `json:"roomId"`
}

type AnnouncementPayload struct {
	Message string `json:"message"`
}

type ReportUserPayload struct {
	RoomID         optionalString `json:"roomId"`
	TargetChatName optionalString `json:"targetChatName"`
	Reason         optionalString `json:"reason"`
}

// 出站 payload

type ErrorEvent struct {
	Message string `json:"message"`
}

type RosterEntry struct {
	UserID   string `json:"userId"`
	ChatName string `json:"chatName"`
}

type UserJoinedEvent struct {
	UserID      string `json:"userId"`
	ChatName    string `json:"chatName"`
	ActiveCount int    `json:"activeCount"`
}

type UserLeftEvent struct {
	ChatName    string `json:"chatName"`
	SocketID    string `json:"socketId"`
	ActiveCount int    `json:"activeCount"`
}

type ChatNameEvent struct {
	ChatName string `json:"chatName"`
}

type ReadingSharedEvent struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type VideoToggledEvent struct {
	SocketID  string `json:"socketId"`
	IsVideoOn bool   `json:"isVideoOn"`
}

type AudioToggledEvent struct {
	SocketID  string `json:"socketId"`
	IsAudioOn bool   `json:"isAudioOn"`
}

type VideoOfferEvent struct {
	From     string          `json:"from"`
	Offer    json.RawMessage `json:"offer"`
	ChatName string          `json:"chatName"`
}

type VideoAnswerEvent struct {
	From   string          `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

type ICECandidateEvent struct {
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

type ConnectionRequestEvent struct {
	From     string `json:"from"`
	ChatName string `json:"chatName"`
}

type AnnouncementEvent struct {
	Message   string    `json:"message"`
	ChatName  string    `json:"chatName"`
	Timestamp time.Time `json:"timestamp"`
}

type AdminAlertEvent struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	RoomID    string    `json:"roomId"`
	Timestamp time.Time `json:"timestamp"`
}

type ReportSubmittedEvent struct {
	Success bool `json:"success"`
}
