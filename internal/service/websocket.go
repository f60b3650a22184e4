package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"recovery_hub/internal/models"
	"recovery_hub/internal/repository"
	"recovery_hub/internal/utils"
	"recovery_hub/pkg/config"
)

const (
	maxChatNameLength = 60
	maxRoomIDLength   = 120

	genericErrorMessage = "Something went wrong"
)

type eventHandler func(ctx context.Context, c *Client, data json.RawMessage) error

// WebSocketService 管理所有的 WebSocket 連接、房間成員與事件分派
type WebSocketService struct {
	registry    *RoomRegistry
	connections *ConnectionManager
	broadcaster *Broadcaster
	accounts    AccountStore
	messages    MessageStore
	resolver    IdentityResolver
	cfg         config.RealtimeConfig

	routes map[string]eventHandler
	wg     sync.WaitGroup
}

// NewWebSocketService 創建並初始化新的 WebSocket 服務。
// registry 與 connections 由呼叫端建立一次並共用
func NewWebSocketService(
	registry *RoomRegistry,
	connections *ConnectionManager,
	accounts AccountStore,
	messages MessageStore,
	resolver IdentityResolver,
	cfg config.RealtimeConfig,
) *WebSocketService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = repository.DefaultHistoryLimit
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 10 * time.Second
	}

	s := &WebSocketService{
		registry:    registry,
		connections: connections,
		broadcaster: NewBroadcaster(registry, connections),
		accounts:    accounts,
		messages:    messages,
		resolver:    resolver,
		cfg:         cfg,
	}
	s.routes = s.buildRoutes()
	return s
}

// bind 把 data 解碼成 T 之後才交給 handler
func bind[T any](h func(ctx context.Context, c *Client, payload *T) error) eventHandler {
	return func(ctx context.Context, c *Client, data json.RawMessage) error {
		payload, err := decodePayload[T](data)
		if err != nil {
			return err
		}
		return h(ctx, c, payload)
	}
}

func (s *WebSocketService) buildRoutes() map[string]eventHandler {
	return map[string]eventHandler{
		EventJoinRoom:                bind(s.handleJoin),
		EventLeaveRoom:               bind(s.handleLeave),
		EventSendMessage:             bind(s.handleSendMessage),
		EventTyping:                  bind(s.handleTyping(EventUserTyping)),
		EventStopTyping:              bind(s.handleTyping(EventUserStopTyping)),
		EventRaiseHand:               bind(s.handleHand(EventHandRaised)),
		EventLowerHand:               bind(s.handleHand(EventHandLowered)),
		EventShareReading:            bind(s.handleShareReading),
		EventToggleVideo:             bind(s.handleToggleVideo),
		EventToggleAudio:             bind(s.handleToggleAudio),
		EventVideoOffer:              bind(s.handleVideoOffer),
		EventVideoAnswer:             bind(s.handleVideoAnswer),
		EventNewICECandidate:         bind(s.handleICECandidate),
		EventRequestVideoConnections: bind(s.handleRequestConnections),
		EventSendAnnouncement:        bind(s.handleAnnouncement),
		EventReportUser:              s.handleReportRaw,
	}
}

func (s *WebSocketService) Registry() *RoomRegistry { return s.registry }

// ConnectionCount 回傳目前存活的連線數
func (s *WebSocketService) ConnectionCount() int { return s.connections.Count() }

// Authenticate 透過外部的 IdentityResolver 驗證握手，失敗時回傳 nil
func (s *WebSocketService) Authenticate(ctx context.Context, hs Handshake) *Identity {
	if s.resolver == nil {
		return nil
	}
	identity, err := s.resolver.ResolveIdentity(ctx, hs)
	if err != nil {
		log.Printf("[ws] handshake from %s not authenticated: %v", hs.RemoteAddr, err)
		return nil
	}
	return identity
}

// HandleConnection 處理新的 WebSocket 連接，阻塞直到連線結束
func (s *WebSocketService) HandleConnection(ctx context.Context, conn *websocket.Conn, hs Handshake) {
	s.wg.Add(1)
	defer s.wg.Done()

	client := s.Connect(s.Authenticate(ctx, hs), hs.RemoteAddr, conn)
	defer s.Disconnect(client)

	go client.writePump()
	client.readPump(s.cfg.MaxMessageSize, func(raw []byte) {
		s.Dispatch(client, raw)
	})
}

// Connect 建立並登記一個連線，conn 可以是 nil（測試用）
func (s *WebSocketService) Connect(identity *Identity, addr string, conn *websocket.Conn) *Client {
	client := newClient(conn, addr, identity, s.cfg.SendBuffer)
	s.connections.Add(client)

	userID := "anonymous"
	if identity != nil {
		userID = identity.UserID
	}
	log.Printf("[ws] connection %s opened from %s (user %s)", client.ID(), addr, userID)
	return client
}

// Disconnect 清除連線的房間成員身份並關閉連線，可以重複呼叫
func (s *WebSocketService) Disconnect(c *Client) {
	s.Leave(c)
	if s.connections.Remove(c.ID()) {
		log.Printf("[ws] connection %s from %s closed", c.ID(), c.Addr())
	}
	c.Close()
}

// Dispatch 解碼一個 frame 並交給對應的 handler。handler 的錯誤與 panic
// 都在這裡處理，不會中斷連線的讀取迴圈
func (s *WebSocketService) Dispatch(c *Client, raw []byte) {
	frame, err := decodeFrame(raw)
	if err != nil {
		log.Printf("[ws] invalid frame from %s: %v", c.ID(), err)
		return
	}

	handler, ok := s.routes[frame.Event]
	if !ok {
		log.Printf("[ws] unknown event %q from %s", frame.Event, c.ID())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HandlerTimeout)
	defer cancel()

	s.reportError(c, frame.Event, s.invoke(ctx, c, frame.Event, handler, frame.Data))
}

func (s *WebSocketService) invoke(ctx context.Context, c *Client, event string, h eventHandler, data json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s handler: %v", event, r)
		}
	}()
	return h(ctx, c, data)
}

func (s *WebSocketService) reportError(c *Client, event string, err error) {
	if err == nil {
		return
	}

	if errors.Is(err, errMalformed) {
		log.Printf("[ws] dropped malformed %s from %s", event, c.ID())
		return
	}

	message := genericErrorMessage
	var clientErr *ClientError
	switch {
	case errors.As(err, &clientErr):
		message = clientErr.Message
		if errors.Is(err, ErrStorage) {
			log.Printf("[ws] %s from %s: %v", event, c.ID(), err)
		}
	case errors.Is(err, ErrForbidden):
		// 沒有包成 ClientError 的權限錯誤不回應
		log.Printf("[ws] dropped unauthorized %s from %s", event, c.ID())
		return
	default:
		log.Printf("[ws] %s from %s failed: %v", event, c.ID(), err)
	}

	s.sendTo(c, EventError, ErrorEvent{Message: message})
}

// sendTo 直接排入給指定連線
func (s *WebSocketService) sendTo(c *Client, event string, payload interface{}) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		log.Printf("[ws] encode %s: %v", event, err)
		return
	}
	c.Send(frame)
}

func (s *WebSocketService) handleJoin(ctx context.Context, c *Client, p *JoinRoomPayload) error {
	return s.Join(ctx, c, p.RoomID, string(p.UserID), p.ChatName)
}

// Join 驗證並把連線加入房間。任何檢查或儲存失敗都不會改動 registry
func (s *WebSocketService) Join(ctx context.Context, c *Client, roomID, userID, chatName string) error {
	identity := c.Identity()
	roomID = strings.TrimSpace(roomID)
	chatName = utils.CleanString(chatName, maxChatNameLength)
	userID = strings.TrimSpace(userID)
	if identity != nil && userID == "" {
		userID = identity.UserID
	}

	if identity == nil || userID != identity.UserID ||
		roomID == "" || utils.Length(roomID) > maxRoomIDLength || chatName == "" {
		return validationError("Invalid room join request")
	}

	user, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError("User not found")
		}
		return storageError("Failed to join room", err)
	}
	if models.AdminOnlyRoom(roomID) && !user.IsAdmin {
		return forbiddenError("Room is not available")
	}

	history, err := s.messages.FindRecentByRoomID(ctx, roomID, s.cfg.HistoryLimit)
	if err != nil {
		return storageError("Failed to join room", err)
	}
	if history == nil {
		history = []models.Message{}
	}
	historyFrame, err := encodeFrame(EventMessageHistory, history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	// 單一房間：先離開目前的房間
	s.Leave(c)

	participant := &Participant{
		ConnectionID: c.ID(),
		RoomID:       roomID,
		UserID:       userID,
		ChatName:     chatName,
		IsAdmin:      user.IsAdmin,
		client:       c,
		replayed:     make(map[uint]struct{}, len(history)),
	}
	for _, m := range history {
		participant.replayed[m.ID] = struct{}{}
	}
	c.bind(participant)

	err = s.registry.Add(roomID, participant, func(members []*Participant) {
		c.Send(historyFrame)
		s.replayMissed(ctx, participant)
		s.announcePresence(members,
			EventUserJoined, UserJoinedEvent{UserID: userID, ChatName: chatName, ActiveCount: len(members)},
			models.NewSystemMessage(roomID, chatName+" joined the room"))
	})
	if err != nil {
		c.unbind()
		return err
	}

	log.Printf("[ws] %s joined room %s", chatName, roomID)
	return nil
}

// replayMissed 補送查詢歷史之後、加入房間之前已經廣播出去的消息。
// 在 registry 鎖內執行，此後的消息都會經由廣播送達
func (s *WebSocketService) replayMissed(ctx context.Context, p *Participant) {
	recent, err := s.messages.FindRecentByRoomID(ctx, p.RoomID, s.cfg.HistoryLimit)
	if err != nil {
		log.Printf("[ws] catch-up history for %s in %s: %v", p.ConnectionID, p.RoomID, err)
		return
	}
	for i := range recent {
		if _, ok := p.replayed[recent[i].ID]; ok {
			continue
		}
		p.replayed[recent[i].ID] = struct{}{}
		s.sendTo(p.client, EventNewMessage, &recent[i])
	}
}

func (s *WebSocketService) handleLeave(_ context.Context, c *Client, _ *LeaveRoomPayload) error {
	s.Leave(c)
	return nil
}

// Leave 把連線從所在房間移除。連線不在任何房間時什麼都不做
func (s *WebSocketService) Leave(c *Client) bool {
	left := s.registry.Remove(c.ID(), func(roomID string, removed *Participant, remaining []*Participant) {
		if len(remaining) == 0 {
			return
		}
		s.announcePresence(remaining,
			EventUserLeft, UserLeftEvent{ChatName: removed.ChatName, SocketID: removed.ConnectionID, ActiveCount: len(remaining)},
			models.NewSystemMessage(roomID, removed.ChatName+" left the room"))
	})
	if left {
		c.unbind()
	}
	return left
}

// announcePresence 依序送出 presence 事件、系統消息與成員列表，必須在 registry 鎖內呼叫
func (s *WebSocketService) announcePresence(members []*Participant, event string, presence interface{}, system models.Message) {
	for _, item := range []struct {
		event   string
		payload interface{}
	}{
		{event, presence},
		{EventNewMessage, system},
		{EventActiveUsers, roster(members)},
	} {
		frame, err := encodeFrame(item.event, item.payload)
		if err != nil {
			log.Printf("[ws] encode %s: %v", item.event, err)
			continue
		}
		fanOut(members, "", 0, frame)
	}
}

// Shutdown 關閉所有連線並等待連線處理結束
func (s *WebSocketService) Shutdown(ctx context.Context) error {
	clients := s.connections.Snapshot()
	for _, c := range clients {
		c.Close()
	}
	log.Printf("[ws] closing %d connections", len(clients))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("websocket shutdown: %w", ctx.Err())
	}
}
