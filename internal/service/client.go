package service

import (
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	defaultSendBuffer = 256
)

// Client 代表一個 WebSocket 客戶端連接
type Client struct {
	id       string
	conn     *websocket.Conn // 測試中可以是 nil
	addr     string
	identity *Identity
	send     chan []byte
	done     chan struct{}
	once     sync.Once

	mu       sync.RWMutex
	roomID   string
	chatName string
	userID   string
	isAdmin  bool // 加入房間時快取的管理員旗標，離開房間後仍保留
}

func newClient(conn *websocket.Conn, addr string, identity *Identity, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &Client{
		id:       uuid.NewString(),
		conn:     conn,
		addr:     addr,
		identity: identity,
		send:     make(chan []byte, buffer),
		done:     make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Identity 回傳握手時驗證的身份，未驗證時為 nil
func (c *Client) Identity() *Identity { return c.identity }

func (c *Client) Addr() string { return c.addr }

func (c *Client) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Client) ChatName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chatName
}

// UserID 回傳加入房間時綁定的用戶 ID
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) IsAdmin() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isAdmin
}

func (c *Client) bind(p *Participant) {
	c.mu.Lock()
	c.roomID = p.RoomID
	c.chatName = p.ChatName
	c.userID = p.UserID
	c.isAdmin = p.IsAdmin
	c.mu.Unlock()
}

// unbind 清除房間資訊，保留管理員快取與聊天名稱
func (c *Client) unbind() {
	c.mu.Lock()
	c.roomID = ""
	c.mu.Unlock()
}

// Send 以非阻塞方式排入一個已編碼的 frame，緩衝已滿時關閉連線
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		log.Printf("[ws] send buffer full for %s (%s); closing connection", c.id, c.addr)
		c.Close()
		return false
	}
}

// Close 可以重複呼叫，write pump 會送出 close frame 並關閉底層連線
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// readPump 持續讀取客戶端消息並交給 handle，直到連線中斷
func (c *Client) readPump(maxMessageSize int64, handle func([]byte)) {
	if maxMessageSize > 0 {
		c.conn.SetReadLimit(maxMessageSize)
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[ws] set read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		handle(message)
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("[ws] message from %s exceeded read limit", c.addr)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		log.Printf("[ws] unexpected close from %s: %v", c.addr, err)
	default:
		log.Printf("[ws] read error from %s: %v", c.addr, err)
	}
}

// writePump 是唯一寫入底層連線的 goroutine
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("[ws] close connection %s: %v", c.addr, err)
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("[ws] write to %s: %v", c.addr, err)
				}
				c.Close()
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// isExpectedCloseError 判斷關閉連線時常見、不需要記錄的錯誤
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "broken pipe")
}
