package service

import (
	"fmt"

	"recovery_hub/internal/models"
)

// Broadcaster 依 RoomRegistry 與 ConnectionManager 計算收件者並排入 frame
type Broadcaster struct {
	registry    *RoomRegistry
	connections *ConnectionManager
}

func NewBroadcaster(registry *RoomRegistry, connections *ConnectionManager) *Broadcaster {
	return &Broadcaster{registry: registry, connections: connections}
}

// ToRoom 送給房間內所有成員，包含發送者。在 registry 的鎖內排入，
// 因此同一房間的事件在每個成員上的順序一致
func (b *Broadcaster) ToRoom(roomID, event string, payload interface{}) error {
	return b.ToRoomExcept(roomID, "", event, payload)
}

// ToRoomExcept 送給房間內除了 exceptID 以外的成員
func (b *Broadcaster) ToRoomExcept(roomID, exceptID, event string, payload interface{}) error {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	b.registry.WithRoom(roomID, func(members []*Participant) {
		fanOut(members, exceptID, 0, frame)
	})
	return nil
}

// ToRoomMessage 廣播一則已寫入的消息，跳過加入時已經在歷史中收到它的成員
func (b *Broadcaster) ToRoomMessage(message *models.Message) error {
	frame, err := encodeFrame(EventNewMessage, message)
	if err != nil {
		return fmt.Errorf("encode %s: %w", EventNewMessage, err)
	}
	b.registry.WithRoom(message.RoomID, func(members []*Participant) {
		fanOut(members, "", message.ID, frame)
	})
	return nil
}

// ToConnection 單播，目標不存在時靜默丟棄並回傳 false
func (b *Broadcaster) ToConnection(connectionID, event string, payload interface{}) (bool, error) {
	c, ok := b.connections.Get(connectionID)
	if !ok {
		return false, nil
	}
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", event, err)
	}
	return c.Send(frame), nil
}

// ToAll 送給所有連線，不論是否已驗證或加入房間
func (b *Broadcaster) ToAll(event string, payload interface{}) error {
	return b.toMatching(event, payload, func(*Client) bool { return true })
}

// ToAdmins 送給加入房間時被標記為管理員的連線
func (b *Broadcaster) ToAdmins(event string, payload interface{}) error {
	return b.toMatching(event, payload, (*Client).IsAdmin)
}

func (b *Broadcaster) toMatching(event string, payload interface{}, match func(*Client) bool) error {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	for _, c := range b.connections.Snapshot() {
		if match(c) {
			c.Send(frame)
		}
	}
	return nil
}

// fanOut 必須在持有 registry 鎖時呼叫。messageID 為 0 表示不是已寫入的消息
func fanOut(members []*Participant, exceptID string, messageID uint, frame []byte) {
	for _, p := range members {
		if p.client == nil || p.ConnectionID == exceptID {
			continue
		}
		if messageID != 0 {
			if _, seen := p.replayed[messageID]; seen {
				continue
			}
		}
		p.client.Send(frame)
	}
}
