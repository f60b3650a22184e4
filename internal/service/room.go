package service

import (
	"errors"
	"sort"
	"sync"
)

// ErrAlreadyInRoom 表示連線已經綁定到某個房間
var ErrAlreadyInRoom = errors.New("connection already joined a room")

// Participant 是連線在房間內的成員資料，只在連線綁定房間期間存在
type Participant struct {
	ConnectionID string
	RoomID       string
	UserID       string
	ChatName     string
	IsAdmin      bool

	client   *Client
	replayed map[uint]struct{} // 加入時已經重播過的消息 ID，只在 registry 鎖內存取
}

// RoomSummary 是 HTTP 端點使用的房間摘要
type RoomSummary struct {
	RoomID string `json:"roomId"`
	Count  int    `json:"count"`
}

type room struct {
	id           string
	participants []*Participant // 依加入順序
}

// RoomRegistry 管理房間與成員，房間存在若且唯若它有成員
type RoomRegistry struct {
	mu          sync.Mutex
	rooms       map[string]*room
	memberships map[string]string // connectionID -> roomID
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:       make(map[string]*room),
		memberships: make(map[string]string),
	}
}

// getOrCreate 呼叫前必須持有 mu
func (r *RoomRegistry) getOrCreate(roomID string) *room {
	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{id: roomID}
		r.rooms[roomID] = rm
	}
	return rm
}

// Add 把成員加入房間。fn 在持有鎖的情況下執行，看到的是加入後的成員列表
func (r *RoomRegistry) Add(roomID string, p *Participant, fn func(members []*Participant)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.memberships[p.ConnectionID]; ok {
		return ErrAlreadyInRoom
	}

	p.RoomID = roomID
	rm := r.getOrCreate(roomID)
	rm.participants = append(rm.participants, p)
	r.memberships[p.ConnectionID] = roomID

	if fn != nil {
		fn(rm.participants)
	}
	return nil
}

// Remove 依連線移除成員。連線不在任何房間時回傳 false 且不呼叫 fn；
// 房間在同一個臨界區內被刪除時 remaining 為空
func (r *RoomRegistry) Remove(connectionID string, fn func(roomID string, removed *Participant, remaining []*Participant)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok := r.memberships[connectionID]
	if !ok {
		return false
	}
	delete(r.memberships, connectionID)

	rm := r.rooms[roomID]
	var removed *Participant
	if rm != nil {
		for i, p := range rm.participants {
			if p.ConnectionID == connectionID {
				removed = p
				rm.participants = append(rm.participants[:i:i], rm.participants[i+1:]...)
				break
			}
		}
		if len(rm.participants) == 0 {
			delete(r.rooms, roomID)
		}
	}

	if fn != nil && removed != nil {
		var remaining []*Participant
		if rm != nil {
			remaining = rm.participants
		}
		fn(roomID, removed, remaining)
	}
	return removed != nil
}

// WithRoom 在持有鎖的情況下對房間成員執行 fn，房間不存在時不執行
func (r *RoomRegistry) WithRoom(roomID string, fn func(members []*Participant)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	fn(rm.participants)
	return true
}

// List 回傳房間成員的快照
func (r *RoomRegistry) List(roomID string) []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]Participant, 0, len(rm.participants))
	for _, p := range rm.participants {
		out = append(out, *p)
	}
	return out
}

// Roster 回傳房間成員的 userId 與 chatName
func (r *RoomRegistry) Roster(roomID string) []RosterEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return []RosterEntry{}
	}
	return roster(rm.participants)
}

func (r *RoomRegistry) Size(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm, ok := r.rooms[roomID]; ok {
		return len(rm.participants)
	}
	return 0
}

func (r *RoomRegistry) Has(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.rooms[roomID]
	return ok
}

// RoomOf 回傳連線目前所在的房間
func (r *RoomRegistry) RoomOf(connectionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok := r.memberships[connectionID]
	return roomID, ok
}

// Rooms 回傳所有存在的房間，依 ID 排序
func (r *RoomRegistry) Rooms() []RoomSummary {
	r.mu.Lock()
	summaries := make([]RoomSummary, 0, len(r.rooms))
	for id, rm := range r.rooms {
		summaries = append(summaries, RoomSummary{RoomID: id, Count: len(rm.participants)})
	}
	r.mu.Unlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].RoomID < summaries[j].RoomID
	})
	return summaries
}

func roster(members []*Participant) []RosterEntry {
	entries := make([]RosterEntry, 0, len(members))
	for _, p := range members {
		entries = append(entries, RosterEntry{UserID: p.UserID, ChatName: p.ChatName})
	}
	return entries
}
