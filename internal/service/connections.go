package service

import "sync"

// ConnectionManager 追蹤所有存活的連線，不論是否已加入房間
type ConnectionManager struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{clients: make(map[string]*Client)}
}

func (m *ConnectionManager) Add(c *Client) {
	m.mu.Lock()
	m.clients[c.ID()] = c
	m.mu.Unlock()
}

// Remove 回傳連線是否原本存在
func (m *ConnectionManager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[id]; !ok {
		return false
	}
	delete(m.clients, id)
	return true
}

func (m *ConnectionManager) Get(id string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[id]
	return c, ok
}

func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Snapshot 回傳目前連線的副本，呼叫端可以在鎖外逐一處理
func (m *ConnectionManager) Snapshot() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out
}
