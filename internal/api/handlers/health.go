package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger 檢查資料庫是否可用
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionCounter 回傳目前的 websocket 連線數
type ConnectionCounter interface {
	ConnectionCount() int
}

type HealthHandler struct {
	db          Pinger
	connections ConnectionCounter
	version     string
	startedAt   time.Time
}

func NewHealthHandler(db Pinger, connections ConnectionCounter, version string) *HealthHandler {
	return &HealthHandler{db: db, connections: connections, version: version, startedAt: time.Now()}
}

// Health 基本的健康檢查，資料庫無法連線時回傳 503
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	code, status, database := http.StatusOK, "ok", "connected"
	if err := h.db.Ping(ctx); err != nil {
		code, status, database = http.StatusServiceUnavailable, "degraded", "disconnected"
	}

	c.JSON(code, gin.H{
		"status":      status,
		"database":    database,
		"uptime":      int(time.Since(h.startedAt).Seconds()),
		"version":     h.version,
		"connections": h.connections.ConnectionCount(),
		"timestamp":   time.Now().UTC(),
	})
}
