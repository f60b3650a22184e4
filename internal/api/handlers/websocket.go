package handlers

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"recovery_hub/internal/middleware"
	"recovery_hub/internal/service"
)

// WebSocketHandler 處理 WebSocket 連接
type WebSocketHandler struct {
	wsService *service.WebSocketService
	upgrader  websocket.Upgrader
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例
func NewWebSocketHandler(wsService *service.WebSocketService, origins *middleware.OriginPolicy) *WebSocketHandler {
	return &WebSocketHandler{
		wsService: wsService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.CheckOrigin,
		},
	}
}

// HandleWebSocket 升級連線並交給 WebSocketService。token 可以放在
// query 的 token 參數或 Authorization 頭；沒有 token 的連線仍可建立，但無法加入房間
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
	}
	handshake := service.Handshake{
		Token:      token,
		RemoteAddr: middleware.ClientIP(c.Request),
	}

	// 升級失敗時 upgrader 已經寫入錯誤回應
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[ws] upgrade from %s failed: %v", handshake.RemoteAddr, err)
		return
	}

	h.wsService.HandleConnection(c.Request.Context(), conn, handshake)
}
