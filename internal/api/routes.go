package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recovery_hub/internal/api/handlers"
	"recovery_hub/internal/middleware"
	"recovery_hub/internal/ratelimit"
	"recovery_hub/internal/repository"
	"recovery_hub/internal/service"
	"recovery_hub/internal/utils"
	"recovery_hub/pkg/config"
)

// Dependencies 是建立路由需要的元件
type Dependencies struct {
	Services *service.Services
	Repos    *repository.Repositories
	JWT      *utils.JWT
	Limiter  *ratelimit.Limiter
	DB       handlers.Pinger
	Config   *config.Config
}

func SetupRoutes(r *gin.Engine, deps Dependencies) {
	cfg := deps.Config
	ws := deps.Services.WebSocketService

	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(deps.Services.UserService, deps.JWT)
	roomHandler := handlers.NewRoomHandler(ws.Registry(), deps.Repos.Message, deps.Services.UserService)
	meetingHandler := handlers.NewMeetingHandler(deps.Services.MeetingService)
	healthHandler := handlers.NewHealthHandler(deps.DB, ws, cfg.Server.Version)
	wsHandler := handlers.NewWebSocketHandler(ws, middleware.NewOriginPolicy(cfg.Server.AllowedOrigins))

	limit := func(name string, rule config.LimitRule) gin.HandlerFunc {
		return middleware.RateLimit(deps.Limiter, name, rule.Max, rule.Window)
	}

	r.Use(middleware.SecurityHeaders())

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// API 路由群組
	api := r.Group("/api")

	// 公開路由
	{
		auth := api.Group("/auth", limit("auth", cfg.RateLimit.Auth))
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)

		api.GET("/health", healthHandler.Health)
		api.GET("/meetings", limit("api", cfg.RateLimit.API), meetingHandler.ListMeetings)

		api.GET("/rooms", roomHandler.ListRooms)
		api.GET("/rooms/:roomId/presence", roomHandler.GetPresence)
	}

	// 需要驗證的路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware(deps.JWT))
	{
		authorized.GET("/rooms/:roomId/messages", roomHandler.GetMessages)
	}

	// WebSocket 連接點，身份在握手時由 token 解析
	r.GET("/ws", limit("ws", cfg.RateLimit.WS), wsHandler.HandleWebSocket)
}
