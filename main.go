package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"recovery_hub/internal/api"
	"recovery_hub/internal/models"
	"recovery_hub/internal/ratelimit"
	"recovery_hub/internal/repository"
	"recovery_hub/internal/service"
	"recovery_hub/internal/storage"
	"recovery_hub/internal/utils"
	"recovery_hub/pkg/config"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "recovery-hub",
		Short: "Real-time room coordination and signaling hub for recovery meetings",
		RunE:  runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "directory containing config.yaml")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database schema and seed default meetings",
		RunE:  runMigrate,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.Load()
}

// openDatabase 連線、遷移資料庫並寫入預設聚會
func openDatabase(ctx context.Context, cfg *config.Config) (*storage.DB, *repository.Repositories, error) {
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}

	// 自動遷移資料庫結構
	if err := db.AutoMigrate(&models.User{}, &models.Message{}, &models.Meeting{}); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("auto migrate database: %w", err)
	}

	repos := repository.NewRepositories(db)
	created, err := service.NewMeetingService(repos.Meeting).EnsureDefaultMeetings(ctx)
	if err != nil {
		log.Printf("Meeting bootstrap error: %v", err)
	} else if created > 0 {
		log.Printf("Seeded %d default meetings", created)
	}
	return db, repos, nil
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, _, err := openDatabase(context.Background(), cfg)
	if err != nil {
		return err
	}
	log.Println("Database migrated")
	return db.Close()
}

// newRateLimitStore 依設定選擇記憶體或 redis 的計數儲存
func newRateLimitStore(ctx context.Context, cfg config.RateLimitConfig) (ratelimit.Store, func() error, error) {
	switch cfg.Backend {
	case "", "memory":
		return ratelimit.NewMemoryStore(cfg.HighWater), func() error { return nil }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return ratelimit.NewRedisStore(client, cfg.KeyPrefix), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported rate limit backend %q", cfg.Backend)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	// 載入應用程式配置
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, repos, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}

	store, closeStore, err := newRateLimitStore(ctx, cfg.RateLimit)
	if err != nil {
		_ = db.Close()
		return err
	}

	jwt := utils.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	services := service.NewServices(repos, jwt, cfg.Realtime)

	// 設置 Gin 路由
	r := gin.Default()
	api.SetupRoutes(r, api.Dependencies{
		Services: services,
		Repos:    repos,
		JWT:      jwt,
		Limiter:  ratelimit.NewLimiter(store),
		DB:       db,
		Config:   cfg,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	// 收到中斷訊號後關閉 HTTP server、websocket 連線、限流儲存與資料庫
	wait := gfshutdown.GracefulShutdown(ctx, cfg.Server.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
		"websocket": func(ctx context.Context) error {
			return services.WebSocketService.Shutdown(ctx)
		},
		"ratelimit": func(context.Context) error {
			return closeStore()
		},
		"database": func(context.Context) error {
			return db.Close()
		},
	})

	exitCode := <-wait
	log.Printf("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
	return nil
}
