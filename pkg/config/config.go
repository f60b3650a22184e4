package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Realtime  RealtimeConfig
}

type ServerConfig struct {
	Address         string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	Version         string
}

type DBConfig struct {
	Driver     string // postgres 或 sqlite
	Host       string
	User       string
	Password   string
	Name       string
	Port       int
	SQLitePath string
	TimeZone   string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// LimitRule 是單一具名限流器的固定窗口設定
type LimitRule struct {
	Max    int
	Window time.Duration
}

type RateLimitConfig struct {
	Backend   string // memory 或 redis
	HighWater int
	KeyPrefix string
	Redis     RedisConfig
	Auth      LimitRule
	API       LimitRule
	WS        LimitRule
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RealtimeConfig struct {
	HistoryLimit   int
	SendBuffer     int
	MaxMessageSize int64
	HandlerTimeout time.Duration
}

// Load 讀取 .env、config.yaml 與 HUB_ 前綴的環境變數
// 找不到設定檔時只使用預設值與環境變數
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./pkg/config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)
	v.SetEnvPrefix("HUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.Server.AllowedOrigins == nil {
		config.Server.AllowedOrigins = []string{}
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.allowedOrigins", []string{})
	v.SetDefault("server.shutdownTimeout", 30*time.Second)
	v.SetDefault("server.version", "1.0.0")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "recovery_hub")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.sqlitePath", "recovery_hub.db")
	v.SetDefault("db.timeZone", "UTC")

	v.SetDefault("auth.jwtSecret", "change-in-production")
	v.SetDefault("auth.tokenTTL", 7*24*time.Hour)

	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.highWater", 5000)
	v.SetDefault("ratelimit.keyPrefix", "ratelimit:")
	v.SetDefault("ratelimit.redis.addr", "localhost:6379")
	v.SetDefault("ratelimit.redis.password", "")
	v.SetDefault("ratelimit.redis.db", 0)
	v.SetDefault("ratelimit.auth.max", 20)
	v.SetDefault("ratelimit.auth.window", 15*time.Minute)
	v.SetDefault("ratelimit.api.max", 120)
	v.SetDefault("ratelimit.api.window", time.Minute)
	v.SetDefault("ratelimit.ws.max", 30)
	v.SetDefault("ratelimit.ws.window", time.Minute)

	v.SetDefault("realtime.historyLimit", 50)
	v.SetDefault("realtime.sendBuffer", 256)
	v.SetDefault("realtime.maxMessageSize", 64*1024)
	v.SetDefault("realtime.handlerTimeout", 10*time.Second)
}
