package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	Matching  MatchingConfig
	Logging   LoggingConfig
	Public    PublicConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig points at the optional users directory.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret string
}

type WebSocketConfig struct {
	ReadLimit      int64
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	RateLimit      float64
	RateBurst      int
	AllowedOrigins []string
}

type MatchingConfig struct {
	PremiumPriority      bool
	GenderFilterFreeUses int
	DailyLimit           int
	MaxInterests         int
	HousekeepingInterval time.Duration
	UsageCacheSize       int
}

type LoggingConfig struct {
	Level string
}

type PublicConfig struct {
	GoogleClientID string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)

	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("WS_READ_LIMIT", 64*1024)
	v.SetDefault("WS_PING_INTERVAL", 25*time.Second)
	v.SetDefault("WS_PONG_WAIT", 60*time.Second)
	v.SetDefault("WS_WRITE_WAIT", 10*time.Second)
	v.SetDefault("WS_SEND_BUFFER", 256)
	v.SetDefault("WS_RATE_LIMIT", 50.0)
	v.SetDefault("WS_RATE_BURST", 100)
	v.SetDefault("WS_ALLOWED_ORIGINS", "")

	v.SetDefault("MATCH_PREMIUM_PRIORITY", true)
	v.SetDefault("MATCH_GENDER_FILTER_FREE_USES", 2)
	v.SetDefault("MATCH_DAILY_LIMIT", 0)
	v.SetDefault("MATCH_MAX_INTERESTS", 20)
	v.SetDefault("MATCH_HOUSEKEEPING_INTERVAL", 30*time.Second)
	v.SetDefault("MATCH_USAGE_CACHE_SIZE", 100000)

	v.SetDefault("LOG_LEVEL", "info")
}

// Load loads configuration from environment variables or .env file
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Try to read from .env file, but don't fail if it doesn't exist
	_ = v.ReadInConfig()

	config := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			Env:             v.GetString("ENV"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSL_MODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		WebSocket: WebSocketConfig{
			ReadLimit:      v.GetInt64("WS_READ_LIMIT"),
			PingInterval:   v.GetDuration("WS_PING_INTERVAL"),
			PongWait:       v.GetDuration("WS_PONG_WAIT"),
			WriteWait:      v.GetDuration("WS_WRITE_WAIT"),
			SendBuffer:     v.GetInt("WS_SEND_BUFFER"),
			RateLimit:      v.GetFloat64("WS_RATE_LIMIT"),
			RateBurst:      v.GetInt("WS_RATE_BURST"),
			AllowedOrigins: splitList(v.GetString("WS_ALLOWED_ORIGINS")),
		},
		Matching: MatchingConfig{
			PremiumPriority:      v.GetBool("MATCH_PREMIUM_PRIORITY"),
			GenderFilterFreeUses: v.GetInt("MATCH_GENDER_FILTER_FREE_USES"),
			DailyLimit:           v.GetInt("MATCH_DAILY_LIMIT"),
			MaxInterests:         v.GetInt("MATCH_MAX_INTERESTS"),
			HousekeepingInterval: v.GetDuration("MATCH_HOUSEKEEPING_INTERVAL"),
			UsageCacheSize:       v.GetInt("MATCH_USAGE_CACHE_SIZE"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Public: PublicConfig{
			GoogleClientID: v.GetString("GOOGLE_CLIENT_ID"),
		},
	}

	// Validate critical configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, msg string) {
		if !ok {
			err = multierr.Append(err, errors.New(msg))
		}
	}

	check(c.Server.Port > 0 && c.Server.Port <= 65535, "server port must be between 1 and 65535")
	check(c.Server.ShutdownTimeout > 0, "shutdown timeout must be positive")

	if c.Database.Enabled() {
		check(c.Database.User != "", "database user is required when DB_HOST is set")
		check(c.Database.DBName != "", "database name is required when DB_HOST is set")
		check(c.JWT.AccessSecret != "", "JWT access secret is required when DB_HOST is set")
	}
	if c.JWT.AccessSecret != "" {
		check(len(c.JWT.AccessSecret) >= 32, "JWT access secret must be at least 32 characters")
	}

	ws := c.WebSocket
	check(ws.ReadLimit > 0, "websocket read limit must be positive")
	check(ws.SendBuffer > 0, "websocket send buffer must be positive")
	check(ws.WriteWait > 0, "websocket write wait must be positive")
	check(ws.PingInterval > 0 && ws.PingInterval < ws.PongWait, "websocket ping interval must be positive and shorter than pong wait")
	check(ws.RateLimit > 0 && ws.RateBurst > 0, "websocket rate limit and burst must be positive")

	m := c.Matching
	check(m.GenderFilterFreeUses >= 0, "gender filter free uses must not be negative")
	check(m.DailyLimit >= 0, "daily match limit must not be negative")
	check(m.MaxInterests >= 0, "max interests must not be negative")
	check(m.HousekeepingInterval > 0, "housekeeping interval must be positive")
	check(m.UsageCacheSize > 0, "usage cache size must be positive")

	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "development"
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
