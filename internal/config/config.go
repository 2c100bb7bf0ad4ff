package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	Worker    WorkerConfig
	Backend   BackendConfig
	VWorld    VWorldConfig
	LLM       LLMConfig
	Cache     CacheConfig
	DB        DatabaseConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Alerts    AlertsConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type GRPCConfig struct {
	Port int
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

// BackendConfig points at the storm-drain data backend. An empty URL disables
// both the proxy endpoints and the snapshot sync.
type BackendConfig struct {
	URL          string
	Timeout      time.Duration
	SyncEnabled  bool
	PollInterval time.Duration
	SyncLimit    int
}

type VWorldConfig struct {
	URL           string
	APIKey        string
	Domain        string
	AllowedHosts  []string
	Timeout       time.Duration
	CacheTTL      time.Duration
	MaxRingPoints int
}

type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// CacheConfig selects Redis when RedisAddr is set, otherwise an in-process cache.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

type RateLimitConfig struct {
	RPS int
}

type AlertsConfig struct {
	CRIThreshold int
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		GRPC: GRPCConfig{
			Port: getEnvInt("GRPC_PORT", 50051),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 50),
		},
		Backend: BackendConfig{
			URL:          getEnv("BACKEND_API_URL", ""),
			Timeout:      getEnvDuration("BACKEND_TIMEOUT", 15*time.Second),
			SyncEnabled:  getEnvBool("BACKEND_SYNC_ENABLED", true),
			PollInterval: getEnvDuration("BACKEND_POLL_INTERVAL", time.Minute),
			SyncLimit:    getEnvInt("BACKEND_SYNC_LIMIT", 200),
		},
		VWorld: VWorldConfig{
			URL:           getEnv("VWORLD_API_URL", "https://api.vworld.kr/req/data"),
			APIKey:        getEnv("VWORLD_API_KEY", ""),
			Domain:        getEnv("APP_URL", "http://localhost:3000"),
			AllowedHosts:  getEnvList("VWORLD_ALLOWED_HOSTS"),
			Timeout:       getEnvDuration("VWORLD_TIMEOUT", 20*time.Second),
			CacheTTL:      getEnvDuration("VWORLD_CACHE_TTL", 24*time.Hour),
			MaxRingPoints: getEnvInt("VWORLD_MAX_RING_POINTS", 48),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("LLM_API_URL", "http://localhost:8000"),
			APIKey:      getEnv("LLM_API_KEY", "none"),
			Model:       getEnv("LLM_MODEL", "qwen-32b"),
			Timeout:     getEnvDuration("LLM_TIMEOUT", 2*time.Minute),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 512),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.3),
			TopP:        getEnvFloat("LLM_TOP_P", 0.85),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/stormdrain.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		RateLimit: RateLimitConfig{
			RPS: getEnvInt("RATE_LIMIT_RPS", 20),
		},
		Alerts: AlertsConfig{
			CRIThreshold: getEnvInt("ALERT_CRI_THRESHOLD", 90),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.GRPC.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Backend.PollInterval < 10*time.Second {
		return fmt.Errorf("backend poll interval must be at least 10 seconds")
	}
	if c.Backend.SyncLimit < 1 || c.Backend.SyncLimit > 200 {
		return fmt.Errorf("backend sync limit must be between 1 and 200, got %d", c.Backend.SyncLimit)
	}
	if c.VWorld.MaxRingPoints < 3 {
		return fmt.Errorf("vworld max ring points must be at least 3, got %d", c.VWorld.MaxRingPoints)
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be positive, got %d", c.Worker.Count)
	}
	if c.RateLimit.RPS < 1 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit.RPS)
	}
	if c.Alerts.CRIThreshold < 0 || c.Alerts.CRIThreshold > 100 {
		return fmt.Errorf("alert CRI threshold must be between 0 and 100, got %d", c.Alerts.CRIThreshold)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
