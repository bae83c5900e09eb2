package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Anuragsahu418/EDUCHAT/tools"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath = "EDUCHAT_CONFIG"
	DefaultPath   = "config/config.yaml"
)

// Global is populated by Load at boot.
var Global = Default()

func Default() AppConfig {
	return AppConfig{
		HTTP: HTTPConfig{Addr: ":5001", ShutdownGrace: 10 * time.Second},
		Auth: AuthConfig{Alg: "HS256"},
		Node: NodeConfig{ID: "node-1", Snowflake: 1},
		Log:  LogConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 14},
		Storage: StorageConfig{
			Driver: StorageMongo,
			Mongo: MongoConfig{
				URI:         "mongodb://localhost:27017",
				Database:    "educhat",
				MaxPoolSize: 20,
				MaxRetry:    3,
			},
		},
		Redis: RedisConfig{Addr: "127.0.0.1:6379", PresenceTTL: 2 * time.Minute},
		NATS:  NATSConfig{Servers: []string{"nats://127.0.0.1:4222"}, Subject: "educhat.deliver"},
		WS: WSConfig{
			ReadLimit:    64 << 10,
			PingInterval: 25 * time.Second,
			PongWait:     60 * time.Second,
			WriteWait:    10 * time.Second,
			SendQueue:    256,
		},
	}
}

// Load reads .env (if any), then the YAML file, then env overrides.
// A missing YAML file is not an error when path came from the default.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	path := tools.GetEnv(EnvConfigPath, DefaultPath)
	cfg, err := LoadFile(path)
	if err != nil {
		if os.IsNotExist(err) && os.Getenv(EnvConfigPath) == "" {
			cfg = Default()
		} else {
			return AppConfig{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	Global = cfg
	return cfg, nil
}

func LoadFile(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	cfg.HTTP.Addr = tools.GetEnv("EDUCHAT_HTTP_ADDR", cfg.HTTP.Addr)
	if v := os.Getenv("EDUCHAT_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = tools.SplitCSV(v)
	}
	cfg.Auth.JWTSecret = tools.GetEnv("EDUCHAT_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Node.ID = tools.GetEnv("EDUCHAT_NODE_ID", cfg.Node.ID)
	cfg.Node.Snowflake = int64(tools.GetEnvInt("EDUCHAT_SNOWFLAKE_NODE", int(cfg.Node.Snowflake)))
	cfg.Log.Level = tools.GetEnv("EDUCHAT_LOG_LEVEL", cfg.Log.Level)
	cfg.Storage.Driver = tools.GetEnv("EDUCHAT_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Mongo.URI = tools.GetEnv("EDUCHAT_MONGO_URI", cfg.Storage.Mongo.URI)
	cfg.Storage.Mongo.Database = tools.GetEnv("EDUCHAT_MONGO_DB", cfg.Storage.Mongo.Database)
	cfg.Redis.Enabled = tools.GetEnvBool("EDUCHAT_REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Addr = tools.GetEnv("EDUCHAT_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = tools.GetEnv("EDUCHAT_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.NATS.Enabled = tools.GetEnvBool("EDUCHAT_NATS_ENABLED", cfg.NATS.Enabled)
	if v := os.Getenv("EDUCHAT_NATS_SERVERS"); v != "" {
		cfg.NATS.Servers = tools.SplitCSV(v)
	}
	cfg.WS.PingInterval = tools.GetEnvDuration("EDUCHAT_WS_PING_INTERVAL", cfg.WS.PingInterval)
}

func (c AppConfig) Validate() error {
	var problems []string
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required")
	}
	switch c.Storage.Driver {
	case StorageMongo, StorageMemory:
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q (use mongo|memory)", c.Storage.Driver))
	}
	if c.Node.Snowflake < 0 || c.Node.Snowflake > 1023 {
		problems = append(problems, "node.snowflake must be within 0..1023")
	}
	if c.NATS.Enabled && (len(c.NATS.Servers) == 0 || c.NATS.Subject == "") {
		problems = append(problems, "nats.servers and nats.subject are required when nats is enabled")
	}
	if c.NATS.Enabled && !c.Redis.Enabled {
		// 多节点的在线集合只能来自共享的 redis
		problems = append(problems, "redis must be enabled when nats is enabled")
	}
	if c.WS.PongWait <= c.WS.PingInterval {
		problems = append(problems, "ws.pong_wait must exceed ws.ping_interval")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c AppConfig) JWTSecret() []byte { return []byte(c.Auth.JWTSecret) }
