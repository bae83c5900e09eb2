package config

import "time"

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type AppConfig struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Node    NodeConfig    `yaml:"node"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	NATS    NATSConfig    `yaml:"nats"`
	WS      WSConfig      `yaml:"ws"`
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"` // 空表示同源 + localhost
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Alg       string `yaml:"alg"`
}

type NodeConfig struct {
	ID        string `yaml:"id"`        // 节点ID，总线上区分来源
	Snowflake int64  `yaml:"snowflake"` // 0..1023
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type StorageConfig struct {
	Driver string      `yaml:"driver"`
	Mongo  MongoConfig `yaml:"mongo"`
	// memory 驱动的初始用户（本地开发）
	Seed []SeedUser `yaml:"seed"`
}

type SeedUser struct {
	ID       string `yaml:"id"`
	FullName string `yaml:"full_name"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
}

type MongoConfig struct {
	URI         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	MaxPoolSize int    `yaml:"max_pool_size"`
	MaxRetry    int    `yaml:"max_retry"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// presence keys expire if a node dies without cleanup
	PresenceTTL time.Duration `yaml:"presence_ttl"`
}

type NATSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Servers []string `yaml:"servers"`
	Subject string   `yaml:"subject"`
}

type WSConfig struct {
	ReadLimit    int64         `yaml:"read_limit"`
	PingInterval time.Duration `yaml:"ping_interval"`
	PongWait     time.Duration `yaml:"pong_wait"`
	WriteWait    time.Duration `yaml:"write_wait"`
	SendQueue    int           `yaml:"send_queue"`
}
