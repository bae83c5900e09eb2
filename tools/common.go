package tools

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Env overrides recognised by global/config:
// EDUCHAT_HTTP_ADDR, EDUCHAT_JWT_SECRET, EDUCHAT_NODE_ID, EDUCHAT_MONGO_URI,
// EDUCHAT_REDIS_ADDR, EDUCHAT_NATS_SERVERS, EDUCHAT_STORAGE_DRIVER, EDUCHAT_LOG_LEVEL

func GetEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func GetEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func GetEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "true" || v == "1" || v == "yes"
}

func GetEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// SplitCSV splits "a, b,,c" into [a b c].
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
