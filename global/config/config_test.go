package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadFile_OverlaysDefaults(t *testing.T) {
	p := writeYAML(t, `
auth:
  jwt_secret: s3cret
storage:
  driver: memory
ws:
  ping_interval: 5s
  pong_wait: 15s
`)
	cfg, err := LoadFile(p)
	require.NoError(t, err)
	require.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	require.Equal(t, StorageMemory, cfg.Storage.Driver)
	require.Equal(t, 5*time.Second, cfg.WS.PingInterval)
	require.Equal(t, 15*time.Second, cfg.WS.PongWait)
	// untouched sections keep defaults
	require.Equal(t, ":5001", cfg.HTTP.Addr)
	require.Equal(t, 256, cfg.WS.SendQueue)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	p := writeYAML(t, "auth:\n  jwt_secret: from-file\n")
	t.Setenv(EnvConfigPath, p)
	t.Setenv("EDUCHAT_JWT_SECRET", "from-env")
	t.Setenv("EDUCHAT_NATS_ENABLED", "true")
	t.Setenv("EDUCHAT_NATS_SERVERS", "nats://a:4222, nats://b:4222")
	t.Setenv("EDUCHAT_NODE_ID", "node-7")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Auth.JWTSecret)
	require.True(t, cfg.NATS.Enabled)
	require.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.NATS.Servers)
	require.Equal(t, "node-7", cfg.Node.ID)
	require.Equal(t, cfg, Global)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.ErrorContains(t, err, "jwt_secret")

	cfg.Auth.JWTSecret = "x"
	cfg.Storage.Driver = "postgres"
	require.ErrorContains(t, cfg.Validate(), "storage.driver")

	cfg.Storage.Driver = StorageMemory
	cfg.WS.PongWait = cfg.WS.PingInterval
	require.ErrorContains(t, cfg.Validate(), "pong_wait")
}

func TestValidate_NATSNeedsRedis(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "x"
	cfg.NATS.Enabled = true
	cfg.NATS.Servers = []string{"nats://127.0.0.1:4222"}
	cfg.NATS.Subject = "educhat.deliver"
	cfg.Redis.Enabled = false
	require.ErrorContains(t, cfg.Validate(), "redis must be enabled")

	cfg.Redis.Enabled = true
	require.NoError(t, cfg.Validate())
}

func TestLoadFile_SeedUsers(t *testing.T) {
	p := writeYAML(t, `
auth:
  jwt_secret: x
storage:
  driver: memory
  seed:
    - id: u1
      full_name: Ada Lovelace
      role: teacher
`)
	cfg, err := LoadFile(p)
	require.NoError(t, err)
	require.Equal(t, []SeedUser{{ID: "u1", FullName: "Ada Lovelace", Role: "teacher"}}, cfg.Storage.Seed)
}
