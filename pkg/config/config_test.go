package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 60*time.Second, c.Monitor.Interval)
	assert.Equal(t, 300, c.Monitor.CandleLimit)
	assert.True(t, c.Monitor.MarkOnFailure)
	assert.False(t, c.ClickHouseEnabled())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8088
monitor:
  interval: 30s
  mark_on_failure: false
cache:
  backend: layered
events:
  backend: clickhouse
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8088, c.Server.Port)
	assert.Equal(t, 30*time.Second, c.Monitor.Interval)
	assert.False(t, c.Monitor.MarkOnFailure)
	assert.Equal(t, "layered", c.Cache.Backend)
	assert.Equal(t, 300, c.Monitor.CandleLimit)
	assert.True(t, c.ClickHouseEnabled())
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("events:\n  backend: kafka\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.brokers")
}

func TestLoadWithEnvFallsBackAndOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SMTP_USERNAME", "bot@example.com")
	t.Setenv("NOTIFY_BACKEND", "smtp")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "cache:6380")

	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "smtp", c.Notify.Backend)
	assert.Equal(t, "bot@example.com", c.Notify.SMTP.Username)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "cache", c.Cache.Redis.Host)
	assert.Equal(t, 6380, c.Cache.Redis.Port)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"cache backend":    func(c *Config) { c.Cache.Backend = "disk" },
		"interval":         func(c *Config) { c.Monitor.Interval = 0 },
		"candle limit":     func(c *Config) { c.Monitor.CandleLimit = 1 },
		"smtp username":    func(c *Config) { c.Notify.Backend = "smtp" },
		"notify backend":   func(c *Config) { c.Notify.Backend = "sms" },
		"events backend":   func(c *Config) { c.Events.Backend = "nats" },
		"consume no kafka": func(c *Config) { c.Events.Consume = true },
		"base url":         func(c *Config) { c.Delta.BaseURL = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
