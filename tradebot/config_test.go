package tradebot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/internal/gateways/memory"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
[bot]
token = "file-token"

[db]
host = "localhost"
user = "trader"
database = "trades"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Bot.Token)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, "trades", cfg.AMQP.Exchange)
	assert.Equal(t, ":8080", cfg.Web.Addr)
	assert.Equal(t, BackendPostgres, cfg.Trade.Registry)
	assert.Equal(t, BackendPostgres, cfg.Trade.Records)
	assert.Equal(t, 300, cfg.Trade.OfferWindowSeconds)
	assert.Equal(t, 5, cfg.Trade.HistoryPageSize)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TRADEBOT_TOKEN", "env-token")
	t.Setenv("TRADEBOT_REDIS_ADDR", "redis:6379")
	path := writeConfig(t, `
[bot]
token = "file-token"

[trade]
registry = "redis"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Bot.Token)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `[bot`))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Config) {}, ok: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Trade.Registry = BackendRedis }},
		{name: "redis with addr", mutate: func(c *Config) {
			c.Trade.Registry = BackendRedis
			c.Redis.Addr = "localhost:6379"
		}, ok: true},
		{name: "mongo without uri", mutate: func(c *Config) { c.Trade.Records = BackendMongo }},
		{name: "unknown registry", mutate: func(c *Config) { c.Trade.Registry = "etcd" }},
		{name: "unknown records", mutate: func(c *Config) { c.Trade.Records = "s3" }},
		{name: "final window longer than offer window", mutate: func(c *Config) {
			c.Trade.FinalConfirmWindowSeconds = c.Trade.OfferWindowSeconds + 1
		}},
		{name: "final window equal to offer window", mutate: func(c *Config) {
			c.Trade.FinalConfirmWindowSeconds = c.Trade.OfferWindowSeconds
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.applyDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestTradeConfig_Coordinator(t *testing.T) {
	cfg := TradeConfig{
		OfferWindowSeconds:        120,
		FinalConfirmWindowSeconds: 30,
		ExecutionTimeoutSeconds:   5,
		MaxCardsPerOffer:          3,
	}.Coordinator()

	assert.Equal(t, 2*time.Minute, cfg.OfferWindow)
	assert.Equal(t, 30*time.Second, cfg.FinalConfirmWindow)
	assert.Equal(t, 5*time.Second, cfg.ExecutionTimeout)
	assert.Equal(t, 3, cfg.MaxCardsPerOffer)
}

func TestOpenBackends_Memory(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()
	cfg.Trade.Registry = BackendMemory
	cfg.Trade.Records = BackendMemory

	b, err := OpenBackends(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer b.Close(context.Background())

	assert.IsType(t, &trade.MemoryRegistry{}, b.Registry)
	assert.IsType(t, &memory.Records{}, b.Records)
	assert.Empty(t, b.Listeners)
	require.NoError(t, b.OpenPublisher(cfg))
	assert.Empty(t, b.Listeners)
}

func TestOpenBackends_PostgresNeedsDatabase(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	_, err := OpenBackends(context.Background(), cfg, nil)
	assert.Error(t, err)
}
