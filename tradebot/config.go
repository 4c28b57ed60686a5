package tradebot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/tradebot/config"
)

// LoadConfig reads the TOML file at path. Values from the environment (and a
// .env file next to the binary, if present) override the file.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log   LogConfig   `toml:"log"`
	Bot   BotConfig   `toml:"bot"`
	DB    DBConfig    `toml:"db"`
	Redis RedisConfig `toml:"redis"`
	AMQP  AMQPConfig  `toml:"amqp"`
	Mongo MongoConfig `toml:"mongo"`
	Web   WebConfig   `toml:"web"`
	Trade TradeConfig `toml:"trade"`
}

type BotConfig struct {
	DevGuilds    []snowflake.ID `toml:"dev_guilds"`
	Token        string         `toml:"token"`
	SyncCommands bool           `toml:"sync_commands"`
	AppID        snowflake.ID   `toml:"app_id"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
	SSLMode  string `toml:"ssl_mode"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type AMQPConfig struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

type WebConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
)

type TradeConfig struct {
	OfferWindowSeconds        int    `toml:"offer_window_seconds"`
	FinalConfirmWindowSeconds int    `toml:"final_confirm_window_seconds"`
	ExecutionTimeoutSeconds   int    `toml:"execution_timeout_seconds"`
	MaxCardsPerOffer          int    `toml:"max_cards_per_offer"`
	Registry                  string `toml:"registry"`
	Records                   string `toml:"records"`
	HistoryPageSize           int    `toml:"history_page_size"`
}

// Coordinator converts the section into the trade core's config.
func (c TradeConfig) Coordinator() trade.Config {
	cfg := trade.DefaultConfig()
	cfg.OfferWindow = time.Duration(c.OfferWindowSeconds) * time.Second
	cfg.FinalConfirmWindow = time.Duration(c.FinalConfirmWindowSeconds) * time.Second
	cfg.ExecutionTimeout = time.Duration(c.ExecutionTimeoutSeconds) * time.Second
	cfg.MaxCardsPerOffer = c.MaxCardsPerOffer
	return cfg
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"TRADEBOT_TOKEN":       &c.Bot.Token,
		"TRADEBOT_DB_PASSWORD": &c.DB.Password,
		"TRADEBOT_REDIS_ADDR":  &c.Redis.Addr,
		"TRADEBOT_AMQP_URL":    &c.AMQP.URL,
		"TRADEBOT_MONGO_URI":   &c.Mongo.URI,
	}
	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*field = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = "disable"
	}
	if c.AMQP.Exchange == "" {
		c.AMQP.Exchange = "trades"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "tradebot"
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = "trade_records"
	}
	if c.Web.Addr == "" {
		c.Web.Addr = ":8080"
	}

	t := &c.Trade
	if t.OfferWindowSeconds <= 0 {
		t.OfferWindowSeconds = int(config.DefaultOfferWindow / time.Second)
	}
	if t.FinalConfirmWindowSeconds <= 0 {
		t.FinalConfirmWindowSeconds = int(config.DefaultFinalConfirmWindow / time.Second)
	}
	if t.ExecutionTimeoutSeconds <= 0 {
		t.ExecutionTimeoutSeconds = int(config.DefaultExecutionTimeout / time.Second)
	}
	if t.MaxCardsPerOffer <= 0 {
		t.MaxCardsPerOffer = config.DefaultMaxCardsPerOffer
	}
	if t.Registry == "" {
		t.Registry = BackendPostgres
	}
	if t.Records == "" {
		t.Records = BackendPostgres
	}
	if t.HistoryPageSize <= 0 {
		t.HistoryPageSize = config.HistoryPageSize
	}
}

func (c *Config) Validate() error {
	switch c.Trade.Registry {
	case BackendMemory, BackendPostgres:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("trade.registry = redis requires redis.addr")
		}
	default:
		return fmt.Errorf("unknown trade.registry %q", c.Trade.Registry)
	}

	switch c.Trade.Records {
	case BackendMemory, BackendPostgres:
	case BackendMongo:
		if c.Mongo.URI == "" {
			return errors.New("trade.records = mongo requires mongo.uri")
		}
	default:
		return fmt.Errorf("unknown trade.records %q", c.Trade.Records)
	}

	if c.Trade.FinalConfirmWindowSeconds >= c.Trade.OfferWindowSeconds {
		return errors.New("trade.final_confirm_window_seconds must be shorter than trade.offer_window_seconds")
	}
	return nil
}
