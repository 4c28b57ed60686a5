package tradebot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/internal/gateways/memory"
	"github.com/disgoorg/tradebot/tradebot/archive"
	"github.com/disgoorg/tradebot/tradebot/cache"
	"github.com/disgoorg/tradebot/tradebot/database"
	"github.com/disgoorg/tradebot/tradebot/database/repositories"
	"github.com/disgoorg/tradebot/tradebot/events"
)

func (c DBConfig) Conn() database.DBConfig {
	return database.DBConfig{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
		PoolSize: c.PoolSize,
		SSLMode:  c.SSLMode,
	}
}

// Backends are the trade stores picked by the [trade] section, plus the
// outcome listeners enabled by [amqp] and [mongo].
type Backends struct {
	Registry  trade.SessionRegistry
	Records   trade.RecordStore
	Listeners []trade.OutcomeListener

	closers []func(ctx context.Context) error
}

// OpenBackends connects whatever the config asks for. db may be nil only when
// neither the registry nor the records live in Postgres.
func OpenBackends(ctx context.Context, cfg Config, db *database.DB) (*Backends, error) {
	b := &Backends{}
	if err := b.openRegistry(ctx, cfg, db); err != nil {
		b.Close(ctx)
		return nil, err
	}
	if err := b.openRecords(ctx, cfg, db); err != nil {
		b.Close(ctx)
		return nil, err
	}
	return b, nil
}

// OpenPublisher attaches the RabbitMQ outcome publisher when amqp.url is set.
func (b *Backends) OpenPublisher(cfg Config) error {
	if cfg.AMQP.URL == "" {
		return nil
	}
	conn, ch, err := events.SetupConn(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		return err
	}
	b.Listeners = append(b.Listeners, events.NewPublisher(ch, cfg.AMQP.Exchange))
	b.closers = append(b.closers, func(context.Context) error {
		ch.Close()
		return conn.Close()
	})
	slog.Info("Trade outcomes are published to RabbitMQ",
		slog.String("type", "sys"),
		slog.String("exchange", cfg.AMQP.Exchange))
	return nil
}

func (b *Backends) openRegistry(ctx context.Context, cfg Config, db *database.DB) error {
	switch cfg.Trade.Registry {
	case BackendMemory:
		b.Registry = trade.NewMemoryRegistry()
	case BackendRedis:
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		b.Registry = cache.NewRegistry(client)
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })
	default:
		if db == nil {
			return fmt.Errorf("trade.registry = %s needs a database", cfg.Trade.Registry)
		}
		b.Registry = repositories.NewOpenTradeRepository(db.BunDB())
	}
	return nil
}

func (b *Backends) openRecords(ctx context.Context, cfg Config, db *database.DB) error {
	var mirror *archive.Records
	if cfg.Mongo.URI != "" {
		client, err := archive.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, client.Disconnect)
		mirror = archive.NewRecords(client, archive.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
		if err = mirror.EnsureIndexes(ctx); err != nil {
			return err
		}
	}

	switch cfg.Trade.Records {
	case BackendMemory:
		b.Records = memory.NewRecords()
	case BackendMongo:
		b.Records = mirror
		return nil
	default:
		if db == nil {
			return fmt.Errorf("trade.records = %s needs a database", cfg.Trade.Records)
		}
		b.Records = repositories.NewTradeRecordRepository(db.BunDB())
	}

	if mirror != nil {
		b.Listeners = append(b.Listeners, mirror)
	}
	return nil
}

// Close releases every connection OpenBackends and OpenPublisher made.
func (b *Backends) Close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			slog.Warn("Failed to close backend", slog.String("type", "sys"), slog.Any("error", err))
		}
	}
	b.closers = nil
}
