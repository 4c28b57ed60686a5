package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/disgoorg/tradebot/tradebot/database/models"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	PoolSize int
	SSLMode  string
}

func (c DBConfig) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s&connect_timeout=5",
		c.User, c.Password, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Database, sslMode)
}

type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	if err := waitReachable(cfg); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.dsn())))
	if cfg.PoolSize > 0 {
		sqldb.SetMaxOpenConns(cfg.PoolSize)
	}
	return &DB{pool: pool, bunDB: bun.NewDB(sqldb, pgdialect.New())}, nil
}

// waitReachable dials the server a few times before handing off to the pool,
// so a database that is still booting does not fail startup outright.
func waitReachable(cfg DBConfig) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	network := "tcp"
	switch {
	case os.Getenv("DB_DIAL_FORCE_IPV4") == "1":
		network = "tcp4"
	case os.Getenv("DB_DIAL_FORCE_IPV6") == "1":
		network = "tcp6"
	}

	var err error
	for range defaultMaxRetries {
		var conn net.Conn
		if conn, err = net.DialTimeout(network, addr, defaultConnTimeout); err == nil {
			return conn.Close()
		}
		time.Sleep(defaultRetryInterval)
	}
	return fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) ExecWithLog(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	result, err := db.pool.Exec(ctx, sql, args...)
	attrs := []any{
		slog.String("type", "db"),
		slog.String("operation", "exec"),
		slog.String("query", sql),
		slog.Duration("took", time.Since(start)),
	}
	if err != nil {
		slog.Error("Query failed", append(attrs, slog.Any("error", err))...)
		return result, err
	}
	slog.Debug("Query executed", append(attrs, slog.Int64("affected_rows", result.RowsAffected()))...)
	return result, nil
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		db.bunDB.Close()
	}
}

// Ping verifies both database connections are working
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pgxpool ping failed: %w", err)
	}
	if err := db.bunDB.PingContext(ctx); err != nil {
		return fmt.Errorf("bun ping failed: %w", err)
	}
	return nil
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_cards_name ON cards(name);",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_user_cards_user_card ON user_cards(user_id, card_id);",
	"CREATE INDEX IF NOT EXISTS idx_user_cards_tradeable ON user_cards(user_id, card_id) WHERE amount > 0 AND locked = false;",
	"CREATE INDEX IF NOT EXISTS idx_trade_records_initiator ON trade_records(initiator_id, finished_at DESC);",
	"CREATE INDEX IF NOT EXISTS idx_trade_records_counterparty ON trade_records(counterparty_id, finished_at DESC);",
	"CREATE INDEX IF NOT EXISTS idx_trade_records_outcome ON trade_records(outcome);",
	"CREATE INDEX IF NOT EXISTS idx_open_trades_expires ON open_trades(expires_at);",
}

// InitializeSchema creates the tables and indexes the trade subsystem needs.
// It is safe to run on every start.
func (db *DB) InitializeSchema(ctx context.Context) error {
	tables := []any{
		(*models.Card)(nil),
		(*models.User)(nil),
		(*models.UserCard)(nil),
		(*models.TradeRecord)(nil),
		(*models.OpenTrade)(nil),
	}

	for _, model := range tables {
		if _, err := db.bunDB.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if err := db.migrateSchema(ctx); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	for _, idx := range indexes {
		if _, err := db.ExecWithLog(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	slog.Info("Database schema ready", slog.String("type", "db"), slog.Int("tables", len(tables)))
	return nil
}

// migrateSchema adds columns that older card-bot databases lack.
func (db *DB) migrateSchema(ctx context.Context) error {
	statements := []string{
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS balance BIGINT NOT NULL DEFAULT 0;`,
		`ALTER TABLE user_cards ADD COLUMN IF NOT EXISTS locked BOOLEAN NOT NULL DEFAULT false;`,
		`ALTER TABLE trade_records ADD COLUMN IF NOT EXISTS stale_sides JSONB;`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecWithLog(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
