package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/tradebot"
	"github.com/disgoorg/tradebot/tradebot/commands"
	"github.com/disgoorg/tradebot/tradebot/config"
	"github.com/disgoorg/tradebot/tradebot/database"
	"github.com/disgoorg/tradebot/tradebot/database/repositories"
	"github.com/disgoorg/tradebot/tradebot/economy/trading"
	"github.com/disgoorg/tradebot/tradebot/handlers"
	"github.com/disgoorg/tradebot/tradebot/logger"
	"github.com/disgoorg/tradebot/tradebot/web"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(logger.Options{})))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := tradebot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}
	slog.SetDefault(slog.New(logger.New(logger.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})))

	logger.LogSystem("Starting TradeBot",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbStartTime := time.Now()
	db, err := database.New(ctx, cfg.DB.Conn())
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("type", "db"),
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err = db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.String("type", "db"), slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("type", "db"),
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	b := tradebot.New(*cfg, version, commit)
	b.DB = db
	b.CardRepository = repositories.NewCardRepository(db.BunDB())

	backends, err := tradebot.OpenBackends(ctx, *cfg, db)
	if err != nil {
		slog.Error("Failed to open trade backends", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}
	defer backends.Close(context.Background())

	if err = backends.OpenPublisher(*cfg); err != nil {
		// Outcome events are optional.
		logger.LogError("Trade outcome publisher disabled", err)
	}

	h := handler.New()
	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"))
		os.Exit(-1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	b.CardNames, err = trading.NewCardNameCache(b.CardRepository, config.CardNameCacheSize)
	if err != nil {
		slog.Error("Failed to create card name cache", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}
	b.Messenger = trading.NewMessenger(b.Client.Rest(), b.CardNames, slog.Default())

	b.Coordinator, err = trade.NewCoordinator(cfg.Trade.Coordinator(), trade.Dependencies{
		Inventory: repositories.NewInventoryStore(db.BunDB()),
		Messenger: b.Messenger,
		Records:   backends.Records,
		Registry:  backends.Registry,
	},
		trade.WithLogger(slog.Default()),
		trade.WithListeners(backends.Listeners...),
	)
	if err != nil {
		slog.Error("Failed to create trade coordinator", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}

	commands.NewTradeHandler(b).Register(h)
	h.Command("/version", handlers.WrapWithLogging("version", commands.VersionHandler(b)))

	startSweeper(b, backends)
	if cfg.Web.Enabled {
		startWebAPI(b, cfg.Web.Addr)
	}

	if *shouldSyncCommands || cfg.Bot.SyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"))
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "gateway"),
			slog.String("status", "failed"))
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.", slog.String("type", "sys"))
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...", slog.String("type", "sys"))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()
	if err = b.Coordinator.Shutdown(shutdownCtx); err != nil {
		logger.LogError("Trades did not finish before shutdown", err)
	}
	if err = b.Processes.Shutdown(config.ShutdownTimeout); err != nil {
		logger.LogError("Background processes did not stop", err)
	}
}

// startSweeper clears expired reservations for registries that do not expire
// entries on their own.
func startSweeper(b *tradebot.Bot, backends *tradebot.Backends) {
	switch registry := backends.Registry.(type) {
	case *trade.MemoryRegistry:
		registry.StartCleanupRoutine(b.Processes.Context(), config.OpenTradeSweepInterval)
	case repositories.OpenTradeRepository:
		b.Processes.StartTicker("open-trade-sweeper", "Deletes expired open_trades rows",
			config.OpenTradeSweepInterval, func(ctx context.Context) {
				removed, err := registry.SweepExpired(ctx)
				if err != nil {
					logger.LogError("Failed to sweep open trades", err)
					return
				}
				if removed > 0 {
					slog.Info("Expired open trades removed", slog.String("type", "db"), slog.Int64("rows", removed))
				}
			})
	}
}

func startWebAPI(b *tradebot.Bot, addr string) {
	app := web.New(web.Options{
		Trades:  b.Coordinator,
		Ping:    b.DB.Ping,
		Version: b.Version,
		Commit:  b.Commit,
	})

	b.Processes.StartProcess("web-api", "Serves the trade HTTP API", func(ctx context.Context) {
		errCh := make(chan error, 1)
		go func() { errCh <- app.Listen(addr) }()
		logger.LogSystem("Web API listening", slog.String("addr", addr))

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.LogError("Web API stopped", err)
			}
		case <-ctx.Done():
			if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
				logger.LogError("Web API shutdown failed", err)
			}
		}
	})
}
