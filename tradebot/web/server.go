package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/tradebot/config"
)

const maxHistoryLimit = 100

// Trades is the read side of the trade coordinator.
type Trades interface {
	Outcome(ctx context.Context, sessionID string) (trade.Record, error)
	History(ctx context.Context, userID string, limit int) ([]trade.Record, error)
}

type Options struct {
	Trades  Trades
	Ping    func(ctx context.Context) error
	Version string
	Commit  string
}

// New builds the read-only HTTP API.
func New(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "TradeBot API",
		ServerHeader:          "TradeBot",
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(requestLogger())

	app.Get("/healthz", healthCheck(opts))

	api := app.Group("/api")
	api.Get("/users/:id/trades", userTrades(opts.Trades))
	api.Get("/trades/:session", tradeOutcome(opts.Trades))
	return app
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		slog.Debug("HTTP request",
			slog.String("type", "sys"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("took", time.Since(start)))
		return err
	}
}

func healthCheck(opts Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status":  "healthy",
			"version": opts.Version,
			"commit":  opts.Commit,
		}
		if opts.Ping != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := opts.Ping(ctx); err != nil {
				slog.Warn("Health check failed", slog.String("type", "sys"), slog.Any("error", err))
				return sendError(c, http.StatusServiceUnavailable, "UNHEALTHY", "database unreachable")
			}
		}
		return sendSuccess(c, status, "Health check successful")
	}
}

func userTrades(trades Trades) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Params("id"))
		limit := c.QueryInt("limit", config.HistoryPageSize)
		if limit <= 0 || limit > maxHistoryLimit {
			return sendError(c, http.StatusBadRequest, "BAD_REQUEST", "limit must be between 1 and 100")
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), config.DefaultQueryTimeout)
		defer cancel()

		records, err := trades.History(ctx, userID, limit)
		if err != nil {
			slog.Error("Failed to load trade history",
				slog.String("type", "sys"),
				slog.String("user_id", userID),
				slog.Any("error", err))
			return sendError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load trade history")
		}
		if records == nil {
			records = []trade.Record{}
		}
		return sendSuccess(c, records, "")
	}
}

func tradeOutcome(trades Trades) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Params("session")

		ctx, cancel := context.WithTimeout(c.UserContext(), config.DefaultQueryTimeout)
		defer cancel()

		rec, err := trades.Outcome(ctx, sessionID)
		switch {
		case errors.Is(err, trade.ErrSessionNotFound):
			return sendError(c, http.StatusNotFound, "NOT_FOUND", "trade not found")
		case errors.Is(err, trade.ErrSessionActive):
			return sendError(c, http.StatusConflict, "IN_PROGRESS", "trade is still running")
		case err != nil:
			slog.Error("Failed to load trade outcome",
				slog.String("type", "sys"),
				slog.String("session_id", sessionID),
				slog.Any("error", err))
			return sendError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load trade")
		}
		return sendSuccess(c, rec, "")
	}
}
