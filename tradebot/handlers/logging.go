package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/tradebot/tradebot/config"
)

const slowThreshold = 2 * time.Second

// WrapWithLogging wraps a slash command handler with timing and status logs.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return observe("cmd", name, e.User(), func() error { return h(e) })
	}
}

// WrapComponentWithLogging is WrapWithLogging for buttons and select menus.
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		return observe("component", name, e.User(), func() error { return h(e) })
	}
}

func observe(kind, name string, user discord.User, run func() error) error {
	start := time.Now()
	base := []any{
		slog.String("type", kind),
		slog.String("name", name),
		slog.String("user_id", user.ID.String()),
		slog.String("user_name", user.Username),
	}
	slog.Debug("Interaction started", base...)

	done := make(chan error, 1)
	go func() {
		done <- run()
	}()

	timeout := config.CommandExecutionTimeout
	select {
	case err := <-done:
		took := time.Since(start)
		attrs := append(base, slog.Duration("took", took))
		switch {
		case err != nil:
			slog.Error("Interaction failed", append(attrs, slog.Any("error", err), slog.String("status", "failed"))...)
		case took > slowThreshold:
			slog.Warn("Interaction executed slowly", append(attrs, slog.String("status", "slow"))...)
		default:
			slog.Info("Interaction completed", append(attrs, slog.String("status", "success"))...)
		}
		return err

	case <-time.After(timeout):
		slog.Error("Interaction timed out", append(base,
			slog.String("status", "timeout"),
			slog.Duration("timeout", timeout),
		)...)
		return fmt.Errorf("%s %s timed out after %s", kind, name, timeout)
	}
}
