package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/disgoorg/tradebot/tradebot"
	"github.com/disgoorg/tradebot/tradebot/database"
	"github.com/disgoorg/tradebot/tradebot/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "tradectl",
	Short:         "Administer TradeBot trades and storage",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(slog.New(logger.New(logger.Options{
			Level:  slog.LevelInfo,
			Output: os.Stderr,
		})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to config file")
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(1)
	}
}

func loadConfig() (*tradebot.Config, error) {
	return tradebot.LoadConfig(configPath)
}

// openDB connects to Postgres when the config needs it.
func openDB(ctx context.Context, cfg *tradebot.Config) (*database.DB, error) {
	if cfg.Trade.Registry != tradebot.BackendPostgres && cfg.Trade.Records != tradebot.BackendPostgres {
		return nil, nil
	}
	return database.New(ctx, cfg.DB.Conn())
}

func openBackends(ctx context.Context) (*tradebot.Backends, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	backends, err := tradebot.OpenBackends(ctx, *cfg, db)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}
	return backends, func() {
		backends.Close(context.Background())
		if db != nil {
			db.Close()
		}
	}, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
