package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/disgoorg/tradebot/tradebot"
	"github.com/disgoorg/tradebot/tradebot/database"
	"github.com/disgoorg/tradebot/tradebot/database/repositories"
)

var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "Inspect and clean open-trade reservations",
}

var locksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every user currently reserved by a trade",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openTradeRepo(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		rows, err := repo.List(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, rows)
	},
}

var locksShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show the trade currently reserving a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openTradeRepo(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		row, err := repo.Holder(cmd.Context(), args[0])
		if repositories.IsNotFound(err) {
			return fmt.Errorf("user %s is not in a trade", args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(cmd, row)
	},
}

var locksSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired open-trade rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openTradeRepo(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		removed, err := repo.SweepExpired(cmd.Context())
		if err != nil {
			return err
		}
		slog.Info("Expired open trades removed", slog.String("type", "db"), slog.Int64("rows", removed))
		return nil
	},
}

func openTradeRepo(cmd *cobra.Command) (repositories.OpenTradeRepository, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Trade.Registry != tradebot.BackendPostgres {
		return nil, nil, errors.New("open trades are only kept in Postgres when trade.registry = postgres")
	}
	db, err := database.New(cmd.Context(), cfg.DB.Conn())
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewOpenTradeRepository(db.BunDB()), db.Close, nil
}

func init() {
	locksCmd.AddCommand(locksListCmd, locksShowCmd, locksSweepCmd)
	rootCmd.AddCommand(locksCmd)
}
