package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/disgoorg/tradebot/tradebot/database"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the Postgres schema",
}

var schemaInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or upgrade the trade tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.New(ctx, cfg.DB.Conn())
		if err != nil {
			slog.Error("Failed to connect to database", slog.String("type", "db"), slog.Any("error", err))
			return err
		}
		defer db.Close()

		if err = db.InitializeSchema(ctx); err != nil {
			return err
		}
		slog.Info("Schema initialized", slog.String("type", "db"), slog.String("database", cfg.DB.Database))
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaInitCmd)
	rootCmd.AddCommand(schemaCmd)
}
