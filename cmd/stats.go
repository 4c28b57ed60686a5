package cmd

import (
	"github.com/spf13/cobra"

	"github.com/disgoorg/tradebot/tradebot/database"
	"github.com/disgoorg/tradebot/tradebot/database/repositories"
)

var statsCmd = &cobra.Command{
	Use:   "stats <user-id>",
	Short: "Count a user's finished trades per outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.New(cmd.Context(), cfg.DB.Conn())
		if err != nil {
			return err
		}
		defer db.Close()

		counts, err := repositories.NewTradeRecordRepository(db.BunDB()).CountByOutcome(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, counts)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
