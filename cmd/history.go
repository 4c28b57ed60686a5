package cmd

import (
	"github.com/spf13/cobra"

	"github.com/disgoorg/tradebot/tradebot/config"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <user-id>",
	Short: "Print a user's most recent trade records as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backends, closeAll, err := openBackends(cmd.Context())
		if err != nil {
			return err
		}
		defer closeAll()

		records, err := backends.Records.LoadRecent(cmd.Context(), args[0], historyLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd, records)
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", config.MaxPageSize, "maximum number of records")
	rootCmd.AddCommand(historyCmd)
}
