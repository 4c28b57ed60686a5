package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/disgoorg/tradebot/internal/domain/trade"
)

var outcomeCmd = &cobra.Command{
	Use:   "outcome <session-id>",
	Short: "Print the stored record of a finished trade",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backends, closeAll, err := openBackends(cmd.Context())
		if err != nil {
			return err
		}
		defer closeAll()

		rec, err := backends.Records.Get(cmd.Context(), args[0])
		if errors.Is(err, trade.ErrSessionNotFound) {
			return fmt.Errorf("no record for session %s", args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(cmd, rec)
	},
}

func init() {
	rootCmd.AddCommand(outcomeCmd)
}
