package cli

import (
	"github.com/spf13/cobra"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Capture the first two invoice rows to set the click anchor and row spacing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		term := newTerminal(cmd)
		defer term.Close()
		return term.Calibrate(ctx)
	},
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
}
