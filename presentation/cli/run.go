package cli

import (
	"errors"

	"invoice_automation/presentation/terminal"

	"github.com/spf13/cobra"
)

var runRows int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scrape over the invoice list",
	Long: `Clicks the calibrated invoice rows, walks the opened tabs and writes the report.
Without --rows the row count is asked for, with the saved default offered.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		term := newTerminal(cmd)
		defer term.Close()

		_, err := term.StartRun(ctx, runRows)
		if errors.Is(err, terminal.ErrCancelled) {
			return nil
		}
		return err
	},
}

func init() {
	runCmd.Flags().IntVarP(&runRows, "rows", "r", 0, "number of list rows to process (prompted when omitted)")
	rootCmd.AddCommand(runCmd)
}
