package cli

import (
	"fmt"
	"io"
	"os"

	"invoice_automation/application/invoice"
	"invoice_automation/domain/entities"
	"invoice_automation/infrastructure/storage"

	"github.com/spf13/cobra"
)

var (
	parseOut  string
	renderOut string
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Parse saved invoice page text into a report",
	Long: `Parses one or more files holding the copied text of an invoice page and prints the
report, or writes it to --out. Useful for checking the parser against saved pages.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser := invoice.NewParser(newLogger(cmd))

		records := make([]entities.InvoiceRecord, 0, len(args))
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			records = append(records, parser.Parse(string(data)))
		}
		return emit(cmd.OutOrStdout(), parseOut, records)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render SNAPSHOT",
	Short: "Re-render a report from a saved JSON snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := storage.LoadSnapshot(args[0])
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), renderOut, result.Records)
	},
}

func init() {
	parseCmd.Flags().StringVarP(&parseOut, "out", "o", "", "write the report to this file instead of stdout")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "write the report to this file instead of stdout")
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(renderCmd)
}

func emit(stdout io.Writer, out string, records []entities.InvoiceRecord) error {
	if out == "" {
		_, err := io.WriteString(stdout, invoice.FormatReport(records))
		return err
	}

	path, err := storage.NewReportStore(out, "", invoice.FormatReport).WriteReport(records)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Report written to %s (%d invoices)\n", path, len(records))
	return nil
}
