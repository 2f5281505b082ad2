package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"invoice_automation/domain/entities"
	"invoice_automation/domain/interfaces"
	"invoice_automation/infrastructure/browser"
	"invoice_automation/infrastructure/config"
	"invoice_automation/presentation/terminal"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "invoice-automation",
	Short: "Invoice Scraper - opens billing dashboard invoices in tabs and extracts them to a report",
	Long: `Invoice Scraper ctrl-clicks the rows of an invoice list so every invoice opens in a
background tab, walks the tabs copying each page, and writes the parsed invoices to a
flat report file. Without a subcommand it starts the interactive terminal.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		term := newTerminal(cmd)
		defer term.Close()
		return term.Run(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultFile, "settings file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", config.DefaultEnvFile, "optional .env file with INVOICE_* overrides")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger(cmd *cobra.Command) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

func newSettingsStore(logger logrus.FieldLogger) interfaces.SettingsStore {
	return config.NewFileStore(cfgFile, envFile, logger)
}

func newTerminal(cmd *cobra.Command) *terminal.TerminalInterface {
	logger := newLogger(cmd)
	open := func(settings entities.Settings) (interfaces.BrowserSession, error) {
		return browser.NewSession(settings, logger)
	}
	return terminal.NewTerminalInterface(newSettingsStore(logger), open, logger, cmd.InOrStdin(), cmd.OutOrStdout())
}

// signalContext is canceled on the first interrupt. The scrape loop observes it between tabs.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
