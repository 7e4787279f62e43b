package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/yahsan2/enrollctl/pkg/api"
	"github.com/yahsan2/enrollctl/pkg/config"
	"github.com/yahsan2/enrollctl/pkg/logging"
	"github.com/yahsan2/enrollctl/pkg/output"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "enrollctl",
	Short: "Bulk course enrollment and announcements from the terminal",
	Long: `enrollctl drives an institute's admin API from the command line.

It lets you:
- Browse the institute's courses (package sessions) and enroll invites
- Assign or remove courses for many learners at once, with a dry-run preview
  before anything is committed
- Compose and schedule announcements to roles, learners, courses or tags`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, err := logging.ParseFormat(logFormat)
		if err != nil {
			return err
		}
		logger := logging.NewLoggerWithFormat(logging.ParseLogLevel(logLevel), os.Stderr, format)
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(logging.With(ctx, logger))
		return nil
	},
}

// Global flags
var (
	configPath   string
	instituteID  string
	outputFormat string
	logLevel     string
	logFormat    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to "+config.ConfigFileName+" (default: search current and parent directories)")
	rootCmd.PersistentFlags().StringVar(&instituteID, "institute", "", "Institute ID (overrides configuration)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "Output format (table, json, csv, quiet)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto", "Log format (auto, console, json)")
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var reported *reportedError
		if errors.As(err, &reported) {
			return 1
		}
		formatter := output.NewFormatterWithWriter(output.FormatTable, os.Stderr)
		if outputFormat == "json" {
			formatter = output.NewFormatterWithWriter(output.FormatJSON, os.Stderr)
		}
		_ = formatter.FormatError(err)
		return 1
	}
	return 0
}

// loadConfig loads the configuration and applies global flag overrides
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, api.NewConfigurationError("failed to load configuration", err)
	}

	if instituteID != "" {
		cfg.Institute.ID = instituteID
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, api.NewConfigurationError("invalid configuration", err)
	}
	return cfg, nil
}

// newFormatter creates the output formatter for cfg
func newFormatter(cfg *config.Config) (*output.Formatter, error) {
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	formatter := output.NewFormatter(format)
	if !cfg.Output.Color {
		formatter.WithColor(false)
	}
	return formatter, nil
}

// setup loads configuration and builds the API client and formatter
func setup() (*config.Config, *api.Client, *output.Formatter, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	formatter, err := newFormatter(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, client, formatter, nil
}
