// Package cmd contains the CLI commands for mentiondigest.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/linkerlin/mentiondigest/internal/config"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "mentiondigest",
	Short: "Scheduled mention reports and spreadsheet digests for Slack",
	Long: `mentiondigest searches the previous day's mentions of a user, groups them by
channel and posts a report to an incoming webhook. A sibling job posts the rows
of a spreadsheet sheet exported as CSV.

Jobs run from recurring triggers stored in a local SQLite database.

Examples:
  # Install the daily report and the sheet digest
  mentiondigest triggers install mentionReport
  mentiondigest triggers install sheetDigest

  # Run the report once, now
  mentiondigest run mentionReport

  # Fire triggers as they come due
  mentiondigest serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

func setupLogging() error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch logFormat {
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		h = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", logFormat)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// loadConfig seeds the environment from the default .env file, loads the
// config, then seeds from secrets.env_file if the config names another one.
// Variables already set are never overwritten.
func loadConfig() (*config.Config, error) {
	envFile := config.DefaultConfig().Secrets.EnvFile
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if cfg.Secrets.EnvFile != envFile {
		if err := config.LoadDotEnv(cfg.Secrets.EnvFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
