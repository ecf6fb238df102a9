package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/config"
)

var configPath string

// rootCmd runs the bot when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:           "prometheus",
	Short:         "Discord moderation and welcome bot",
	Long:          `Prometheus reports malicious links, toggles guild features from natural-language commands and greets new members with a rendered card.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <user config dir>/toast_n_co/prometheus/config.toml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(renderWelcomeCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		switch {
		case errors.Is(err, prometheus.ErrConfigCreated):
			fmt.Fprintf(os.Stderr, "%v\nFill in the tokens and database settings, then start again.\n", err)
		case errors.Is(err, prometheus.ErrConfigUnset):
			fmt.Fprintf(os.Stderr, "%v\nThe config file has not been edited yet.\n", err)
		default:
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.Path()
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func handleSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
