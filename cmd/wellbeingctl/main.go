package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/wellbeing-api/internal/bootstrap"
	"github.com/noah-isme/wellbeing-api/pkg/config"
	"github.com/noah-isme/wellbeing-api/pkg/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wellbeingctl",
		Short: "Operator tooling for the wellbeing API",
		Long: `wellbeingctl runs maintenance tasks against the wellbeing API database:
sweeping expired sessions, applying the schema, exporting the active
session report and issuing maintenance tokens.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		sweepCmd(),
		migrateCmd(),
		reportCmd(),
		tokenCmd(),
		routeCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// loadEnv reads configuration and builds a logger.
func loadEnv() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}

// withApp runs fn against a fully wired application.
func withApp(ctx context.Context, fn func(app *bootstrap.App) error) error {
	cfg, logr, err := loadEnv()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	app, err := bootstrap.New(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
