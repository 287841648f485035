// Package cli implements the learnerbot command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/learnerbot/internal/config"
	"github.com/ashureev/learnerbot/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var flagDB string

// RootCmd is the learnerbot command.
var RootCmd = &cobra.Command{
	Use:   "learnerbot",
	Short: "A friendly learning companion with XP, levels and badges",
	Long: `LearnerBot answers learners with canned topic replies or a hosted
language model, and rewards every exchange with XP, levels, streaks and badges.

Run "learnerbot serve" for the HTTP and WebSocket API, or "learnerbot chat"
to talk to the bot in the terminal.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "progress database path (default $DB_PATH)")
}

// loadConfig reads .env and the environment, then applies command-line overrides.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	return cfg, nil
}

func openStore(ctx context.Context, path string) (*store.SQLiteStore, error) {
	kv, err := store.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	if err := kv.Ping(ctx); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("database health check: %w", err)
	}
	return kv, nil
}

func closeStore(kv store.KV) {
	if err := kv.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}
