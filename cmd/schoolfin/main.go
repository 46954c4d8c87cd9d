package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/schoolfin/backend/internal/config"
	"github.com/schoolfin/backend/internal/logging"
	"github.com/schoolfin/backend/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:   "schoolfin",
	Short: "School finance administration CLI",
	Long: `schoolfin manages the school finance database: migrations, seed data
and basic reports over the double-entry ledger.`,
	SilenceUsage: true,
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// bootstrap loads config, initializes logging and opens the database pool.
// The returned cleanup closes the pool.
func bootstrap(ctx context.Context) (*config.Config, *sql.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("bootstrap: %w", err)
	}

	logging.Init("schoolfin", cfg.LogLevel, cfg.AppEnv)

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("bootstrap: %w", err)
	}

	return cfg, db, func() { db.Close() }, nil
}
