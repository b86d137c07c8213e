package main

import (
	"database/sql"
	"fmt"
	"os"

	"secureauth/internal/config"
	"secureauth/internal/database"
	"secureauth/internal/logger"
)

func main() {
	cfg := config.LoadConfig()
	if err := logger.Setup(cfg.Logger.Level, cfg.Logger.Encoder, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logger: %v\n", err)
		os.Exit(1)
	}

	open := func() (*sql.DB, error) {
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
		return database.Open(database.PoolConfig{
			URL:            cfg.Database.URL,
			MaxOpenConns:   2,
			IdleTimeout:    cfg.Database.IdleTimeout,
			ConnectTimeout: cfg.Database.ConnectTimeout,
		})
	}

	rootCmd := newRootCmd(open, schemaOptions{
		Attempts: cfg.Database.InitAttempts,
		Delay:    cfg.Database.InitRetryDelay,
	})
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
