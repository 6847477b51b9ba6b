package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/ledger/internal/config"
)

const (
	storeMemory   = "memory"
	storePostgres = "postgres"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	LogFormat       string        `env:"APP_LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Store           string        `env:"LEDGER_STORE" envDefault:"memory"`
	Seed            bool          `env:"LEDGER_SEED" envDefault:"false"`
	Postgres        config.PostgresConfig
	Events          config.EventsConfig
}

func (c *apiConfig) validate() error {
	switch c.Store {
	case storeMemory:
	case storePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("LEDGER_STORE=%s requires PG_DSN", storePostgres)
		}
	default:
		return fmt.Errorf("unknown LEDGER_STORE %q", c.Store)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}

	return nil
}
