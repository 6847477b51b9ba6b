package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN" envDefault:""`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// EventsConfig controls the ledger event stream. Publishing is off unless
// EVENTS_ENABLED is true.
type EventsConfig struct {
	Enabled   bool     `env:"EVENTS_ENABLED" envDefault:"false"`
	Brokers   []string `env:"EVENTS_BROKERS" envDefault:"localhost:9092"`
	Topic     string   `env:"EVENTS_TOPIC" envDefault:"ledger.events"`
	QueueSize int      `env:"EVENTS_QUEUE_SIZE" envDefault:"256"`
}
