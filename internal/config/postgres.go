package config

import "time"

type Postgres struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	DB       string `env:"POSTGRES_DB" envDefault:"event_pos"`
	SSLMode  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	MaxConns        int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns        int32         `env:"POSTGRES_MIN_CONNS" envDefault:"1"`
	MaxConnLifetime time.Duration `env:"POSTGRES_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"POSTGRES_MAX_CONN_IDLE_TIME" envDefault:"30m"`

	// LockTimeout bounds how long a sale waits on a product row lock before
	// the attempt is reported as a conflict and retried.
	LockTimeout time.Duration `env:"POSTGRES_LOCK_TIMEOUT" envDefault:"3s"`
	AppName     string        `env:"POSTGRES_APP_NAME" envDefault:"event-pos"`
}
