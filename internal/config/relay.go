package config

import "time"

type Relay struct {
	BatchSize uint32        `env:"RELAY_BATCH_SIZE" envDefault:"100"`
	Interval  time.Duration `env:"RELAY_INTERVAL" envDefault:"1s"`

	// PublishAttempts is how many times one message is offered to the broker
	// before it is marked processed with its last error.
	PublishAttempts uint64        `env:"RELAY_PUBLISH_ATTEMPTS" envDefault:"3"`
	PublishBackoff  time.Duration `env:"RELAY_PUBLISH_BACKOFF" envDefault:"200ms"`
	PublishTimeout  time.Duration `env:"RELAY_PUBLISH_TIMEOUT" envDefault:"10s"`
}
