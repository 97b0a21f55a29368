package config

type Kafka struct {
	Addresses []string `env:"KAFKA_ADDRESSES" envSeparator:","`
	Group     string   `env:"KAFKA_GROUP" envDefault:"event-pos"`
}

// Enabled reports whether a broker is configured.
// Without one the outbox relay and the event consumer stay off.
func (k Kafka) Enabled() bool {
	return len(k.Addresses) > 0
}
