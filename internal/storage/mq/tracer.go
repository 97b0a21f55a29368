package mq

import (
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("internal/storage/mq")

// kafkaHooks builds the franz-go tracing hooks from the globally installed
// provider, so clients must be created after telemetry is initialised.
func kafkaHooks() []kgo.Hook {
	kt := kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
		kotel.TracerPropagator(otel.GetTextMapPropagator()),
	)
	return kotel.NewKotel(kotel.WithTracer(kt)).Hooks()
}
