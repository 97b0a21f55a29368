package outbox

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tuanvumaihuynh/event-pos/pkg/correlationid"
)

const (
	ContentTypeHeader = "content-type"
	ContentTypeJSON   = "application/json"
)

// BuildHeaders captures what a consumer needs to continue the request that
// wrote an event: the trace context, the correlation id and the payload type.
func BuildHeaders(ctx context.Context) map[string]string {
	headers := map[string]string{ContentTypeHeader: ContentTypeJSON}

	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))

	if id, ok := correlationid.FromContext(ctx); ok {
		headers[correlationid.Header] = id
	}

	return headers
}

// ContextFromHeaders restores the trace context and correlation id stored by
// BuildHeaders.
func ContextFromHeaders(ctx context.Context, headers map[string]string) context.Context {
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))

	if id := headers[correlationid.Header]; id != "" {
		ctx = correlationid.NewContext(ctx, id)
	}

	return ctx
}

// RecordHeaders flattens Kafka record headers into a map. Later duplicates win.
func RecordHeaders(rec *kgo.Record) map[string]string {
	headers := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	return headers
}
