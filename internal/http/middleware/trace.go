package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Trace opens a server span per request, continuing any trace the caller
// propagated. The span is renamed to the matched route once routing is done.
// Only 5xx responses mark the span as failed.
func Trace(tracer trace.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if untraced(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			// chi fills the route pattern while routing, so the name is set afterwards.
			ctx, span := tracer.Start(ctx, r.Method, trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			), trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			r = r.WithContext(ctx)
			next.ServeHTTP(ww, r)

			route := routePattern(r)
			span.SetName(r.Method + " " + route)

			status := ww.Status()
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", status),
				attribute.Int("http.response_size", ww.BytesWritten()),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}

var untracedPaths = map[string]struct{}{
	"/metrics":          {},
	"/healthz":          {},
	"/docs":             {},
	"/docs/openapi.yml": {},
}

func untraced(path string) bool {
	if _, ok := untracedPaths[path]; ok {
		return true
	}
	return strings.HasPrefix(path, "/docs/")
}
