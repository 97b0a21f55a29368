package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuanvumaihuynh/event-pos/internal/http/apierr"
)

// Recoverer turns a handler panic into a logged stack trace, an errored span
// and a JSON 500 body. http.ErrAbortHandler is re-raised untouched.
func Recoverer(log *slog.Logger) func(http.Handler) http.Handler {
	body, err := json.Marshal(apierr.InternalServerErr)
	if err != nil {
		panic(err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler { //nolint:errorlint
					panic(rvr)
				}

				ctx := r.Context()
				span := trace.SpanFromContext(ctx)
				span.RecordError(fmt.Errorf("panic: %v", rvr))
				span.SetStatus(codes.Error, "panic")

				log.ErrorContext(ctx, "panic serving request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("recover", rvr),
					slog.String("stack", string(debug.Stack())),
				)

				if r.Header.Get("Connection") == "Upgrade" {
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write(body)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
