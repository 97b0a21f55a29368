package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
)

const redacted = "[REDACTED]"

// NewSlogLogger creates a logger writing to stdout and installs it as the
// slog default.
func NewSlogLogger(cfg config.Log) *slog.Logger {
	log := NewLogger(cfg, os.Stdout)
	slog.SetDefault(log)

	return log
}

// NewLogger creates a logger writing to w without touching the slog default.
// JSON goes through slog's handler; TEXT is rendered by tint.
func NewLogger(cfg config.Log, w io.Writer) *slog.Logger {
	redact := redactor(cfg.RedactKeys)

	var handler slog.Handler
	switch cfg.Format {
	case config.LogFormatText:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      cfg.Level,
			AddSource:  cfg.AddSource,
			TimeFormat: time.RFC3339,
			NoColor:    !isTerminal(w),
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a = redact(groups, a)
				if a.Value.Kind() == slog.KindAny {
					if _, ok := a.Value.Any().(error); ok {
						return tint.Attr(9, a)
					}
				}
				return a
			},
		})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       cfg.Level,
			AddSource:   cfg.AddSource,
			ReplaceAttr: redact,
		})
	}

	return slog.New(contextHandler{next: handler})
}

func redactor(keys []string) func([]string, slog.Attr) slog.Attr {
	masked := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			masked[k] = struct{}{}
		}
	}

	return func(_ []string, a slog.Attr) slog.Attr {
		if _, ok := masked[strings.ToLower(a.Key)]; ok {
			return slog.String(a.Key, redacted)
		}
		return a
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
