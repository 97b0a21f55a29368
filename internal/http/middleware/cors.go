package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/tuanvumaihuynh/event-pos/pkg/correlationid"
)

func Cors(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", correlationid.Header},
		ExposedHeaders:   []string{correlationid.Header},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
