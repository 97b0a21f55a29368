package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/tuanvumaihuynh/event-pos/internal/apperr"
	"github.com/tuanvumaihuynh/event-pos/internal/config"
	"github.com/tuanvumaihuynh/event-pos/internal/http/apierr"
	"github.com/tuanvumaihuynh/event-pos/internal/http/metric"
	"github.com/tuanvumaihuynh/event-pos/internal/http/middleware"
	"github.com/tuanvumaihuynh/event-pos/internal/http/swagger"
	"github.com/tuanvumaihuynh/event-pos/internal/service"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/db"
)

var tracer = otel.Tracer("internal/http")

// Deps are the collaborators the HTTP service serves.
type Deps struct {
	ProductSvc service.ProductService
	SaleSvc    service.SaleService
	Health     db.HealthChecker
	// Images serves stored product images. Nil disables the route.
	Images http.Handler
}

// Service represents the HTTP service.
type Service struct {
	cfg      config.HTTP
	imageCfg config.Image
	adminCfg config.Admin
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metric.Metrics

	productSvc service.ProductService
	saleSvc    service.SaleService
	health     db.HealthChecker
	images     http.Handler
}

type CleanupFunc func(ctx context.Context) error

func New(
	cfg config.HTTP,
	imageCfg config.Image,
	adminCfg config.Admin,
	log *slog.Logger,
	deps Deps,
) *Service {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Service{
		cfg:        cfg,
		imageCfg:   imageCfg,
		adminCfg:   adminCfg,
		logger:     log.With(slog.String("service", "http")),
		registry:   registry,
		metrics:    metric.New(registry),
		productSvc: deps.ProductSvc,
		saleSvc:    deps.SaleSvc,
		health:     deps.Health,
		images:     deps.Images,
	}
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	return s.RunWithServer(ctx, s.Handler())
}

// Handler builds the router with every middleware and route registered.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		swagger.Register(r)
	}

	s.RegisterHandlers(r)

	return r
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server stopped", slog.Any("error", err))
		}
	}()

	s.logger.Info("http server listening", slog.String("addr", ln.Addr().String()))

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(s.cfg.AllowedOrigins),
		middleware.Logging(s.logger),
	)
}

func (s *Service) RegisterHandlers(r chi.Router) {
	h := s.newHandler()

	r.Get("/healthz", h.Healthz)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Route("/{productId}", func(r chi.Router) {
			r.Get("/", h.GetProduct)
			r.Patch("/", h.UpdateProduct)
			r.Delete("/", h.DeleteProduct)
			r.Put("/image", h.UploadProductImage)
			r.Post("/sales", h.RecordSales)
		})
	})

	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.ListSales)
		r.Get("/stats", h.SalesStats)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(s.adminCfg.Secret, s.handleResponseError))
			r.Delete("/", h.ClearSales)
			r.Post("/demo", h.SeedDemoSales)
		})
	})

	if s.images != nil && strings.HasPrefix(s.imageCfg.BaseURL, "/") {
		base := strings.TrimRight(s.imageCfg.BaseURL, "/")
		r.Handle(base+"/*", http.StripPrefix(base, s.images))
	}

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))
}

func (s *Service) handleRequestError(w http.ResponseWriter, r *http.Request, err error) {
	err = apperr.ValidationErr.WithMsg("%s", err.Error()).WrapParent(err)
	res := apierr.New(err)

	s.logger.WarnContext(r.Context(), "http request error", slog.Any("error", err))
	s.writeJSON(w, r, res.StatusCode, res)
}

func (s *Service) handleResponseError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	if res.Retryable {
		w.Header().Set("Retry-After", "1")
	}
	s.writeJSON(w, r, res.StatusCode, res)
}

func (s *Service) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding response",
			slog.Any("error", err))
	}
}

type handler struct {
	*healthHandler
	*productHandler
	*saleHandler
}

func (s *Service) newHandler() *handler {
	return &handler{
		healthHandler:  newHealthHandler(s, s.health),
		productHandler: newProductHandler(s, s.productSvc, s.imageCfg.MaxBytes),
		saleHandler:    newSaleHandler(s, s.saleSvc),
	}
}
