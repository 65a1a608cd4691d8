package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/noah-isme/toko-cart/internal/cart"
	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/common"
	"github.com/noah-isme/toko-cart/internal/health"
	"github.com/noah-isme/toko-cart/internal/obs"
	"github.com/noah-isme/toko-cart/internal/ratelimit"
	"github.com/noah-isme/toko-cart/internal/security"
)

// RouterOptions carries the observability pieces main decides to enable.
type RouterOptions struct {
	Metrics        *obs.HTTPMetrics
	MetricsHandler http.Handler
	Tracing        bool
	Pprof          http.Handler
}

// Router builds the HTTP surface over d.
func (d *Dependencies) Router(opts RouterOptions) http.Handler {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Total-Count", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}
	if opts.Pprof != nil {
		r.Mount("/debug/pprof", opts.Pprof)
	}

	healthHandler := health.Handler{Probes: d.Probes()}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	limit := ratelimit.Handler{
		Limiter: d.Limiter,
		Config:  ratelimit.Config{Key: ratelimit.ByClientIP, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}

	catalogHandler := &catalog.Handler{
		Catalog:      d.Catalog,
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	}
	cartHandler := &cart.Handler{
		Svc: &cart.Service{
			Store:   d.Store,
			Catalog: d.Catalog,
			Locker:  d.Locker,
			Logger:  d.Logger.With().Str("component", "cart").Logger(),
			LockTTL: cfg.CartLockTTL,
		},
		Currency: cfg.CurrencyCode,
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limit.Middleware)
		v.Get("/products", catalogHandler.Products)
		v.Get("/coupons", catalogHandler.Coupons)
		v.Route("/carts", func(c chi.Router) {
			cartHandler.Mount(c, security.BodyLimit{}.Middleware, idem.Middleware)
		})
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
