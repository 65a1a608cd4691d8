package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cart/internal/cart"
	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/config"
	"github.com/noah-isme/toko-cart/internal/db"
	"github.com/noah-isme/toko-cart/internal/health"
	"github.com/noah-isme/toko-cart/internal/lock"
	"github.com/noah-isme/toko-cart/internal/ratelimit"
	"github.com/noah-isme/toko-cart/internal/resilience"
)

// Options toggles optional instrumentation during Build.
type Options struct {
	RedisMetrics bool
	AppName      string
}

// Dependencies holds the shared infrastructure the HTTP layer is built from.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Catalog catalog.Catalog
	Store   cart.Store
	Locker  lock.Locker
	Limiter ratelimit.Limiter
}

// Build connects to the configured backing services and assembles the catalog, cart
// store, lock and limiter. Redis and Postgres are optional; without them the process
// runs on in-memory equivalents.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if opts.AppName == "" {
		opts.AppName = "toko-cart"
	}
	d := &Dependencies{Config: cfg, Logger: logger}

	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL, opts.RedisMetrics, logger)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Redis = client
	}

	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL, opts.AppName)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.DB = pool
		if cfg.RunMigrations {
			if err := db.Migrate(pool); err != nil {
				d.Close()
				return nil, err
			}
			logger.Info().Msg("migrations applied")
		}
	}

	cat, err := d.buildCatalog()
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Catalog = cat

	if d.Redis != nil {
		d.Locker = lock.RedisLocker{R: d.Redis}
		d.Limiter = ratelimit.RedisLimiter{Client: d.Redis, Prefix: "ratelimit:"}
	} else {
		d.Locker = lock.NewLocal()
		d.Limiter = ratelimit.NewMemoryLimiter("ratelimit")
	}

	switch cfg.CartStore {
	case config.CartStoreRedis:
		if d.Redis == nil {
			d.Close()
			return nil, errors.New("app: redis cart store requires REDIS_URL")
		}
		d.Store = cart.NewRedisStore(d.Redis, cfg.CartSessionTTL)
	default:
		d.Store = cart.NewMemoryStore(cfg.CartSessionTTL)
	}

	logger.Info().
		Str("catalog_source", cfg.CatalogSource).
		Str("cart_store", cfg.CartStore).
		Bool("redis", d.Redis != nil).
		Bool("postgres", d.DB != nil).
		Msg("dependencies ready")
	return d, nil
}

func (d *Dependencies) buildCatalog() (catalog.Catalog, error) {
	cfg := d.Config
	var source catalog.Catalog
	switch cfg.CatalogSource {
	case config.CatalogSourcePostgres:
		if d.DB == nil {
			return nil, errors.New("app: postgres catalog requires DATABASE_URL")
		}
		breaker := resilience.NewBreaker(resilience.BreakerConfig{
			Target:  "catalog-postgres",
			OpenFor: 15 * time.Second,
			Logger:  d.Logger,
		})
		source = catalog.NewGuardedCatalog(catalog.NewPostgres(d.DB), resilience.Policy{
			Breaker:     breaker,
			MaxAttempts: 3,
			BaseBackoff: 50 * time.Millisecond,
			Jitter:      0.2,
			Timeout:     2 * time.Second,
		})
	default:
		static, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load catalog file: %w", err)
		}
		// a file catalog is already in memory, so it is never cached
		return static, nil
	}
	if d.Redis != nil && cfg.CatalogCacheTTL > 0 {
		return catalog.CachedCatalog{
			Source: source,
			Cache:  catalog.NewCache(d.Redis, cfg.CatalogCacheTTL),
			Logger: d.Logger,
		}, nil
	}
	return source, nil
}

// Probes returns readiness probes for every configured backing service.
func (d *Dependencies) Probes() []health.Probe {
	var probes []health.Probe
	if d.DB != nil {
		probes = append(probes, health.Probe{Name: "db", Timeout: 500 * time.Millisecond, Check: d.DB.Ping})
	}
	if d.Redis != nil {
		probes = append(probes, health.Probe{Name: "redis", Timeout: 300 * time.Millisecond, Check: func(ctx context.Context) error {
			return d.Redis.Ping(ctx).Err()
		}})
	}
	if d.Catalog != nil {
		probes = append(probes, health.Probe{Name: "catalog", Timeout: time.Second, Check: func(ctx context.Context) error {
			_, err := d.Catalog.ListProducts(ctx)
			return err
		}})
	}
	return probes
}

// Close releases connections opened by Build.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

func connectRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
