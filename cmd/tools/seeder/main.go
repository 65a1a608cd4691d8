package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/config"
	"github.com/noah-isme/toko-cart/internal/db"
	"github.com/noah-isme/toko-cart/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(os.Getenv("OBS_LOG_FORMAT"), os.Getenv("OBS_LOG_LEVEL")).With().Str("cmd", "seeder").Logger()

	file := flag.String("file", cfg.CatalogFile, "YAML catalog to load")
	skipMigrate := flag.Bool("skip-migrate", false, "do not apply migrations first")
	flag.Parse()

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *file).Msg("read catalog")
	}
	products, coupons, err := catalog.ParseFile(data)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *file).Msg("parse catalog")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, "toko-cart-seeder")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if !*skipMigrate {
		if err := db.Migrate(pool); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	if err := catalog.NewPostgres(pool).Upsert(ctx, products, coupons); err != nil {
		logger.Fatal().Err(err).Msg("upsert catalog")
	}
	logger.Info().Int("products", len(products)).Int("coupons", len(coupons)).Str("file", *file).Msg("catalog seeded")
}
