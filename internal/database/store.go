// Package database is the optional Postgres sink. When a DATABASE_URL is
// configured, each site's deduplicated items are upserted after export so
// downstream analysis can query across runs.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oludev/solar-market-scraper/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS solar_items (
	id            BIGSERIAL PRIMARY KEY,
	source_site   TEXT NOT NULL,
	identity_key  TEXT NOT NULL,
	name          TEXT,
	brand         TEXT,
	model         TEXT,
	price_raw     TEXT,
	price         NUMERIC,
	currency      TEXT,
	product_url   TEXT,
	image_url     TEXT,
	all_image_urls JSONB,
	description   TEXT,
	specs         JSONB,
	rating        NUMERIC,
	review_count  INTEGER,
	availability  TEXT,
	condition     TEXT,
	seller        TEXT,
	location      TEXT,
	scraped_at    TIMESTAMPTZ NOT NULL,
	raw_html_path TEXT,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source_site, identity_key)
)`

const upsertItem = `
INSERT INTO solar_items (
	source_site, identity_key, name, brand, model, price_raw, price, currency,
	product_url, image_url, all_image_urls, description, specs, rating,
	review_count, availability, condition, seller, location, scraped_at,
	raw_html_path, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,now())
ON CONFLICT (source_site, identity_key) DO UPDATE SET
	name = EXCLUDED.name,
	brand = EXCLUDED.brand,
	model = EXCLUDED.model,
	price_raw = EXCLUDED.price_raw,
	price = EXCLUDED.price,
	currency = EXCLUDED.currency,
	image_url = EXCLUDED.image_url,
	all_image_urls = EXCLUDED.all_image_urls,
	description = EXCLUDED.description,
	specs = EXCLUDED.specs,
	rating = EXCLUDED.rating,
	review_count = EXCLUDED.review_count,
	availability = EXCLUDED.availability,
	condition = EXCLUDED.condition,
	seller = EXCLUDED.seller,
	location = EXCLUDED.location,
	scraped_at = EXCLUDED.scraped_at,
	raw_html_path = EXCLUDED.raw_html_path,
	updated_at = now()`

// Store persists items through a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore connects, verifies the connection and ensures the schema exists.
func NewStore(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = 4
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{
		pool:   pool,
		logger: logger.With("component", "database"),
	}, nil
}

// SaveItems upserts a site's items, keyed by (source_site, identity_key) so
// re-runs refresh existing rows instead of duplicating them.
func (s *Store) SaveItems(ctx context.Context, items []*models.Item) error {
	for _, item := range items {
		specs, err := json.Marshal(item.Specs)
		if err != nil {
			return fmt.Errorf("encode specs for %q: %w", item.Name, err)
		}
		images, err := json.Marshal(item.ImageURLs)
		if err != nil {
			return fmt.Errorf("encode image urls for %q: %w", item.Name, err)
		}

		_, err = s.pool.Exec(ctx, upsertItem,
			item.SourceSite,
			item.IdentityKey(),
			item.Name,
			item.Brand,
			item.Model,
			item.PriceRaw,
			item.Price,
			item.Currency,
			item.ProductURL,
			item.ImageURL,
			images,
			item.Description,
			specs,
			item.Rating,
			item.ReviewCount,
			item.Availability,
			item.Condition,
			item.Seller,
			item.Location,
			item.ScrapedAt,
			item.RawHTMLPath,
		)
		if err != nil {
			return fmt.Errorf("upsert item %q: %w", item.Name, err)
		}
	}

	s.logger.Info("items saved", "count", len(items))
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}
