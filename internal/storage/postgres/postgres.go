package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
)

// Store wraps a pgxpool connection to the inspections database. All writes
// rely on natural-key uniqueness constraints (license_number,
// inspection_id, restaurant_id) for conflict resolution; no read-modify-
// write is ever performed.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, url string, maxConns int) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to database", zap.Int32("max_conns", poolConfig.MaxConns))
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS restaurants (
		id BIGSERIAL PRIMARY KEY,
		license_number BIGINT UNIQUE NOT NULL,
		dba_name VARCHAR(255),
		aka_name VARCHAR(255),
		facility_type VARCHAR(100),
		address VARCHAR(255),
		city VARCHAR(100),
		state VARCHAR(10),
		zip BIGINT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS inspections (
		id BIGSERIAL PRIMARY KEY,
		inspection_id BIGINT UNIQUE NOT NULL,
		restaurant_license BIGINT REFERENCES restaurants(license_number),
		inspection_date DATE NOT NULL,
		inspection_type VARCHAR(100),
		result VARCHAR(50),
		risk VARCHAR(50),
		violations TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_inspections_date ON inspections(inspection_date);
	CREATE INDEX IF NOT EXISTS idx_inspections_license ON inspections(restaurant_license);

	CREATE TABLE IF NOT EXISTS google_ratings (
		id BIGSERIAL PRIMARY KEY,
		restaurant_id BIGINT UNIQUE NOT NULL REFERENCES restaurants(id),
		place_id TEXT,
		rating DOUBLE PRECISION,
		user_ratings_total BIGINT,
		fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	logger.Info("database schema ensured")
	return nil
}

// MaxInspectionDate returns the watermark for incremental fetches, or nil
// when the store holds no inspections yet.
func (s *Store) MaxInspectionDate(ctx context.Context) (*time.Time, error) {
	var max *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(inspection_date) FROM inspections`).Scan(&max)
	if err != nil {
		return nil, fmt.Errorf("failed to query max inspection date: %w", err)
	}
	return max, nil
}
