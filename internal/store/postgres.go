package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/trading-services/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS stocks (
  id          text PRIMARY KEY,
  position    integer NOT NULL,
  name        text NOT NULL DEFAULT '',
  price       double precision NOT NULL DEFAULT 0,
  owned       text NOT NULL DEFAULT '',
  sector      text NOT NULL DEFAULT '',
  volume      bigint NOT NULL DEFAULT 0,
  market_cap  bigint NOT NULL DEFAULT 0,
  updated_at  timestamptz NOT NULL DEFAULT now()
)`

// PostgresSink stores one row per record; position keeps document order.
type PostgresSink struct{ DB *pgxpool.Pool }

func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func NewPostgresSink(db *pgxpool.Pool) *PostgresSink { return &PostgresSink{DB: db} }

func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, schemaSQL)
	return err
}

func (s *PostgresSink) Load(ctx context.Context) ([]models.Stock, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, name, price, owned, sector, volume, market_cap FROM stocks ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Stock, 0)
	for rows.Next() {
		var st models.Stock
		if err := rows.Scan(&st.ID, &st.Name, &st.Price, &st.Owned, &st.Sector, &st.Volume, &st.MarketCap); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Save upserts every record in one transaction.
func (s *PostgresSink) Save(ctx context.Context, stocks []models.Stock) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i, st := range stocks {
		batch.Queue(`
			INSERT INTO stocks (id, position, name, price, owned, sector, volume, market_cap)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id)
			DO UPDATE SET position = EXCLUDED.position,
			              name = EXCLUDED.name,
			              price = EXCLUDED.price,
			              owned = EXCLUDED.owned,
			              sector = EXCLUDED.sector,
			              volume = EXCLUDED.volume,
			              market_cap = EXCLUDED.market_cap,
			              updated_at = now()
		`, st.ID, i, st.Name, st.Price, st.Owned, st.Sector, st.Volume, st.MarketCap)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert stocks: %w", err)
	}
	return tx.Commit(ctx)
}
