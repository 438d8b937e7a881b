package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/marketdash/internal/contracts"
)

// BarRepository stores collected bars in PostgreSQL
// ⭐ SSOT: 가격 봉 데이터 저장/조회는 여기서만
type BarRepository struct {
	pool *pgxpool.Pool
}

// NewBarRepository creates a new bar repository
func NewBarRepository(pool *pgxpool.Pool) *BarRepository {
	return &BarRepository{pool: pool}
}

const schemaSQL = `
	CREATE SCHEMA IF NOT EXISTS market;
	CREATE TABLE IF NOT EXISTS market.price_bars (
		asset      TEXT             NOT NULL,
		bar_interval TEXT           NOT NULL,
		bar_time   TIMESTAMPTZ      NOT NULL,
		open       DOUBLE PRECISION NOT NULL,
		high       DOUBLE PRECISION NOT NULL,
		low        DOUBLE PRECISION NOT NULL,
		close      DOUBLE PRECISION NOT NULL,
		volume     DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ      NOT NULL DEFAULT now(),
		PRIMARY KEY (asset, bar_interval, bar_time)
	);`

// EnsureSchema creates the bar table when missing
func (r *BarRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure bar schema: %w", err)
	}
	return nil
}

// SaveBars upserts bars in one batch and returns the number written
func (r *BarRepository) SaveBars(ctx context.Context, asset, interval string, bars []contracts.Bar) (int64, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO market.price_bars
			(asset, bar_interval, bar_time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (asset, bar_interval, bar_time) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			updated_at = now()`

	for _, b := range bars {
		batch.Queue(query, asset, interval, b.Time.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	var written int64
	for range bars {
		tag, err := br.Exec()
		if err != nil {
			return written, fmt.Errorf("failed to upsert bar for %s: %w", asset, err)
		}
		written += tag.RowsAffected()
	}

	return written, nil
}

// LoadBars returns stored bars in [from, to] ascending; zero from means unbounded
func (r *BarRepository) LoadBars(ctx context.Context, asset, interval string, from, to time.Time) ([]contracts.Bar, error) {
	query := `
		SELECT bar_time, open, high, low, close, volume
		FROM market.price_bars
		WHERE asset = $1 AND bar_interval = $2 AND bar_time >= $3 AND bar_time <= $4
		ORDER BY bar_time`

	rows, err := r.pool.Query(ctx, query, asset, interval, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		b.Time = b.Time.UTC()
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return bars, nil
}
