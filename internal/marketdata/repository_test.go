package marketdata

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketdash/internal/contracts"
)

func testRepository(t *testing.T) (*BarRepository, string) {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)

	repo := NewBarRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	asset := fmt.Sprintf("T%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM market.price_bars WHERE asset = $1`, asset)
		pool.Close()
	})
	return repo, asset
}

func TestBarRepository_SaveAndLoad(t *testing.T) {
	repo, asset := testRepository(t)
	ctx := context.Background()

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []contracts.Bar{
		{Time: t0, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Time: t0.Add(24 * time.Hour), Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 20},
	}

	n, err := repo.SaveBars(ctx, asset, "1d", bars)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// upsert replaces the close of an existing bar
	bars[1].Close = 2.75
	_, err = repo.SaveBars(ctx, asset, "1d", bars[1:])
	require.NoError(t, err)

	got, err := repo.LoadBars(ctx, asset, "1d", t0, t0.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Time.Equal(t0))
	assert.Equal(t, 2.75, got[1].Close)

	other, err := repo.LoadBars(ctx, asset, "5m", t0, t0.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestBarRepository_SaveEmpty(t *testing.T) {
	repo, asset := testRepository(t)

	n, err := repo.SaveBars(context.Background(), asset, "1d", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
