package contracts

import (
	"context"
	"time"
)

// FrameFetcher is the data adapter consumed by the analytics layer
// ⭐ SSOT: 가격 데이터 조회 인터페이스
// Unknown asset keys return an error; every other failure degrades to an empty frame.
type FrameFetcher interface {
	Fetch(ctx context.Context, asset, period, interval string) (*Frame, error)
}

// BarStore persists collected bars (optional, PostgreSQL)
type BarStore interface {
	SaveBars(ctx context.Context, asset, interval string, bars []Bar) (int64, error)
	LoadBars(ctx context.Context, asset, interval string, from, to time.Time) ([]Bar, error)
}
