package quote

import (
	"context"
	"time"
)

type Repository interface {
	SaveQuotes(ctx context.Context, quotes []Quote) (int64, error)
	ListQuotes(ctx context.Context, source Source, symbol string, from, to time.Time) ([]Quote, error)
	ExistingDates(ctx context.Context, source Source, symbol string, from, to time.Time) (map[time.Time]bool, error)
}
