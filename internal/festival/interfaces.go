package festival

import (
	"context"
	"time"
)

// Fetcher retrieves the raw calendar markup for a year.
type Fetcher interface {
	Fetch(ctx context.Context, year int) ([]byte, error)
}

// Provider answers festival queries. A month of zero means no month
// filter.
type Provider interface {
	Festivals(ctx context.Context, year, month int) (*Grouping, error)
	ReligiousFestivals(ctx context.Context, year, month int) (*Grouping, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces request correlation IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
