// Package catalog resolves scanned identifiers into book records by querying
// several catalog sources at once and merging what they return.
package catalog

import (
	"context"
	"errors"
	"time"

	"shelfscan/internal/book"
)

var (
	// ErrNotFound is returned when no source knows the identifier.
	ErrNotFound = errors.New("catalog: no entry for identifier")
	// ErrTimedOut is returned when the deadline elapses before resolution completes.
	ErrTimedOut = errors.New("catalog: resolution timed out")
)

// Source looks a book up in one external catalog. Implementations report
// transport and decoding failures as a miss; they never return an error.
type Source interface {
	Name() string
	FindBook(ctx context.Context, identifier string, registeredAt time.Time) (book.Record, bool)
}

// Resolver turns an identifier into a single record.
type Resolver interface {
	Resolve(ctx context.Context, identifier string, registeredAt time.Time) (book.Record, error)
}

// RegisteredAtOrNow returns ts, or the current time when ts is zero.
func RegisteredAtOrNow(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now()
	}
	return ts
}
