// Package library persists resolved book records, one entry per identifier.
package library

import (
	"context"
	"errors"

	"shelfscan/internal/book"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks shelfscan/internal/library Store

// ErrNotFound is returned when no record is stored under an identifier.
var ErrNotFound = errors.New("library: book not found")

// Store is a keyed collection of records. Add replaces any record already
// stored under the same identifier.
type Store interface {
	Add(ctx context.Context, record book.Record) error
	Get(ctx context.Context, isbn string) (book.Record, error)
	GetAll(ctx context.Context) ([]book.Record, error)
	Delete(ctx context.Context, isbn string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}
