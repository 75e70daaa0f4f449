package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"shelfscan/internal/book"
	"shelfscan/internal/logging"
)

// Aggregator queries every source concurrently and folds the hits together
// in source order.
type Aggregator struct {
	sources []Source
	logger  *slog.Logger
}

var _ Resolver = (*Aggregator)(nil)

// NewAggregator creates an aggregator over sources. Order matters: the first
// hit's timestamp survives the merge and wins title ties.
func NewAggregator(logger *slog.Logger, sources ...Source) *Aggregator {
	return &Aggregator{
		sources: append([]Source(nil), sources...),
		logger:  logging.Component(logger, "catalog"),
	}
}

// Sources lists the configured source names in order.
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the merged record for identifier, or ErrNotFound when no
// source has it.
func (a *Aggregator) Resolve(ctx context.Context, identifier string, registeredAt time.Time) (book.Record, error) {
	type hit struct {
		record book.Record
		ok     bool
	}
	hits := make([]hit, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			record, ok := src.FindBook(ctx, identifier, registeredAt)
			hits[i] = hit{record: record, ok: ok}
			return nil
		})
	}
	_ = g.Wait()

	var found []book.Record
	for i, h := range hits {
		if !h.ok {
			a.logger.Debug("source has no match",
				slog.String("source", a.sources[i].Name()),
				slog.String("isbn", identifier))
			continue
		}
		found = append(found, h.record)
	}
	if len(found) == 0 {
		return book.Record{}, ErrNotFound
	}

	merged := found[0]
	for _, r := range found[1:] {
		var err error
		merged, err = merged.Merge(r)
		if err != nil {
			return book.Record{}, fmt.Errorf("merge results for %s: %w", identifier, err)
		}
	}

	a.logger.Info("resolved book",
		slog.String("isbn", identifier),
		slog.String("title", merged.Title()),
		slog.Int("sources_matched", len(found)))
	return merged, nil
}
