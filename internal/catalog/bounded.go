package catalog

import (
	"context"
	"log/slog"
	"time"

	"shelfscan/internal/book"
	"shelfscan/internal/logging"
)

// DefaultDeadline bounds a resolution when no deadline is configured.
const DefaultDeadline = 15 * time.Second

// BoundedRequest races a resolver against a deadline. A lookup that loses the
// race keeps running detached and its result is dropped.
type BoundedRequest struct {
	resolver Resolver
	deadline time.Duration
	logger   *slog.Logger
}

var _ Resolver = (*BoundedRequest)(nil)

// NewBoundedRequest wraps resolver. A non-positive deadline uses DefaultDeadline.
func NewBoundedRequest(resolver Resolver, deadline time.Duration, logger *slog.Logger) *BoundedRequest {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &BoundedRequest{
		resolver: resolver,
		deadline: deadline,
		logger:   logging.Component(logger, "catalog"),
	}
}

// Deadline reports the configured bound.
func (b *BoundedRequest) Deadline() time.Duration { return b.deadline }

type outcome struct {
	record book.Record
	err    error
}

// Resolve returns the resolver's record or error, ErrTimedOut when the
// deadline elapses first, or ctx.Err() when the caller gives up.
func (b *BoundedRequest) Resolve(ctx context.Context, identifier string, registeredAt time.Time) (book.Record, error) {
	// Buffered so an abandoned lookup can always deliver and exit.
	done := make(chan outcome, 1)
	lookupCtx := context.WithoutCancel(ctx)
	go func() {
		record, err := b.resolver.Resolve(lookupCtx, identifier, registeredAt)
		done <- outcome{record: record, err: err}
	}()

	timer := time.NewTimer(b.deadline)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.record, res.err
	case <-timer.C:
		b.logger.Warn("resolution timed out",
			slog.String("isbn", identifier),
			slog.Duration("deadline", b.deadline))
		return book.Record{}, ErrTimedOut
	case <-ctx.Done():
		return book.Record{}, ctx.Err()
	}
}
