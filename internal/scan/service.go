// Package scan turns decoded barcodes into library entries: it resolves the
// code against the catalogs and keeps the result in the library store.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"shelfscan/internal/book"
	"shelfscan/internal/catalog"
	"shelfscan/internal/library"
	"shelfscan/internal/logging"
)

var (
	// ErrEmptyIdentifier is returned for a blank scanned code.
	ErrEmptyIdentifier = errors.New("scan: identifier is empty")
	// ErrLibraryEmpty is returned when clearing a library with no books.
	ErrLibraryEmpty = errors.New("scan: library is empty")
)

// Service coordinates resolution and persistence.
type Service struct {
	resolver catalog.Resolver
	store    library.Store
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a scan service. resolver is normally a
// catalog.BoundedRequest so callers can tell a timeout from a miss.
func NewService(resolver catalog.Resolver, store library.Store, logger *slog.Logger) *Service {
	return &Service{
		resolver: resolver,
		store:    store,
		now:      time.Now,
		logger:   logging.Component(logger, "scan"),
	}
}

// Scan resolves code and stores the record. catalog.ErrNotFound and
// catalog.ErrTimedOut are returned unwrapped.
func (s *Service) Scan(ctx context.Context, code string) (book.Record, error) {
	record, err := s.Lookup(ctx, code)
	if err != nil {
		return book.Record{}, err
	}
	if err := s.store.Add(ctx, record); err != nil {
		s.logger.Error("failed to save book",
			slog.String("isbn", record.Identifier()),
			slog.String("title", record.Title()),
			slog.Any("error", err))
		return book.Record{}, fmt.Errorf("save book %q: %w", record.Title(), err)
	}
	s.logger.Info("book added",
		slog.String("isbn", record.Identifier()),
		slog.String("title", record.Title()))
	return record, nil
}

// Lookup resolves code without touching the library.
func (s *Service) Lookup(ctx context.Context, code string) (book.Record, error) {
	isbn := NormalizeCode(code)
	if isbn == "" {
		return book.Record{}, ErrEmptyIdentifier
	}
	s.logger.Debug("detected isbn", slog.String("isbn", isbn))

	record, err := s.resolver.Resolve(ctx, isbn, s.now())
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			s.logger.Info("no catalog entry", slog.String("isbn", isbn))
		case errors.Is(err, catalog.ErrTimedOut):
			s.logger.Warn("catalog lookup too slow", slog.String("isbn", isbn))
		default:
			s.logger.Error("book lookup failed", slog.String("isbn", isbn), slog.Any("error", err))
		}
		return book.Record{}, err
	}
	return record, nil
}

// Library returns every stored record, newest first.
func (s *Service) Library(ctx context.Context) ([]book.Record, error) {
	records, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].RegisteredAt(), records[j].RegisteredAt()
		if !a.Equal(b) {
			return a.After(b)
		}
		return records[i].Identifier() < records[j].Identifier()
	})
	return records, nil
}

// Page is one slice of the library listing.
type Page struct {
	Records    []book.Record
	Total      int
	NextCursor string
}

// LibraryPage returns up to limit records positioned after cursor, newest
// first. A non-positive limit returns everything after the cursor.
func (s *Service) LibraryPage(ctx context.Context, limit int, cursor string) (Page, error) {
	after, err := DecodeCursor(cursor)
	if err != nil {
		return Page{}, err
	}
	records, err := s.Library(ctx)
	if err != nil {
		return Page{}, err
	}

	start := 0
	if after.AfterISBN != "" {
		start = sort.Search(len(records), func(i int) bool {
			added := records[i].RegisteredAt().UnixMilli()
			if added != after.AddedAt {
				return added < after.AddedAt
			}
			return records[i].Identifier() > after.AfterISBN
		})
	}

	page := Page{Total: len(records), Records: records[start:]}
	if limit > 0 && len(page.Records) > limit {
		page.Records = page.Records[:limit]
		last := page.Records[limit-1]
		page.NextCursor = EncodeCursor(CursorData{
			AfterISBN: last.Identifier(),
			AddedAt:   last.RegisteredAt().UnixMilli(),
		})
	}
	return page, nil
}

// Delete removes the book stored under isbn and returns it.
func (s *Service) Delete(ctx context.Context, isbn string) (book.Record, error) {
	isbn = NormalizeCode(isbn)
	record, err := s.store.Get(ctx, isbn)
	if err != nil {
		return book.Record{}, err
	}
	if err := s.store.Delete(ctx, isbn); err != nil {
		return book.Record{}, err
	}
	s.logger.Info("book deleted", slog.String("isbn", isbn), slog.String("title", record.Title()))
	return record, nil
}

// Clear empties the library and reports how many books were removed.
func (s *Service) Clear(ctx context.Context) (int, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count library: %w", err)
	}
	if count == 0 {
		return 0, ErrLibraryEmpty
	}
	if err := s.store.Clear(ctx); err != nil {
		return 0, err
	}
	s.logger.Info("library cleared", slog.Int("removed", count))
	return count, nil
}

// NormalizeCode trims whitespace around a decoded barcode.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// CountLabel renders the library size for display.
func CountLabel(n int) string {
	switch {
	case n <= 0:
		return ""
	case n == 1:
		return "1 book"
	default:
		return fmt.Sprintf("%d books", n)
	}
}
