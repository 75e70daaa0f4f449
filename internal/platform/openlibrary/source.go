// Package openlibrary talks to the Open Library search API, the primary
// catalog consulted for scanned books.
package openlibrary

import (
	"context"
	"log/slog"
	"time"

	"shelfscan/internal/book"
	"shelfscan/internal/catalog"
	"shelfscan/internal/logging"
)

// SourceName identifies Open Library in logs and diagnostics.
const SourceName = "openlibrary"

// Searcher is the part of Client used by Source.
type Searcher interface {
	SearchByISBN(ctx context.Context, isbn string) (*SearchResponse, error)
}

// Source adapts Open Library search results to catalog records.
type Source struct {
	client Searcher
	logger *slog.Logger
}

var _ catalog.Source = (*Source)(nil)

func NewSource(client Searcher, logger *slog.Logger) *Source {
	return &Source{client: client, logger: logging.Component(logger, SourceName)}
}

func (s *Source) Name() string { return SourceName }

// FindBook returns the first search match for identifier. Failures are
// logged and reported as a miss.
func (s *Source) FindBook(ctx context.Context, identifier string, registeredAt time.Time) (book.Record, bool) {
	res, err := s.client.SearchByISBN(ctx, identifier)
	if err != nil {
		s.logger.Warn("open library lookup failed",
			slog.String("isbn", identifier),
			slog.Any("error", err))
		return book.Record{}, false
	}
	if len(res.Docs) == 0 {
		return book.Record{}, false
	}

	doc := res.Docs[0]
	author := book.UnknownContributor
	if len(doc.AuthorNames) > 0 && doc.AuthorNames[0] != "" {
		author = doc.AuthorNames[0]
	}
	var cover string
	if doc.CoverID > 0 {
		cover = CoverURL(doc.CoverID)
	}

	return book.New(identifier, doc.Title, author, catalog.RegisteredAtOrNow(registeredAt), cover), true
}
