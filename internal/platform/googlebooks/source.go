// Package googlebooks talks to the Google Books volumes API, the secondary
// catalog consulted for scanned books.
package googlebooks

import (
	"context"
	"log/slog"
	"time"

	"shelfscan/internal/book"
	"shelfscan/internal/catalog"
	"shelfscan/internal/logging"
)

// SourceName identifies Google Books in logs and diagnostics.
const SourceName = "googlebooks"

// Searcher is the part of Client used by Source.
type Searcher interface {
	VolumesByISBN(ctx context.Context, isbn string) (*VolumesResponse, error)
}

// Source adapts Google Books volumes to catalog records.
type Source struct {
	client Searcher
	logger *slog.Logger
}

var _ catalog.Source = (*Source)(nil)

func NewSource(client Searcher, logger *slog.Logger) *Source {
	return &Source{client: client, logger: logging.Component(logger, SourceName)}
}

func (s *Source) Name() string { return SourceName }

// FindBook returns the first volume matching identifier. Failures are
// logged and reported as a miss.
func (s *Source) FindBook(ctx context.Context, identifier string, registeredAt time.Time) (book.Record, bool) {
	res, err := s.client.VolumesByISBN(ctx, identifier)
	if err != nil {
		s.logger.Warn("google books lookup failed",
			slog.String("isbn", identifier),
			slog.Any("error", err))
		return book.Record{}, false
	}
	if res.TotalItems <= 0 || len(res.Items) == 0 {
		return book.Record{}, false
	}

	info := res.Items[0].VolumeInfo
	author := book.UnknownContributor
	if len(info.Authors) > 0 && info.Authors[0] != "" {
		author = info.Authors[0]
	}
	cover := info.ImageLinks.Thumbnail
	if cover == "" {
		cover = info.ImageLinks.SmallThumbnail
	}

	return book.New(identifier, info.Title, author, catalog.RegisteredAtOrNow(registeredAt), cover), true
}
