// Package book defines the record describing one scanned book and the rules
// for merging records that different catalogs return for it.
package book

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// UnknownContributor is used when a catalog payload names no author.
const UnknownContributor = "Unknown author"

// secondaryCoverMarker identifies the host of covers served by the secondary catalog.
const secondaryCoverMarker = "books.google"

// ErrIdentifierMismatch is returned when merging records of different books.
var ErrIdentifierMismatch = errors.New("book: records have different identifiers")

// Record is one catalog's knowledge about a book. It is immutable; every
// transformation returns a new Record.
type Record struct {
	identifier    string
	title         string
	contributor   string
	registeredAt  time.Time
	coverImageURL string
}

// Primitive is the flat, serializable form of a Record.
type Primitive struct {
	ISBN       string `json:"isbn"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	AddedAt    int64  `json:"added_at"`
	CoverImage string `json:"cover_image,omitempty"`
}

// New builds a Record. An empty cover means the record has no cover image.
func New(identifier, title, contributor string, registeredAt time.Time, cover string) Record {
	return Record{
		identifier:    identifier,
		title:         title,
		contributor:   contributor,
		registeredAt:  registeredAt,
		coverImageURL: cover,
	}
}

// FromPrimitive rebuilds a Record from its serialized form.
func FromPrimitive(p Primitive) Record {
	return New(p.ISBN, p.Title, p.Author, time.UnixMilli(p.AddedAt), p.CoverImage)
}

func (r Record) Identifier() string      { return r.identifier }
func (r Record) Title() string           { return r.title }
func (r Record) Contributor() string     { return r.contributor }
func (r Record) RegisteredAt() time.Time { return r.registeredAt }

// CoverImageURL reports the cover URL and whether the record has one.
func (r Record) CoverImageURL() (string, bool) {
	return r.coverImageURL, r.coverImageURL != ""
}

// Equal reports whether both records describe the same book.
func (r Record) Equal(other Record) bool {
	return r.identifier == other.identifier
}

// Primitive returns the serializable form of r.
func (r Record) Primitive() Primitive {
	return Primitive{
		ISBN:       r.identifier,
		Title:      r.title,
		Author:     r.contributor,
		AddedAt:    r.registeredAt.UnixMilli(),
		CoverImage: r.coverImageURL,
	}
}

// MarshalJSON encodes r in its primitive form.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Primitive())
}

// Merge combines r with other into a new Record. The receiver's timestamp is
// kept; longer titles and contributors win, with ties going to r.
func (r Record) Merge(other Record) (Record, error) {
	if r.identifier != other.identifier {
		return Record{}, fmt.Errorf("%w: %q vs %q", ErrIdentifierMismatch, r.identifier, other.identifier)
	}
	return Record{
		identifier:    r.identifier,
		title:         longer(r.title, other.title),
		contributor:   longer(r.contributor, other.contributor),
		registeredAt:  r.registeredAt,
		coverImageURL: pickCover(r.coverImageURL, other.coverImageURL),
	}, nil
}

func longer(a, b string) string {
	if utf8.RuneCountInString(b) > utf8.RuneCountInString(a) {
		return b
	}
	return a
}

func pickCover(mine, theirs string) string {
	switch {
	case mine == "":
		return theirs
	case theirs == "":
		return mine
	}
	if isSecondaryCover(mine) && !isSecondaryCover(theirs) {
		return mine
	}
	return theirs
}

// isSecondaryCover matches the marker against the URL host, or against the
// whole string when it does not parse.
func isSecondaryCover(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.Contains(raw, secondaryCoverMarker)
	}
	return strings.Contains(u.Host, secondaryCoverMarker)
}
