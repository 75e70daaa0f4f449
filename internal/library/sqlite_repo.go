package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"shelfscan/internal/book"
)

// SQLiteRepo keeps the library in a local SQLite file, one per device.
type SQLiteRepo struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteRepo)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure library directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := migrateUp(ctx, db, DialectSQLite, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db, path: path}, nil
}

// Path returns the database file location.
func (r *SQLiteRepo) Path() string { return r.path }

func (r *SQLiteRepo) Add(ctx context.Context, record book.Record) error {
	const query = `
		INSERT INTO library_books (isbn, title, author, added_at, cover_image)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (isbn) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			added_at = excluded.added_at,
			cover_image = excluded.cover_image`

	p := record.Primitive()
	if _, err := r.db.ExecContext(ctx, query, p.ISBN, p.Title, p.Author, p.AddedAt, p.CoverImage); err != nil {
		return fmt.Errorf("add book %s: %w", p.ISBN, err)
	}
	return nil
}

func (r *SQLiteRepo) Get(ctx context.Context, isbn string) (book.Record, error) {
	const query = `SELECT isbn, title, author, added_at, cover_image FROM library_books WHERE isbn = ?`

	var p book.Primitive
	err := r.db.QueryRowContext(ctx, query, isbn).Scan(&p.ISBN, &p.Title, &p.Author, &p.AddedAt, &p.CoverImage)
	if errors.Is(err, sql.ErrNoRows) {
		return book.Record{}, ErrNotFound
	}
	if err != nil {
		return book.Record{}, fmt.Errorf("get book %s: %w", isbn, err)
	}
	return book.FromPrimitive(p), nil
}

func (r *SQLiteRepo) GetAll(ctx context.Context) ([]book.Record, error) {
	const query = `SELECT isbn, title, author, added_at, cover_image FROM library_books ORDER BY added_at DESC, isbn ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var out []book.Record
	for rows.Next() {
		var p book.Primitive
		if err := rows.Scan(&p.ISBN, &p.Title, &p.Author, &p.AddedAt, &p.CoverImage); err != nil {
			return nil, err
		}
		out = append(out, book.FromPrimitive(p))
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Delete(ctx context.Context, isbn string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM library_books WHERE isbn = ?`, isbn)
	if err != nil {
		return fmt.Errorf("delete book %s: %w", isbn, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM library_books`); err != nil {
		return fmt.Errorf("clear library: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM library_books`).Scan(&count)
	return count, err
}

func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepo) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
