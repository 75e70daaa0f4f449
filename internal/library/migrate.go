package library

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"shelfscan/internal/logging"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Dialects understood by Migrate.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

func migrationsDir(dialect string) (string, error) {
	switch dialect {
	case DialectSQLite:
		return "migrations/sqlite", nil
	case DialectPostgres:
		return "migrations/postgres", nil
	default:
		return "", fmt.Errorf("unsupported migration dialect %q", dialect)
	}
}

// goose keeps its base FS, dialect and logger in package state.
var gooseMu sync.Mutex

// gooseLogger routes goose output through slog at a fixed level.
type gooseLogger struct {
	logger *slog.Logger
	level  slog.Level
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Log(context.Background(), l.level, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
	os.Exit(1)
}

// Migrate runs the embedded migrations for dialect. command is one of
// "up", "down" or "status". Goose output is logged at info level.
func Migrate(ctx context.Context, db *sql.DB, dialect, command string, logger *slog.Logger) error {
	return migrate(ctx, db, dialect, command, logger, slog.LevelInfo)
}

// migrateUp applies pending migrations while opening a store; goose output
// is only visible at debug level.
func migrateUp(ctx context.Context, db *sql.DB, dialect string, logger *slog.Logger) error {
	return migrate(ctx, db, dialect, "up", logger, slog.LevelDebug)
}

func migrate(ctx context.Context, db *sql.DB, dialect, command string, logger *slog.Logger, level slog.Level) error {
	dir, err := migrationsDir(dialect)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetLogger(gooseLogger{logger: logging.Component(logger, "migrate"), level: level})
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	switch command {
	case "up", "":
		err = goose.UpContext(ctx, db, dir)
	case "down":
		err = goose.DownContext(ctx, db, dir)
	case "status":
		err = goose.StatusContext(ctx, db, dir)
	default:
		return fmt.Errorf("unknown migration command %q (use up, down, status)", command)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}

// OpenDB opens a plain database handle for dialect without migrating it.
// target is a file path for SQLite and a DSN for PostgreSQL.
func OpenDB(ctx context.Context, dialect, target string) (*sql.DB, error) {
	var driver string
	switch dialect {
	case DialectSQLite:
		driver = "sqlite"
	case DialectPostgres:
		driver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	db, err := sql.Open(driver, target)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}
	return db, nil
}
