// Package ingest imports a list of scanned codes into the library in one go.
package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"shelfscan/internal/book"
	"shelfscan/internal/catalog"
	"shelfscan/internal/logging"
)

// Scanner resolves and stores a single code.
type Scanner interface {
	Scan(ctx context.Context, code string) (book.Record, error)
}

type Service struct {
	scanner Scanner
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(scanner Scanner, logger *slog.Logger) *Service {
	return &Service{
		scanner: scanner,
		logger:  logging.Component(logger, "ingest"),
		now:     time.Now,
	}
}

// Run scans every code in order. Blank and repeated codes are skipped. A
// miss, a timeout or a storage error on one code does not stop the run;
// only cancellation of ctx does, in which case the partial run is returned
// together with the context error.
func (s *Service) Run(ctx context.Context, codes []string) (run *Run, err error) {
	run = &Run{
		ID:        uuid.NewString(),
		Status:    StatusRunning,
		StartedAt: s.now(),
		Requested: len(codes),
	}
	s.logger.Info("import started", slog.String("run_id", run.ID), slog.Int("requested", run.Requested))

	defer func() {
		finished := s.now()
		run.FinishedAt = &finished
		if err != nil {
			run.Status = StatusFailed
			run.Error = err.Error()
		} else {
			run.Status = StatusCompleted
		}
		s.logger.Info("import finished",
			slog.String("run_id", run.ID),
			slog.String("status", string(run.Status)),
			slog.Int("added", run.Added),
			slog.Int("not_found", run.NotFound),
			slog.Int("timed_out", run.TimedOut),
			slog.Int("failed", run.Failed),
			slog.Duration("elapsed", finished.Sub(run.StartedAt)))
	}()

	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		code = strings.TrimSpace(code)
		if code == "" || seen[code] {
			run.Skipped++
			continue
		}
		seen[code] = true

		_, scanErr := s.scanner.Scan(ctx, code)
		switch {
		case scanErr == nil:
			run.Added++
		case errors.Is(scanErr, catalog.ErrNotFound):
			run.NotFound++
			run.Failures = append(run.Failures, Failure{ISBN: code, Reason: ReasonNotFound})
		case errors.Is(scanErr, catalog.ErrTimedOut):
			run.TimedOut++
			run.Failures = append(run.Failures, Failure{ISBN: code, Reason: ReasonTimedOut})
		case errors.Is(scanErr, context.Canceled), errors.Is(scanErr, context.DeadlineExceeded):
			return run, scanErr
		default:
			s.logger.Warn("import entry failed", slog.String("isbn", code), slog.Any("error", scanErr))
			run.Failed++
			run.Failures = append(run.Failures, Failure{ISBN: code, Reason: scanErr.Error()})
		}
	}
	return run, nil
}

// ReadCodes reads one code per line. Blank lines and lines starting with '#'
// are ignored.
func ReadCodes(r io.Reader) ([]string, error) {
	var codes []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		codes = append(codes, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read codes: %w", err)
	}
	return codes, nil
}
