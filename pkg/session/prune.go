package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harun/warden/internal/tracing"
)

// PruneOptions selects the transcripts Prune deletes. A zero field disables
// that rule.
type PruneOptions struct {
	// OlderThan deletes runs that started more than this long ago.
	OlderThan time.Duration
	// Keep retains only the most recent Keep runs.
	Keep int
}

// Prune deletes old transcripts and returns how many runs were removed.
func (s *Store) Prune(ctx context.Context, opts PruneOptions) (int, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.prune",
		attribute.String("older_than", opts.OlderThan.String()),
		attribute.Int("keep", opts.Keep),
	)
	defer span.End()

	if opts.OlderThan < 0 || opts.Keep < 0 {
		return 0, fail(span, fmt.Errorf("prune options cannot be negative"))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fail(span, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	deleted := 0

	if opts.OlderThan > 0 {
		cutoff := time.Now().Add(-opts.OlderThan).UnixMilli()
		res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
		if err != nil {
			return 0, fail(span, fmt.Errorf("failed to delete old runs: %w", err))
		}
		n, _ := res.RowsAffected()
		deleted += int(n)
	}

	if opts.Keep > 0 {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM runs WHERE id NOT IN (
				SELECT id FROM runs ORDER BY started_at DESC, id LIMIT ?
			)`, opts.Keep)
		if err != nil {
			return 0, fail(span, fmt.Errorf("failed to trim runs: %w", err))
		}
		n, _ := res.RowsAffected()
		deleted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fail(span, fmt.Errorf("failed to commit prune: %w", err))
	}

	if deleted > 0 {
		log.Info().Int("deleted", deleted).Msg("Pruned transcripts")
	}
	return deleted, nil
}
