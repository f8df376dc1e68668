package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/harun/warden/internal/tracing"
)

const tracerName = "warden/session"

// DefaultListLimit is used by List when limit is not positive.
const DefaultListLimit = 20

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("transcript not found")

// Store keeps transcripts in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and creates, if needed) the transcript database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".warden", "transcripts.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug().Str("path", path).Msg("Transcript store opened")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id            TEXT PRIMARY KEY,
			prompt        TEXT NOT NULL,
			provider      TEXT NOT NULL,
			model         TEXT NOT NULL,
			outcome       TEXT NOT NULL,
			answer        TEXT NOT NULL DEFAULT '',
			error         TEXT NOT NULL DEFAULT '',
			iterations    INTEGER NOT NULL DEFAULT 0,
			input_tokens  INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			started_at    INTEGER NOT NULL,
			finished_at   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

		CREATE TABLE IF NOT EXISTS messages (
			run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq          INTEGER NOT NULL,
			role         TEXT NOT NULL,
			content      TEXT NOT NULL DEFAULT '',
			tool_calls   TEXT,
			tool_results TEXT,
			PRIMARY KEY (run_id, seq)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize transcript schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func validateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("run id cannot be empty")
	}
	if strings.ContainsAny(id, "\x00\n") {
		return fmt.Errorf("run id contains invalid characters")
	}
	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Save stores a finished run and its messages.
func (s *Store) Save(ctx context.Context, t Transcript) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.save",
		attribute.String("run_id", t.ID),
		attribute.Int("messages", len(t.Messages)),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	if err := validateRunID(t.ID); err != nil {
		return fail(span, err)
	}
	if t.FinishedAt.IsZero() {
		t.FinishedAt = time.Now()
	}
	if t.StartedAt.IsZero() {
		t.StartedAt = t.FinishedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(span, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, prompt, provider, model, outcome, answer, error,
			iterations, input_tokens, output_tokens, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Prompt, t.Provider, t.Model, t.Outcome, t.Answer, t.Error,
		t.Iterations, t.InputTokens, t.OutputTokens,
		t.StartedAt.UnixMilli(), t.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fail(span, fmt.Errorf("failed to insert run %s: %w", t.ID, err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (run_id, seq, role, content, tool_calls, tool_results)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fail(span, fmt.Errorf("failed to prepare message insert: %w", err))
	}
	defer stmt.Close()

	for i, msg := range t.Messages {
		calls, err := encodeJSON(msg.ToolCalls)
		if err != nil {
			return fail(span, fmt.Errorf("failed to marshal tool calls: %w", err))
		}
		results, err := encodeJSON(msg.ToolResults)
		if err != nil {
			return fail(span, fmt.Errorf("failed to marshal tool results: %w", err))
		}
		if _, err := stmt.ExecContext(ctx, t.ID, i, msg.Role, msg.Content, calls, results); err != nil {
			return fail(span, fmt.Errorf("failed to insert message %d: %w", i, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fail(span, fmt.Errorf("failed to commit transcript: %w", err))
	}

	logger.Debug().
		Str("run_id", t.ID).
		Int("messages", len(t.Messages)).
		Msg("Transcript saved")
	return nil
}

// Get loads one transcript with its messages.
func (s *Store) Get(ctx context.Context, id string) (Transcript, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.get", attribute.String("run_id", id))
	defer span.End()

	if err := validateRunID(id); err != nil {
		return Transcript{}, fail(span, err)
	}

	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	t, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Transcript{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Transcript{}, fail(span, fmt.Errorf("failed to load run %s: %w", id, err))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, tool_calls, tool_results
		FROM messages WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return Transcript{}, fail(span, fmt.Errorf("failed to load messages: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			msg     Message
			calls   sql.NullString
			results sql.NullString
		)
		if err := rows.Scan(&msg.Role, &msg.Content, &calls, &results); err != nil {
			return Transcript{}, fail(span, fmt.Errorf("failed to scan message: %w", err))
		}
		if calls.Valid {
			if err := json.Unmarshal([]byte(calls.String), &msg.ToolCalls); err != nil {
				return Transcript{}, fail(span, fmt.Errorf("failed to decode tool calls: %w", err))
			}
		}
		if results.Valid {
			if err := json.Unmarshal([]byte(results.String), &msg.ToolResults); err != nil {
				return Transcript{}, fail(span, fmt.Errorf("failed to decode tool results: %w", err))
			}
		}
		t.Messages = append(t.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return Transcript{}, fail(span, err)
	}

	return t, nil
}

// List returns the most recent runs first, without their messages.
func (s *Store) List(ctx context.Context, limit int) ([]Transcript, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "session.list")
	defer span.End()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to list runs: %w", err))
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		t, err := scanRun(rows)
		if err != nil {
			return nil, fail(span, fmt.Errorf("failed to scan run: %w", err))
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const selectRuns = `
	SELECT id, prompt, provider, model, outcome, answer, error,
		iterations, input_tokens, output_tokens, started_at, finished_at
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Transcript, error) {
	var (
		t                 Transcript
		started, finished int64
	)
	err := row.Scan(&t.ID, &t.Prompt, &t.Provider, &t.Model, &t.Outcome, &t.Answer, &t.Error,
		&t.Iterations, &t.InputTokens, &t.OutputTokens, &started, &finished)
	if err != nil {
		return Transcript{}, err
	}
	t.StartedAt = time.UnixMilli(started)
	t.FinishedAt = time.UnixMilli(finished)
	return t, nil
}

func encodeJSON[T any](items []T) (sql.NullString, error) {
	if len(items) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
