// File: internal/history/store.go
package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// DBPool abstracts pgxpool.Pool so the store can be mocked in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Store is the PostgreSQL-backed Recorder.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ Recorder = (*Store)(nil)

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("history"),
	}, nil
}

// Migrate creates the history table if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS action_history (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			method TEXT NOT NULL,
			succeeded BOOLEAN NOT NULL,
			detail JSONB NOT NULL DEFAULT '{}',
			observed_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create action_history table: %w", err)
	}
	return nil
}

// Record appends one entry. The instruction and error text travel together
// in the detail column.
func (s *Store) Record(ctx context.Context, e Entry) error {
	detail, err := json.Marshal(map[string]string{
		"instruction": e.Instruction,
		"error":       e.Error,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal history detail: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO action_history (session_id, method, succeeded, detail, observed_at)
		VALUES ($1, $2, $3, $4, $5);
	`, e.SessionID, string(e.Method), e.Succeeded, detail, e.ObservedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// BySession returns the recorded actions for one session, oldest first.
func (s *Store) BySession(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, method, succeeded, detail, observed_at
		FROM action_history
		WHERE session_id = $1
		ORDER BY observed_at ASC, id ASC;
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var method string
		var detail []byte
		if err := rows.Scan(&e.SessionID, &method, &e.Succeeded, &detail, &e.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Method = schemas.ActionMethod(method)

		var d map[string]string
		if err := json.Unmarshal(detail, &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history detail: %w", err)
		}
		e.Instruction = d["instruction"]
		e.Error = d["error"]

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during history row iteration: %w", err)
	}
	return entries, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
