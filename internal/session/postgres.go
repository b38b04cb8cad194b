package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PGStore persists sessions in Postgres. Per-session append serialization is
// enforced by locking the session row inside a transaction, so multiple
// processes can share one database.
type PGStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

func NewPGStore(dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PGStore{db: db}, nil
}

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS sessions (
  scope TEXT NOT NULL,
  user_id TEXT NOT NULL,
  session_id TEXT NOT NULL,
  state JSONB NOT NULL DEFAULT '{}',
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  PRIMARY KEY (scope, user_id, session_id)
);

CREATE TABLE IF NOT EXISTS session_events (
  seq BIGSERIAL PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  scope TEXT NOT NULL,
  user_id TEXT NOT NULL,
  session_id TEXT NOT NULL,
  author TEXT NOT NULL,
  ts TIMESTAMP WITH TIME ZONE NOT NULL,
  delta JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events (scope, user_id, session_id, seq);
`)
	})
	return s.schemaErr
}

func (s *PGStore) Create(ctx context.Context, ref Ref, initial map[string]json.RawMessage) (*Session, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	state, err := json.Marshal(stateOrEmpty(initial))
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (scope, user_id, session_id, state)
VALUES ($1,$2,$3,$4)
ON CONFLICT (scope, user_id, session_id) DO NOTHING`,
		ref.Scope, ref.User, ref.ID, state)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, &DuplicateSessionError{Ref: ref}
	}
	return &Session{Ref: ref, State: cloneState(initial)}, nil
}

func (s *PGStore) Get(ctx context.Context, ref Ref) (*Session, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
SELECT state FROM sessions WHERE scope=$1 AND user_id=$2 AND session_id=$3`,
		ref.Scope, ref.User, ref.ID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Ref: ref}
	}
	if err != nil {
		return nil, err
	}
	state := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	events, err := s.loadEvents(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &Session{Ref: ref, State: state, Events: events}, nil
}

func (s *PGStore) AppendEvent(ctx context.Context, ref Ref, delta map[string]json.RawMessage, author string, ts time.Time) (*Session, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Row lock is the per-session serialization point.
	var raw []byte
	err = tx.QueryRowContext(ctx, `
SELECT state FROM sessions WHERE scope=$1 AND user_id=$2 AND session_id=$3 FOR UPDATE`,
		ref.Scope, ref.User, ref.ID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Ref: ref}
	}
	if err != nil {
		return nil, err
	}
	state := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	for k, v := range delta {
		state[k] = v
	}
	merged, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE sessions SET state=$4 WHERE scope=$1 AND user_id=$2 AND session_id=$3`,
		ref.Scope, ref.User, ref.ID, merged); err != nil {
		return nil, err
	}
	deltaJSON, err := json.Marshal(stateOrEmpty(delta))
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO session_events (event_id, scope, user_id, session_id, author, ts, delta)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		uuid.NewString(), ref.Scope, ref.User, ref.ID, author, ts.UTC(), deltaJSON); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	events, err := s.loadEvents(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &Session{Ref: ref, State: state, Events: events}, nil
}

func (s *PGStore) loadEvents(ctx context.Context, ref Ref) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT event_id, author, ts, delta FROM session_events
WHERE scope=$1 AND user_id=$2 AND session_id=$3
ORDER BY seq ASC`,
		ref.Scope, ref.User, ref.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var raw []byte
		if err := rows.Scan(&ev.ID, &ev.Author, &ev.Timestamp, &raw); err != nil {
			return nil, err
		}
		ev.Delta = map[string]json.RawMessage{}
		if err := json.Unmarshal(raw, &ev.Delta); err != nil {
			return nil, fmt.Errorf("decode event delta: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func stateOrEmpty(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return map[string]json.RawMessage{}
	}
	return m
}
