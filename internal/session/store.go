package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shulebot/shulebot/internal/db"
)

// Store persists conversation state in SQLite, keyed by session id. Expiry
// is lazy: an expired row is deleted on the read that discovers it.
type Store struct {
	db  *db.DB
	ttl time.Duration

	// now is swapped in tests.
	now func() time.Time
}

// NewStore creates a session store with the given state TTL.
func NewStore(database *db.DB, ttl time.Duration) *Store {
	return &Store{db: database, ttl: ttl, now: time.Now}
}

// Get loads the state for a session. It returns a nil state when the
// session has none; the boolean reports whether a stored state was found but
// had already expired (the row is removed and the caller can tell the user
// the previous request lapsed).
func (s *Store) Get(ctx context.Context, sessionID string) (*State, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM conversation_state WHERE session_key = ?`, sessionID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading session state: %w", err)
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		// A corrupt row is unrecoverable, drop it and start fresh.
		_ = s.deleteRow(ctx, sessionID)
		return nil, false, nil
	}

	if state.Expired(s.now()) {
		if err := s.deleteRow(ctx, sessionID); err != nil {
			return nil, true, err
		}
		return nil, true, nil
	}
	return &state, false, nil
}

// Set stores the state for a session, stamping CreatedAt on first write and
// ExpiresAt from the store TTL on every write.
func (s *Store) Set(ctx context.Context, state *State) error {
	now := s.now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.ExpiresAt = now.Add(s.ttl)

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversation_state (session_key, payload, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		state.SessionID, payload, state.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("storing session state: %w", err)
	}
	return nil
}

// Delete removes a session's state. Deleting an absent session is not an
// error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.deleteRow(ctx, sessionID)
}

func (s *Store) deleteRow(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversation_state WHERE session_key = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session state: %w", err)
	}
	return nil
}

// Sweep removes every expired row. The server runs this periodically so
// abandoned sessions do not accumulate.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_state WHERE expires_at <= ?`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweeping expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
