package session

import "time"

// State is the per-conversation slot-filling state. A session is IDLE when
// no row exists for it; a stored state is always mid-collection for one
// pending intent.
type State struct {
	SessionID      string         `json:"session_id"`
	PendingIntent  string         `json:"pending_intent"`
	CollectedSlots map[string]any `json:"collected_slots"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
}

// Expired reports whether the state's TTL has lapsed at the given instant.
func (s *State) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
