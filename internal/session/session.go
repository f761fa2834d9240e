// ABOUTME: Session types and the Store interface for per-sender conversation state
// ABOUTME: Defines conversation states and the optimistic-concurrency commit contract

package session

import (
	"context"
	"errors"
	"time"
)

// ErrConflict is returned by Commit when the stored session version advanced
// since Load. The caller must reload and recompute the turn.
var ErrConflict = errors.New("session version conflict")

// State is a conversation state. Transitions happen only through the command
// router; nothing else writes State.
type State string

const (
	// StateNew means no prior interaction (or the conversation was reset).
	StateNew State = "NEW"
	// StateAwaitingInput means the bot asked a question and expects an answer.
	StateAwaitingInput State = "AWAITING_INPUT"
	// StateIdle means the conversation is complete and ready for a new command.
	StateIdle State = "IDLE"
)

// Session holds conversation state for one sender. Sessions are values:
// Load returns a copy, the router derives a new value from it, and Commit
// persists that value. Nothing mutates a stored session in place.
type Session struct {
	Sender       string
	State        State
	Context      map[string]string
	LastActivity time.Time

	// Version is the optimistic-concurrency token. Zero means the session
	// has never been committed.
	Version int64
}

// NewSession returns a fresh session for a sender in the initial state.
func NewSession(sender string) *Session {
	return &Session{
		Sender:  sender,
		State:   StateNew,
		Context: make(map[string]string),
	}
}

// Clone returns a deep copy of the session. The router works on a clone so
// the caller's loaded value is never aliased.
func (s *Session) Clone() *Session {
	ctx := make(map[string]string, len(s.Context))
	for k, v := range s.Context {
		ctx[k] = v
	}
	return &Session{
		Sender:       s.Sender,
		State:        s.State,
		Context:      ctx,
		LastActivity: s.LastActivity,
		Version:      s.Version,
	}
}

// Store defines the interface for session persistence
type Store interface {
	// Load returns the sender's session, or a fresh one in StateNew if none
	// exists or the stored one has expired.
	Load(ctx context.Context, sender string) (*Session, error)

	// Commit persists the session and advances its version. Returns
	// ErrConflict if another commit for the same sender won the race.
	Commit(ctx context.Context, s *Session) error

	// List returns up to limit sessions ordered by most recent activity.
	List(ctx context.Context, limit int) ([]*Session, error)

	// DeleteExpired removes sessions idle since before the cutoff and
	// returns how many were deleted.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases any resources held by the store
	Close() error
}
