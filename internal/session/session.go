// Package session holds per-visitor state. Nav index, login flags and the
// form draft never live in process-wide variables; every visitor gets an
// explicit State created on first contact and cleared on logout.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/luisalpizar/crm-intake/internal/core/domain"
)

// ErrNotFound is returned when a session doesn't exist or has expired
var ErrNotFound = errors.New("session not found")

// State is the mutable state of one visitor session.
type State struct {
	ID          string       `json:"id"`
	NavIndex    int          `json:"nav_index"`
	AdminAuthed bool         `json:"admin_authed"`
	Draft       domain.Draft `json:"draft"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewState creates a fresh session with an empty draft.
func NewState() *State {
	return &State{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists session state between requests.
type Store interface {
	// Get retrieves a session by id
	Get(ctx context.Context, id string) (*State, error)

	// Save persists a session
	Save(ctx context.Context, state *State) error

	// Clear removes a session (logout)
	Clear(ctx context.Context, id string) error
}
