package transport

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Supervisor owns the open/close lifecycle of the single live connection.
// Invariant: Close always runs on the old connection before a new identity
// dials, so no two connections for the same player coexist.
type Supervisor struct {
	wsBaseURL string
	current   *Conn
}

// NewSupervisor returns a supervisor dialing against wsBaseURL.
func NewSupervisor(wsBaseURL string) *Supervisor {
	return &Supervisor{wsBaseURL: wsBaseURL}
}

// Ensure returns the live connection for an identity, dialing if none exists
// and replacing the current one if the identity changed. Reopening is
// idempotent per identity.
func (s *Supervisor) Ensure(ctx context.Context, identity Identity) (*Conn, error) {
	if s.current != nil {
		if s.current.identity == identity {
			return s.current, nil
		}
		log.Debug().
			Str("old_game", s.current.identity.GameID).
			Str("new_game", identity.GameID).
			Msg("identity changed, replacing connection")
		s.current.Close()
		s.current = nil
	}

	conn, err := Dial(ctx, s.wsBaseURL, identity)
	if err != nil {
		return nil, err
	}
	s.current = conn
	return conn, nil
}

// Current returns the live connection, or nil.
func (s *Supervisor) Current() *Conn {
	return s.current
}

// Close tears down the live connection, if any.
func (s *Supervisor) Close() {
	if s.current != nil {
		s.current.Close()
		s.current = nil
	}
}
