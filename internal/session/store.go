// Package session persists the single descriptor record that lets a reload
// resume an in-flight game.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// MaxAge is the staleness cutoff for a resume attempt. Descriptors older
// than this are discarded on load.
const MaxAge = 2 * time.Hour

// ErrNotFound is returned by Load when no descriptor has been saved.
var ErrNotFound = errors.New("no session descriptor")

// ErrStale is returned by Load when the saved descriptor is too old to
// resume from.
var ErrStale = errors.New("session descriptor is stale")

// Descriptor is the persisted session record.
type Descriptor struct {
	GameID   string    `json:"game_id"`
	PlayerID string    `json:"player_id"`
	Username string    `json:"username"`
	Phase    string    `json:"phase"`
	Mode     string    `json:"mode"`
	SavedAt  time.Time `json:"saved_at"`
}

// Expired reports whether the descriptor is past the staleness cutoff.
func (d Descriptor) Expired(now time.Time) bool {
	return now.Sub(d.SavedAt) > MaxAge
}

// Store reads and writes the descriptor file. One record only: every save
// overwrites the previous one.
type Store struct {
	path string
}

// NewStore returns a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save overwrites the descriptor. The write goes through a temp file and
// rename so a crash mid-write cannot leave a torn record.
func (s *Store) Save(d Descriptor) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal session descriptor: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session descriptor: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit session descriptor: %w", err)
	}

	log.Debug().
		Str("game_id", d.GameID).
		Str("phase", d.Phase).
		Msg("session descriptor saved")
	return nil
}

// Load reads the descriptor and applies the staleness check. A stale or
// unreadable record is deleted and reported via error; the caller falls back
// to the menu.
func (s *Store) Load(now time.Time) (Descriptor, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Descriptor{}, ErrNotFound
		}
		// An unreadable record cannot be resumed from; discard it like a
		// corrupt one so the next start is clean.
		s.Clear()
		return Descriptor{}, fmt.Errorf("read session descriptor: %w", err)
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		// A corrupt record is as useless as a missing one.
		s.Clear()
		return Descriptor{}, fmt.Errorf("parse session descriptor: %w", err)
	}

	if d.Expired(now) {
		s.Clear()
		log.Debug().
			Str("game_id", d.GameID).
			Time("saved_at", d.SavedAt).
			Msg("discarding stale session descriptor")
		return Descriptor{}, ErrStale
	}

	return d, nil
}

// Clear removes the descriptor file. Missing files are fine.
func (s *Store) Clear() {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", s.path).Msg("failed to remove session descriptor")
	}
}
