// Package reconnect restores an in-flight session on cold start. The saved
// descriptor only identifies the session; the resumed phase always comes
// from a fresh server snapshot so the client can never resume more stale
// than the server's current truth.
package reconnect

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/turingarcade/impostor/internal/api"
	"github.com/turingarcade/impostor/internal/session"
)

// SnapshotFetcher is the single HTTP call the reconnector needs.
type SnapshotFetcher interface {
	GameSnapshot(ctx context.Context, gameID string) (api.GameSnapshot, error)
}

// Resumed is a successful resume: the identity from the descriptor plus the
// authoritative snapshot to prime state from.
type Resumed struct {
	Descriptor session.Descriptor
	Snapshot   api.GameSnapshot
}

// Resume attempts to restore a saved session. It returns nil when there is
// nothing to resume (no descriptor, a stale one, or a failed snapshot
// fetch); the descriptor has been discarded and the client starts at the
// menu. Resume failures are a silent reset, not a user-facing error.
func Resume(ctx context.Context, store *session.Store, fetcher SnapshotFetcher, clock clockwork.Clock) *Resumed {
	desc, err := store.Load(clock.Now())
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrStale) {
			return nil
		}
		// Unreadable descriptor: already discarded by the store, start clean.
		log.Warn().Err(err).Msg("session descriptor unreadable, starting at menu")
		return nil
	}

	snapshot, err := fetcher.GameSnapshot(ctx, desc.GameID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("game_id", desc.GameID).
			Msg("snapshot fetch failed, discarding session")
		store.Clear()
		return nil
	}

	log.Info().
		Str("game_id", desc.GameID).
		Str("player_id", desc.PlayerID).
		Str("server_phase", snapshot.Status).
		Str("saved_phase", desc.Phase).
		Msg("resuming session from snapshot")

	return &Resumed{Descriptor: desc, Snapshot: snapshot}
}
