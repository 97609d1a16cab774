package reconnect

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/turingarcade/impostor/internal/api"
	"github.com/turingarcade/impostor/internal/protocol"
	"github.com/turingarcade/impostor/internal/session"
)

type fakeFetcher struct {
	snapshot api.GameSnapshot
	err      error
	calls    int
}

func (f *fakeFetcher) GameSnapshot(ctx context.Context, gameID string) (api.GameSnapshot, error) {
	f.calls++
	return f.snapshot, f.err
}

func newStore(t *testing.T) *session.Store {
	t.Helper()
	return session.NewStore(filepath.Join(t.TempDir(), "session.json"))
}

func TestNoDescriptorStartsAtMenu(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &fakeFetcher{}

	resumed := Resume(context.Background(), newStore(t), fetcher, clock)
	if resumed != nil {
		t.Fatal("expected no resume without a descriptor")
	}
	if fetcher.calls != 0 {
		t.Fatal("no snapshot fetch without a descriptor")
	}
}

func TestStaleDescriptorIsDiscarded(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newStore(t)
	_ = store.Save(session.Descriptor{
		GameID:  "g1",
		Phase:   "playing",
		SavedAt: clock.Now().Add(-3 * time.Hour),
	})
	fetcher := &fakeFetcher{}

	if resumed := Resume(context.Background(), store, fetcher, clock); resumed != nil {
		t.Fatal("three hour old descriptor must not resume")
	}
	if fetcher.calls != 0 {
		t.Fatal("stale descriptor must not trigger a fetch")
	}
	if _, err := store.Load(clock.Now()); !errors.Is(err, session.ErrNotFound) {
		t.Fatal("stale descriptor should be deleted")
	}
}

func TestFreshDescriptorResumesServerPhase(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newStore(t)
	_ = store.Save(session.Descriptor{
		GameID:   "g1",
		PlayerID: "p1",
		Username: "ana",
		Phase:    "playing", // locally cached, now out of date
		SavedAt:  clock.Now().Add(-time.Hour),
	})
	fetcher := &fakeFetcher{snapshot: api.GameSnapshot{
		GameID:  "g1",
		Status:  "voting",
		Players: []protocol.Player{{ID: "p1", Username: "ana"}},
	}}

	resumed := Resume(context.Background(), store, fetcher, clock)
	if resumed == nil {
		t.Fatal("expected resume")
	}
	if resumed.Snapshot.Status != "voting" {
		t.Fatalf("resume must use the server phase, got %q", resumed.Snapshot.Status)
	}
	if resumed.Descriptor.PlayerID != "p1" || resumed.Descriptor.Username != "ana" {
		t.Fatalf("identity must come from the descriptor: %+v", resumed.Descriptor)
	}
}

func TestFetchFailureFallsBackToMenu(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newStore(t)
	_ = store.Save(session.Descriptor{GameID: "g1", SavedAt: clock.Now()})
	fetcher := &fakeFetcher{err: errors.New("server unreachable")}

	if resumed := Resume(context.Background(), store, fetcher, clock); resumed != nil {
		t.Fatal("failed fetch must not resume")
	}
	if _, err := store.Load(clock.Now()); !errors.Is(err, session.ErrNotFound) {
		t.Fatal("descriptor should be discarded after fetch failure")
	}
}
