package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "session.json"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	saved := Descriptor{
		GameID:   "g1",
		PlayerID: "p1",
		Username: "ana",
		Phase:    "playing",
		Mode:     "group",
		SavedAt:  now,
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(now.Add(time.Hour))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.GameID != "g1" || got.Phase != "playing" || got.Username != "ana" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Load(time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestStaleDescriptorIsDiscarded(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	if err := store.Save(Descriptor{GameID: "g1", SavedAt: now.Add(-3 * time.Hour)}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := store.Load(now); !errors.Is(err, ErrStale) {
		t.Fatalf("got %v, want ErrStale", err)
	}
	// The stale record is gone; the next load sees nothing.
	if _, err := store.Load(now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound after discard", err)
	}
}

func TestFreshWithinCutoffLoads(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	if err := store.Save(Descriptor{GameID: "g1", SavedAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Load(now); err != nil {
		t.Fatalf("one hour old descriptor should load: %v", err)
	}
}

func TestCorruptDescriptorIsDiscarded(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	if _, err := store.Load(time.Now()); err == nil {
		t.Fatal("expected error for corrupt descriptor")
	}
	if _, err := store.Load(time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound after discard", err)
	}
}

func TestUnreadableDescriptorIsDiscarded(t *testing.T) {
	store := newTestStore(t)
	// A directory at the descriptor path makes the read fail without the
	// file being missing.
	if err := os.Mkdir(store.path, 0o755); err != nil {
		t.Fatalf("seed unreadable path: %v", err)
	}

	_, err := store.Load(time.Now())
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStale) {
		t.Fatalf("expected read error, got %v", err)
	}
	if _, statErr := os.Stat(store.path); !os.IsNotExist(statErr) {
		t.Fatal("unreadable descriptor should be discarded")
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	_ = store.Save(Descriptor{GameID: "g1", Phase: "lobby", SavedAt: now})
	_ = store.Save(Descriptor{GameID: "g1", Phase: "learning", SavedAt: now})

	got, err := store.Load(now)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Phase != "learning" {
		t.Fatalf("expected latest phase, got %q", got.Phase)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	_ = store.Save(Descriptor{GameID: "g1", SavedAt: time.Now()})
	store.Clear()
	store.Clear()
	if _, err := store.Load(time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
