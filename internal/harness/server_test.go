package harness

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/turingarcade/impostor/internal/api"
)

func startHarness(t *testing.T) (*api.Client, *httptest.Server, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	srv := httptest.NewServer(NewServer(clock, Config{RoundLength: 60}).Handler())
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL), srv, clock
}

func dialWS(t *testing.T, srv *httptest.Server, gameID, playerID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + gameID + "/" + playerID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var event map[string]any
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return event
}

func TestCreateJoinSnapshot(t *testing.T) {
	client, _, _ := startHarness(t)
	ctx := t.Context()

	created, err := client.CreateGame(ctx, "group")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != "lobby" {
		t.Fatalf("new game status %q, want lobby", created.Status)
	}

	joined, err := client.JoinGame(ctx, created.GameID, "ana")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.PlayerID == "" {
		t.Fatal("join did not assign a player id")
	}

	snap, err := client.GameSnapshot(ctx, created.GameID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Players) != 1 || snap.Players[0].Username != "ana" {
		t.Fatalf("unexpected players %+v", snap.Players)
	}
}

func TestJoinUnknownGameFails(t *testing.T) {
	client, _, _ := startHarness(t)
	if _, err := client.JoinGame(t.Context(), "missing", "ana"); err == nil {
		t.Fatal("expected join error for unknown game")
	}
}

func TestStartBroadcastsScriptedPhases(t *testing.T) {
	client, srv, clock := startHarness(t)
	ctx := t.Context()

	created, _ := client.CreateGame(ctx, "group")
	joined, _ := client.JoinGame(ctx, created.GameID, "ana")
	conn := dialWS(t, srv, created.GameID, joined.PlayerID)

	if err := client.StartGame(ctx, created.GameID); err != nil {
		t.Fatalf("start: %v", err)
	}
	event := readEvent(t, conn)
	if event["type"] != "phase_change" || event["phase"] != "learning" {
		t.Fatalf("unexpected first event %v", event)
	}
	if _, ok := event["deadline"]; !ok {
		t.Fatal("learning phase should carry a deadline")
	}

	clock.Advance(learningLength * time.Second)
	event = readEvent(t, conn)
	if event["phase"] != "playing" {
		t.Fatalf("expected playing after learning, got %v", event)
	}

	clock.Advance(60 * time.Second)
	event = readEvent(t, conn)
	if event["phase"] != "voting" {
		t.Fatalf("expected voting after playing, got %v", event)
	}
	if _, ok := event["deadline"]; ok {
		t.Fatal("voting should not carry a deadline")
	}
}

func TestStartTwiceConflicts(t *testing.T) {
	client, _, _ := startHarness(t)
	ctx := t.Context()

	created, _ := client.CreateGame(ctx, "group")
	if _, err := client.JoinGame(ctx, created.GameID, "ana"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := client.StartGame(ctx, created.GameID); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := client.StartGame(ctx, created.GameID); err == nil {
		t.Fatal("second start should conflict")
	}
}

func TestChatIsEchoedWithServerStamps(t *testing.T) {
	client, srv, _ := startHarness(t)
	ctx := t.Context()

	created, _ := client.CreateGame(ctx, "group")
	ana, _ := client.JoinGame(ctx, created.GameID, "ana")
	bo, _ := client.JoinGame(ctx, created.GameID, "bo")

	anaConn := dialWS(t, srv, created.GameID, ana.PlayerID)
	boConn := dialWS(t, srv, created.GameID, bo.PlayerID)

	err := anaConn.WriteJSON(map[string]any{"type": "chat_message", "content": "hi"})
	if err != nil {
		t.Fatalf("write chat: %v", err)
	}

	event := readEvent(t, boConn)
	if event["type"] != "chat_message" || event["content"] != "hi" {
		t.Fatalf("unexpected event %v", event)
	}
	if event["sender_id"] != ana.PlayerID {
		t.Fatalf("sender not stamped: %v", event["sender_id"])
	}
	if event["timestamp"] == nil || event["phase"] == nil {
		t.Fatal("chat missing server stamps")
	}
}

func TestAllVotesFinishTheGame(t *testing.T) {
	client, srv, _ := startHarness(t)
	ctx := t.Context()

	created, _ := client.CreateGame(ctx, "group")
	ana, _ := client.JoinGame(ctx, created.GameID, "ana")
	conn := dialWS(t, srv, created.GameID, ana.PlayerID)

	if err := client.SubmitVote(ctx, created.GameID, ana.PlayerID, api.Vote{VotedAIID: "ai"}); err != nil {
		t.Fatalf("vote: %v", err)
	}

	event := readEvent(t, conn)
	if event["type"] != "game_finished" {
		t.Fatalf("expected game_finished, got %v", event)
	}
	results, ok := event["results"].(map[string]any)
	if !ok {
		t.Fatalf("results missing: %v", event)
	}
	// ana spotted the AI, so it fooled nobody.
	if rate := results["ai_success_rate"].(float64); rate != 0 {
		t.Fatalf("ai success rate %v, want 0", rate)
	}
}

func TestScenarioInjectionReachesConnections(t *testing.T) {
	clock := clockwork.NewFakeClock()
	harness := NewServer(clock, Config{})
	srv := httptest.NewServer(harness.Handler())
	t.Cleanup(srv.Close)
	client := api.NewClient(srv.URL)

	created, _ := client.CreateGame(t.Context(), "group")
	ana, _ := client.JoinGame(t.Context(), created.GameID, "ana")
	conn := dialWS(t, srv, created.GameID, ana.PlayerID)

	harness.inject(created.GameID, []byte(`{"type":"phase_change","phase":"mind_games"}`))

	event := readEvent(t, conn)
	if event["phase"] != "mind_games" {
		t.Fatalf("injected event not delivered: %v", event)
	}
}

func TestConcurrentChattersBroadcastSafely(t *testing.T) {
	client, srv, _ := startHarness(t)
	ctx := t.Context()

	created, _ := client.CreateGame(ctx, "group")
	ana, _ := client.JoinGame(ctx, created.GameID, "ana")
	bo, _ := client.JoinGame(ctx, created.GameID, "bo")
	cam, _ := client.JoinGame(ctx, created.GameID, "cam")

	reader := dialWS(t, srv, created.GameID, cam.PlayerID)
	anaConn := dialWS(t, srv, created.GameID, ana.PlayerID)
	boConn := dialWS(t, srv, created.GameID, bo.PlayerID)

	const perWriter = 100
	var wg sync.WaitGroup
	for _, conn := range []*websocket.Conn{anaConn, boConn} {
		wg.Add(1)
		go func(conn *websocket.Conn) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := conn.WriteJSON(map[string]any{"type": "chat_message", "content": "x"}); err != nil {
					t.Errorf("writer: %v", err)
					return
				}
			}
		}(conn)
	}

	// Every frame must arrive as valid JSON with the server stamps intact;
	// interleaved writes would corrupt or drop frames.
	got := 0
	for got < 2*perWriter {
		event := readEvent(t, reader)
		if event["type"] != "chat_message" {
			continue
		}
		if event["sender_id"] == nil || event["timestamp"] == nil {
			t.Fatalf("corrupt frame: %v", event)
		}
		got++
	}
	wg.Wait()
}

func TestGameIDFromSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"impostor.games.abc123.events", "abc123"},
		{"impostor.games..events", ""},
		{"impostor.games.abc123.other", ""},
		{"other.games.abc123.events", ""},
		{"impostor.games.events", ""},
	}
	for _, tt := range tests {
		if got := gameIDFromSubject(tt.subject); got != tt.want {
			t.Errorf("gameIDFromSubject(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}
