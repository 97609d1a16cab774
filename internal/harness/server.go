// Package harness is an in-memory game server for local development. It
// speaks the same REST and WebSocket protocol as the production backend and
// walks joined games through a scripted round so the client can be exercised
// end to end without the real service.
package harness

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/turingarcade/impostor/internal/protocol"
)

const (
	writeTimeout     = 10 * time.Second
	learningLength   = 30 // seconds, kept short for local runs
	clientSendBuffer = 256
)

// Config holds the knobs for the dev server.
type Config struct {
	// RoundLength is the playing phase length in seconds.
	RoundLength int
}

// Server owns the in-memory games and their WebSocket connections.
type Server struct {
	clock    clockwork.Clock
	config   Config
	upgrader websocket.Upgrader

	mu    sync.Mutex
	games map[string]*game
}

type game struct {
	id      string
	mode    string
	status  string
	round   int
	players []protocol.Player
	votes   map[string]voteRecord
	conns   map[*client]bool
}

// client pairs a conn with its outbound queue; writePump is the only writer.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

type voteRecord struct {
	VotedAIID        string `json:"voted_ai_id"`
	GuessedPartnerID string `json:"guessed_partner_id,omitempty"`
}

// NewServer creates a dev server driven by the given clock.
func NewServer(clock clockwork.Clock, config Config) *Server {
	if config.RoundLength <= 0 {
		config.RoundLength = 300
	}
	return &Server{
		clock:  clock,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		games: make(map[string]*game),
	}
}

// Handler returns the full REST+WebSocket surface with permissive CORS, which
// local browser frontends need.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /game/create", s.handleCreate)
	mux.HandleFunc("POST /game/join", s.handleJoin)
	mux.HandleFunc("GET /game/{id}", s.handleSnapshot)
	mux.HandleFunc("POST /game/{id}/start", s.handleStart)
	mux.HandleFunc("POST /game/{id}/player/{pid}/vote", s.handleVote)
	mux.HandleFunc("POST /game/{id}/player/{pid}/handles", s.handleHandles)
	mux.HandleFunc("GET /ws/{id}/{pid}", s.handleWS)
	return cors.AllowAll().Handler(mux)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Mode == "" {
		req.Mode = "1v1"
	}

	g := &game{
		id:     uuid.New().String()[:8],
		mode:   req.Mode,
		status: "lobby",
		votes:  make(map[string]voteRecord),
		conns:  make(map[*client]bool),
	}
	s.mu.Lock()
	s.games[g.id] = g
	s.mu.Unlock()

	log.Info().Str("game_id", g.id).Str("mode", g.mode).Msg("game created")
	writeJSON(w, map[string]string{"game_id": g.id, "mode": g.mode, "status": g.status})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameID   string `json:"game_id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	g, ok := s.games[req.GameID]
	if !ok {
		s.mu.Unlock()
		httpError(w, http.StatusNotFound, "game not found")
		return
	}
	player := protocol.Player{
		ID:       uuid.New().String()[:8],
		Username: req.Username,
	}
	g.players = append(g.players, player)
	s.mu.Unlock()

	s.broadcast(req.GameID, map[string]any{
		"type":   protocol.EventPlayerJoined,
		"player": player,
	})
	writeJSON(w, map[string]string{
		"player_id": player.ID,
		"username":  player.Username,
		"game_id":   req.GameID,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	g, ok := s.games[r.PathValue("id")]
	if !ok {
		s.mu.Unlock()
		httpError(w, http.StatusNotFound, "game not found")
		return
	}
	resp := map[string]any{
		"game_id":       g.id,
		"mode":          g.mode,
		"status":        g.status,
		"current_round": g.round,
		"total_rounds":  1,
		"players":       append([]protocol.Player(nil), g.players...),
	}
	s.mu.Unlock()
	writeJSON(w, resp)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

	s.mu.Lock()
	g, ok := s.games[gameID]
	if !ok {
		s.mu.Unlock()
		httpError(w, http.StatusNotFound, "game not found")
		return
	}
	if g.status != "lobby" {
		s.mu.Unlock()
		httpError(w, http.StatusConflict, "game already started")
		return
	}
	g.status = "learning"
	g.round = 1
	s.mu.Unlock()

	log.Info().Str("game_id", gameID).Msg("game started")
	s.enterPhase(gameID, "learning", learningLength)
	s.clock.AfterFunc(time.Duration(learningLength)*time.Second, func() {
		s.enterPhase(gameID, "playing", s.config.RoundLength)
		s.clock.AfterFunc(time.Duration(s.config.RoundLength)*time.Second, func() {
			s.enterPhase(gameID, "voting", 0)
		})
	})
	writeJSON(w, map[string]string{"status": "learning"})
}

// enterPhase moves the game and announces the transition. A zero length means
// no deadline.
func (s *Server) enterPhase(gameID, phase string, length int) {
	s.mu.Lock()
	g, ok := s.games[gameID]
	if !ok {
		s.mu.Unlock()
		return
	}
	g.status = phase
	s.mu.Unlock()

	event := map[string]any{"type": protocol.EventPhaseChange, "phase": phase}
	if length > 0 {
		event["deadline"] = s.clock.Now().Unix() + int64(length)
		event["duration"] = length
	}
	s.broadcast(gameID, event)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	playerID := r.PathValue("pid")

	var vote voteRecord
	if err := json.NewDecoder(r.Body).Decode(&vote); err != nil {
		httpError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	g, ok := s.games[gameID]
	if !ok {
		s.mu.Unlock()
		httpError(w, http.StatusNotFound, "game not found")
		return
	}
	g.votes[playerID] = vote
	done := len(g.votes) >= len(g.players) && len(g.players) > 0
	s.mu.Unlock()

	writeJSON(w, map[string]string{"status": "ok"})
	if done {
		s.finish(gameID)
	}
}

func (s *Server) handleHandles(w http.ResponseWriter, r *http.Request) {
	var handles map[string]string
	if err := json.NewDecoder(r.Body).Decode(&handles); err != nil {
		httpError(w, http.StatusBadRequest, "invalid body")
		return
	}
	log.Info().
		Str("player_id", r.PathValue("pid")).
		Int("handles", len(handles)).
		Msg("social handles updated")
	writeJSON(w, map[string]string{"status": "ok"})
}

// finish scores the game: the AI wins a voter who did not vote for it.
func (s *Server) finish(gameID string) {
	s.mu.Lock()
	g, ok := s.games[gameID]
	if !ok {
		s.mu.Unlock()
		return
	}
	g.status = "finished"
	fooled := 0
	scores := make(map[string]int, len(g.votes))
	for playerID, vote := range g.votes {
		if vote.VotedAIID != "ai" {
			fooled++
			scores[playerID] = 0
		} else {
			scores[playerID] = 1
		}
	}
	rate := 0.0
	if len(g.votes) > 0 {
		rate = float64(fooled) / float64(len(g.votes))
	}
	s.mu.Unlock()

	s.broadcast(gameID, map[string]any{
		"type": protocol.EventGameFinished,
		"results": protocol.GameResults{
			AISuccessRate: rate,
			Scores:        scores,
		},
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	playerID := r.PathValue("pid")

	s.mu.Lock()
	g, ok := s.games[gameID]
	s.mu.Unlock()
	if !ok {
		httpError(w, http.StatusNotFound, "game not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	s.mu.Lock()
	g.conns[cl] = true
	s.mu.Unlock()
	log.Info().Str("game_id", gameID).Str("player_id", playerID).Msg("player connected")

	go s.writePump(cl)
	go s.readLoop(g, cl, playerID)
}

// writePump is the single writer for one connection. All outbound frames
// funnel through the send channel, so no two goroutines ever write the same
// conn concurrently.
func (s *Server) writePump(cl *client) {
	defer cl.conn.Close()
	for data := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readLoop echoes player chat and typing frames to the rest of the game,
// stamping the sender the way the real backend does.
func (s *Server) readLoop(g *game, cl *client, playerID string) {
	defer func() {
		s.dropClient(g, cl)
		s.broadcast(g.id, map[string]any{
			"type":      protocol.EventPlayerDisconnected,
			"player_id": playerID,
		})
	}()

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Warn().Str("player_id", playerID).Msg("dropping malformed frame")
			continue
		}
		frame["sender_id"] = playerID
		frame["player_id"] = playerID
		if frame["type"] == "chat_message" {
			frame["timestamp"] = s.clock.Now().UTC().Format(time.RFC3339)
			s.mu.Lock()
			frame["phase"] = g.status
			s.mu.Unlock()
		}
		s.broadcast(g.id, frame)
	}
}

// broadcast encodes the event and queues it for every connection in the
// game.
func (s *Server) broadcast(gameID string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("marshal broadcast event")
		return
	}
	s.inject(gameID, data)
}

// inject fans pre-encoded event bytes out to a game's connections by
// queueing on each client's send channel. Send channels are only closed
// under mu, so the enqueue can never hit a closed channel.
func (s *Server) inject(gameID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return
	}
	for cl := range g.conns {
		select {
		case cl.send <- data:
		default:
			// Slow consumer; cut it loose rather than stall the game.
			delete(g.conns, cl)
			close(cl.send)
		}
	}
}

// dropClient unregisters the client and closes its send channel, ending the
// write pump. Safe against a concurrent drop by inject.
func (s *Server) dropClient(g *game, cl *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.conns[cl] {
		delete(g.conns, cl)
		close(cl.send)
	}
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}
