// Package state holds the client-side game state: the phase machine, the
// chat log and its channel views, player and alias rosters, typing
// indicators, phase timers, and mind-game round state. All mutation flows
// through Apply (server events) or the local command methods; nothing else
// writes here.
package state

import (
	"github.com/turingarcade/impostor/internal/mindgame"
	"github.com/turingarcade/impostor/internal/protocol"
)

// PhaseTimer is the countdown descriptor for one timed phase. Deadline is
// authoritative server time in epoch seconds; zero means no deadline is
// known. Duration is the fallback display value.
type PhaseTimer struct {
	Deadline int64
	Duration int
}

// ChatMessage is one stored chat line. Messages are append-only and ordered
// by arrival.
type ChatMessage struct {
	SenderID       string
	Username       string
	Content        string
	Timestamp      string
	Phase          string
	RecipientID    string
	ImpersonatedBy string
	Alias          string
	AliasBadge     string
	AliasColor     string
	LatencyMs      int
}

// Player is a roster entry. Disconnected players stay in the roster so alias
// lookups keep working.
type Player struct {
	ID        string
	Username  string
	Score     int
	Connected bool
}

// TypingStatus is one entry of the transient typing indicator map.
type TypingStatus struct {
	IsTyping bool
	Alias    string
	Badge    string
	Color    string
}

// GameState is the single source of client-side truth for one session.
type GameState struct {
	Phase    Phase
	GameID   string
	PlayerID string
	Username string
	Mode     string

	Players []Player
	Aliases map[string]protocol.Alias
	Timers  map[Phase]PhaseTimer

	Messages []ChatMessage
	Typing   map[string]TypingStatus

	MindGames *mindgame.Tracker
	Results   *protocol.GameResults
}

// New returns a state positioned at the menu.
func New() *GameState {
	s := &GameState{}
	s.reset()
	return s
}

func (s *GameState) reset() {
	s.Phase = PhaseMenu
	s.GameID = ""
	s.PlayerID = ""
	s.Username = ""
	s.Mode = ""
	s.Players = nil
	s.Aliases = make(map[string]protocol.Alias)
	s.Timers = make(map[Phase]PhaseTimer)
	for phase, duration := range defaultDurations {
		s.Timers[phase] = PhaseTimer{Duration: duration}
	}
	s.Messages = nil
	s.Typing = make(map[string]TypingStatus)
	s.MindGames = mindgame.NewTracker()
	s.Results = nil
}

// ResetToMenu wipes the session back to the menu. Used by the local leave
// and play-again commands; the server never drives this transition.
func (s *GameState) ResetToMenu() {
	s.reset()
}

// EnterLobby records the identity established by a create or join command.
// Local commands only ever reach lobby; mid-game phases arrive by server
// push.
func (s *GameState) EnterLobby(gameID, playerID, username, mode string) {
	s.Phase = PhaseLobby
	s.GameID = gameID
	s.PlayerID = playerID
	s.Username = username
	s.Mode = mode
}

// SetPlayers replaces the roster, marking everyone connected.
func (s *GameState) SetPlayers(players []protocol.Player) {
	s.Players = make([]Player, 0, len(players))
	for _, p := range players {
		s.Players = append(s.Players, Player{ID: p.ID, Username: p.Username, Score: p.Score, Connected: true})
	}
}

// PrimeFromSnapshot applies an authoritative server snapshot during resume.
// The snapshot phase wins over whatever the stale local descriptor recorded.
func (s *GameState) PrimeFromSnapshot(phase Phase, mode string, players []protocol.Player) {
	s.Phase = phase
	s.Mode = mode
	s.SetPlayers(players)
}

// Timer returns the countdown descriptor for a phase.
func (s *GameState) Timer(phase Phase) PhaseTimer {
	return s.Timers[phase]
}

// ActiveTimer returns the countdown descriptor for the current phase and
// whether the phase is timed at all.
func (s *GameState) ActiveTimer() (PhaseTimer, bool) {
	if !s.Phase.Timed() {
		return PhaseTimer{}, false
	}
	return s.Timers[s.Phase], true
}

// AliasFor resolves the display alias for a chat message: the message-level
// alias wins, then the alias map by sender, then by impersonation target.
func (s *GameState) AliasFor(msg ChatMessage) (protocol.Alias, bool) {
	if msg.Alias != "" {
		return protocol.Alias{Alias: msg.Alias, Badge: msg.AliasBadge, Color: msg.AliasColor}, true
	}
	if a, ok := s.Aliases[msg.SenderID]; ok {
		return a, true
	}
	if msg.ImpersonatedBy != "" {
		if a, ok := s.Aliases[msg.ImpersonatedBy]; ok {
			return a, true
		}
	}
	return protocol.Alias{}, false
}
