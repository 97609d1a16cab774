package controller

import (
	"github.com/turingarcade/impostor/internal/mindgame"
	"github.com/turingarcade/impostor/internal/protocol"
	"github.com/turingarcade/impostor/internal/state"
)

// Snapshot is a read-only copy of the session for rendering. It is taken on
// the controller loop, so it is always internally consistent.
type Snapshot struct {
	Phase    state.Phase
	GameID   string
	PlayerID string
	Username string
	Mode     string

	Players []state.Player
	Aliases map[string]protocol.Alias
	Typing  map[string]state.TypingStatus
	Results *protocol.GameResults

	// Countdown for the active phase. Remaining is meaningful only when
	// CountdownActive; FallbackDuration is the display value otherwise.
	Remaining        int
	CountdownActive  bool
	FallbackDuration int

	LearningFeed  []state.ChatMessage
	PlayingFeed   []state.ChatMessage
	MindGamesFeed []state.ChatMessage
	ReactFeed     []state.ChatMessage

	ActivePrompt     *protocol.MindGamePromptEvent
	PromptStatus     mindgame.Status
	Reveals          []protocol.MindGameRevealEvent
	Connected        bool
}

// Snapshot captures the current session state. Run must be active.
func (c *Controller) Snapshot() Snapshot {
	var snap Snapshot
	c.run(func() {
		snap = c.snapshot()
	})
	return snap
}

func (c *Controller) snapshot() Snapshot {
	s := c.state
	snap := Snapshot{
		Phase:    s.Phase,
		GameID:   s.GameID,
		PlayerID: s.PlayerID,
		Username: s.Username,
		Mode:     s.Mode,
		Results:  s.Results,

		LearningFeed:  s.LearningFeed(s.PlayerID),
		PlayingFeed:   s.PlayingFeed(),
		MindGamesFeed: s.MindGamesFeed(),
		ReactFeed:     s.ReactFeed(),

		ActivePrompt: s.MindGames.Active(),
		Reveals:      s.MindGames.Reveals(),
		Connected:    c.sup.Current() != nil,
	}

	snap.Players = make([]state.Player, len(s.Players))
	copy(snap.Players, s.Players)

	snap.Aliases = make(map[string]protocol.Alias, len(s.Aliases))
	for id, alias := range s.Aliases {
		snap.Aliases[id] = alias
	}
	snap.Typing = make(map[string]state.TypingStatus, len(s.Typing))
	for id, typing := range s.Typing {
		snap.Typing[id] = typing
	}

	snap.Remaining, snap.CountdownActive = c.resolver.Remaining()
	snap.FallbackDuration = c.resolver.FallbackDuration()

	if prompt := snap.ActivePrompt; prompt != nil {
		snap.PromptStatus, _ = s.MindGames.Status(prompt.ID)
	}
	return snap
}
