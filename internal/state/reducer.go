package state

import (
	"github.com/turingarcade/impostor/internal/protocol"
)

// Apply mutates the state for one inbound server event. It performs no I/O
// and takes no locks; the controller loop is the only caller. Every
// recognized event fully applies its mutation before returning.
func (s *GameState) Apply(ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.PhaseChangeEvent:
		s.applyPhaseChange(ev)
	case protocol.GroupStageEvent:
		s.applyGroupStage(ev)
	case protocol.ChatMessageEvent:
		s.applyChatMessage(ev)
	case protocol.AIMessageEvent:
		s.applyAIMessage(ev)
	case protocol.TypingEvent:
		s.applyTyping(ev)
	case protocol.PlayerJoinedEvent:
		s.applyPlayerJoined(ev)
	case protocol.PlayerDisconnectedEvent:
		s.applyPlayerDisconnected(ev)
	case protocol.MindGamePromptEvent:
		s.MindGames.SetPrompt(ev)
	case protocol.MindGameAckEvent:
		s.MindGames.MarkSubmitted(ev.MindGameID)
	case protocol.MindGameErrorEvent:
		s.MindGames.MarkError(ev.MindGameID, ev.Reason)
	case protocol.MindGameRevealEvent:
		s.MindGames.ApplyReveal(ev)
	case protocol.GameFinishedEvent:
		s.applyGameFinished(ev)
	}
}

// applyPhaseChange moves to the pushed phase, clears the chat log so each
// phase sees only its own traffic, and merges the phase timer payload.
func (s *GameState) applyPhaseChange(ev protocol.PhaseChangeEvent) {
	phase := Phase(ev.Phase)
	s.Phase = phase
	s.Messages = nil
	if phase.Timed() {
		s.mergeTimer(phase, ev.Deadline, ev.Duration)
	}
}

// applyGroupStage is the stage-based equivalent of a phase change. It does
// not clear the chat log: mind-games and react traffic share the log and are
// separated by phase tag. Entering mind_games starts a fresh round set.
func (s *GameState) applyGroupStage(ev protocol.GroupStageEvent) {
	stage := Phase(ev.Stage)
	s.Phase = stage
	if ev.Aliases != nil {
		s.Aliases = ev.Aliases
	}
	if stage == PhaseMindGames {
		s.MindGames.Reset()
	}
	if stage.Timed() {
		s.mergeTimer(stage, ev.Deadline, ev.Duration)
	}
}

// mergeTimer applies the optional-payload merge rule: an absent deadline
// clears the old one (a stale deadline must never keep counting), while an
// absent duration retains the previous value so the display never regresses
// to nothing.
func (s *GameState) mergeTimer(phase Phase, deadline *int64, duration *int) {
	timer := s.Timers[phase]
	if deadline != nil {
		timer.Deadline = *deadline
	} else {
		timer.Deadline = 0
	}
	if duration != nil {
		timer.Duration = *duration
	}
	s.Timers[phase] = timer
}

func (s *GameState) applyChatMessage(ev protocol.ChatMessageEvent) {
	s.Messages = append(s.Messages, ChatMessage{
		SenderID:       ev.SenderID,
		Username:       ev.Username,
		Content:        ev.Content,
		Timestamp:      ev.Timestamp,
		Phase:          ev.Phase,
		RecipientID:    ev.RecipientID,
		ImpersonatedBy: ev.ImpersonatedBy,
		Alias:          ev.Alias,
		AliasBadge:     ev.AliasBadge,
		AliasColor:     ev.AliasColor,
		LatencyMs:      ev.LatencyMs,
	})
	// A message from a sender always clears their typing indicator, even if
	// no typing event preceded it.
	delete(s.Typing, ev.SenderID)
}

// applyAIMessage stores a learning-phase AI turn as a private message to the
// local player.
func (s *GameState) applyAIMessage(ev protocol.AIMessageEvent) {
	sender := ev.Sender
	if sender == "" {
		sender = "ai"
	}
	s.Messages = append(s.Messages, ChatMessage{
		SenderID:    sender,
		Content:     ev.Content,
		Timestamp:   ev.Timestamp,
		RecipientID: s.PlayerID,
	})
}

func (s *GameState) applyTyping(ev protocol.TypingEvent) {
	if !ev.IsTyping {
		delete(s.Typing, ev.PlayerID)
		return
	}
	status := TypingStatus{IsTyping: true}
	if alias, ok := s.Aliases[ev.PlayerID]; ok {
		status.Alias = alias.Alias
		status.Badge = alias.Badge
		status.Color = alias.Color
	}
	s.Typing[ev.PlayerID] = status
}

func (s *GameState) applyPlayerJoined(ev protocol.PlayerJoinedEvent) {
	for i, p := range s.Players {
		if p.ID == ev.Player.ID {
			s.Players[i].Connected = true
			s.Players[i].Username = ev.Player.Username
			return
		}
	}
	s.Players = append(s.Players, Player{
		ID:        ev.Player.ID,
		Username:  ev.Player.Username,
		Score:     ev.Player.Score,
		Connected: true,
	})
}

func (s *GameState) applyPlayerDisconnected(ev protocol.PlayerDisconnectedEvent) {
	for i, p := range s.Players {
		if p.ID == ev.PlayerID {
			s.Players[i].Connected = false
			return
		}
	}
}

// applyGameFinished jumps to results unconditionally; the server may
// short-circuit past voting.
func (s *GameState) applyGameFinished(ev protocol.GameFinishedEvent) {
	s.Phase = PhaseResults
	if ev.Results != nil {
		s.Results = ev.Results
	}
}
