package state

// Channel views over the single ordered chat log. These are filters, not
// separate storage: every inbound message lands in Messages and each view
// derives its feed from the phase tag and the addressing fields.

// LearningFeed returns the private one-to-one traffic visible to a viewer:
// messages the viewer sent or received.
func (s *GameState) LearningFeed(viewerID string) []ChatMessage {
	return s.filter(func(m ChatMessage) bool {
		return m.SenderID == viewerID || m.RecipientID == viewerID
	})
}

// PlayingFeed returns the default channel: messages with no phase tag or
// tagged playing. Untagged messages predate channel tagging and belong here.
func (s *GameState) PlayingFeed() []ChatMessage {
	return s.filter(func(m ChatMessage) bool {
		return m.Phase == "" || m.Phase == string(PhasePlaying)
	})
}

// MindGamesFeed returns messages tagged for the mind-games stage.
func (s *GameState) MindGamesFeed() []ChatMessage {
	return s.phaseFeed(PhaseMindGames)
}

// ReactFeed returns messages tagged for the react stage.
func (s *GameState) ReactFeed() []ChatMessage {
	return s.phaseFeed(PhaseReact)
}

func (s *GameState) phaseFeed(phase Phase) []ChatMessage {
	return s.filter(func(m ChatMessage) bool {
		return m.Phase == string(phase)
	})
}

func (s *GameState) filter(keep func(ChatMessage) bool) []ChatMessage {
	var out []ChatMessage
	for _, m := range s.Messages {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
