package state

// Phase is one discrete stage of the server-driven game lifecycle.
type Phase string

const (
	PhaseMenu             Phase = "menu"
	PhaseLobby            Phase = "lobby"
	PhaseLearning         Phase = "learning"
	PhaseResearching      Phase = "researching"
	PhasePlaying          Phase = "playing"
	PhaseMindGames        Phase = "mind_games"
	PhaseReact            Phase = "react"
	PhaseVoting           Phase = "voting"
	PhaseResults          Phase = "results"
	PhaseUnrestrictedChat Phase = "unrestricted_chat"
)

// String returns the wire representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// Known reports whether the phase is one the client understands. Unknown
// phases are still applied verbatim; the server is authoritative.
func (p Phase) Known() bool {
	switch p {
	case PhaseMenu, PhaseLobby, PhaseLearning, PhaseResearching, PhasePlaying,
		PhaseMindGames, PhaseReact, PhaseVoting, PhaseResults, PhaseUnrestrictedChat:
		return true
	}
	return false
}

// Timed reports whether the phase carries a countdown.
func (p Phase) Timed() bool {
	switch p {
	case PhaseLearning, PhasePlaying, PhaseMindGames, PhaseReact, PhaseResearching:
		return true
	}
	return false
}

// defaultDurations are the fallback display values used before a server
// deadline is known. Researching has no default; it runs until the server
// says otherwise.
var defaultDurations = map[Phase]int{
	PhaseLearning: 180,
	PhasePlaying:  300,
}
