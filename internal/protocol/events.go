package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType identifies an inbound server event.
type EventType string

const (
	EventPlayerJoined       EventType = "player_joined"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPhaseChange        EventType = "phase_change"
	EventGroupStage         EventType = "group_stage"
	EventChatMessage        EventType = "chat_message"
	EventAIMessage          EventType = "ai_message"
	EventTyping             EventType = "typing"
	EventMindGamePrompt     EventType = "mind_game_prompt"
	EventMindGameAck        EventType = "mind_game_ack"
	EventMindGameError      EventType = "mind_game_error"
	EventMindGameReveal     EventType = "mind_game_reveal"
	EventGameFinished       EventType = "game_finished"
)

// ErrUnknownEvent is returned by DecodeEvent for event types the client does
// not recognize. Callers should log and move on rather than fail the stream.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is a decoded inbound server event.
type Event interface{ isEvent() }

// Player is a participant as the server reports it.
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score,omitempty"`
}

// Alias is a server-assigned pseudonymous identity used during group stages.
type Alias struct {
	Alias string `json:"alias"`
	Badge string `json:"badge"`
	Color string `json:"color"`
}

// PlayerJoinedEvent announces a new participant in the lobby.
type PlayerJoinedEvent struct {
	Player Player `json:"player"`
}

// PlayerDisconnectedEvent reports a participant dropping its socket.
type PlayerDisconnectedEvent struct {
	PlayerID string `json:"player_id"`
}

// PhaseChangeEvent moves the game to a new phase. Deadline and Duration are
// both optional; the payload may carry either, both, or neither.
type PhaseChangeEvent struct {
	Phase    string `json:"phase"`
	Deadline *int64 `json:"deadline,omitempty"` // epoch seconds, server clock
	Duration *int   `json:"duration,omitempty"` // fallback display seconds
	Message  string `json:"message,omitempty"`
}

// GroupStageEvent drives stage-based sub-flows (mind games, react) and may
// replace the alias map wholesale.
type GroupStageEvent struct {
	Stage    string           `json:"stage"`
	Deadline *int64           `json:"deadline,omitempty"`
	Duration *int             `json:"duration,omitempty"`
	Aliases  map[string]Alias `json:"aliases,omitempty"`
}

// ChatMessageEvent is one chat line. Phase tags the channel the message
// belongs to; an empty tag means the default playing channel.
type ChatMessageEvent struct {
	SenderID       string `json:"sender_id"`
	Username       string `json:"username,omitempty"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp,omitempty"`
	Phase          string `json:"phase,omitempty"`
	RecipientID    string `json:"recipient_id,omitempty"`
	ImpersonatedBy string `json:"impersonated_by,omitempty"`
	Alias          string `json:"alias,omitempty"`
	AliasBadge     string `json:"alias_badge,omitempty"`
	AliasColor     string `json:"alias_color,omitempty"`
	LatencyMs      int    `json:"latency_ms,omitempty"`
}

// AIMessageEvent is a learning-phase question addressed privately to the
// local player.
type AIMessageEvent struct {
	Content   string `json:"content"`
	Sender    string `json:"sender,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// TypingEvent toggles another player's typing indicator.
type TypingEvent struct {
	PlayerID string `json:"player_id"`
	IsTyping bool   `json:"is_typing"`
}

// MindGamePromptEvent opens a new mind-game round. It supersedes any prompt
// already active.
type MindGamePromptEvent struct {
	ID           string `json:"id"`
	Sequence     int    `json:"sequence"`
	Prompt       string `json:"prompt"`
	Instructions string `json:"instructions,omitempty"`
	RevealTitle  string `json:"reveal_title,omitempty"`
	Deadline     int64  `json:"deadline"`
}

// MindGameAckEvent confirms the server accepted a submitted answer.
type MindGameAckEvent struct {
	MindGameID string `json:"mind_game_id"`
}

// MindGameErrorEvent rejects a submitted answer. Reason "deadline_expired"
// is surfaced distinctly from other failures.
type MindGameErrorEvent struct {
	MindGameID string `json:"mind_game_id"`
	Reason     string `json:"reason"`
}

// RevealEntry is one player's disclosed answer within a reveal.
type RevealEntry struct {
	PlayerID   string `json:"player_id,omitempty"`
	Alias      string `json:"alias,omitempty"`
	AliasBadge string `json:"alias_badge,omitempty"`
	AliasColor string `json:"alias_color,omitempty"`
	Response   string `json:"response"`
	IsAI       bool   `json:"is_ai,omitempty"`
	LatencyMs  int    `json:"latency_ms,omitempty"`
}

// MindGameRevealEvent discloses every answer for one prompt sequence.
type MindGameRevealEvent struct {
	Sequence  int           `json:"sequence"`
	Prompt    string        `json:"prompt,omitempty"`
	Responses []RevealEntry `json:"responses"`
}

// GameResults is the final payload broadcast when the game ends.
type GameResults struct {
	AISuccessRate float64        `json:"ai_success_rate"`
	Analysis      string         `json:"analysis,omitempty"`
	Scores        map[string]int `json:"scores,omitempty"`
}

// GameFinishedEvent forces the game into results regardless of the current
// phase.
type GameFinishedEvent struct {
	Results *GameResults `json:"results,omitempty"`
}

func (PlayerJoinedEvent) isEvent()       {}
func (PlayerDisconnectedEvent) isEvent() {}
func (PhaseChangeEvent) isEvent()        {}
func (GroupStageEvent) isEvent()         {}
func (ChatMessageEvent) isEvent()        {}
func (AIMessageEvent) isEvent()          {}
func (TypingEvent) isEvent()             {}
func (MindGamePromptEvent) isEvent()     {}
func (MindGameAckEvent) isEvent()        {}
func (MindGameErrorEvent) isEvent()      {}
func (MindGameRevealEvent) isEvent()     {}
func (GameFinishedEvent) isEvent()       {}

// DecodeEvent parses an inbound frame into its typed event. Unrecognized
// types return ErrUnknownEvent so the router can log and skip them.
func DecodeEvent(data []byte) (Event, error) {
	var env struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	switch env.Type {
	case EventPlayerJoined:
		return decodeAs[PlayerJoinedEvent](data)
	case EventPlayerDisconnected:
		return decodeAs[PlayerDisconnectedEvent](data)
	case EventPhaseChange:
		return decodeAs[PhaseChangeEvent](data)
	case EventGroupStage:
		return decodeAs[GroupStageEvent](data)
	case EventChatMessage:
		return decodeAs[ChatMessageEvent](data)
	case EventAIMessage:
		return decodeAs[AIMessageEvent](data)
	case EventTyping:
		return decodeAs[TypingEvent](data)
	case EventMindGamePrompt:
		return decodeAs[MindGamePromptEvent](data)
	case EventMindGameAck:
		return decodeAs[MindGameAckEvent](data)
	case EventMindGameError:
		return decodeAs[MindGameErrorEvent](data)
	case EventMindGameReveal:
		return decodeAs[MindGameRevealEvent](data)
	case EventGameFinished:
		return decodeAs[GameFinishedEvent](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

func decodeAs[T Event](data []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode %T: %w", ev, err)
	}
	return ev, nil
}
