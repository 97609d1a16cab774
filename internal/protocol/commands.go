package protocol

// Outbound messages the client writes to the socket. The type field mirrors
// the inbound envelope convention.

// ChatCommand sends a chat line on the current channel.
type ChatCommand struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// NewChatCommand builds a chat_message frame.
func NewChatCommand(content, timestamp string) ChatCommand {
	return ChatCommand{Type: string(EventChatMessage), Content: content, Timestamp: timestamp}
}

// TypingCommand toggles the local player's typing indicator.
type TypingCommand struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
}

// NewTypingCommand builds a typing frame.
func NewTypingCommand(isTyping bool) TypingCommand {
	return TypingCommand{Type: string(EventTyping), IsTyping: isTyping}
}

// MindGameResponseCommand submits a private answer to the active prompt.
type MindGameResponseCommand struct {
	Type       string `json:"type"`
	MindGameID string `json:"mind_game_id"`
	Answer     string `json:"answer"`
	Timestamp  string `json:"timestamp"`
}

// NewMindGameResponseCommand builds a mind_game_response frame.
func NewMindGameResponseCommand(mindGameID, answer, timestamp string) MindGameResponseCommand {
	return MindGameResponseCommand{
		Type:       "mind_game_response",
		MindGameID: mindGameID,
		Answer:     answer,
		Timestamp:  timestamp,
	}
}
