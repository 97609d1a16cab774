package api

import "github.com/turingarcade/impostor/internal/protocol"

type createGameRequest struct {
	Mode string `json:"mode"`
}

type joinGameRequest struct {
	GameID   string `json:"game_id"`
	Username string `json:"username"`
}

// CreateGameResponse is the payload returned by game creation.
type CreateGameResponse struct {
	GameID string `json:"game_id"`
	Mode   string `json:"mode"`
	Status string `json:"status"`
}

// JoinGameResponse is the payload returned by joining a game.
type JoinGameResponse struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
	GameID   string `json:"game_id"`
}

// GameSnapshot is the authoritative state of a game. Status is the server's
// current phase.
type GameSnapshot struct {
	GameID       string            `json:"game_id"`
	Mode         string            `json:"mode"`
	Status       string            `json:"status"`
	CurrentRound int               `json:"current_round"`
	TotalRounds  int               `json:"total_rounds"`
	Players      []protocol.Player `json:"players"`
}

// Vote is a final-round guess: the suspected AI in group mode, the guessed
// partner in private mode.
type Vote struct {
	VotedAIID        string `json:"voted_ai_id,omitempty"`
	GuessedPartnerID string `json:"guessed_partner_id,omitempty"`
}

// Handles are the optional social profiles a player shares for the research
// phase.
type Handles struct {
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
}

type createChatSessionRequest struct {
	Username string `json:"username"`
}

type joinChatSessionRequest struct {
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
}

type chatParticipantRequest struct {
	Username string `json:"username,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
}

// ChatSessionResponse is the payload for creating or joining an
// unrestricted-chat session.
type ChatSessionResponse struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
	Username  string `json:"username"`
}

// ChatParticipant is the identity assigned to a participant added to an
// unrestricted-chat session.
type ChatParticipant struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}
