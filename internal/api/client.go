// Package api is the HTTP client for the game server's one-shot actions:
// create, join, snapshot, start, vote, handles. These are plain
// request/response calls; all live game traffic goes over the transport.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the game server REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient returns a client rooted at baseURL (for example
// "http://localhost:8000").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned status %d: %s", method, endpoint, resp.StatusCode, string(responseBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CreateGame creates a new game in the given mode.
func (c *Client) CreateGame(ctx context.Context, mode string) (CreateGameResponse, error) {
	var out CreateGameResponse
	err := c.doRequest(ctx, http.MethodPost, "/game/create", createGameRequest{Mode: mode}, &out)
	return out, err
}

// JoinGame registers a player in an existing game.
func (c *Client) JoinGame(ctx context.Context, gameID, username string) (JoinGameResponse, error) {
	var out JoinGameResponse
	err := c.doRequest(ctx, http.MethodPost, "/game/join", joinGameRequest{GameID: gameID, Username: username}, &out)
	return out, err
}

// GameSnapshot fetches the authoritative game state. The reconnector uses
// this to prime phase, players, and mode on resume.
func (c *Client) GameSnapshot(ctx context.Context, gameID string) (GameSnapshot, error) {
	var out GameSnapshot
	err := c.doRequest(ctx, http.MethodGet, "/game/"+gameID, nil, &out)
	return out, err
}

// StartGame asks the server to begin the learning phase. The resulting phase
// change arrives by socket push, not in this response.
func (c *Client) StartGame(ctx context.Context, gameID string) error {
	return c.doRequest(ctx, http.MethodPost, "/game/"+gameID+"/start", nil, nil)
}

// SubmitVote records the player's final guess.
func (c *Client) SubmitVote(ctx context.Context, gameID, playerID string, vote Vote) error {
	endpoint := fmt.Sprintf("/game/%s/player/%s/vote", gameID, playerID)
	return c.doRequest(ctx, http.MethodPost, endpoint, vote, nil)
}

// UpdateHandles uploads the player's social handles for the research phase.
func (c *Client) UpdateHandles(ctx context.Context, gameID, playerID string, handles Handles) error {
	endpoint := fmt.Sprintf("/game/%s/player/%s/handles", gameID, playerID)
	return c.doRequest(ctx, http.MethodPost, endpoint, handles, nil)
}

// CreateChatSession opens a new unrestricted-chat session.
func (c *Client) CreateChatSession(ctx context.Context, username string) (ChatSessionResponse, error) {
	var out ChatSessionResponse
	err := c.doRequest(ctx, http.MethodPost, "/chat/session/create",
		createChatSessionRequest{Username: username}, &out)
	return out, err
}

// JoinChatSession joins an existing unrestricted-chat session.
func (c *Client) JoinChatSession(ctx context.Context, sessionID, username string) (ChatSessionResponse, error) {
	var out ChatSessionResponse
	err := c.doRequest(ctx, http.MethodPost, "/chat/session/join",
		joinChatSessionRequest{Username: username, SessionID: sessionID}, &out)
	return out, err
}

// AddChatParticipant adds a participant to a chat session. The server
// announces the addition to the session's sockets.
func (c *Client) AddChatParticipant(ctx context.Context, sessionID, username string) (ChatParticipant, error) {
	endpoint := fmt.Sprintf("/chat/session/%s/player/add", sessionID)
	var out ChatParticipant
	err := c.doRequest(ctx, http.MethodPost, endpoint, chatParticipantRequest{Username: username}, &out)
	return out, err
}

// RemoveChatParticipant removes a participant from a chat session.
func (c *Client) RemoveChatParticipant(ctx context.Context, sessionID, playerID string) error {
	endpoint := fmt.Sprintf("/chat/session/%s/player/remove", sessionID)
	return c.doRequest(ctx, http.MethodPost, endpoint, chatParticipantRequest{PlayerID: playerID}, nil)
}
