package controller

import (
	"context"
	"fmt"

	"github.com/turingarcade/impostor/internal/api"
	"github.com/turingarcade/impostor/internal/protocol"
)

// Local commands. HTTP work runs on the caller's goroutine so the loop
// never blocks on the network; only the resulting state mutation is
// marshaled onto the loop. On HTTP failure the state is left untouched so the caller
// can retry. Local commands only ever move the phase to lobby or back to
// menu; every mid-game phase arrives by server push.

// CreateAndJoinGame creates a game in the given mode and joins it.
func (c *Controller) CreateAndJoinGame(ctx context.Context, mode, username string) error {
	created, err := c.api.CreateGame(ctx, mode)
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	joined, err := c.api.JoinGame(ctx, created.GameID, username)
	if err != nil {
		return fmt.Errorf("join created game: %w", err)
	}

	c.run(func() {
		c.state.EnterLobby(created.GameID, joined.PlayerID, joined.Username, created.Mode)
		c.afterLocalTransition(ctx)
	})
	return nil
}

// JoinGame joins an existing game and primes the roster from a snapshot.
func (c *Controller) JoinGame(ctx context.Context, gameID, username string) error {
	joined, err := c.api.JoinGame(ctx, gameID, username)
	if err != nil {
		return fmt.Errorf("join game: %w", err)
	}
	snapshot, err := c.api.GameSnapshot(ctx, gameID)
	if err != nil {
		return fmt.Errorf("fetch game state: %w", err)
	}

	c.run(func() {
		c.state.EnterLobby(gameID, joined.PlayerID, joined.Username, snapshot.Mode)
		c.state.SetPlayers(snapshot.Players)
		c.afterLocalTransition(ctx)
	})
	return nil
}

// StartGame asks the server to begin. The phase change comes back by push.
func (c *Controller) StartGame(ctx context.Context) error {
	gameID := c.gameID()
	if gameID == "" {
		return fmt.Errorf("no game to start")
	}
	return c.api.StartGame(ctx, gameID)
}

// SubmitVote records the final guess.
func (c *Controller) SubmitVote(ctx context.Context, vote api.Vote) error {
	gameID, playerID := c.identity()
	if gameID == "" {
		return fmt.Errorf("no active game")
	}
	return c.api.SubmitVote(ctx, gameID, playerID, vote)
}

// UpdateHandles shares social profiles for the research phase.
func (c *Controller) UpdateHandles(ctx context.Context, handles api.Handles) error {
	gameID, playerID := c.identity()
	if gameID == "" {
		return fmt.Errorf("no active game")
	}
	return c.api.UpdateHandles(ctx, gameID, playerID, handles)
}

// LeaveToMenu abandons the session: the connection closes, state resets,
// and the saved descriptor is removed.
func (c *Controller) LeaveToMenu() {
	c.run(func() {
		c.sup.Close()
		c.frames = nil
		c.state.ResetToMenu()
		c.sessions.Clear()
		c.resolver.Deactivate()
		c.notifyChange()
	})
}

// PlayAgain returns to the menu after results. Same full reset as leaving.
func (c *Controller) PlayAgain() {
	c.LeaveToMenu()
}

// SendChat sends a chat line on the live connection.
func (c *Controller) SendChat(content string) error {
	var err error
	c.run(func() {
		conn := c.sup.Current()
		if conn == nil {
			err = fmt.Errorf("not connected")
			return
		}
		err = conn.Send(protocol.NewChatCommand(content, c.timestamp()))
	})
	return err
}

// SetTyping toggles the local typing indicator for other players.
func (c *Controller) SetTyping(isTyping bool) error {
	var err error
	c.run(func() {
		conn := c.sup.Current()
		if conn == nil {
			err = fmt.Errorf("not connected")
			return
		}
		err = conn.Send(protocol.NewTypingCommand(isTyping))
	})
	return err
}

// SubmitMindGameAnswer submits the private answer for the active prompt.
// Submissions at or past the deadline are refused locally; the server's
// ack or error remains authoritative for the status transition.
func (c *Controller) SubmitMindGameAnswer(answer string) error {
	var err error
	c.run(func() {
		if err = c.state.MindGames.CheckSubmit(c.clock.Now()); err != nil {
			return
		}
		conn := c.sup.Current()
		if conn == nil {
			err = fmt.Errorf("not connected")
			return
		}
		prompt := c.state.MindGames.Active()
		err = conn.Send(protocol.NewMindGameResponseCommand(prompt.ID, answer, c.timestamp()))
	})
	return err
}

// afterLocalTransition runs the side effects of a successful create/join.
func (c *Controller) afterLocalTransition(ctx context.Context) {
	c.persistSession()
	c.syncResolver()
	c.ensureTransport(ctx)
	c.notifyChange()
}

func (c *Controller) gameID() string {
	var id string
	c.run(func() { id = c.state.GameID })
	return id
}

func (c *Controller) identity() (string, string) {
	var gameID, playerID string
	c.run(func() { gameID, playerID = c.state.GameID, c.state.PlayerID })
	return gameID, playerID
}
