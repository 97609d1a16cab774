// Package transport owns the live WebSocket connection to the game server.
// One connection exists per (game, player) identity while the game is in
// progress; the supervisor guarantees the old connection is closed before a
// new one opens.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait = 10 * time.Second

	// pongWait bounds how long the connection may go without traffic;
	// pingPeriod keeps it fed and must be shorter.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 32 * 1024

	sendBuffer  = 64
	frameBuffer = 64
)

// Identity names the connection target. A change in either field requires a
// new connection.
type Identity struct {
	GameID   string
	PlayerID string
}

// Conn is one live connection. Inbound frames are delivered in arrival order
// on Frames; the channel closes when the connection dies for any reason.
type Conn struct {
	id       string
	identity Identity
	ws       *websocket.Conn

	frames chan []byte
	send   chan any

	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens the connection for an identity. The endpoint is derived from
// the identity pair, matching the server's /ws/{game}/{player} route.
func Dial(ctx context.Context, wsBaseURL string, identity Identity) (*Conn, error) {
	url := fmt.Sprintf("%s/ws/%s/%s", wsBaseURL, identity.GameID, identity.PlayerID)

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Conn{
		id:       uuid.New().String()[:8],
		identity: identity,
		ws:       ws,
		frames:   make(chan []byte, frameBuffer),
		send:     make(chan any, sendBuffer),
		done:     make(chan struct{}),
	}

	go c.readLoop()
	go c.writeLoop()

	log.Info().
		Str("conn_id", c.id).
		Str("game_id", identity.GameID).
		Str("player_id", identity.PlayerID).
		Msg("websocket connected")

	return c, nil
}

// Identity returns the pair this connection was opened for.
func (c *Conn) Identity() Identity {
	return c.identity
}

// Frames returns the inbound frame channel. It is closed on disconnect.
func (c *Conn) Frames() <-chan []byte {
	return c.frames
}

// Send queues an outbound message for JSON encoding on the write loop. It
// fails once the connection is closed or when the writer cannot keep up.
func (c *Conn) Send(msg any) error {
	select {
	case <-c.done:
		return fmt.Errorf("connection %s is closed", c.id)
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return fmt.Errorf("connection %s send buffer full", c.id)
	}
}

// Close tears the connection down. Safe to call more than once and safe to
// call concurrently with the pumps. After Close, no further frames are
// delivered: pending reads are discarded, which is what cancels response
// handling for an intentionally closed session.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		c.ws.Close()
		log.Debug().Str("conn_id", c.id).Msg("websocket closed")
	})
}

func (c *Conn) readLoop() {
	defer func() {
		c.Close()
		close(c.frames)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("conn_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case c.frames <- data:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				log.Error().Err(err).Str("conn_id", c.id).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
