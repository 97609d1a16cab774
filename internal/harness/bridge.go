package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Scenario subjects carry pre-encoded game events to inject into a running
// game, e.g. `nats pub impostor.games.abc123.events '{"type":"phase_change",...}'`.
const scenarioSubject = "impostor.games.*.events"

// Bridge relays scenario events published on NATS into a game's WebSocket
// connections. It lets scripted test runs drive phase changes, mind games,
// and AI chatter without touching the server's own scheduler.
type Bridge struct {
	server *Server
	nc     *nats.Conn
	sub    *nats.Subscription
}

// NewBridge connects to NATS and starts relaying scenario events.
func NewBridge(server *Server, url string) (*Bridge, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	b := &Bridge{server: server, nc: nc}
	b.sub, err = nc.Subscribe(scenarioSubject, b.handleMessage)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", scenarioSubject, err)
	}

	log.Info().Str("subject", scenarioSubject).Msg("scenario bridge listening")
	return b, nil
}

// handleMessage forwards the payload verbatim to the game named in the
// subject. Payload validity is the publisher's problem; clients already drop
// frames they do not understand.
func (b *Bridge) handleMessage(msg *nats.Msg) {
	gameID := gameIDFromSubject(msg.Subject)
	if gameID == "" {
		log.Warn().Str("subject", msg.Subject).Msg("scenario subject missing game id")
		return
	}

	log.Debug().Str("game_id", gameID).Int("bytes", len(msg.Data)).Msg("injecting scenario event")
	b.server.inject(gameID, msg.Data)
}

// Close drains the subscription and closes the connection.
func (b *Bridge) Close() {
	if b.sub != nil {
		if err := b.sub.Drain(); err != nil {
			log.Error().Err(err).Msg("drain scenario subscription")
		}
	}
	b.nc.Close()
}

func gameIDFromSubject(subject string) string {
	// impostor.games.<id>.events
	parts := strings.Split(subject, ".")
	if len(parts) != 4 || parts[0] != "impostor" || parts[1] != "games" || parts[3] != "events" {
		return ""
	}
	return parts[2]
}
