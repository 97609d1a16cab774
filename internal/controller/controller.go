// Package controller runs the session: one goroutine owns the game state
// and processes transport frames, clock ticks, and local commands to
// completion, in arrival order. HTTP calls happen on the caller's goroutine;
// only their resulting state mutations are marshaled onto the loop.
package controller

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/turingarcade/impostor/internal/api"
	"github.com/turingarcade/impostor/internal/phasetimer"
	"github.com/turingarcade/impostor/internal/reconnect"
	"github.com/turingarcade/impostor/internal/session"
	"github.com/turingarcade/impostor/internal/state"
	"github.com/turingarcade/impostor/internal/transport"
)

// GameAPI is the HTTP collaborator surface the controller consumes.
type GameAPI interface {
	CreateGame(ctx context.Context, mode string) (api.CreateGameResponse, error)
	JoinGame(ctx context.Context, gameID, username string) (api.JoinGameResponse, error)
	GameSnapshot(ctx context.Context, gameID string) (api.GameSnapshot, error)
	StartGame(ctx context.Context, gameID string) error
	SubmitVote(ctx context.Context, gameID, playerID string, vote api.Vote) error
	UpdateHandles(ctx context.Context, gameID, playerID string, handles api.Handles) error
}

// Controller wires state, timers, persistence, and transport into one loop.
type Controller struct {
	clock    clockwork.Clock
	state    *state.GameState
	resolver *phasetimer.Resolver
	sessions *session.Store
	api      GameAPI
	sup      *transport.Supervisor

	frames <-chan []byte

	cmds    chan func()
	stopped chan struct{}

	signals chan phasetimer.Signal
	changes chan struct{}
}

// New builds a controller. Run must be started before any command method is
// used.
func New(clock clockwork.Clock, sessions *session.Store, gameAPI GameAPI, sup *transport.Supervisor) *Controller {
	return &Controller{
		clock:    clock,
		state:    state.New(),
		resolver: phasetimer.NewResolver(clock),
		sessions: sessions,
		api:      gameAPI,
		sup:      sup,
		cmds:     make(chan func(), 16),
		stopped:  make(chan struct{}),
		signals:  make(chan phasetimer.Signal, 8),
		changes:  make(chan struct{}, 1),
	}
}

// Signals delivers one-shot countdown threshold crossings.
func (c *Controller) Signals() <-chan phasetimer.Signal {
	return c.signals
}

// Changes is a coalesced notification that the snapshot has changed.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

// Run resumes any saved session and then processes events until ctx is
// cancelled. It owns all state mutation.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.stopped)
	defer c.sup.Close()

	c.resume(ctx)

	ticker := c.clock.NewTicker(phasetimer.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("controller shutting down")
			return

		case <-ticker.Chan():
			c.onTick()

		case fn := <-c.cmds:
			fn()

		case frame, ok := <-c.frames:
			if !ok {
				// No auto-retry here: recovery goes through the
				// reconnector on the next startup.
				log.Warn().Str("phase", c.state.Phase.String()).Msg("connection lost")
				c.sup.Close()
				c.frames = nil
				c.notifyChange()
				continue
			}
			c.handleFrame(ctx, frame)
		}
	}
}

// resume primes state from a saved descriptor plus a fresh server snapshot.
func (c *Controller) resume(ctx context.Context) {
	resumed := reconnect.Resume(ctx, c.sessions, c.api, c.clock)
	if resumed == nil {
		return
	}

	c.state.EnterLobby(resumed.Descriptor.GameID, resumed.Descriptor.PlayerID,
		resumed.Descriptor.Username, resumed.Snapshot.Mode)
	c.state.PrimeFromSnapshot(state.Phase(resumed.Snapshot.Status),
		resumed.Snapshot.Mode, resumed.Snapshot.Players)

	c.persistSession()
	c.syncResolver()
	c.ensureTransport(ctx)
	c.notifyChange()
}

// run executes fn on the controller loop and waits for it to finish. It
// gives up when the loop has stopped.
func (c *Controller) run(fn func()) {
	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}
	select {
	case c.cmds <- wrapped:
	case <-c.stopped:
		return
	}
	select {
	case <-done:
	case <-c.stopped:
	}
}

func (c *Controller) onTick() {
	fired := c.resolver.Tick()
	for _, signal := range fired {
		select {
		case c.signals <- signal:
		default:
			log.Warn().Stringer("signal", signal).Msg("signal channel full, dropping")
		}
	}
	if _, active := c.resolver.Remaining(); active {
		c.notifyChange()
	}
}

func (c *Controller) notifyChange() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// persistSession rewrites the descriptor for the current phase and identity.
// Nothing is stored while at the menu.
func (c *Controller) persistSession() {
	if c.state.Phase == state.PhaseMenu || c.state.GameID == "" {
		return
	}
	desc := session.Descriptor{
		GameID:   c.state.GameID,
		PlayerID: c.state.PlayerID,
		Username: c.state.Username,
		Phase:    c.state.Phase.String(),
		Mode:     c.state.Mode,
		SavedAt:  c.clock.Now(),
	}
	if err := c.sessions.Save(desc); err != nil {
		log.Error().Err(err).Msg("failed to persist session descriptor")
	}
}

// syncResolver re-arms the countdown for the current phase. Each phase
// activation gets a fresh one-shot budget.
func (c *Controller) syncResolver() {
	timer, timed := c.state.ActiveTimer()
	if !timed {
		c.resolver.Deactivate()
		return
	}
	c.resolver.Activate(timer.Deadline, timer.Duration)
}

// ensureTransport opens, keeps, or closes the connection to match the
// current identity and phase. The supervisor closes any old connection
// before a new identity dials.
func (c *Controller) ensureTransport(ctx context.Context) {
	if c.state.Phase == state.PhaseMenu || c.state.GameID == "" || c.state.PlayerID == "" {
		c.sup.Close()
		c.frames = nil
		return
	}

	conn, err := c.sup.Ensure(ctx, transport.Identity{
		GameID:   c.state.GameID,
		PlayerID: c.state.PlayerID,
	})
	if err != nil {
		log.Error().Err(err).Str("game_id", c.state.GameID).Msg("failed to connect")
		c.frames = nil
		return
	}
	c.frames = conn.Frames()
}

func (c *Controller) timestamp() string {
	return c.clock.Now().UTC().Format(time.RFC3339)
}
