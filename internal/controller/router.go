package controller

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/turingarcade/impostor/internal/protocol"
)

// handleFrame decodes one inbound frame and applies it. Unknown event types
// are logged and skipped; recognized events always apply their full state
// mutation before returning.
func (c *Controller) handleFrame(ctx context.Context, data []byte) {
	ev, err := protocol.DecodeEvent(data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownEvent) {
			log.Warn().Err(err).Msg("ignoring unrecognized event")
		} else {
			log.Error().Err(err).Msg("malformed frame")
		}
		return
	}

	ev = c.normalize(ev)
	c.state.Apply(ev)
	c.afterEvent(ctx, ev)
	c.notifyChange()
}

// normalize fills fields the server may omit. Chat and AI messages without
// a timestamp get the local arrival time so display ordering has a tiebreak.
func (c *Controller) normalize(ev protocol.Event) protocol.Event {
	switch msg := ev.(type) {
	case protocol.ChatMessageEvent:
		if msg.Timestamp == "" {
			msg.Timestamp = c.timestamp()
		}
		return msg
	case protocol.AIMessageEvent:
		if msg.Timestamp == "" {
			msg.Timestamp = c.timestamp()
		}
		return msg
	}
	return ev
}

// afterEvent runs the side effects an applied event requires: descriptor
// persistence and countdown re-arming on phase movement.
func (c *Controller) afterEvent(ctx context.Context, ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.PhaseChangeEvent:
		log.Info().Str("phase", ev.Phase).Msg("phase change")
		c.persistSession()
		c.syncResolver()

	case protocol.GroupStageEvent:
		log.Info().Str("stage", ev.Stage).Msg("group stage")
		c.persistSession()
		c.syncResolver()

	case protocol.GameFinishedEvent:
		log.Info().Msg("game finished")
		c.persistSession()
		c.syncResolver()
	}
}
