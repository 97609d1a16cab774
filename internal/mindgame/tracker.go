// Package mindgame tracks the private-answer rounds nested inside a group
// stage: at most one active prompt, a per-prompt submission status, and the
// ordered log of server reveals.
package mindgame

import (
	"errors"
	"sort"
	"time"

	"github.com/turingarcade/impostor/internal/protocol"
)

// ErrDeadlinePassed is returned when a submit is attempted at or after the
// active prompt's deadline.
var ErrDeadlinePassed = errors.New("mind game deadline has passed")

// ErrNoActivePrompt is returned when a submit is attempted with no prompt
// open.
var ErrNoActivePrompt = errors.New("no active mind game prompt")

// ReasonDeadlineExpired is the server-side rejection reason that must be
// displayed distinctly from other errors.
const ReasonDeadlineExpired = "deadline_expired"

// SubmissionState is the lifecycle of one prompt's answer.
type SubmissionState string

const (
	SubmissionPending   SubmissionState = "pending"
	SubmissionSubmitted SubmissionState = "submitted"
	SubmissionError     SubmissionState = "error"
)

// Status is the submission status for one prompt id.
type Status struct {
	State  SubmissionState
	Reason string // set when State is SubmissionError
}

// DeadlineExpired reports whether the status is the late-submit rejection.
func (s Status) DeadlineExpired() bool {
	return s.State == SubmissionError && s.Reason == ReasonDeadlineExpired
}

// Tracker holds mind-game round state for one game session.
type Tracker struct {
	active   *protocol.MindGamePromptEvent
	statuses map[string]Status
	reveals  []protocol.MindGameRevealEvent
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{statuses: make(map[string]Status)}
}

// SetPrompt installs a new active prompt, superseding any previous one, and
// seeds its submission status to pending.
func (t *Tracker) SetPrompt(prompt protocol.MindGamePromptEvent) {
	p := prompt
	t.active = &p
	t.statuses[prompt.ID] = Status{State: SubmissionPending}
}

// Active returns the active prompt, or nil when none is open.
func (t *Tracker) Active() *protocol.MindGamePromptEvent {
	if t.active == nil {
		return nil
	}
	p := *t.active
	return &p
}

// Status returns the submission status for a prompt id.
func (t *Tracker) Status(promptID string) (Status, bool) {
	s, ok := t.statuses[promptID]
	return s, ok
}

// CheckSubmit validates a local submit attempt against the active prompt's
// deadline. The authoritative ack/error still comes from the server.
func (t *Tracker) CheckSubmit(now time.Time) error {
	if t.active == nil {
		return ErrNoActivePrompt
	}
	if now.Unix() >= t.active.Deadline {
		return ErrDeadlinePassed
	}
	return nil
}

// MarkSubmitted records a server ack for a prompt.
func (t *Tracker) MarkSubmitted(promptID string) {
	t.statuses[promptID] = Status{State: SubmissionSubmitted}
}

// MarkError records a server rejection for a prompt. Late rejections with
// reason deadline_expired are accepted even after the client-side cutoff.
func (t *Tracker) MarkError(promptID, reason string) {
	t.statuses[promptID] = Status{State: SubmissionError, Reason: reason}
}

// ApplyReveal closes the active prompt and upserts the reveal into the
// sequence-ordered log. Redelivery of a sequence replaces the earlier entry.
func (t *Tracker) ApplyReveal(reveal protocol.MindGameRevealEvent) {
	t.active = nil
	for i, existing := range t.reveals {
		if existing.Sequence == reveal.Sequence {
			t.reveals[i] = reveal
			return
		}
	}
	t.reveals = append(t.reveals, reveal)
	sort.SliceStable(t.reveals, func(i, j int) bool {
		return t.reveals[i].Sequence < t.reveals[j].Sequence
	})
}

// Reveals returns the reveal log ordered by sequence.
func (t *Tracker) Reveals() []protocol.MindGameRevealEvent {
	out := make([]protocol.MindGameRevealEvent, len(t.reveals))
	copy(out, t.reveals)
	return out
}

// Reset clears the active prompt, statuses, and reveal log. Called when a
// fresh mind-games stage begins.
func (t *Tracker) Reset() {
	t.active = nil
	t.statuses = make(map[string]Status)
	t.reveals = nil
}
