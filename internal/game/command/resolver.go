package command

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/keystrike/internal/game/clock"
)

// Mode is the resolver's current input mode. Attack and Reaction are never
// active at the same time.
type Mode int

const (
	ModeIdle Mode = iota
	ModeAttack
	ModeReaction
)

// String returns a human-readable mode label.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeAttack:
		return "attack"
	case ModeReaction:
		return "reaction"
	default:
		return "unknown"
	}
}

// Status classifies the effect of one input event.
type Status int

const (
	// StatusNone means the buffer is empty; nothing to show.
	StatusNone Status = iota
	// StatusPartial means the buffer is a valid prefix; feedback only.
	StatusPartial
	// StatusMatched means a word was accepted. In reaction mode the window
	// resolved as a success.
	StatusMatched
	// StatusTypo means the input cannot become a valid word. In reaction mode
	// the window resolved as a failure.
	StatusTypo
	// StatusIgnored means the event had no effect: no mode is active, the
	// window already resolved, or a non-word was submitted in attack mode.
	StatusIgnored
)

// String returns a human-readable status label.
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusPartial:
		return "partial"
	case StatusMatched:
		return "matched"
	case StatusTypo:
		return "typo"
	case StatusIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Result is the outcome of one buffer-changed or submitted event.
type Result struct {
	Mode     Mode
	Status   Status
	Word     string
	Feedback Feedback
	// Reaction is set when the event resolved a reaction window.
	Reaction *ReactionResult
}

// Resolver owns the active input mode and the single active ReactionSession.
// It is safe for concurrent use.
type Resolver struct {
	mu      sync.Mutex
	clock   clock.Clock
	logger  *zap.Logger
	mode    Mode
	vocab   *Vocabulary
	session *ReactionSession
}

// NewResolver creates an idle Resolver.
//
// Precondition: clk and logger must be non-nil.
func NewResolver(clk clock.Clock, logger *zap.Logger) *Resolver {
	if clk == nil || logger == nil {
		panic("command.NewResolver: clock and logger must not be nil")
	}
	return &Resolver{clock: clk, logger: logger}
}

// Mode returns the current mode. A reaction window that has resolved leaves
// the resolver idle.
func (r *Resolver) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentModeLocked()
}

func (r *Resolver) currentModeLocked() Mode {
	if r.mode == ModeReaction && r.session != nil && r.session.Resolved() {
		return ModeIdle
	}
	return r.mode
}

// EnterAttackMode accepts input against v until another mode is entered.
// A pending reaction window is cancelled first.
//
// Precondition: v must be non-nil.
func (r *Resolver) EnterAttackMode(v *Vocabulary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
	r.vocab = v
	r.mode = ModeAttack
}

// Disable stops accepting input. A pending reaction window is cancelled.
func (r *Resolver) Disable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
	r.mode = ModeIdle
	r.vocab = nil
}

// OpenReaction starts a defensive window expecting word within limit. Any
// pending window is first resolved as a cancelled failure.
//
// Postcondition: Returns the new active session; Mode() == ModeReaction until it resolves.
func (r *Resolver) OpenReaction(word string, limit time.Duration) *ReactionSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelLocked() {
		r.logger.Warn("reaction window superseded while pending")
	}
	s := newReactionSession(word, limit, r.clock.Now())
	r.session = s
	r.mode = ModeReaction
	r.vocab = nil
	r.logger.Debug("reaction window opened",
		zap.String("session", s.ID),
		zap.String("word", s.ExpectedWord),
		zap.Duration("limit", limit),
	)
	return s
}

// CancelReaction resolves the active window as a cancelled failure.
//
// Postcondition: Returns true iff a pending window was cancelled.
func (r *Resolver) CancelReaction() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancelled := r.cancelLocked()
	if r.mode == ModeReaction {
		r.mode = ModeIdle
	}
	return cancelled
}

func (r *Resolver) cancelLocked() bool {
	if r.session == nil {
		return false
	}
	s := r.session
	r.session = nil
	return s.Cancel(r.clock.Now())
}

// OnBufferChanged evaluates the in-progress buffer. In attack mode an exact
// word is accepted at once and a non-prefix is a typo. In reaction mode an
// exact word resolves success and a non-prefix resolves failure.
func (r *Resolver) OnBufferChanged(text string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	input := normalize(text)
	switch r.currentModeLocked() {
	case ModeAttack:
		if input == "" {
			return Result{Mode: ModeAttack, Status: StatusNone}
		}
		if r.vocab.Contains(input) {
			return Result{Mode: ModeAttack, Status: StatusMatched, Word: input, Feedback: buildFeedback(input, input)}
		}
		target, ok := r.vocab.Match(input)
		if !ok {
			r.logger.Debug("attack command typo", zap.String("input", input))
			return Result{Mode: ModeAttack, Status: StatusTypo, Word: input, Feedback: buildFeedback(input, "")}
		}
		return Result{Mode: ModeAttack, Status: StatusPartial, Feedback: buildFeedback(input, target)}
	case ModeReaction:
		s := r.session
		if input == "" {
			return Result{Mode: ModeReaction, Status: StatusNone, Feedback: buildFeedback("", s.ExpectedWord)}
		}
		now := r.clock.Now()
		if input != s.ExpectedWord && strings.HasPrefix(s.ExpectedWord, input) && !now.After(s.Deadline) {
			return Result{Mode: ModeReaction, Status: StatusPartial, Feedback: buildFeedback(input, s.ExpectedWord)}
		}
		return r.offerLocked(s, input, now)
	default:
		return Result{Mode: ModeIdle, Status: StatusIgnored}
	}
}

// OnSubmitted evaluates an explicit submission. In attack mode a vocabulary
// word is accepted and any other non-empty input, including an unfinished
// prefix, is a typo. In reaction mode anything but the exact word is a failure.
func (r *Resolver) OnSubmitted(text string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	input := normalize(text)
	switch r.currentModeLocked() {
	case ModeAttack:
		if input == "" {
			return Result{Mode: ModeAttack, Status: StatusNone}
		}
		if r.vocab.Contains(input) {
			return Result{Mode: ModeAttack, Status: StatusMatched, Word: input, Feedback: buildFeedback(input, input)}
		}
		r.logger.Debug("attack command submitted incomplete", zap.String("input", input))
		return Result{Mode: ModeAttack, Status: StatusTypo, Word: input, Feedback: buildFeedback(input, "")}
	case ModeReaction:
		return r.offerLocked(r.session, input, r.clock.Now())
	default:
		return Result{Mode: ModeIdle, Status: StatusIgnored}
	}
}

func (r *Resolver) offerLocked(s *ReactionSession, input string, now time.Time) Result {
	if !s.offer(input, now) {
		return Result{Mode: ModeReaction, Status: StatusIgnored}
	}
	res, _ := s.Result()
	r.mode = ModeIdle
	r.logger.Debug("reaction window resolved",
		zap.String("session", s.ID),
		zap.Bool("success", res.Success),
		zap.Stringer("reason", res.Reason),
		zap.Duration("elapsed", res.Elapsed),
	)
	status := StatusTypo
	if res.Success {
		status = StatusMatched
	}
	return Result{
		Mode:     ModeReaction,
		Status:   status,
		Word:     input,
		Feedback: buildFeedback(input, s.ExpectedWord),
		Reaction: &res,
	}
}

// ActiveSession returns the pending reaction window, if any.
func (r *Resolver) ActiveSession() (*ReactionSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || r.session.Resolved() {
		return nil, false
	}
	return r.session, true
}
