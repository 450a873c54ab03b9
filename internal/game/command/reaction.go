package command

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/keystrike/internal/game/clock"
)

// Reason explains a reaction outcome.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonTypo
	ReasonTimeout
	// ReasonCancelled means the window was abandoned: superseded by a new
	// window, the player died, or the encounter was reset.
	ReasonCancelled
)

// String returns a human-readable reason label.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTypo:
		return "typo"
	case ReasonTimeout:
		return "timeout"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ReactionResult is the single resolution of a ReactionSession.
type ReactionResult struct {
	Success bool
	Reason  Reason
	// Elapsed is the time from the window opening to resolution.
	Elapsed time.Duration
	Input   string
}

// ReactionSession is one bounded-time defensive window. It resolves exactly
// once; later resolution attempts are ignored.
type ReactionSession struct {
	ID           string
	ExpectedWord string
	Limit        time.Duration
	Started      time.Time
	Deadline     time.Time

	once   sync.Once
	done   chan struct{}
	result ReactionResult
}

func newReactionSession(word string, limit time.Duration, now time.Time) *ReactionSession {
	return &ReactionSession{
		ID:           uuid.NewString(),
		ExpectedWord: normalize(word),
		Limit:        limit,
		Started:      now,
		Deadline:     now.Add(limit),
		done:         make(chan struct{}),
	}
}

// resolve records res if the session is still pending.
//
// Postcondition: Returns true iff this call delivered the resolution.
func (s *ReactionSession) resolve(res ReactionResult) bool {
	won := false
	s.once.Do(func() {
		s.result = res
		won = true
		close(s.done)
	})
	return won
}

// offer resolves the session from typed input observed at time at.
// Input arriving after the deadline resolves as a timeout.
func (s *ReactionSession) offer(input string, at time.Time) bool {
	elapsed := at.Sub(s.Started)
	if at.After(s.Deadline) {
		return s.resolve(ReactionResult{Reason: ReasonTimeout, Elapsed: s.Limit, Input: input})
	}
	if normalize(input) == s.ExpectedWord {
		return s.resolve(ReactionResult{Success: true, Reason: ReasonNone, Elapsed: elapsed, Input: input})
	}
	return s.resolve(ReactionResult{Reason: ReasonTypo, Elapsed: elapsed, Input: input})
}

// Cancel resolves the session as a failure if it is still pending.
func (s *ReactionSession) Cancel(at time.Time) bool {
	return s.resolve(ReactionResult{Reason: ReasonCancelled, Elapsed: at.Sub(s.Started)})
}

// Done is closed once the session has resolved.
func (s *ReactionSession) Done() <-chan struct{} {
	return s.done
}

// Resolved reports whether the session has a result.
func (s *ReactionSession) Resolved() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Result returns the resolution and whether one exists yet.
func (s *ReactionSession) Result() (ReactionResult, bool) {
	select {
	case <-s.done:
		return s.result, true
	default:
		return ReactionResult{}, false
	}
}

// Await blocks until the session resolves, the deadline passes on clk, or ctx
// ends. Whichever comes first decides the result; the loser is discarded.
//
// Postcondition: The returned result is the session's only resolution.
func (s *ReactionSession) Await(ctx context.Context, clk clock.Clock) ReactionResult {
	remaining := s.Deadline.Sub(clk.Now())
	select {
	case <-s.done:
	case <-clk.After(remaining):
		s.resolve(ReactionResult{Reason: ReasonTimeout, Elapsed: s.Limit})
	case <-ctx.Done():
		s.resolve(ReactionResult{Reason: ReasonCancelled, Elapsed: clk.Now().Sub(s.Started)})
	}
	<-s.done
	return s.result
}
