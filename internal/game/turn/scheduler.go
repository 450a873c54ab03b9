// Package turn sequences the player and enemy phases of an encounter.
package turn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/cory-johannsen/keystrike/internal/game/clock"
)

// Phase is the scheduler state. Exactly one is active at any instant.
type Phase string

const (
	PhasePlayer Phase = "player"
	PhaseEnemy  Phase = "enemy"
	// PhaseOver is terminal: no further transitions are accepted.
	PhaseOver Phase = "over"
)

const (
	evEndPlayerTurn = "end_player_turn"
	evEndEnemyPhase = "end_enemy_phase"
	evForcePlayer   = "force_player"
	evTerminate     = "terminate"
)

var (
	// ErrNotPlayerPhase is returned when a player-only request arrives outside the player phase.
	ErrNotPlayerPhase = errors.New("not the player phase")
	// ErrNotEnemyPhase is returned when the enemy phase is run outside the enemy phase.
	ErrNotEnemyPhase = errors.New("not the enemy phase")
	// ErrEnemyPhaseActive is returned when the enemy phase is entered while already running.
	ErrEnemyPhaseActive = errors.New("enemy phase already running")
	// ErrTerminated is returned once the scheduler has reached PhaseOver.
	ErrTerminated = errors.New("encounter is over")
)

// Transition records one phase change.
type Transition struct {
	From  Phase
	To    Phase
	Event string
}

// Scheduler owns the turn phase. It is safe for concurrent use.
type Scheduler struct {
	mu        sync.Mutex
	machine   *fsm.FSM
	clock     clock.Clock
	delay     time.Duration
	logger    *zap.Logger
	running   atomic.Bool
	gen       uint64
	changed   chan struct{}
	pending   []Transition
	observers []func(Transition)
	reason    string
}

// NewScheduler creates a Scheduler in PhasePlayer. delay is the pause between
// consecutive enemy turns.
//
// Precondition: clk and logger must be non-nil; delay >= 0.
// Postcondition: Phase() == PhasePlayer.
func NewScheduler(clk clock.Clock, delay time.Duration, logger *zap.Logger) *Scheduler {
	if clk == nil || logger == nil {
		panic("turn.NewScheduler: clock and logger must not be nil")
	}
	s := &Scheduler{
		clock:   clk,
		delay:   delay,
		logger:  logger,
		changed: make(chan struct{}),
	}
	s.machine = fsm.NewFSM(
		string(PhasePlayer),
		fsm.Events{
			{Name: evEndPlayerTurn, Src: []string{string(PhasePlayer)}, Dst: string(PhaseEnemy)},
			{Name: evEndEnemyPhase, Src: []string{string(PhaseEnemy)}, Dst: string(PhasePlayer)},
			{Name: evForcePlayer, Src: []string{string(PhaseEnemy)}, Dst: string(PhasePlayer)},
			{Name: evTerminate, Src: []string{string(PhasePlayer), string(PhaseEnemy)}, Dst: string(PhaseOver)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				s.recordLocked(Transition{From: Phase(e.Src), To: Phase(e.Dst), Event: e.Event})
			},
		},
	)
	return s
}

// recordLocked runs inside fsm.Event, which is only called with s.mu held.
func (s *Scheduler) recordLocked(tr Transition) {
	s.pending = append(s.pending, tr)
	close(s.changed)
	s.changed = make(chan struct{})
	s.logger.Debug("phase transition",
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.String("event", tr.Event),
	)
}

// OnTransition registers fn to observe every phase change. Observers run
// after the scheduler lock is released, in transition order per caller.
func (s *Scheduler) OnTransition(fn func(Transition)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Phase returns the current phase.
func (s *Scheduler) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Phase(s.machine.Current())
}

// Reason returns why the scheduler terminated, or "".
func (s *Scheduler) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// EnemyPhaseRunning reports whether RunEnemyPhase is in progress.
func (s *Scheduler) EnemyPhaseRunning() bool {
	return s.running.Load()
}

// fire sends event to the machine and delivers resulting transitions to
// observers. Caller cancellation never aborts a transition half way.
func (s *Scheduler) fire(ctx context.Context, event string) error {
	s.mu.Lock()
	err := s.machine.Event(context.WithoutCancel(ctx), event)
	pending := s.pending
	s.pending = nil
	observers := append([]func(Transition){}, s.observers...)
	s.mu.Unlock()

	for _, tr := range pending {
		for _, fn := range observers {
			fn(tr)
		}
	}
	return err
}

// EndPlayerTurn moves PhasePlayer to PhaseEnemy.
//
// Postcondition: On nil error Phase() == PhaseEnemy.
func (s *Scheduler) EndPlayerTurn(ctx context.Context) error {
	switch s.Phase() {
	case PhaseOver:
		return ErrTerminated
	case PhaseEnemy:
		return ErrNotPlayerPhase
	}
	if err := s.fire(ctx, evEndPlayerTurn); err != nil {
		return s.translate(err, ErrNotPlayerPhase)
	}
	return nil
}

// RunEnemyPhase lets each enemy in ids act in order via take, pausing the
// configured delay between enemies, then returns to PhasePlayer. A second
// concurrent call is dropped with ErrEnemyPhaseActive. The run stops early
// when the scheduler terminates, is forced back to the player, or ctx ends.
//
// Precondition: Phase() == PhaseEnemy.
// Postcondition: On nil error Phase() is PhasePlayer or PhaseOver.
func (s *Scheduler) RunEnemyPhase(ctx context.Context, ids []string, take func(ctx context.Context, id string)) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("enemy phase re-entry dropped")
		return ErrEnemyPhaseActive
	}
	defer s.running.Store(false)

	s.mu.Lock()
	phase := Phase(s.machine.Current())
	gen := s.gen
	s.mu.Unlock()
	switch phase {
	case PhaseOver:
		return ErrTerminated
	case PhasePlayer:
		return ErrNotEnemyPhase
	}

	for i, id := range ids {
		if i > 0 && s.delay > 0 {
			select {
			case <-s.clock.After(s.delay):
			case <-ctx.Done():
			}
		}
		if !s.stillRunning(ctx, gen) {
			s.logger.Debug("enemy phase interrupted", zap.Int("acted", i), zap.Int("queued", len(ids)))
			return nil
		}
		take(ctx, id)
	}

	if !s.stillRunning(ctx, gen) {
		return nil
	}
	if err := s.fire(ctx, evEndEnemyPhase); err != nil {
		return s.translate(err, ErrNotEnemyPhase)
	}
	return nil
}

func (s *Scheduler) stillRunning(ctx context.Context, gen uint64) bool {
	if ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen && s.machine.Is(string(PhaseEnemy))
}

// Terminate moves to PhaseOver and suspends all further transitions.
//
// Postcondition: Phase() == PhaseOver. Returns false if already over.
func (s *Scheduler) Terminate(ctx context.Context, reason string) bool {
	s.mu.Lock()
	if s.machine.Is(string(PhaseOver)) {
		s.mu.Unlock()
		return false
	}
	s.reason = reason
	s.gen++
	s.mu.Unlock()
	if err := s.fire(ctx, evTerminate); err != nil {
		s.logger.Warn("terminate rejected", zap.Error(err))
		return false
	}
	s.logger.Info("encounter terminated", zap.String("reason", reason))
	return true
}

// ForceReturnToPlayer abandons an in-flight enemy phase and restores
// PhasePlayer. It does nothing once the scheduler is over.
//
// Postcondition: Returns true iff the phase is PhasePlayer afterwards.
func (s *Scheduler) ForceReturnToPlayer(ctx context.Context) bool {
	s.mu.Lock()
	s.gen++
	phase := Phase(s.machine.Current())
	s.mu.Unlock()
	switch phase {
	case PhasePlayer:
		return true
	case PhaseOver:
		return false
	}
	if err := s.fire(ctx, evForcePlayer); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return true
		}
		s.logger.Warn("force return rejected", zap.Error(err))
		return s.Phase() == PhasePlayer
	}
	s.logger.Info("forced return to player phase")
	return true
}

// WaitFor blocks until the phase is one of phases or ctx ends.
func (s *Scheduler) WaitFor(ctx context.Context, phases ...Phase) (Phase, error) {
	for {
		s.mu.Lock()
		cur := Phase(s.machine.Current())
		ch := s.changed
		s.mu.Unlock()
		for _, p := range phases {
			if cur == p {
				return cur, nil
			}
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return cur, ctx.Err()
		}
	}
}

// translate maps machine errors onto the package sentinels.
func (s *Scheduler) translate(err error, wrongPhase error) error {
	if s.Phase() == PhaseOver {
		return ErrTerminated
	}
	var invalid fsm.InvalidEventError
	if errors.As(err, &invalid) {
		return fmt.Errorf("%w: %v", wrongPhase, err)
	}
	return err
}
