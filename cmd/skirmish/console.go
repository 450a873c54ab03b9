package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cory-johannsen/keystrike/internal/game/clock"
	"github.com/cory-johannsen/keystrike/internal/game/combat"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
	"github.com/cory-johannsen/keystrike/internal/game/turn"
)

// consolePresenter prints encounter events and holds animations for a fixed delay.
type consolePresenter struct {
	mu    sync.Mutex
	out   io.Writer
	clock clock.Clock
	delay time.Duration

	overOnce sync.Once
	over     chan struct{}
}

func newConsolePresenter(out io.Writer, clk clock.Clock, delay time.Duration) *consolePresenter {
	return &consolePresenter{out: out, clock: clk, delay: delay, over: make(chan struct{})}
}

func (p *consolePresenter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *consolePresenter) hold(ctx context.Context) error {
	if p.delay <= 0 {
		return nil
	}
	select {
	case <-p.clock.After(p.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *consolePresenter) MoveRequested(ctx context.Context, id string, from, to grid.Coord) error {
	p.printf("  %s moves %s -> %s", id, from, to)
	return p.hold(ctx)
}

func (p *consolePresenter) AttackAnimationRequested(ctx context.Context, attackerID, targetID string, skill combat.Skill) error {
	p.printf("  %s uses %s on %s", attackerID, skill.Command, targetID)
	return p.hold(ctx)
}

func (p *consolePresenter) DamageApplied(targetID string, amount int) {
	p.printf("  %s takes %d damage", targetID, amount)
}

func (p *consolePresenter) ReactionWindowOpened(word string, limit time.Duration) {
	p.printf("!! incoming: type %q within %s", word, limit)
}

func (p *consolePresenter) ReactionResolved(success bool) {
	if success {
		p.printf("!! defended")
		return
	}
	p.printf("!! hit")
}

func (p *consolePresenter) PhaseChanged(_, to turn.Phase) {
	switch to {
	case turn.PhasePlayer:
		p.printf("-- your turn --")
	case turn.PhaseEnemy:
		p.printf("-- enemy turn --")
	case turn.PhaseOver:
		p.overOnce.Do(func() { close(p.over) })
	}
}

func (p *consolePresenter) Notice(msg string) {
	p.printf("** %s", msg)
}

// Over is closed once the encounter has ended.
func (p *consolePresenter) Over() <-chan struct{} {
	return p.over
}
