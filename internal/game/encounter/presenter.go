package encounter

import (
	"context"
	"time"

	"github.com/cory-johannsen/keystrike/internal/game/combat"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
	"github.com/cory-johannsen/keystrike/internal/game/turn"
)

// Presenter renders what the encounter does. The session blocks on
// MoveRequested and AttackAnimationRequested until they return; every other
// method is a notification and must return promptly.
//
// Presenter methods must not call back into the Session.
type Presenter interface {
	// MoveRequested animates id moving one cell. It returns once the move is shown.
	MoveRequested(ctx context.Context, id string, from, to grid.Coord) error
	// AttackAnimationRequested animates attackerID using skill on targetID.
	AttackAnimationRequested(ctx context.Context, attackerID, targetID string, skill combat.Skill) error
	DamageApplied(targetID string, amount int)
	ReactionWindowOpened(word string, limit time.Duration)
	ReactionResolved(success bool)
	PhaseChanged(from, to turn.Phase)
	// Notice carries free-form messages: unlocks, script output, outcome lines.
	Notice(msg string)
}

// NopPresenter completes every request immediately and ignores notifications.
type NopPresenter struct{}

func (NopPresenter) MoveRequested(context.Context, string, grid.Coord, grid.Coord) error { return nil }

func (NopPresenter) AttackAnimationRequested(context.Context, string, string, combat.Skill) error {
	return nil
}

func (NopPresenter) DamageApplied(string, int)                {}
func (NopPresenter) ReactionWindowOpened(string, time.Duration) {}
func (NopPresenter) ReactionResolved(bool)                     {}
func (NopPresenter) PhaseChanged(turn.Phase, turn.Phase)       {}
func (NopPresenter) Notice(string)                             {}
