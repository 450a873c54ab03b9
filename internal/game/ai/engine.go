package ai

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/keystrike/internal/game/combat"
	"github.com/cory-johannsen/keystrike/internal/game/dice"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
)

// Action is the kind of decision made for one enemy turn.
type Action int

const (
	ActionIdle Action = iota
	ActionMoveToward
	ActionMoveAway
	ActionAttack
)

// String returns a human-readable action label.
func (a Action) String() string {
	switch a {
	case ActionIdle:
		return "idle"
	case ActionMoveToward:
		return "move_toward"
	case ActionMoveAway:
		return "move_away"
	case ActionAttack:
		return "attack"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one enemy turn's deliberation.
type Decision struct {
	Action Action
	Target *combat.Combatant
	// Step is the destination cell for move actions.
	Step grid.Coord
	// Skill is the chosen skill for ActionAttack.
	Skill    combat.Skill
	Distance int
	// Reason explains an idle decision.
	Reason string
}

// Spatial is the subset of grid.Service the engine consults.
type Spatial interface {
	Distance(a, b grid.Coord) int
	Neighbors(c grid.Coord) []grid.Coord
	CanEnter(c grid.Coord) bool
}

// ScriptCaller evaluates Lua precondition hooks.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given scope's VM.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error)
}

// Engine decides enemy turns. It holds no per-turn state.
type Engine struct {
	space  Spatial
	src    dice.Source
	caller ScriptCaller
	scope  string
	logger *zap.Logger
}

// NewEngine constructs an Engine. caller may be nil, in which case profile
// preconditions are ignored.
//
// Precondition: space, src, and logger must not be nil.
func NewEngine(space Spatial, src dice.Source, caller ScriptCaller, scope string, logger *zap.Logger) *Engine {
	if space == nil || src == nil || logger == nil {
		panic("ai.NewEngine: space, src, and logger must not be nil")
	}
	return &Engine{space: space, src: src, caller: caller, scope: scope, logger: logger}
}

// Decide runs one turn of the behavior state machine for self.
//
// Postcondition: ActionAttack is only returned with a skill whose Range >= Distance.
// Move actions carry a Step that is adjacent, walkable, and unoccupied.
func (e *Engine) Decide(self *combat.Combatant, p *Profile, candidates []*combat.Combatant) Decision {
	if p == nil {
		return e.idle(self, Decision{Reason: "no profile"})
	}
	if !e.preconditionHolds(self, p) {
		return e.idle(self, Decision{Reason: "precondition"})
	}

	target := SelectTarget(self, candidates, p.Rule(), e.src, e.space.Distance)
	if target == nil {
		return e.idle(self, Decision{Reason: "no target"})
	}
	d := Decision{Target: target, Distance: e.space.Distance(self.Position, target.Position)}

	switch p.Behavior {
	case BehaviorAggressive:
		if d.Distance > p.PreferredDistance {
			return e.move(self, d, ActionMoveToward)
		}
		return e.attack(self, d)
	case BehaviorKiting:
		switch {
		case d.Distance < p.RetreatDistance:
			return e.move(self, d, ActionMoveAway)
		case d.Distance <= p.PreferredDistance:
			return e.attack(self, d)
		case d.Distance <= p.ChaseDistance:
			return e.move(self, d, ActionMoveToward)
		}
		d.Reason = "out of chase range"
		return e.idle(self, d)
	}
	d.Reason = "unknown behavior"
	return e.idle(self, d)
}

func (e *Engine) preconditionHolds(self *combat.Combatant, p *Profile) bool {
	if p.Precondition == "" || e.caller == nil {
		return true
	}
	val, err := e.caller.CallHook(e.scope, p.Precondition, lua.LString(self.ID))
	if err != nil {
		e.logger.Debug("ai precondition failed", zap.String("enemy", self.ID), zap.String("hook", p.Precondition), zap.Error(err))
		return false
	}
	return val == lua.LTrue
}

// attack picks uniformly among skills that reach the target.
func (e *Engine) attack(self *combat.Combatant, d Decision) Decision {
	var usable []combat.Skill
	for _, s := range self.Skills {
		if s.Range >= d.Distance {
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		d.Reason = "no skill in range"
		return e.idle(self, d)
	}
	d.Action = ActionAttack
	d.Skill = usable[dice.Pick(e.src, len(usable))]
	e.logger.Debug("ai attack",
		zap.String("enemy", self.ID),
		zap.String("target", d.Target.ID),
		zap.String("skill", d.Skill.Command),
		zap.Int("distance", d.Distance),
	)
	return d
}

// move takes one greedy step: the enterable neighbor that minimises
// (toward) or maximises (away) the distance to the target. Ties go to the
// first neighbor in enumeration order. Obstacles are not routed around.
func (e *Engine) move(self *combat.Combatant, d Decision, action Action) Decision {
	found := false
	var best grid.Coord
	bestDist := 0
	for _, n := range e.space.Neighbors(self.Position) {
		if !e.space.CanEnter(n) {
			continue
		}
		nd := e.space.Distance(n, d.Target.Position)
		better := !found ||
			(action == ActionMoveToward && nd < bestDist) ||
			(action == ActionMoveAway && nd > bestDist)
		if better {
			best, bestDist, found = n, nd, true
		}
	}
	if !found {
		d.Reason = "no open neighbor"
		return e.idle(self, d)
	}
	d.Action = action
	d.Step = best
	e.logger.Debug("ai move",
		zap.String("enemy", self.ID),
		zap.Stringer("action", action),
		zap.Stringer("from", self.Position),
		zap.Stringer("to", best),
	)
	return d
}

func (e *Engine) idle(self *combat.Combatant, d Decision) Decision {
	d.Action = ActionIdle
	id := ""
	if self != nil {
		id = self.ID
	}
	e.logger.Debug("ai idle", zap.String("enemy", id), zap.String("reason", d.Reason))
	return d
}
