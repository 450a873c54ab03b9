package ai

import (
	"github.com/cory-johannsen/keystrike/internal/game/combat"
	"github.com/cory-johannsen/keystrike/internal/game/dice"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
)

// DistanceFunc measures cells between two coordinates.
type DistanceFunc func(a, b grid.Coord) int

// SelectTarget picks a living candidate by rule. Ties go to the earlier candidate.
// Unknown rules fall back to RuleClosest.
//
// Postcondition: Returns nil iff no candidate is alive; callers treat nil as
// "no valid target".
func SelectTarget(self *combat.Combatant, candidates []*combat.Combatant, rule TargetRule, src dice.Source, dist DistanceFunc) *combat.Combatant {
	living := make([]*combat.Combatant, 0, len(candidates))
	for _, c := range candidates {
		if c != nil && c.IsAlive() {
			living = append(living, c)
		}
	}
	if len(living) == 0 {
		return nil
	}

	switch rule {
	case RuleRandom:
		return living[dice.Pick(src, len(living))]
	case RuleLowestHealth:
		best := living[0]
		for _, c := range living[1:] {
			if c.CurrentHP < best.CurrentHP {
				best = c
			}
		}
		return best
	default:
		best := living[0]
		bestDist := dist(self.Position, best.Position)
		for _, c := range living[1:] {
			if d := dist(self.Position, c.Position); d < bestDist {
				best, bestDist = c, d
			}
		}
		return best
	}
}
