// Package score tracks combo, score, and typing accuracy for an encounter.
package score

import (
	"math"
	"sync"
	"time"
)

// State is a point-in-time view of the score.
type State struct {
	Score    int `json:"score"`
	Combo    int `json:"combo"`
	MaxCombo int `json:"max_combo"`
}

// Tracker accumulates score and combo. It is safe for concurrent use.
type Tracker struct {
	mu                sync.Mutex
	state             State
	comboBonusPerStep int
}

// NewTracker creates a Tracker awarding comboBonusPerStep per combo step.
//
// Precondition: comboBonusPerStep >= 0.
func NewTracker(comboBonusPerStep int) *Tracker {
	return &Tracker{comboBonusPerStep: comboBonusPerStep}
}

// OnAttackSuccess extends the combo and adds baseScore plus the combo bonus.
//
// Postcondition: Combo increases by 1; MaxCombo >= Combo; returns the points gained.
func (t *Tracker) OnAttackSuccess(baseScore int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Combo++
	t.state.MaxCombo = max(t.state.MaxCombo, t.state.Combo)
	gain := baseScore + t.state.Combo*t.comboBonusPerStep
	t.state.Score += gain
	return gain
}

// OnFailureOrDamage breaks the combo.
//
// Postcondition: Combo == 0; Score and MaxCombo are unchanged.
func (t *Tracker) OnFailureOrDamage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Combo = 0
}

// AddBonus adds points without touching the combo.
func (t *Tracker) AddBonus(points int) {
	if points <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Score += points
}

// State returns a copy of the current score state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Restore replaces the tracked state.
func (t *Tracker) Restore(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
	t.state.MaxCombo = max(s.MaxCombo, s.Combo)
}

// SpeedBonus rewards fast reactions: clamp(1 - reactionTime/limit, 0, 1) * maxBonus,
// rounded to the nearest integer.
//
// Postcondition: Result is in [0, maxBonus] for maxBonus >= 0; 0 when limit <= 0.
func SpeedBonus(reactionTime, limit time.Duration, maxBonus int) int {
	if limit <= 0 || maxBonus <= 0 {
		return 0
	}
	ratio := 1 - float64(reactionTime)/float64(limit)
	ratio = math.Max(0, math.Min(1, ratio))
	return int(math.Round(ratio * float64(maxBonus)))
}
