// Package combat holds the state of the units taking part in an encounter:
// health, action points, position, and the skills they can use.
package combat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cory-johannsen/keystrike/internal/game/grid"
)

// ErrInsufficientResource is returned when a combatant cannot pay an AP cost.
var ErrInsufficientResource = errors.New("insufficient action points")

// Faction distinguishes the player from enemies.
type Faction int

const (
	FactionPlayer Faction = iota
	FactionEnemy
)

// String returns a human-readable faction label.
func (f Faction) String() string {
	switch f {
	case FactionPlayer:
		return "player"
	case FactionEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// Tag classifies a skill's delivery. It picks the reaction word the defender must type.
type Tag string

const (
	// TagAuto derives melee or ranged from the skill's range.
	TagAuto   Tag = ""
	TagMelee  Tag = "melee"
	TagRanged Tag = "ranged"
)

// Valid reports whether t is a known tag.
func (t Tag) Valid() bool {
	return t == TagAuto || t == TagMelee || t == TagRanged
}

// Skill is an immutable attack definition.
type Skill struct {
	// Command is the word typed to use the skill.
	Command string `yaml:"command" json:"command"`
	// Cost is the AP spent on use.
	Cost   int `yaml:"cost" json:"cost"`
	Damage int `yaml:"damage" json:"damage"`
	// Range is the maximum distance in cells at which the skill can be used.
	Range int `yaml:"range" json:"range"`
	Tag   Tag `yaml:"tag" json:"tag"`
	// ReactionTime is the defender's window when an enemy uses the skill.
	ReactionTime time.Duration `yaml:"reaction_time" json:"reaction_time"`
	Description  string        `yaml:"description" json:"description"`
}

// Validate checks the skill definition.
func (s Skill) Validate() error {
	var errs []string
	if strings.TrimSpace(s.Command) == "" {
		errs = append(errs, "command must not be empty")
	}
	if strings.ContainsAny(strings.TrimSpace(s.Command), " \t") {
		errs = append(errs, fmt.Sprintf("command %q must be a single word", s.Command))
	}
	if s.Cost < 0 {
		errs = append(errs, "cost must be >= 0")
	}
	if s.Damage < 0 {
		errs = append(errs, "damage must be >= 0")
	}
	if s.Range < 0 {
		errs = append(errs, "range must be >= 0")
	}
	if !s.Tag.Valid() {
		errs = append(errs, fmt.Sprintf("tag %q must be one of [melee, ranged] or empty", s.Tag))
	}
	if s.ReactionTime < 0 {
		errs = append(errs, "reaction_time must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Combatant is one unit in an encounter. Its fields are mutated only through
// its methods; callers serialise access.
type Combatant struct {
	ID        string
	Name      string
	Faction   Faction
	Archetype string
	// AIProfile names the behavior profile driving an enemy. Empty for the player.
	AIProfile string
	Position  grid.Coord
	CurrentHP int
	MaxHP     int
	CurrentAP int
	MaxAP     int
	Skills    []Skill
}

// IsAlive reports whether the combatant has health remaining.
//
// Postcondition: Returns true iff CurrentHP > 0.
func (c *Combatant) IsAlive() bool {
	return c.CurrentHP > 0
}

// IsPlayer reports whether this combatant belongs to the player faction.
func (c *Combatant) IsPlayer() bool { return c.Faction == FactionPlayer }

// ApplyDamage reduces CurrentHP by amount, flooring at zero, and returns the
// health actually removed.
//
// Precondition: amount < 0 is treated as 0.
// Postcondition: CurrentHP >= 0.
func (c *Combatant) ApplyDamage(amount int) int {
	if amount <= 0 || c.CurrentHP <= 0 {
		return 0
	}
	applied := min(amount, c.CurrentHP)
	c.CurrentHP -= applied
	return applied
}

// SpendResource deducts amount AP.
//
// Precondition: amount >= 0.
// Postcondition: On success CurrentAP decreases by amount; on
// ErrInsufficientResource CurrentAP is unchanged.
func (c *Combatant) SpendResource(amount int) error {
	if amount < 0 {
		return fmt.Errorf("spend %d: amount must be >= 0", amount)
	}
	if c.CurrentAP < amount {
		return fmt.Errorf("%s needs %d AP, has %d: %w", c.Name, amount, c.CurrentAP, ErrInsufficientResource)
	}
	c.CurrentAP -= amount
	return nil
}

// DrainResource removes up to amount AP, flooring at zero, and returns the AP removed.
func (c *Combatant) DrainResource(amount int) int {
	if amount <= 0 {
		return 0
	}
	drained := min(amount, c.CurrentAP)
	c.CurrentAP -= drained
	return drained
}

// RestoreResource adds amount AP capped at MaxAP and returns the AP gained.
//
// Postcondition: CurrentAP <= MaxAP.
func (c *Combatant) RestoreResource(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := c.CurrentAP
	c.CurrentAP = min(c.MaxAP, c.CurrentAP+amount)
	return c.CurrentAP - before
}

// Skill looks up a skill by command word, ignoring case and surrounding space.
func (c *Combatant) Skill(word string) (Skill, bool) {
	w := NormalizeWord(word)
	for _, s := range c.Skills {
		if NormalizeWord(s.Command) == w {
			return s, true
		}
	}
	return Skill{}, false
}

// AddSkill appends s unless a skill with the same command is already known.
//
// Postcondition: Returns true iff s was added.
func (c *Combatant) AddSkill(s Skill) bool {
	if _, ok := c.Skill(s.Command); ok {
		return false
	}
	c.Skills = append(c.Skills, s)
	return true
}

// CommandWords returns the command words of all known skills in declaration order.
func (c *Combatant) CommandWords() []string {
	out := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		out = append(out, s.Command)
	}
	return out
}

// NormalizeWord case-folds and trims a typed or configured word.
func NormalizeWord(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
