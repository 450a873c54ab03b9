// Package ai decides what an enemy does on its turn: pick a target, then
// chase, retreat, attack, or hold position according to its behavior profile.
//
// Profiles are loaded from YAML. A profile may name a Lua precondition hook;
// when the hook does not return true the enemy holds position.
package ai

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/keystrike/internal/game/combat"
)

// Behavior is an enemy's tactical policy. It is a closed set.
type Behavior string

const (
	// BehaviorAggressive closes to preferred distance, then attacks.
	BehaviorAggressive Behavior = "aggressive"
	// BehaviorKiting keeps between retreat and preferred distance.
	BehaviorKiting Behavior = "kiting"
)

// TargetRule selects among candidate targets.
type TargetRule string

const (
	RuleClosest      TargetRule = "closest"
	RuleLowestHealth TargetRule = "lowest_health"
	RuleRandom       TargetRule = "random"
)

// Profile is the immutable behavior definition for an enemy archetype.
// Distances are in cells.
type Profile struct {
	ID                string     `yaml:"id"`
	Description       string     `yaml:"description"`
	Behavior          Behavior   `yaml:"behavior"`
	PreferredDistance int        `yaml:"preferred_distance"`
	RetreatDistance   int        `yaml:"retreat_distance"`
	ChaseDistance     int        `yaml:"chase_distance"`
	MeleeThreshold    int        `yaml:"melee_threshold"`
	TargetRule        TargetRule `yaml:"target_rule"`
	// Precondition is a Lua function name called with the enemy's ID; empty means always act.
	Precondition string `yaml:"precondition"`
}

// Validate checks all required fields and cross-field constraints.
//
// Postcondition: nil return guarantees a non-empty ID, a known behavior and
// target rule, non-negative distances, and for kiting
// retreat <= preferred <= chase.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return errors.New("ai.Profile: ID must not be empty")
	}
	var errs []string
	switch p.Behavior {
	case BehaviorAggressive, BehaviorKiting:
	default:
		errs = append(errs, fmt.Sprintf("behavior must be one of [aggressive, kiting], got %q", p.Behavior))
	}
	switch p.TargetRule {
	case RuleClosest, RuleLowestHealth, RuleRandom, "":
	default:
		errs = append(errs, fmt.Sprintf("target_rule must be one of [closest, lowest_health, random], got %q", p.TargetRule))
	}
	if p.PreferredDistance < 0 || p.RetreatDistance < 0 || p.ChaseDistance < 0 || p.MeleeThreshold < 0 {
		errs = append(errs, "distances must be >= 0")
	}
	if p.Behavior == BehaviorKiting {
		if p.RetreatDistance > p.PreferredDistance {
			errs = append(errs, "retreat_distance must not exceed preferred_distance")
		}
		if p.PreferredDistance > p.ChaseDistance {
			errs = append(errs, "preferred_distance must not exceed chase_distance")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("ai.Profile %q: %s", p.ID, strings.Join(errs, "; "))
	}
	return nil
}

// Rule returns the target rule, defaulting to RuleClosest.
func (p *Profile) Rule() TargetRule {
	if p.TargetRule == "" {
		return RuleClosest
	}
	return p.TargetRule
}

// ReactionWords are the defensive words a defender types.
type ReactionWords struct {
	Block string
	Dodge string
}

// ReactionWord picks the word the defender must type against s. An explicit
// tag wins; otherwise skills reaching no further than MeleeThreshold are blocked
// and longer-range skills are dodged.
func (p *Profile) ReactionWord(s combat.Skill, w ReactionWords) string {
	switch s.Tag {
	case combat.TagMelee:
		return w.Block
	case combat.TagRanged:
		return w.Dodge
	}
	if s.Range <= p.MeleeThreshold {
		return w.Block
	}
	return w.Dodge
}

// yamlProfileFile wraps the YAML top-level key.
type yamlProfileFile struct {
	Profile *Profile `yaml:"profile"`
}

// LoadProfiles reads all *.yaml files from dir and returns parsed Profiles in file-name order.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns error if any YAML file fails to parse or validate.
func LoadProfiles(dir string) ([]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ai.LoadProfiles: reading %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var profiles []*Profile
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("ai.LoadProfiles: reading %s: %w", name, err)
		}
		var f yamlProfileFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("ai.LoadProfiles: parsing %s: %w", name, err)
		}
		if f.Profile == nil {
			return nil, fmt.Errorf("ai.LoadProfiles: %s missing top-level 'profile' key", name)
		}
		if err := f.Profile.Validate(); err != nil {
			return nil, fmt.Errorf("ai.LoadProfiles: %s: %w", name, err)
		}
		profiles = append(profiles, f.Profile)
	}
	return profiles, nil
}
