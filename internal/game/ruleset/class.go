package ruleset

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/keystrike/internal/game/combat"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
)

// Unlock grants a skill once the player's kill count reaches Kills.
type Unlock struct {
	Kills int    `yaml:"kills"`
	Skill string `yaml:"skill"`
}

// Class defines a playable loadout.
//
// Precondition: ID and Name must be non-empty after loading.
type Class struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	MaxHP       int      `yaml:"max_hp"`
	MaxAP       int      `yaml:"max_ap"`
	Skills      []string `yaml:"skills"`
	Unlocks     []Unlock `yaml:"unlocks"`
}

// Validate checks that the class satisfies basic invariants.
func (c *Class) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("class: id must not be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("class %q: name must not be empty", c.ID)
	}
	if c.MaxHP < 1 {
		return fmt.Errorf("class %q: max_hp must be >= 1", c.ID)
	}
	if c.MaxAP < 1 {
		return fmt.Errorf("class %q: max_ap must be >= 1", c.ID)
	}
	if len(c.Skills) == 0 {
		return fmt.Errorf("class %q: at least one skill is required", c.ID)
	}
	for _, u := range c.Unlocks {
		if u.Kills < 1 {
			return fmt.Errorf("class %q: unlock %q needs kills >= 1", c.ID, u.Skill)
		}
		if u.Skill == "" {
			return fmt.Errorf("class %q: unlock at %d kills names no skill", c.ID, u.Kills)
		}
	}
	return nil
}

// UnlocksAt returns the skills granted at exactly kills, in declaration order.
func (c *Class) UnlocksAt(kills int) []string {
	var out []string
	for _, u := range c.Unlocks {
		if u.Kills == kills {
			out = append(out, u.Skill)
		}
	}
	return out
}

// UnlocksThrough returns every skill granted at or below kills, ordered by
// kill threshold.
func (c *Class) UnlocksThrough(kills int) []string {
	us := append([]Unlock(nil), c.Unlocks...)
	sort.SliceStable(us, func(i, j int) bool { return us[i].Kills < us[j].Kills })
	var out []string
	for _, u := range us {
		if u.Kills <= kills {
			out = append(out, u.Skill)
		}
	}
	return out
}

// NewPlayer creates the player combatant for this class at pos.
//
// Postcondition: HP and AP start at their maxima.
func (c *Class) NewPlayer(id, name string, catalog *Catalog, pos grid.Coord) (*combat.Combatant, error) {
	skills, err := catalog.Resolve(c.Skills)
	if err != nil {
		return nil, fmt.Errorf("class %q: %w", c.ID, err)
	}
	if name == "" {
		name = c.Name
	}
	return &combat.Combatant{
		ID:        id,
		Name:      name,
		Faction:   combat.FactionPlayer,
		Archetype: c.ID,
		Position:  pos,
		CurrentHP: c.MaxHP,
		MaxHP:     c.MaxHP,
		CurrentAP: c.MaxAP,
		MaxAP:     c.MaxAP,
		Skills:    skills,
	}, nil
}

// LoadClasses reads all .yaml files in dir and parses each as a Class.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed, validated classes or a non-nil error.
func LoadClasses(dir string) ([]*Class, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	classes := make([]*Class, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var c Class
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parsing class file %s: %w", path, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		classes = append(classes, &c)
	}
	return classes, nil
}
