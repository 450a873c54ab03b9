package ruleset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/keystrike/internal/game/grid"
)

// Placement positions one enemy archetype on the map.
type Placement struct {
	Archetype string `yaml:"archetype"`
	Q         int    `yaml:"q"`
	R         int    `yaml:"r"`
}

// Coord returns the placement cell.
func (p Placement) Coord() grid.Coord { return grid.Coord{Q: p.Q, R: p.R} }

// Wave is a group of enemies that enters once the previous group is cleared.
type Wave struct {
	Name    string      `yaml:"name"`
	Enemies []Placement `yaml:"enemies"`
}

// Encounter is a playable layout: a map, a player class and spawn, and enemies.
// Enemies is the opening group; Waves follow it in order.
type Encounter struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Map         string      `yaml:"map"`
	Class       string      `yaml:"class"`
	Player      grid.Coord  `yaml:"player"`
	Enemies     []Placement `yaml:"enemies"`
	Waves       []Wave      `yaml:"waves"`
	// ActivationRange overrides combat.activation_range when positive.
	ActivationRange int `yaml:"activation_range"`
}

// Validate checks field-level invariants. Cross references are checked by Content.
func (e *Encounter) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("encounter: id must not be empty")
	}
	if e.Map == "" {
		return fmt.Errorf("encounter %q: map must not be empty", e.ID)
	}
	if e.Class == "" {
		return fmt.Errorf("encounter %q: class must not be empty", e.ID)
	}
	if len(e.Enemies) == 0 {
		return fmt.Errorf("encounter %q: at least one enemy is required", e.ID)
	}
	if e.ActivationRange < 0 {
		return fmt.Errorf("encounter %q: activation_range must be >= 0", e.ID)
	}
	for w := range e.WaveCount() {
		group := e.Wave(w)
		if len(group) == 0 {
			return fmt.Errorf("encounter %q: wave %d has no enemies", e.ID, w+1)
		}
		seen := map[grid.Coord]bool{}
		if w == 0 {
			seen[e.Player] = true
		}
		for i, p := range group {
			if p.Archetype == "" {
				return fmt.Errorf("encounter %q: wave %d enemy %d names no archetype", e.ID, w+1, i)
			}
			if seen[p.Coord()] {
				return fmt.Errorf("encounter %q: cell %s is used twice in wave %d", e.ID, p.Coord(), w+1)
			}
			seen[p.Coord()] = true
		}
	}
	return nil
}

// WaveCount is the number of enemy groups, counting the opening one.
func (e *Encounter) WaveCount() int {
	return 1 + len(e.Waves)
}

// Wave returns the placements of group i, where 0 is the opening group.
//
// Precondition: 0 <= i < WaveCount().
func (e *Encounter) Wave(i int) []Placement {
	if i == 0 {
		return e.Enemies
	}
	return e.Waves[i-1].Enemies
}

// WaveName returns the display name of group i, falling back to its number.
func (e *Encounter) WaveName(i int) string {
	if i > 0 && e.Waves[i-1].Name != "" {
		return e.Waves[i-1].Name
	}
	return fmt.Sprintf("wave %d", i+1)
}

// Placements returns every placement across all waves.
func (e *Encounter) Placements() []Placement {
	var out []Placement
	for w := range e.WaveCount() {
		out = append(out, e.Wave(w)...)
	}
	return out
}

// LoadEncounters reads all .yaml files in dir and parses each as an Encounter.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed, validated encounters or a non-nil error.
func LoadEncounters(dir string) ([]*Encounter, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make([]*Encounter, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var e Encounter
		if err := yaml.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("parsing encounter file %s: %w", path, err)
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, &e)
	}
	return out, nil
}
