package ruleset

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/keystrike/internal/game/combat"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
)

// Archetype defines a reusable enemy kind loaded from YAML.
type Archetype struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MaxHP       int    `yaml:"max_hp"`
	MaxAP       int    `yaml:"max_ap"`
	// AIProfile names the behavior profile that drives instances.
	AIProfile string   `yaml:"ai_profile"`
	Skills    []string `yaml:"skills"`
}

// Validate checks that the archetype satisfies basic invariants.
//
// Postcondition: Returns nil iff ID, Name, and AIProfile are non-empty,
// MaxHP >= 1, MaxAP >= 0, and at least one skill is listed.
func (a *Archetype) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("enemy archetype: id must not be empty")
	}
	if a.Name == "" {
		return fmt.Errorf("enemy archetype %q: name must not be empty", a.ID)
	}
	if a.MaxHP < 1 {
		return fmt.Errorf("enemy archetype %q: max_hp must be >= 1", a.ID)
	}
	if a.MaxAP < 0 {
		return fmt.Errorf("enemy archetype %q: max_ap must be >= 0", a.ID)
	}
	if a.AIProfile == "" {
		return fmt.Errorf("enemy archetype %q: ai_profile must not be empty", a.ID)
	}
	if len(a.Skills) == 0 {
		return fmt.Errorf("enemy archetype %q: at least one skill is required", a.ID)
	}
	return nil
}

// Spawn creates a live enemy from the archetype at pos with a fresh instance ID.
//
// Precondition: catalog must hold every skill the archetype lists, each with a
// positive reaction time.
// Postcondition: CurrentHP == MaxHP and CurrentAP == MaxAP.
func (a *Archetype) Spawn(catalog *Catalog, pos grid.Coord) (*combat.Combatant, error) {
	skills, err := catalog.Resolve(a.Skills)
	if err != nil {
		return nil, fmt.Errorf("enemy archetype %q: %w", a.ID, err)
	}
	return &combat.Combatant{
		ID:        a.ID + "-" + uuid.New().String()[:8],
		Name:      a.Name,
		Faction:   combat.FactionEnemy,
		Archetype: a.ID,
		AIProfile: a.AIProfile,
		Position:  pos,
		CurrentHP: a.MaxHP,
		MaxHP:     a.MaxHP,
		CurrentAP: a.MaxAP,
		MaxAP:     a.MaxAP,
		Skills:    skills,
	}, nil
}

// LoadArchetypes reads all .yaml files in dir and parses each as an Archetype.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed, validated archetypes or a non-nil error.
func LoadArchetypes(dir string) ([]*Archetype, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	archetypes := make([]*Archetype, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var a Archetype
		if err := yaml.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("parsing archetype file %s: %w", path, err)
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		archetypes = append(archetypes, &a)
	}
	return archetypes, nil
}
