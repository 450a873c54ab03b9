package ruleset

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/keystrike/internal/config"
	"github.com/cory-johannsen/keystrike/internal/game/ai"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
)

// Content is every static definition an encounter can draw on, cross-checked.
type Content struct {
	Skills     *Catalog
	Profiles   *ai.Registry
	Archetypes map[string]*Archetype
	Classes    map[string]*Class
	Maps       map[string]*grid.Map
	Encounters map[string]*Encounter
}

// LoadContent loads every content directory named in cfg and validates the
// references between them.
//
// Postcondition: a nil error guarantees every encounter can be built.
func LoadContent(cfg config.ContentConfig) (*Content, error) {
	skills, err := LoadSkills(cfg.SkillsDir)
	if err != nil {
		return nil, fmt.Errorf("loading skills: %w", err)
	}
	profiles, err := ai.LoadProfiles(cfg.AIDir)
	if err != nil {
		return nil, fmt.Errorf("loading ai profiles: %w", err)
	}
	reg := ai.NewRegistry()
	for _, p := range profiles {
		if err := reg.Register(p); err != nil {
			return nil, fmt.Errorf("registering ai profile: %w", err)
		}
	}
	archetypes, err := LoadArchetypes(cfg.EnemiesDir)
	if err != nil {
		return nil, fmt.Errorf("loading enemy archetypes: %w", err)
	}
	classes, err := LoadClasses(cfg.ClassesDir)
	if err != nil {
		return nil, fmt.Errorf("loading classes: %w", err)
	}
	maps, err := grid.LoadMaps(cfg.MapsDir)
	if err != nil {
		return nil, fmt.Errorf("loading maps: %w", err)
	}
	encounters, err := LoadEncounters(cfg.EncountersDir)
	if err != nil {
		return nil, fmt.Errorf("loading encounters: %w", err)
	}
	return NewContent(skills, reg, archetypes, classes, maps, encounters)
}

// NewContent indexes the given definitions and validates their references.
func NewContent(skills *Catalog, profiles *ai.Registry, archetypes []*Archetype, classes []*Class, maps map[string]*grid.Map, encounters []*Encounter) (*Content, error) {
	c := &Content{
		Skills:     skills,
		Profiles:   profiles,
		Archetypes: make(map[string]*Archetype, len(archetypes)),
		Classes:    make(map[string]*Class, len(classes)),
		Maps:       maps,
		Encounters: make(map[string]*Encounter, len(encounters)),
	}
	for _, a := range archetypes {
		if _, dup := c.Archetypes[a.ID]; dup {
			return nil, fmt.Errorf("duplicate enemy archetype %q", a.ID)
		}
		c.Archetypes[a.ID] = a
	}
	for _, cl := range classes {
		if _, dup := c.Classes[cl.ID]; dup {
			return nil, fmt.Errorf("duplicate class %q", cl.ID)
		}
		c.Classes[cl.ID] = cl
	}
	for _, e := range encounters {
		if _, dup := c.Encounters[e.ID]; dup {
			return nil, fmt.Errorf("duplicate encounter %q", e.ID)
		}
		c.Encounters[e.ID] = e
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Content) validate() error {
	var errs []string
	for _, id := range sortedKeys(c.Archetypes) {
		a := c.Archetypes[id]
		if _, ok := c.Profiles.Profile(a.AIProfile); !ok {
			errs = append(errs, fmt.Sprintf("enemy archetype %q: unknown ai_profile %q", id, a.AIProfile))
		}
		for _, w := range a.Skills {
			s, ok := c.Skills.Skill(w)
			switch {
			case !ok:
				errs = append(errs, fmt.Sprintf("enemy archetype %q: unknown skill %q", id, w))
			case s.ReactionTime <= 0:
				errs = append(errs, fmt.Sprintf("enemy archetype %q: skill %q needs a positive reaction_time", id, w))
			}
		}
	}
	for _, id := range sortedKeys(c.Classes) {
		cl := c.Classes[id]
		for _, w := range cl.Skills {
			if _, ok := c.Skills.Skill(w); !ok {
				errs = append(errs, fmt.Sprintf("class %q: unknown skill %q", id, w))
			}
		}
		for _, u := range cl.Unlocks {
			if _, ok := c.Skills.Skill(u.Skill); !ok {
				errs = append(errs, fmt.Sprintf("class %q: unknown unlock skill %q", id, u.Skill))
			}
		}
	}
	for _, id := range sortedKeys(c.Encounters) {
		e := c.Encounters[id]
		m, ok := c.Maps[e.Map]
		if !ok {
			errs = append(errs, fmt.Sprintf("encounter %q: unknown map %q", id, e.Map))
		}
		if _, ok := c.Classes[e.Class]; !ok {
			errs = append(errs, fmt.Sprintf("encounter %q: unknown class %q", id, e.Class))
		}
		if m != nil && !walkable(m, e.Player) {
			errs = append(errs, fmt.Sprintf("encounter %q: player spawn %s is not walkable", id, e.Player))
		}
		for _, p := range e.Placements() {
			if _, ok := c.Archetypes[p.Archetype]; !ok {
				errs = append(errs, fmt.Sprintf("encounter %q: unknown archetype %q", id, p.Archetype))
			}
			if m != nil && !walkable(m, p.Coord()) {
				errs = append(errs, fmt.Sprintf("encounter %q: enemy spawn %s is not walkable", id, p.Coord()))
			}
		}
	}
	if len(errs) > 0 {
		return errors.New("content: " + strings.Join(errs, "; "))
	}
	return nil
}

// Encounter returns the encounter with id.
func (c *Content) Encounter(id string) (*Encounter, bool) {
	e, ok := c.Encounters[id]
	return e, ok
}

// EncounterIDs returns every encounter id, sorted.
func (c *Content) EncounterIDs() []string {
	return sortedKeys(c.Encounters)
}

func walkable(m *grid.Map, at grid.Coord) bool {
	t, ok := m.Tile(at)
	return ok && t.IsWalkable()
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
