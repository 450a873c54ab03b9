package ruleset

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/keystrike/internal/game/combat"
)

// Catalog indexes skill definitions by their normalized command word.
type Catalog struct {
	skills map[string]combat.Skill
}

// NewCatalog builds a Catalog from skills.
//
// Postcondition: returns error on an invalid skill or a duplicate command word.
func NewCatalog(skills ...combat.Skill) (*Catalog, error) {
	c := &Catalog{skills: make(map[string]combat.Skill, len(skills))}
	for _, s := range skills {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("skill %q: %w", s.Command, err)
		}
		key := combat.NormalizeWord(s.Command)
		if _, dup := c.skills[key]; dup {
			return nil, fmt.Errorf("duplicate skill command %q", key)
		}
		s.Command = key
		c.skills[key] = s
	}
	return c, nil
}

// Skill returns the skill typed as word.
func (c *Catalog) Skill(word string) (combat.Skill, bool) {
	s, ok := c.skills[combat.NormalizeWord(word)]
	return s, ok
}

// Resolve maps command words to skills in order.
//
// Postcondition: returns error naming the first unknown word.
func (c *Catalog) Resolve(words []string) ([]combat.Skill, error) {
	out := make([]combat.Skill, 0, len(words))
	for _, w := range words {
		s, ok := c.Skill(w)
		if !ok {
			return nil, fmt.Errorf("unknown skill %q", w)
		}
		out = append(out, s)
	}
	return out, nil
}

// Commands returns every command word, sorted.
func (c *Catalog) Commands() []string {
	out := make([]string, 0, len(c.skills))
	for k := range c.skills {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type skillFile struct {
	Skills []combat.Skill `yaml:"skills"`
}

// LoadSkills reads every YAML file in dir, each holding a top-level skills list,
// into one Catalog.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns a Catalog or a non-nil error on parse, validation, or
// duplicate command failure.
func LoadSkills(dir string) (*Catalog, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	var all []combat.Skill
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var f skillFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing skill file %s: %w", path, err)
		}
		all = append(all, f.Skills...)
	}
	c, err := NewCatalog(all...)
	if err != nil {
		return nil, fmt.Errorf("loading skills from %s: %w", dir, err)
	}
	return c, nil
}
