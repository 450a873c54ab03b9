package grid

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tile is the terrain stored at one cell.
type Tile struct {
	Terrain string `yaml:"terrain"`
	// Walkable overrides the default of true when set.
	Walkable *bool `yaml:"walkable,omitempty"`
}

// IsWalkable reports whether the tile can be entered.
func (t Tile) IsWalkable() bool {
	return t.Walkable == nil || *t.Walkable
}

// Bounds is an inclusive axial rectangle.
type Bounds struct {
	MinQ int `yaml:"min_q"`
	MaxQ int `yaml:"max_q"`
	MinR int `yaml:"min_r"`
	MaxR int `yaml:"max_r"`
}

// TileDef places or overrides a single tile.
type TileDef struct {
	Q        int    `yaml:"q"`
	R        int    `yaml:"r"`
	Terrain  string `yaml:"terrain"`
	Walkable *bool  `yaml:"walkable,omitempty"`
}

// MapDef is the YAML representation of a battle map.
type MapDef struct {
	ID             string    `yaml:"id"`
	Name           string    `yaml:"name"`
	DefaultTerrain string    `yaml:"default_terrain"`
	Bounds         *Bounds   `yaml:"bounds,omitempty"`
	Tiles          []TileDef `yaml:"tiles"`
	Voids          []Coord   `yaml:"voids"`
}

// Map is an immutable snapshot of terrain keyed by cell.
type Map struct {
	ID    string
	Name  string
	tiles map[Coord]Tile
}

// NewMap builds a Map directly from a tile set.
//
// Postcondition: The returned Map owns a copy of tiles.
func NewMap(id string, tiles map[Coord]Tile) *Map {
	cp := make(map[Coord]Tile, len(tiles))
	for c, t := range tiles {
		cp[c] = t
	}
	return &Map{ID: id, Name: id, tiles: cp}
}

// Tile returns the tile at c and whether one exists.
func (m *Map) Tile(c Coord) (Tile, bool) {
	t, ok := m.tiles[c]
	return t, ok
}

// Len returns the number of cells carrying terrain.
func (m *Map) Len() int {
	return len(m.tiles)
}

// Validate checks the definition for structural errors.
func (d *MapDef) Validate() error {
	var errs []string
	if d.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	if d.Bounds != nil {
		if d.Bounds.MinQ > d.Bounds.MaxQ || d.Bounds.MinR > d.Bounds.MaxR {
			errs = append(errs, "bounds min must not exceed max")
		}
		if d.DefaultTerrain == "" {
			errs = append(errs, "default_terrain is required with bounds")
		}
	}
	if d.Bounds == nil && len(d.Tiles) == 0 {
		errs = append(errs, "map must declare bounds or tiles")
	}
	for i, t := range d.Tiles {
		if t.Terrain == "" {
			errs = append(errs, fmt.Sprintf("tiles[%d] terrain must not be empty", i))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Build materialises the definition into a Map: bounds are filled with the
// default terrain, explicit tiles override, and voids are removed last.
//
// Precondition: d.Validate() returned nil.
func (d *MapDef) Build() *Map {
	tiles := make(map[Coord]Tile)
	if d.Bounds != nil {
		for q := d.Bounds.MinQ; q <= d.Bounds.MaxQ; q++ {
			for r := d.Bounds.MinR; r <= d.Bounds.MaxR; r++ {
				tiles[Coord{Q: q, R: r}] = Tile{Terrain: d.DefaultTerrain}
			}
		}
	}
	for _, t := range d.Tiles {
		tiles[Coord{Q: t.Q, R: t.R}] = Tile{Terrain: t.Terrain, Walkable: t.Walkable}
	}
	for _, v := range d.Voids {
		delete(tiles, v)
	}
	name := d.Name
	if name == "" {
		name = d.ID
	}
	return &Map{ID: d.ID, Name: name, tiles: tiles}
}

// LoadMapFromBytes parses and builds a single map definition.
//
// Postcondition: Returns a non-nil Map or a non-nil error.
func LoadMapFromBytes(data []byte) (*Map, error) {
	var def MapDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing map YAML: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validating map %q: %w", def.ID, err)
	}
	return def.Build(), nil
}

// LoadMaps reads every *.yaml file in dir and returns maps keyed by ID.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-empty map or a non-nil error; IDs are unique.
func LoadMaps(dir string) (map[string]*Map, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading map dir %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make(map[string]*Map, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		m, err := LoadMapFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if _, dup := out[m.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate map id %q", name, m.ID)
		}
		out[m.ID] = m
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no maps found in %q", dir)
	}
	return out, nil
}
