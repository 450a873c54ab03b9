package grid_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/keystrike/internal/game/grid"
)

const arenaYAML = `
id: arena
name: Arena
default_terrain: sand
bounds: {min_q: 0, max_q: 3, min_r: 0, max_r: 2}
tiles:
  - {q: 1, r: 1, terrain: pillar, walkable: false}
  - {q: 9, r: 9, terrain: sand}
voids:
  - {q: 3, r: 2}
`

func TestLoadMapFromBytes(t *testing.T) {
	m, err := grid.LoadMapFromBytes([]byte(arenaYAML))
	require.NoError(t, err)
	assert.Equal(t, "arena", m.ID)
	assert.Equal(t, "Arena", m.Name)
	assert.Equal(t, 4*3-1+1, m.Len())

	pillar, ok := m.Tile(grid.Coord{Q: 1, R: 1})
	require.True(t, ok)
	assert.False(t, pillar.IsWalkable())

	_, ok = m.Tile(grid.Coord{Q: 3, R: 2})
	assert.False(t, ok, "void removed")

	extra, ok := m.Tile(grid.Coord{Q: 9, R: 9})
	require.True(t, ok)
	assert.True(t, extra.IsWalkable())
}

func TestLoadMapFromBytes_Invalid(t *testing.T) {
	_, err := grid.LoadMapFromBytes([]byte("name: nothing\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id must not be empty")

	_, err = grid.LoadMapFromBytes([]byte("id: x\nbounds: {min_q: 2, max_q: 1, min_r: 0, max_r: 0}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_terrain")
}

func TestLoadMaps(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arena.yaml"), []byte(arenaYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	maps, err := grid.LoadMaps(dir)
	require.NoError(t, err)
	require.Contains(t, maps, "arena")
}

func TestLoadMaps_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(arenaYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(arenaYAML), 0644))
	_, err := grid.LoadMaps(dir)
	assert.Error(t, err)
}

func TestLoadMaps_Empty(t *testing.T) {
	_, err := grid.LoadMaps(t.TempDir())
	assert.Error(t, err)
}
