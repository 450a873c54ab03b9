// Package ruleset loads the static content an encounter is built from:
// skills, enemy archetypes, player classes, and encounter layouts.
package ruleset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// yamlFiles returns every .yaml or .yml file directly inside dir, in
// lexicographic order.
func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
