package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/keystrike/internal/config"
	"github.com/cory-johannsen/keystrike/internal/game/clock"
	"github.com/cory-johannsen/keystrike/internal/game/command"
	"github.com/cory-johannsen/keystrike/internal/game/dice"
	"github.com/cory-johannsen/keystrike/internal/game/encounter"
	"github.com/cory-johannsen/keystrike/internal/game/ruleset"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	root := wd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root
		}
		parent := filepath.Dir(root)
		if parent == root {
			t.Fatalf("could not find repo root from %s", wd)
		}
		root = parent
	}
}

func newTestDriver(t *testing.T, input string) (*driver, *bytes.Buffer) {
	t.Helper()
	root := repoRoot(t)
	content, err := ruleset.LoadContent(config.ContentConfig{
		SkillsDir:     filepath.Join(root, "content", "skills"),
		EnemiesDir:    filepath.Join(root, "content", "enemies"),
		AIDir:         filepath.Join(root, "content", "ai"),
		ClassesDir:    filepath.Join(root, "content", "classes"),
		MapsDir:       filepath.Join(root, "content", "maps"),
		EncountersDir: filepath.Join(root, "content", "encounters"),
		ScriptsDir:    filepath.Join(root, "content", "scripts"),
	})
	require.NoError(t, err)

	v := config.Defaults()
	cfg, err := config.LoadFromViper(v)
	require.NoError(t, err)

	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	var out bytes.Buffer
	presenter := newConsolePresenter(&out, clk, 0)
	sess, err := encounter.NewSession(encounter.Deps{
		Content:   content,
		Encounter: "training_grounds",
		Rules:     cfg.Combat,
		Clock:     clk,
		Source:    dice.NewSeededSource(3),
		Presenter: presenter,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	sess.Start()

	return &driver{
		sess:      sess,
		presenter: presenter,
		registry:  command.DefaultRegistry(),
		slot:      1,
		in:        strings.NewReader(input),
		logger:    zap.NewNop(),
	}, &out
}

func TestDriver_Directives(t *testing.T) {
	d, out := newTestDriver(t, strings.Join([]string{
		":help",
		":target 9",
		":bogus",
		":save",
		":move one two",
		":t 1",
		":status",
		":quit",
		":status",
	}, "\n"))

	require.NoError(t, d.Run(context.Background()))
	text := out.String()
	assert.Contains(t, text, ":target <n>")
	assert.Contains(t, text, `no enemy "9"`)
	assert.Contains(t, text, `unknown directive "bogus"`)
	assert.Contains(t, text, "persistence is disabled")
	assert.Contains(t, text, "usage: :move <q> <r>")
	assert.Contains(t, text, " *1. Goblin")
	assert.Equal(t, 2, strings.Count(text, "skills:"), "input after :quit must not be read")
	assert.Equal(t, encounter.OutcomeOngoing, d.sess.Outcome())
}

func TestDriver_SubmittedPartialWordIsTypo(t *testing.T) {
	d, out := newTestDriver(t, "sla\n")
	require.NoError(t, d.Run(context.Background()))
	// Stop the enemy phase the typo started before reading its output.
	d.sess.Close()

	text := out.String()
	assert.NotContains(t, text, "points")
	assert.Contains(t, text, "typo")
	snap := d.sess.Snapshot()
	assert.Equal(t, 1, snap.Attempts)
	assert.Equal(t, 0, snap.Correct)
}

func TestDriver_MoveDirective(t *testing.T) {
	d, _ := newTestDriver(t, ":move 0 2\n")
	require.NoError(t, d.Run(context.Background()))
	snap := d.sess.Snapshot()
	assert.Equal(t, 0, snap.Player.Position.Q)
	assert.Equal(t, 2, snap.Player.Position.R)
	assert.Equal(t, snap.Player.MaxAP-1, snap.Player.AP)
}
