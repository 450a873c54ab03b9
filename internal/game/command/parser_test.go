package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/keystrike/internal/game/command"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want command.ParseResult
	}{
		{":move 1 -2", command.ParseResult{Directive: "move", Args: []string{"1", "-2"}}},
		{"  :TARGET   3 ", command.ParseResult{Directive: "target", Args: []string{"3"}}},
		{":quit", command.ParseResult{Directive: "quit"}},
		{":", command.ParseResult{}},
		{"slash", command.ParseResult{}},
		{"", command.ParseResult{}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, command.Parse(tt.line))
		})
	}
}

func TestIsDirective(t *testing.T) {
	assert.True(t, command.IsDirective(" :status"))
	assert.False(t, command.IsDirective("parry"))
}

func TestPropertyParseNonDirectiveIsEmpty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		line := rapid.StringMatching(`[a-z ]{0,20}`).Draw(t, "line")
		if command.Parse(line).Directive != "" {
			t.Fatalf("plain input %q parsed as a directive", line)
		}
	})
}

func TestDefaultRegistry(t *testing.T) {
	r := command.DefaultRegistry()
	d, ok := r.Resolve("m")
	require.True(t, ok)
	assert.Equal(t, command.HandlerMove, d.Handler)
	d, ok = r.Resolve("pass")
	require.True(t, ok)
	assert.Equal(t, command.HandlerEnd, d.Handler)
	_, ok = r.Resolve("dance")
	assert.False(t, ok)

	names := make([]string, 0)
	for _, d := range r.Directives() {
		names = append(names, d.Name)
	}
	assert.IsNonDecreasing(t, names)
}

func TestNewRegistry_Collisions(t *testing.T) {
	_, err := command.NewRegistry([]command.Directive{{Name: "a"}, {Name: "a"}})
	assert.Error(t, err)
	_, err = command.NewRegistry([]command.Directive{{Name: "a", Aliases: []string{"x"}}, {Name: "b", Aliases: []string{"x"}}})
	assert.Error(t, err)
	_, err = command.NewRegistry([]command.Directive{{Name: "a"}, {Name: "b", Aliases: []string{"a"}}})
	assert.Error(t, err)
}
