package ai_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/keystrike/internal/game/ai"
	"github.com/cory-johannsen/keystrike/internal/game/combat"
	"github.com/cory-johannsen/keystrike/internal/game/dice"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
)

type firstSource struct{}

func (firstSource) Intn(int) int { return 0 }

type fakeCaller struct {
	ret   lua.LValue
	err   error
	calls []string
}

func (f *fakeCaller) CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	f.calls = append(f.calls, scope+":"+hook+":"+args[0].String())
	return f.ret, f.err
}

func openField(size int) *grid.Map {
	tiles := make(map[grid.Coord]grid.Tile)
	for q := -size; q <= size; q++ {
		for r := -size; r <= size; r++ {
			tiles[grid.Coord{Q: q, R: r}] = grid.Tile{Terrain: "grass"}
		}
	}
	return grid.NewMap("field", tiles)
}

type fixture struct {
	player *combat.Combatant
	enemy  *combat.Combatant
	roster *combat.Roster
	grid   *grid.Service
}

func newFixture(t *testing.T, playerAt, enemyAt grid.Coord, skills ...combat.Skill) fixture {
	t.Helper()
	player := &combat.Combatant{ID: "hero", Faction: combat.FactionPlayer, CurrentHP: 50, MaxHP: 50, Position: playerAt}
	enemy := &combat.Combatant{ID: "goblin", Faction: combat.FactionEnemy, CurrentHP: 20, MaxHP: 20, Position: enemyAt, Skills: skills}
	roster, err := combat.NewRoster(player, enemy)
	require.NoError(t, err)
	return fixture{player: player, enemy: enemy, roster: roster, grid: grid.NewService(openField(6), roster, grid.DefaultGeometry)}
}

func newEngine(f fixture, caller ai.ScriptCaller) *ai.Engine {
	return ai.NewEngine(f.grid, firstSource{}, caller, "test", zap.NewNop())
}

var slash = combat.Skill{Command: "slash", Damage: 5, Range: 1}
var arrow = combat.Skill{Command: "arrow", Damage: 3, Range: 4}

// Scenario B: aggressive, preferred 1, distance 3 moves toward.
func TestDecide_AggressiveClosesDistance(t *testing.T) {
	f := newFixture(t, grid.Coord{}, grid.Coord{Q: 0, R: 3}, slash)
	p := &ai.Profile{ID: "brute", Behavior: ai.BehaviorAggressive, PreferredDistance: 1}
	d := newEngine(f, nil).Decide(f.enemy, p, []*combat.Combatant{f.player})
	assert.Equal(t, ai.ActionMoveToward, d.Action)
	assert.Equal(t, 3, d.Distance)
	assert.Equal(t, grid.Coord{Q: 0, R: 2}, d.Step)
	assert.Same(t, f.player, d.Target)
}

func TestDecide_AggressiveAttacksInRange(t *testing.T) {
	f := newFixture(t, grid.Coord{}, grid.Coord{Q: 0, R: 1}, slash)
	p := &ai.Profile{ID: "brute", Behavior: ai.BehaviorAggressive, PreferredDistance: 1}
	d := newEngine(f, nil).Decide(f.enemy, p, []*combat.Combatant{f.player})
	assert.Equal(t, ai.ActionAttack, d.Action)
	assert.Equal(t, "slash", d.Skill.Command)
}

func TestDecide_AggressiveIdlesWithoutReach(t *testing.T) {
	f := newFixture(t, grid.Coord{}, grid.Coord{Q: 0, R: 2}, slash)
	p := &ai.Profile{ID: "brute", Behavior: ai.BehaviorAggressive, PreferredDistance: 3}
	d := newEngine(f, nil).Decide(f.enemy, p, []*combat.Combatant{f.player})
	assert.Equal(t, ai.ActionIdle, d.Action)
	assert.Equal(t, "no skill in range", d.Reason)
}

// Scenario E: kiting at distance 1 with retreat 2 moves away even with a melee skill.
func TestDecide_KitingRetreats(t *testing.T) {
	f := newFixture(t, grid.Coord{}, grid.Coord{Q: 0, R: 1}, slash, arrow)
	p := &ai.Profile{ID: "archer", Behavior: ai.BehaviorKiting, RetreatDistance: 2, PreferredDistance: 4, ChaseDistance: 7}
	d := newEngine(f, nil).Decide(f.enemy, p, []*combat.Combatant{f.player})
	require.Equal(t, ai.ActionMoveAway, d.Action)
	assert.Equal(t, 2, f.grid.Distance(d.Step, f.player.Position))
}

func TestDecide_KitingBands(t *testing.T) {
	p := &ai.Profile{ID: "archer", Behavior: ai.BehaviorKiting, RetreatDistance: 2, PreferredDistance: 4, ChaseDistance: 6}
	tests := []struct {
		enemyAt grid.Coord
		want    ai.Action
	}{
		{grid.Coord{Q: 0, R: 3}, ai.ActionAttack},
		{grid.Coord{Q: 0, R: 4}, ai.ActionAttack},
		{grid.Coord{Q: 0, R: 5}, ai.ActionMoveToward},
		{grid.Coord{Q: 0, R: 6}, ai.ActionMoveToward},
	}
	for _, tt := range tests {
		t.Run(tt.enemyAt.String(), func(t *testing.T) {
			f := newFixture(t, grid.Coord{}, tt.enemyAt, arrow, combat.Skill{Command: "volley", Range: 6})
			d := newEngine(f, nil).Decide(f.enemy, p, []*combat.Combatant{f.player})
			assert.Equal(t, tt.want, d.Action)
		})
	}
}

func TestDecide_KitingIdlesBeyondChase(t *testing.T) {
	f := newFixture(t, grid.Coord{Q: 0, R: -6}, grid.Coord{Q: 0, R: 6}, arrow)
	p := &ai.Profile{ID: "archer", Behavior: ai.BehaviorKiting, RetreatDistance: 2, PreferredDistance: 4, ChaseDistance: 7}
	d := newEngine(f, nil).Decide(f.enemy, p, []*combat.Combatant{f.player})
	assert.Equal(t, ai.ActionIdle, d.Action)
	assert.Equal(t, "out of chase range", d.Reason)
}

func TestDecide_NoTargetIdles(t *testing.T) {
	f := newFixture(t, grid.Coord{}, grid.Coord{Q: 0, R: 1}, slash)
	f.player.CurrentHP = 0
	p := &ai.Profile{ID: "brute", Behavior: ai.BehaviorAggressive, PreferredDistance: 1}
	d := newEngine(f, nil).Decide(f.enemy, p, []*combat.Combatant{f.player})
	assert.Equal(t, ai.ActionIdle, d.Action)
	assert.Nil(t, d.Target)

	d = newEngine(f, nil).Decide(f.enemy, p, nil)
	assert.Equal(t, ai.ActionIdle, d.Action)
}

func TestDecide_NilProfileIdles(t *testing.T) {
	f := newFixture(t, grid.Coord{}, grid.Coord{Q: 0, R: 1}, slash)
	d := newEngine(f, nil).Decide(f.enemy, nil, []*combat.Combatant{f.player})
	assert.Equal(t, ai.ActionIdle, d.Action)
	assert.Equal(t, "no profile", d.Reason)
}

func TestDecide_BlockedMovementIdles(t *testing.T) {
	tiles := map[grid.Coord]grid.Tile{
		{Q: 0, R: 0}: {Terrain: "grass"},
		{Q: 0, R: 3}: {Terrain: "grass"},
	}
	player := &combat.Combatant{ID: "hero", Faction: combat.FactionPlayer, CurrentHP: 5, Position: grid.Coord{}}
	enemy := &combat.Combatant{ID: "g", Faction: combat.FactionEnemy, CurrentHP: 5, Position: grid.Coord{Q: 0, R: 3}}
	roster, err := combat.NewRoster(player, enemy)
	require.NoError(t, err)
	svc := grid.NewService(grid.NewMap("island", tiles), roster, grid.DefaultGeometry)
	e := ai.NewEngine(svc, firstSource{}, nil, "test", zap.NewNop())
	d := e.Decide(enemy, &ai.Profile{ID: "b", Behavior: ai.BehaviorAggressive, PreferredDistance: 1}, []*combat.Combatant{player})
	assert.Equal(t, ai.ActionIdle, d.Action)
	assert.Equal(t, "no open neighbor", d.Reason)
}

func TestDecide_MoveAvoidsOccupiedCells(t *testing.T) {
	f := newFixture(t, grid.Coord{}, grid.Coord{Q: 0, R: 2}, slash)
	p := &ai.Profile{ID: "brute", Behavior: ai.BehaviorAggressive, PreferredDistance: 0}
	d := newEngine(f, nil).Decide(f.enemy, p, []*combat.Combatant{f.player})
	require.Equal(t, ai.ActionMoveToward, d.Action)
	assert.NotEqual(t, f.player.Position, d.Step)
	assert.Equal(t, grid.Coord{Q: 0, R: 1}, d.Step)

	f2 := newFixture(t, grid.Coord{}, grid.Coord{Q: 0, R: 1}, slash)
	d = newEngine(f2, nil).Decide(f2.enemy, p, []*combat.Combatant{f2.player})
	require.Equal(t, ai.ActionMoveToward, d.Action, "preferred 0 keeps closing")
	assert.NotEqual(t, f2.player.Position, d.Step, "never steps onto the target")
}

func TestDecide_LuaPrecondition(t *testing.T) {
	f := newFixture(t, grid.Coord{}, grid.Coord{Q: 0, R: 1}, slash)
	p := &ai.Profile{ID: "brute", Behavior: ai.BehaviorAggressive, PreferredDistance: 1, Precondition: "brute_ready"}

	no := &fakeCaller{ret: lua.LFalse}
	d := newEngine(f, no).Decide(f.enemy, p, []*combat.Combatant{f.player})
	assert.Equal(t, ai.ActionIdle, d.Action)
	assert.Equal(t, []string{"test:brute_ready:goblin"}, no.calls)

	undefined := &fakeCaller{ret: lua.LNil}
	d = newEngine(f, undefined).Decide(f.enemy, p, []*combat.Combatant{f.player})
	assert.Equal(t, ai.ActionIdle, d.Action, "only an explicit true passes")

	broken := &fakeCaller{ret: lua.LTrue, err: errors.New("boom")}
	d = newEngine(f, broken).Decide(f.enemy, p, []*combat.Combatant{f.player})
	assert.Equal(t, ai.ActionIdle, d.Action)

	yes := &fakeCaller{ret: lua.LTrue}
	d = newEngine(f, yes).Decide(f.enemy, p, []*combat.Combatant{f.player})
	assert.Equal(t, ai.ActionAttack, d.Action)
}

func TestPropertyAttackOnlyWithinRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		playerAt := grid.Coord{Q: rapid.IntRange(-5, 5).Draw(t, "pq"), R: rapid.IntRange(-5, 5).Draw(t, "pr")}
		enemyAt := grid.Coord{Q: rapid.IntRange(-5, 5).Draw(t, "eq"), R: rapid.IntRange(-5, 5).Draw(t, "er")}
		if playerAt == enemyAt {
			t.Skip("same cell")
		}
		ranges := rapid.SliceOfN(rapid.IntRange(0, 8), 0, 4).Draw(t, "ranges")
		var skills []combat.Skill
		for i, r := range ranges {
			skills = append(skills, combat.Skill{Command: string(rune('a' + i)), Range: r})
		}
		player := &combat.Combatant{ID: "hero", Faction: combat.FactionPlayer, CurrentHP: 5, Position: playerAt}
		enemy := &combat.Combatant{ID: "g", Faction: combat.FactionEnemy, CurrentHP: 5, Position: enemyAt, Skills: skills}
		roster, err := combat.NewRoster(player, enemy)
		if err != nil {
			t.Fatal(err)
		}
		svc := grid.NewService(openField(6), roster, grid.DefaultGeometry)
		e := ai.NewEngine(svc, dice.NewSeededSource(rapid.Uint64().Draw(t, "seed")), nil, "test", zap.NewNop())
		p := &ai.Profile{
			ID:                "p",
			Behavior:          rapid.SampledFrom([]ai.Behavior{ai.BehaviorAggressive, ai.BehaviorKiting}).Draw(t, "behavior"),
			RetreatDistance:   1,
			PreferredDistance: rapid.IntRange(1, 5).Draw(t, "preferred"),
			ChaseDistance:     8,
		}
		d := e.Decide(enemy, p, []*combat.Combatant{player})
		dist := svc.Distance(enemyAt, playerAt)
		anyInRange := false
		for _, s := range skills {
			if s.Range >= dist {
				anyInRange = true
			}
		}
		if d.Action == ai.ActionAttack && d.Skill.Range < dist {
			t.Fatalf("attacked with range %d at distance %d", d.Skill.Range, dist)
		}
		if d.Action == ai.ActionAttack && !anyInRange {
			t.Fatalf("attacked with no skill in range")
		}
		if (d.Action == ai.ActionMoveToward || d.Action == ai.ActionMoveAway) && !svc.CanEnter(d.Step) {
			t.Fatalf("stepped onto blocked cell %v", d.Step)
		}
	})
}
