package encounter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/keystrike/internal/config"
	"github.com/cory-johannsen/keystrike/internal/game/ai"
	"github.com/cory-johannsen/keystrike/internal/game/clock"
	"github.com/cory-johannsen/keystrike/internal/game/combat"
	"github.com/cory-johannsen/keystrike/internal/game/dice"
	"github.com/cory-johannsen/keystrike/internal/game/encounter"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
	"github.com/cory-johannsen/keystrike/internal/game/ruleset"
	"github.com/cory-johannsen/keystrike/internal/game/turn"
	"github.com/cory-johannsen/keystrike/internal/scripting"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func rules() config.CombatConfig {
	return config.CombatConfig{
		TypoPenaltyAP:     2,
		SuccessRegenAP:    3,
		TurnStartRegenAP:  2,
		MoveCostAP:        1,
		BaseAttackScore:   100,
		ComboBonusPerStep: 10,
		MaxSpeedBonus:     100,
		BlockWord:         "parry",
		DodgeWord:         "dodge",
		TerminatorWord:    "end",
		DistanceMetric:    "axial",
		CellWidth:         32,
		CellHeight:        28,
	}
}

type contentOpts struct {
	playerHP   int
	goblinHP   int
	precond    string
	encounters []*ruleset.Encounter
}

func testContent(t *testing.T, o contentOpts) *ruleset.Content {
	t.Helper()
	if o.playerHP == 0 {
		o.playerHP = 20
	}
	if o.goblinHP == 0 {
		o.goblinHP = 12
	}
	cat, err := ruleset.NewCatalog(
		combat.Skill{Command: "slash", Cost: 2, Damage: 6, Range: 1, Tag: combat.TagMelee},
		combat.Skill{Command: "arrow", Cost: 3, Damage: 5, Range: 4, Tag: combat.TagRanged},
		combat.Skill{Command: "nova", Cost: 20, Damage: 50, Range: 9},
		combat.Skill{Command: "lunge", Cost: 2, Damage: 8, Range: 2},
		combat.Skill{Command: "claw", Damage: 4, Range: 1, Tag: combat.TagMelee, ReactionTime: 2 * time.Second},
	)
	require.NoError(t, err)
	reg := ai.NewRegistry()
	require.NoError(t, reg.Register(&ai.Profile{
		ID: "brute", Behavior: ai.BehaviorAggressive, PreferredDistance: 1, MeleeThreshold: 1, Precondition: o.precond,
	}))
	tiles := map[grid.Coord]grid.Tile{}
	for q := -3; q <= 3; q++ {
		for r := -3; r <= 3; r++ {
			tiles[grid.Coord{Q: q, R: r}] = grid.Tile{Terrain: "grass"}
		}
	}
	wall := false
	tiles[grid.Coord{Q: -1, R: 0}] = grid.Tile{Terrain: "wall", Walkable: &wall}
	maps := map[string]*grid.Map{"field": grid.NewMap("field", tiles)}
	encounters := o.encounters
	if encounters == nil {
		encounters = []*ruleset.Encounter{
			{ID: "duel", Map: "field", Class: "duelist", Enemies: []ruleset.Placement{{Archetype: "goblin", Q: 0, R: 1}}},
		}
	}
	c, err := ruleset.NewContent(cat, reg,
		[]*ruleset.Archetype{{ID: "goblin", Name: "Goblin", MaxHP: o.goblinHP, AIProfile: "brute", Skills: []string{"claw"}}},
		[]*ruleset.Class{{
			ID: "duelist", Name: "Duelist", MaxHP: o.playerHP, MaxAP: 10,
			Skills:  []string{"slash", "arrow", "nova"},
			Unlocks: []ruleset.Unlock{{Kills: 1, Skill: "lunge"}},
		}},
		maps, encounters)
	require.NoError(t, err)
	return c
}

// recorder is a Presenter that logs every call and completes requests at once.
type recorder struct {
	mu      sync.Mutex
	events  []string
	notices []string
	damage  map[string]int
	phases  []turn.Phase
	windows chan string
}

func newRecorder() *recorder {
	return &recorder{damage: map[string]int{}, windows: make(chan string, 16)}
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) MoveRequested(_ context.Context, id string, from, to grid.Coord) error {
	r.add("move " + id + " " + from.String() + "->" + to.String())
	return nil
}

func (r *recorder) AttackAnimationRequested(_ context.Context, attackerID, targetID string, skill combat.Skill) error {
	r.add("attack " + attackerID + " " + skill.Command + " " + targetID)
	return nil
}

func (r *recorder) DamageApplied(targetID string, amount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.damage[targetID] += amount
}

func (r *recorder) ReactionWindowOpened(word string, _ time.Duration) {
	r.add("window " + word)
	r.windows <- word
}

func (r *recorder) ReactionResolved(success bool) {
	if success {
		r.add("reaction ok")
	} else {
		r.add("reaction failed")
	}
}

func (r *recorder) PhaseChanged(_, to turn.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, to)
}

func (r *recorder) Notice(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, msg)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notices...)
}

func (r *recorder) DamageTo(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.damage[id]
}

type harness struct {
	sess  *encounter.Session
	clk   *clock.Manual
	rec   *recorder
	ctx   context.Context
	rules config.CombatConfig
}

func newHarness(t *testing.T, c *ruleset.Content, enc string, scripts *scripting.Manager) *harness {
	t.Helper()
	return newHarnessWithRules(t, c, enc, scripts, rules())
}

func newHarnessWithRules(t *testing.T, c *ruleset.Content, enc string, scripts *scripting.Manager, r config.CombatConfig) *harness {
	t.Helper()
	clk := clock.NewManual(epoch)
	rec := newRecorder()
	sess, err := encounter.NewSession(encounter.Deps{
		Content:   c,
		Encounter: enc,
		Rules:     r,
		Clock:     clk,
		Source:    dice.NewSeededSource(7),
		Presenter: rec,
		Scripts:   scripts,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(func() {
		sess.Close()
		cancel()
	})
	sess.Start()
	return &harness{sess: sess, clk: clk, rec: rec, ctx: ctx, rules: r}
}

// awaitWindow waits for the next reaction window and for its deadline timer.
func (h *harness) awaitWindow(t *testing.T) string {
	t.Helper()
	select {
	case w := <-h.rec.windows:
		h.clk.BlockUntil(1)
		return w
	case <-h.ctx.Done():
		t.Fatal("no reaction window opened")
		return ""
	}
}

func (h *harness) awaitPlayer(t *testing.T) encounter.Outcome {
	t.Helper()
	out, err := h.sess.AwaitPlayerTurn(h.ctx)
	require.NoError(t, err)
	return out
}

func (h *harness) player() encounter.CombatantState {
	return h.sess.Snapshot().Player
}

func (h *harness) enemy(t *testing.T, i int) encounter.CombatantState {
	t.Helper()
	snap := h.sess.Snapshot()
	require.Greater(t, len(snap.Enemies), i)
	return snap.Enemies[i]
}
