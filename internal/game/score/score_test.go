package score_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/keystrike/internal/game/score"
)

func TestOnAttackSuccess_ComboBonus(t *testing.T) {
	tr := score.NewTracker(10)
	assert.Equal(t, 110, tr.OnAttackSuccess(100))
	assert.Equal(t, 120, tr.OnAttackSuccess(100))
	st := tr.State()
	assert.Equal(t, 230, st.Score)
	assert.Equal(t, 2, st.Combo)
	assert.Equal(t, 2, st.MaxCombo)
}

func TestOnFailureOrDamage_ResetsComboOnly(t *testing.T) {
	tr := score.NewTracker(10)
	tr.OnAttackSuccess(100)
	tr.OnAttackSuccess(100)
	tr.OnFailureOrDamage()
	st := tr.State()
	assert.Equal(t, 0, st.Combo)
	assert.Equal(t, 2, st.MaxCombo)
	assert.Equal(t, 230, st.Score)
	assert.Equal(t, 110, tr.OnAttackSuccess(100), "combo restarts at one")
}

func TestAddBonus(t *testing.T) {
	tr := score.NewTracker(10)
	tr.AddBonus(40)
	tr.AddBonus(-5)
	assert.Equal(t, score.State{Score: 40}, tr.State())
}

func TestRestore(t *testing.T) {
	tr := score.NewTracker(10)
	tr.Restore(score.State{Score: 500, Combo: 3, MaxCombo: 1})
	st := tr.State()
	assert.Equal(t, 500, st.Score)
	assert.Equal(t, 3, st.MaxCombo, "max combo never below combo")
}

func TestSpeedBonus(t *testing.T) {
	cases := []struct {
		name  string
		rt    time.Duration
		limit time.Duration
		want  int
	}{
		{"instant", 0, 2 * time.Second, 100},
		{"quarter", 500 * time.Millisecond, 2 * time.Second, 75},
		{"half", time.Second, 2 * time.Second, 50},
		{"at limit", 2 * time.Second, 2 * time.Second, 0},
		{"late", 3 * time.Second, 2 * time.Second, 0},
		{"no limit", time.Second, 0, 0},
		{"rounds", 1003 * time.Millisecond, 2 * time.Second, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, score.SpeedBonus(tc.rt, tc.limit, 100))
		})
	}
}

func TestAccuracy(t *testing.T) {
	var a score.Accuracy
	assert.Equal(t, 0.0, a.Ratio())
	a.Register(true)
	a.Register(false)
	a.Register(true)
	a.Register(true)
	total, correct := a.Counts()
	assert.Equal(t, 4, total)
	assert.Equal(t, 3, correct)
	assert.InDelta(t, 0.75, a.Ratio(), 1e-9)

	a.Restore(2, 5)
	total, correct = a.Counts()
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, correct)
}

func TestPropertySpeedBonusBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rt := time.Duration(rapid.Int64Range(0, int64(10*time.Second)).Draw(t, "rt"))
		limit := time.Duration(rapid.Int64Range(1, int64(10*time.Second)).Draw(t, "limit"))
		maxBonus := rapid.IntRange(0, 1000).Draw(t, "max")
		b := score.SpeedBonus(rt, limit, maxBonus)
		if b < 0 || b > maxBonus {
			t.Fatalf("bonus %d outside [0,%d]", b, maxBonus)
		}
		if rt < limit && maxBonus > 0 && b == 0 && float64(limit-rt)/float64(limit)*float64(maxBonus) >= 1 {
			t.Fatalf("fast reaction rt=%v limit=%v earned nothing", rt, limit)
		}
	})
}

func TestPropertyComboOnlyResetsOnFailure(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tr := score.NewTracker(rapid.IntRange(0, 50).Draw(t, "step"))
		events := rapid.SliceOf(rapid.Bool()).Draw(t, "events")
		prev := tr.State()
		for _, success := range events {
			if success {
				tr.OnAttackSuccess(100)
			} else {
				tr.OnFailureOrDamage()
			}
			cur := tr.State()
			if success && cur.Combo != prev.Combo+1 {
				t.Fatalf("success moved combo %d -> %d", prev.Combo, cur.Combo)
			}
			if !success && cur.Combo != 0 {
				t.Fatalf("failure left combo at %d", cur.Combo)
			}
			if cur.MaxCombo < prev.MaxCombo || cur.Score < prev.Score {
				t.Fatalf("max combo or score decreased")
			}
			prev = cur
		}
	})
}
