package encounter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/keystrike/internal/game/combat"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
	"github.com/cory-johannsen/keystrike/internal/game/score"
)

// CombatantState is the persisted form of one combatant.
type CombatantState struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Faction   string     `json:"faction"`
	Archetype string     `json:"archetype"`
	Position  grid.Coord `json:"position"`
	HP        int        `json:"hp"`
	MaxHP     int        `json:"max_hp"`
	AP        int        `json:"ap"`
	MaxAP     int        `json:"max_ap"`
	Skills    []string   `json:"skills"`
}

func stateOf(c *combat.Combatant) CombatantState {
	return CombatantState{
		ID:        c.ID,
		Name:      c.Name,
		Faction:   c.Faction.String(),
		Archetype: c.Archetype,
		Position:  c.Position,
		HP:        c.CurrentHP,
		MaxHP:     c.MaxHP,
		AP:        c.CurrentAP,
		MaxAP:     c.MaxAP,
		Skills:    c.CommandWords(),
	}
}

// Snapshot is a read-only copy of everything needed to resume an encounter.
type Snapshot struct {
	SessionID   string           `json:"session_id"`
	EncounterID string           `json:"encounter_id"`
	Phase       string           `json:"phase"`
	Outcome     string           `json:"outcome"`
	Turn        int              `json:"turn"`
	Score       score.State      `json:"score"`
	HighScore   int              `json:"high_score"`
	Kills       int              `json:"kills"`
	Wave        int              `json:"wave"`
	Attempts    int              `json:"attempts"`
	Correct     int              `json:"correct"`
	Player      CombatantState   `json:"player"`
	Enemies     []CombatantState `json:"enemies"`
	SavedAt     time.Time        `json:"saved_at"`
}

// SnapshotStore persists snapshots by slot.
type SnapshotStore interface {
	Save(ctx context.Context, slot int, snap Snapshot) error
	// Load returns the snapshot in slot. Implementations return an error
	// wrapping their not-found sentinel when the slot is empty.
	Load(ctx context.Context, slot int) (Snapshot, error)
}

// Snapshot captures the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	total, correct := s.accuracy.Counts()
	st := s.tracker.State()
	snap := Snapshot{
		SessionID:   s.id,
		EncounterID: s.enc.ID,
		Phase:       string(s.scheduler.Phase()),
		Outcome:     s.outcome.String(),
		Turn:        s.turn,
		Score:       st,
		HighScore:   max(s.highScore, st.Score),
		Kills:       s.kills,
		Wave:        s.wave,
		Attempts:    total,
		Correct:     correct,
		Player:      stateOf(s.roster.Player()),
		SavedAt:     s.clock.Now().UTC(),
	}
	for _, e := range s.roster.LivingEnemies() {
		snap.Enemies = append(snap.Enemies, stateOf(e))
	}
	return snap
}

// Restore replaces the combatants and counters with those in snap. It is
// only accepted before the first action of the encounter.
//
// Postcondition: on error the session is unchanged.
func (s *Session) Restore(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acted {
		return ErrAlreadyStarted
	}
	if s.outcome != OutcomeOngoing {
		return fmt.Errorf("restore: %w", ErrFinished)
	}
	if snap.EncounterID != s.enc.ID {
		return fmt.Errorf("restore: snapshot is for encounter %q, not %q", snap.EncounterID, s.enc.ID)
	}
	if snap.Player.HP <= 0 {
		return fmt.Errorf("restore: snapshot player is dead")
	}
	if len(snap.Enemies) == 0 {
		return fmt.Errorf("restore: snapshot has no living enemies")
	}
	if snap.Wave < 0 || snap.Wave >= s.enc.WaveCount() {
		return fmt.Errorf("restore: wave %d outside encounter's %d waves", snap.Wave+1, s.enc.WaveCount())
	}

	player, err := s.restoreCombatant(snap.Player, combat.FactionPlayer)
	if err != nil {
		return err
	}
	enemies := make([]*combat.Combatant, 0, len(snap.Enemies))
	for _, es := range snap.Enemies {
		e, err := s.restoreCombatant(es, combat.FactionEnemy)
		if err != nil {
			return err
		}
		enemies = append(enemies, e)
	}
	roster, err := combat.NewRoster(player, enemies...)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	for _, c := range append([]*combat.Combatant{player}, enemies...) {
		if t, ok := s.grid.Map().Tile(c.Position); !ok || !t.IsWalkable() {
			return fmt.Errorf("restore: %s stands on unwalkable cell %s", c.ID, c.Position)
		}
	}

	s.installRosterLocked(roster)
	s.tracker.Restore(snap.Score)
	s.accuracy.Restore(snap.Attempts, snap.Correct)
	s.kills = snap.Kills
	s.wave = snap.Wave
	s.turn = snap.Turn
	s.highScore = snap.HighScore
	s.target = ""
	if s.playerReady {
		if vocab, err := s.vocabularyLocked(); err == nil {
			s.vocab = vocab
			s.resolver.EnterAttackMode(vocab)
		}
	}
	s.publishViewLocked()
	s.logger.Info("encounter restored",
		zap.String("session", s.id),
		zap.String("from_session", snap.SessionID),
		zap.Int("enemies", len(enemies)),
	)
	return nil
}

func (s *Session) restoreCombatant(cs CombatantState, faction combat.Faction) (*combat.Combatant, error) {
	skills, err := s.content.Skills.Resolve(cs.Skills)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", cs.ID, err)
	}
	c := &combat.Combatant{
		ID:        cs.ID,
		Name:      cs.Name,
		Faction:   faction,
		Archetype: cs.Archetype,
		Position:  cs.Position,
		CurrentHP: min(cs.HP, cs.MaxHP),
		MaxHP:     cs.MaxHP,
		CurrentAP: min(cs.AP, cs.MaxAP),
		MaxAP:     cs.MaxAP,
		Skills:    skills,
	}
	if faction == combat.FactionEnemy {
		a, ok := s.content.Archetypes[cs.Archetype]
		if !ok {
			return nil, fmt.Errorf("restore %s: unknown archetype %q", cs.ID, cs.Archetype)
		}
		c.AIProfile = a.AIProfile
	}
	return c, nil
}
