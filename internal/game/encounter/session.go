// Package encounter runs one combat encounter: it owns the roster, grid,
// turn scheduler, input resolver, and score for a single fight and sequences
// player commands and enemy turns against them.
package encounter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/keystrike/internal/config"
	"github.com/cory-johannsen/keystrike/internal/game/ai"
	"github.com/cory-johannsen/keystrike/internal/game/clock"
	"github.com/cory-johannsen/keystrike/internal/game/combat"
	"github.com/cory-johannsen/keystrike/internal/game/command"
	"github.com/cory-johannsen/keystrike/internal/game/dice"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
	"github.com/cory-johannsen/keystrike/internal/game/ruleset"
	"github.com/cory-johannsen/keystrike/internal/game/score"
	"github.com/cory-johannsen/keystrike/internal/game/turn"
	"github.com/cory-johannsen/keystrike/internal/scripting"
)

var (
	// ErrNoTarget is returned when a command needs a target and no living enemy is available.
	ErrNoTarget = errors.New("no target")
	// ErrOutOfRange is returned when the locked target is beyond the skill's range.
	ErrOutOfRange = errors.New("target out of range")
	// ErrBlocked is returned when the player tries to move onto a cell it cannot enter.
	ErrBlocked = errors.New("cell is blocked")
	// ErrAlreadyStarted is returned by Restore once the encounter has seen an action.
	ErrAlreadyStarted = errors.New("encounter already started")
	// ErrFinished is returned for requests made after victory or defeat.
	ErrFinished = errors.New("encounter finished")
)

// Outcome is the encounter result.
type Outcome int

const (
	OutcomeOngoing Outcome = iota
	OutcomeVictory
	OutcomeDefeat
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case OutcomeOngoing:
		return "ongoing"
	case OutcomeVictory:
		return "victory"
	case OutcomeDefeat:
		return "defeat"
	default:
		return "unknown"
	}
}

// Action is what an input event made the player do.
type Action int

const (
	ActionNone Action = iota
	ActionAttack
	ActionEndTurn
	ActionTypo
	ActionReaction
)

// String returns a human-readable action label.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionAttack:
		return "attack"
	case ActionEndTurn:
		return "end_turn"
	case ActionTypo:
		return "typo"
	case ActionReaction:
		return "reaction"
	default:
		return "unknown"
	}
}

// Report describes the effect of one input event.
type Report struct {
	command.Result
	Action Action
	Target string
	Damage int
	Killed bool
	// Gain is the score added by an attack.
	Gain int
}

// Deps are the collaborators a Session is built from.
type Deps struct {
	Content   *ruleset.Content
	Encounter string
	Rules     config.CombatConfig
	Clock     clock.Clock
	Source    dice.Source
	Presenter Presenter
	// Scripts is optional. When set, AI preconditions and encounter hooks run in it.
	Scripts *scripting.Manager
	Logger  *zap.Logger
}

// Session is the combat context for one encounter. It is safe for concurrent
// use: input events arrive on the caller's goroutine while the enemy phase
// runs on a goroutine the session owns.
type Session struct {
	id        string
	content   *ruleset.Content
	enc       *ruleset.Encounter
	class     *ruleset.Class
	rules     config.CombatConfig
	clock     clock.Clock
	src       dice.Source
	presenter Presenter
	scripts   *scripting.Manager
	logger    *zap.Logger

	scheduler *turn.Scheduler
	resolver  *command.Resolver
	tracker   *score.Tracker
	accuracy  *score.Accuracy
	geo       grid.Geometry
	words     ai.ReactionWords

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu          sync.Mutex
	roster      *combat.Roster
	grid        *grid.Service
	engine      *ai.Engine
	vocab       *command.Vocabulary
	target      string
	acted       bool
	busy        bool
	playerReady bool
	turn        int
	kills       int
	wave        int
	highScore   int
	outcome     Outcome
	acting      map[string]bool
	phaseCancel context.CancelFunc
	phaseDone   chan struct{}
	changed     chan struct{}

	view atomic.Pointer[scriptView]
}

// NewSession builds the encounter named by d.Encounter.
//
// Precondition: Content, Clock, Source, and Logger must be non-nil.
// Postcondition: the session is in the player phase but accepts no input until Start.
func NewSession(d Deps) (*Session, error) {
	if d.Content == nil || d.Clock == nil || d.Source == nil || d.Logger == nil {
		return nil, fmt.Errorf("encounter.NewSession: content, clock, source, and logger are required")
	}
	enc, ok := d.Content.Encounter(d.Encounter)
	if !ok {
		return nil, fmt.Errorf("encounter.NewSession: unknown encounter %q", d.Encounter)
	}
	class, ok := d.Content.Classes[enc.Class]
	if !ok {
		return nil, fmt.Errorf("encounter.NewSession: unknown class %q", enc.Class)
	}
	if _, ok := d.Content.Maps[enc.Map]; !ok {
		return nil, fmt.Errorf("encounter.NewSession: unknown map %q", enc.Map)
	}
	metric, ok := grid.ParseMetric(d.Rules.DistanceMetric)
	if !ok {
		return nil, fmt.Errorf("encounter.NewSession: unknown distance metric %q", d.Rules.DistanceMetric)
	}
	if d.Presenter == nil {
		d.Presenter = NopPresenter{}
	}

	player, err := class.NewPlayer("player", "", d.Content.Skills, enc.Player)
	if err != nil {
		return nil, fmt.Errorf("encounter.NewSession: %w", err)
	}
	enemies := make([]*combat.Combatant, 0, len(enc.Enemies))
	for _, p := range enc.Enemies {
		a, ok := d.Content.Archetypes[p.Archetype]
		if !ok {
			return nil, fmt.Errorf("encounter.NewSession: unknown archetype %q", p.Archetype)
		}
		e, err := a.Spawn(d.Content.Skills, p.Coord())
		if err != nil {
			return nil, fmt.Errorf("encounter.NewSession: %w", err)
		}
		enemies = append(enemies, e)
	}
	roster, err := combat.NewRoster(player, enemies...)
	if err != nil {
		return nil, fmt.Errorf("encounter.NewSession: %w", err)
	}

	id := uuid.NewString()
	logger := d.Logger.With(zap.String("session", id), zap.String("encounter", enc.ID))
	s := &Session{
		id:        id,
		content:   d.Content,
		enc:       enc,
		class:     class,
		rules:     d.Rules,
		clock:     d.Clock,
		src:       d.Source,
		presenter: d.Presenter,
		scripts:   d.Scripts,
		logger:    logger,
		scheduler: turn.NewScheduler(d.Clock, d.Rules.EnemyActionDelay, logger),
		resolver:  command.NewResolver(d.Clock, logger),
		tracker:   score.NewTracker(d.Rules.ComboBonusPerStep),
		accuracy:  &score.Accuracy{},
		geo:       grid.Geometry{Metric: metric, CellWidth: d.Rules.CellWidth, CellHeight: d.Rules.CellHeight},
		words:     ai.ReactionWords{Block: d.Rules.BlockWord, Dodge: d.Rules.DodgeWord},
		acting:    make(map[string]bool),
		changed:   make(chan struct{}),
	}
	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())
	s.installRosterLocked(roster)
	if _, err := s.vocabularyLocked(); err != nil {
		return nil, fmt.Errorf("encounter.NewSession: %w", err)
	}
	s.bindScripts()
	s.publishViewLocked()
	s.scheduler.OnTransition(s.onTransition)
	return s, nil
}

// installRosterLocked points every roster-dependent collaborator at roster.
func (s *Session) installRosterLocked(roster *combat.Roster) {
	s.roster = roster
	s.grid = grid.NewService(s.content.Maps[s.enc.Map], roster, s.geo)
	var caller ai.ScriptCaller
	if s.scripts != nil {
		caller = s.scripts
	}
	s.engine = ai.NewEngine(s.grid, s.src, caller, s.enc.ID, s.logger)
}

func (s *Session) vocabularyLocked() (*command.Vocabulary, error) {
	return command.NewVocabulary(s.roster.Player().CommandWords(), s.rules.TerminatorWord)
}

// signalLocked wakes AwaitPlayerTurn callers.
func (s *Session) signalLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// EncounterID returns the encounter definition this session plays.
func (s *Session) EncounterID() string { return s.enc.ID }

// Phase returns the scheduler phase.
func (s *Session) Phase() turn.Phase { return s.scheduler.Phase() }

// Mode returns the input mode.
func (s *Session) Mode() command.Mode { return s.resolver.Mode() }

// Outcome returns the encounter result so far.
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Target returns the locked enemy ID, or "".
func (s *Session) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Map returns the battle map.
func (s *Session) Map() *grid.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Map()
}

// Start opens the first player turn.
func (s *Session) Start() {
	s.logger.Info("encounter started",
		zap.Int("enemies", len(s.enc.Enemies)),
		zap.Int("waves", s.enc.WaveCount()),
		zap.String("class", s.class.ID),
	)
	s.beginPlayerTurn()
}

// Close stops any running enemy phase and waits for it to exit.
func (s *Session) Close() {
	s.baseCancel()
	s.resolver.Disable()
	s.mu.Lock()
	done := s.phaseDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// AwaitPlayerTurn blocks until the player can act or the encounter ends.
//
// Postcondition: on nil error either input is accepted or Outcome() != OutcomeOngoing.
func (s *Session) AwaitPlayerTurn(ctx context.Context) (Outcome, error) {
	for {
		s.mu.Lock()
		outcome, ready, ch := s.outcome, s.playerReady, s.changed
		s.mu.Unlock()
		if outcome != OutcomeOngoing || ready {
			return outcome, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return outcome, ctx.Err()
		}
	}
}

// onTransition reacts to scheduler phase changes.
func (s *Session) onTransition(tr turn.Transition) {
	s.presenter.PhaseChanged(tr.From, tr.To)
	switch tr.To {
	case turn.PhasePlayer:
		s.beginPlayerTurn()
	case turn.PhaseOver:
		s.resolver.Disable()
		s.mu.Lock()
		s.playerReady = false
		s.signalLocked()
		s.mu.Unlock()
	}
}

// beginPlayerTurn regenerates AP and accepts attack commands.
func (s *Session) beginPlayerTurn() {
	s.mu.Lock()
	if s.outcome != OutcomeOngoing {
		s.mu.Unlock()
		return
	}
	player := s.roster.Player()
	gained := player.RestoreResource(s.rules.TurnStartRegenAP)
	s.turn++
	vocab, err := s.vocabularyLocked()
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("building vocabulary", zap.Error(err))
		return
	}
	s.vocab = vocab
	turnNo := s.turn
	s.mu.Unlock()

	s.resolver.EnterAttackMode(vocab)

	s.mu.Lock()
	s.playerReady = true
	s.signalLocked()
	s.mu.Unlock()
	s.logger.Debug("player turn", zap.Int("turn", turnNo), zap.Int("ap_gained", gained))
}

// InputChanged feeds the current input buffer.
func (s *Session) InputChanged(ctx context.Context, text string) (Report, error) {
	return s.handle(ctx, s.resolver.OnBufferChanged(text))
}

// InputSubmitted feeds an explicit submission of the buffer.
func (s *Session) InputSubmitted(ctx context.Context, text string) (Report, error) {
	return s.handle(ctx, s.resolver.OnSubmitted(text))
}

func (s *Session) handle(ctx context.Context, res command.Result) (Report, error) {
	rep := Report{Result: res}
	switch {
	case res.Mode == command.ModeAttack && res.Status == command.StatusMatched:
		s.mu.Lock()
		terminator := s.vocab != nil && s.vocab.IsTerminator(res.Word)
		s.mu.Unlock()
		if terminator {
			rep.Action = ActionEndTurn
			s.mu.Lock()
			s.acted = true
			s.mu.Unlock()
			return rep, s.endPlayerTurn(ctx)
		}
		return s.attack(ctx, rep)
	case res.Mode == command.ModeAttack && res.Status == command.StatusTypo:
		rep.Action = ActionTypo
		return rep, s.typo(ctx)
	case res.Mode == command.ModeReaction && res.Reaction != nil:
		rep.Action = ActionReaction
	}
	return rep, nil
}

// LockTarget selects the enemy that attack commands hit.
func (s *Session) LockTarget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.roster.Get(id)
	if !ok || c.IsPlayer() || !c.IsAlive() {
		return fmt.Errorf("lock %q: %w", id, ErrNoTarget)
	}
	s.target = id
	s.logger.Debug("target locked", zap.String("target", id))
	return nil
}

// targetLocked returns the locked target, auto-locking the closest living
// enemy when none is held.
func (s *Session) targetLocked() (*combat.Combatant, error) {
	if s.target != "" {
		if c, ok := s.roster.Get(s.target); ok && c.IsAlive() {
			return c, nil
		}
		s.target = ""
	}
	player := s.roster.Player()
	c := ai.SelectTarget(player, s.roster.LivingEnemies(), ai.RuleClosest, s.src, s.grid.Distance)
	if c == nil {
		return nil, ErrNoTarget
	}
	s.target = c.ID
	return c, nil
}

// attack resolves a matched skill word against the target.
func (s *Session) attack(ctx context.Context, rep Report) (Report, error) {
	s.mu.Lock()
	if s.outcome != OutcomeOngoing {
		s.mu.Unlock()
		return rep, ErrFinished
	}
	if s.busy || !s.playerReady {
		s.mu.Unlock()
		return rep, turn.ErrNotPlayerPhase
	}
	player := s.roster.Player()
	skill, ok := player.Skill(rep.Word)
	if !ok {
		s.mu.Unlock()
		return rep, fmt.Errorf("unknown skill %q", rep.Word)
	}
	target, err := s.targetLocked()
	if err != nil {
		s.mu.Unlock()
		return rep, err
	}
	dist := s.grid.Distance(player.Position, target.Position)
	if dist > skill.Range {
		s.mu.Unlock()
		return rep, fmt.Errorf("%s reaches %d, %s is %d away: %w", skill.Command, skill.Range, target.Name, dist, ErrOutOfRange)
	}
	if err := player.SpendResource(skill.Cost); err != nil {
		s.mu.Unlock()
		return rep, err
	}
	player.RestoreResource(s.rules.SuccessRegenAP)
	rep.Gain = s.tracker.OnAttackSuccess(s.rules.BaseAttackScore)
	s.accuracy.Register(true)
	s.acted = true
	s.busy = true
	rep.Action = ActionAttack
	rep.Target = target.ID
	s.mu.Unlock()

	s.resolver.Disable()
	if err := s.presenter.AttackAnimationRequested(ctx, player.ID, target.ID, skill); err != nil {
		s.logger.Warn("attack animation", zap.Error(err))
	}

	s.mu.Lock()
	rep.Damage = target.ApplyDamage(skill.Damage)
	rep.Killed = !target.IsAlive()
	victory := false
	if rep.Killed {
		s.onKillLocked(target)
		if len(s.roster.LivingEnemies()) == 0 {
			victory = !s.advanceWaveLocked()
		}
	}
	s.busy = false
	s.publishViewLocked()
	s.mu.Unlock()

	s.presenter.DamageApplied(target.ID, rep.Damage)
	s.logger.Debug("player attack",
		zap.String("skill", skill.Command),
		zap.String("target", target.ID),
		zap.Int("damage", rep.Damage),
		zap.Bool("killed", rep.Killed),
		zap.Int("gain", rep.Gain),
	)
	if victory {
		s.finish(ctx, OutcomeVictory, "all waves cleared")
		return rep, nil
	}
	return rep, s.endPlayerTurn(ctx)
}

// onKillLocked retires a dead enemy and applies kill rewards.
func (s *Session) onKillLocked(dead *combat.Combatant) {
	s.roster.Remove(dead.ID)
	s.kills++
	if s.target == dead.ID {
		s.target = ""
	}
	player := s.roster.Player()
	for _, w := range s.class.UnlocksAt(s.kills) {
		sk, ok := s.content.Skills.Skill(w)
		if !ok {
			continue
		}
		if player.AddSkill(sk) {
			s.presenter.Notice(fmt.Sprintf("learned %s", sk.Command))
			s.logger.Info("skill unlocked", zap.String("skill", sk.Command), zap.Int("kills", s.kills))
		}
	}
	s.publishViewLocked()
	if bonus := s.defeatedHook(dead.ID, s.kills); bonus > 0 {
		s.tracker.AddBonus(bonus)
	}
}

// advanceWaveLocked spawns the next enemy group once the current one is
// cleared. Groups whose placements cannot be filled are skipped.
//
// Postcondition: Returns false iff no group remains, which is victory.
func (s *Session) advanceWaveLocked() bool {
	for s.wave+1 < s.enc.WaveCount() {
		s.wave++
		spawned := 0
		for _, p := range s.enc.Wave(s.wave) {
			a, ok := s.content.Archetypes[p.Archetype]
			if !ok {
				s.logger.Warn("wave names unknown archetype", zap.String("archetype", p.Archetype))
				continue
			}
			at, ok := s.spawnCellLocked(p.Coord())
			if !ok {
				s.logger.Warn("no free cell for wave enemy", zap.Stringer("at", p.Coord()))
				continue
			}
			e, err := a.Spawn(s.content.Skills, at)
			if err == nil {
				err = s.roster.Add(e)
			}
			if err != nil {
				s.logger.Warn("spawning wave enemy", zap.String("archetype", p.Archetype), zap.Error(err))
				continue
			}
			spawned++
		}
		if spawned == 0 {
			continue
		}
		name := s.enc.WaveName(s.wave)
		s.publishViewLocked()
		s.presenter.Notice(name + " enters the field")
		s.logger.Info("wave started",
			zap.Int("wave", s.wave+1),
			zap.String("name", name),
			zap.Int("enemies", spawned),
		)
		return true
	}
	return false
}

// spawnCellLocked returns at, or its first free neighbor when at is taken.
func (s *Session) spawnCellLocked(at grid.Coord) (grid.Coord, bool) {
	if s.grid.CanEnter(at) {
		return at, true
	}
	for _, n := range s.grid.Neighbors(at) {
		if s.grid.CanEnter(n) {
			return n, true
		}
	}
	return grid.Coord{}, false
}

// typo applies the command failure penalty and ends the turn.
func (s *Session) typo(ctx context.Context) error {
	s.mu.Lock()
	if s.outcome != OutcomeOngoing || !s.playerReady || s.busy {
		s.mu.Unlock()
		return nil
	}
	drained := s.roster.Player().DrainResource(s.rules.TypoPenaltyAP)
	s.tracker.OnFailureOrDamage()
	s.accuracy.Register(false)
	s.acted = true
	s.mu.Unlock()
	s.logger.Debug("attack command typo", zap.Int("ap_lost", drained))
	return s.endPlayerTurn(ctx)
}

// MovePlayer steps the player onto an adjacent cell for the move cost.
func (s *Session) MovePlayer(ctx context.Context, to grid.Coord) error {
	s.mu.Lock()
	if s.outcome != OutcomeOngoing {
		s.mu.Unlock()
		return ErrFinished
	}
	if !s.playerReady || s.busy || s.scheduler.Phase() != turn.PhasePlayer {
		s.mu.Unlock()
		return turn.ErrNotPlayerPhase
	}
	player := s.roster.Player()
	from := player.Position
	if !s.grid.IsNeighbor(from, to) || !s.grid.CanEnter(to) {
		s.mu.Unlock()
		return fmt.Errorf("move %s -> %s: %w", from, to, ErrBlocked)
	}
	if err := player.SpendResource(s.rules.MoveCostAP); err != nil {
		s.mu.Unlock()
		return err
	}
	player.Position = to
	s.acted = true
	s.busy = true
	s.publishViewLocked()
	s.mu.Unlock()

	err := s.presenter.MoveRequested(ctx, player.ID, from, to)

	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("move animation", zap.Error(err))
	}
	return nil
}

// EndPlayerTurn hands the turn to the enemies without acting.
func (s *Session) EndPlayerTurn(ctx context.Context) error {
	s.mu.Lock()
	if s.busy || !s.playerReady {
		s.mu.Unlock()
		return turn.ErrNotPlayerPhase
	}
	s.acted = true
	s.mu.Unlock()
	return s.endPlayerTurn(ctx)
}

// endPlayerTurn moves to the enemy phase and runs it in the background.
func (s *Session) endPlayerTurn(ctx context.Context) error {
	s.resolver.Disable()
	s.mu.Lock()
	if s.outcome != OutcomeOngoing {
		s.mu.Unlock()
		return ErrFinished
	}
	s.playerReady = false
	s.signalLocked()
	s.mu.Unlock()

	if err := s.scheduler.EndPlayerTurn(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.phaseDone
	phaseCtx, cancel := context.WithCancel(s.baseCtx)
	done := make(chan struct{})
	s.phaseCancel = cancel
	s.phaseDone = done
	s.mu.Unlock()

	go s.runEnemyPhase(phaseCtx, cancel, prev, done)
	return nil
}

func (s *Session) runEnemyPhase(ctx context.Context, cancel context.CancelFunc, prev <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer cancel()
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return
		}
	}
	var ids []string
	s.mu.Lock()
	for _, e := range s.roster.LivingEnemies() {
		ids = append(ids, e.ID)
	}
	s.mu.Unlock()

	if err := s.scheduler.RunEnemyPhase(ctx, ids, s.takeEnemyTurn); err != nil {
		s.logger.Warn("enemy phase", zap.Error(err))
	}
}

// Abandon cancels an in-flight reaction window and enemy phase and returns
// control to the player. It does nothing once the encounter is over.
//
// Postcondition: returns true iff the player phase is active afterwards.
func (s *Session) Abandon(ctx context.Context) bool {
	s.mu.Lock()
	cancel := s.phaseCancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.resolver.CancelReaction()
	return s.scheduler.ForceReturnToPlayer(ctx)
}

// finish records the outcome and stops the scheduler.
func (s *Session) finish(ctx context.Context, outcome Outcome, reason string) {
	s.mu.Lock()
	if s.outcome != OutcomeOngoing {
		s.mu.Unlock()
		return
	}
	s.outcome = outcome
	st := s.tracker.State()
	s.highScore = max(s.highScore, st.Score)
	s.playerReady = false
	s.signalLocked()
	s.mu.Unlock()

	s.resolver.CancelReaction()
	s.resolver.Disable()
	s.scheduler.Terminate(ctx, reason)
	s.logger.Info("encounter finished",
		zap.Stringer("outcome", outcome),
		zap.Int("score", st.Score),
		zap.Int("max_combo", st.MaxCombo),
	)
	if outcome == OutcomeVictory {
		if line := s.victoryHook(st.Score); line != "" {
			s.presenter.Notice(line)
		}
	}
}
