package encounter

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/keystrike/internal/game/ai"
	"github.com/cory-johannsen/keystrike/internal/game/combat"
	"github.com/cory-johannsen/keystrike/internal/game/command"
	"github.com/cory-johannsen/keystrike/internal/game/score"
)

// takeEnemyTurn runs one enemy's decision and resolves its move or attack.
// Any failure inside the turn degrades to an idle turn.
func (s *Session) takeEnemyTurn(ctx context.Context, id string) {
	s.mu.Lock()
	if s.acting[id] {
		s.mu.Unlock()
		s.logger.Warn("enemy turn re-entry dropped", zap.String("enemy", id))
		return
	}
	s.acting[id] = true
	s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("enemy turn panicked", zap.String("enemy", id), zap.Any("panic", r))
		}
		s.mu.Lock()
		delete(s.acting, id)
		s.mu.Unlock()
	}()

	s.mu.Lock()
	self, ok := s.roster.Get(id)
	if !ok || !self.IsAlive() || s.outcome != OutcomeOngoing {
		s.mu.Unlock()
		return
	}
	player := s.roster.Player()
	if r := s.activationRange(); r > 0 {
		if d := s.grid.Distance(self.Position, player.Position); d > r {
			s.mu.Unlock()
			s.logger.Debug("enemy outside activation range", zap.String("enemy", id), zap.Int("distance", d))
			return
		}
	}
	profile, ok := s.content.Profiles.Profile(self.AIProfile)
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("enemy has no ai profile", zap.String("enemy", id), zap.String("profile", self.AIProfile))
		return
	}
	s.publishViewLocked()
	d := s.engine.Decide(self, profile, []*combat.Combatant{player})

	switch d.Action {
	case ai.ActionMoveToward, ai.ActionMoveAway:
		from := self.Position
		self.Position = d.Step
		s.publishViewLocked()
		s.mu.Unlock()
		if err := s.presenter.MoveRequested(ctx, id, from, d.Step); err != nil {
			s.logger.Warn("enemy move animation", zap.String("enemy", id), zap.Error(err))
		}
	case ai.ActionAttack:
		word := profile.ReactionWord(d.Skill, s.words)
		s.mu.Unlock()
		s.enemyAttack(ctx, self, d.Target, d.Skill, word)
	default:
		s.mu.Unlock()
	}
}

func (s *Session) activationRange() int {
	if s.enc.ActivationRange > 0 {
		return s.enc.ActivationRange
	}
	return s.rules.ActivationRange
}

// enemyAttack opens a reaction window for skill and applies its outcome.
func (s *Session) enemyAttack(ctx context.Context, attacker, target *combat.Combatant, skill combat.Skill, word string) {
	session := s.resolver.OpenReaction(word, skill.ReactionTime)
	s.presenter.ReactionWindowOpened(session.ExpectedWord, session.Limit)
	res := session.Await(ctx, s.clock)
	s.presenter.ReactionResolved(res.Success)

	s.logger.Debug("reaction resolved",
		zap.String("enemy", attacker.ID),
		zap.String("skill", skill.Command),
		zap.Bool("success", res.Success),
		zap.Stringer("reason", res.Reason),
		zap.Duration("elapsed", res.Elapsed),
	)

	if res.Reason == command.ReasonCancelled {
		// The window was abandoned; the attack never lands.
		return
	}

	s.mu.Lock()
	s.accuracy.Register(res.Success)
	if res.Success {
		bonus := score.SpeedBonus(res.Elapsed, session.Limit, s.rules.MaxSpeedBonus)
		s.tracker.AddBonus(bonus)
		s.mu.Unlock()
		if bonus > 0 {
			s.logger.Debug("speed bonus", zap.Int("bonus", bonus))
		}
		return
	}
	s.mu.Unlock()

	if err := s.presenter.AttackAnimationRequested(ctx, attacker.ID, target.ID, skill); err != nil {
		s.logger.Warn("enemy attack animation", zap.String("enemy", attacker.ID), zap.Error(err))
	}

	s.mu.Lock()
	dmg := target.ApplyDamage(skill.Damage)
	if dmg > 0 {
		s.tracker.OnFailureOrDamage()
	}
	dead := !target.IsAlive()
	s.publishViewLocked()
	s.mu.Unlock()

	s.presenter.DamageApplied(target.ID, dmg)
	if dead {
		s.finish(ctx, OutcomeDefeat, "player defeated")
	}
}
