package encounter

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/keystrike/internal/game/combat"
	"github.com/cory-johannsen/keystrike/internal/game/grid"
	"github.com/cory-johannsen/keystrike/internal/scripting"
)

// scriptView is an immutable copy of the roster read by Lua callbacks.
// Hooks run while the session lock is held, so callbacks never lock.
type scriptView struct {
	list []*scripting.CombatantInfo
	byID map[string]*scripting.CombatantInfo
}

func infoOf(c *combat.Combatant) *scripting.CombatantInfo {
	return &scripting.CombatantInfo{
		UID:     c.ID,
		Name:    c.Name,
		Faction: c.Faction.String(),
		HP:      c.CurrentHP,
		MaxHP:   c.MaxHP,
		AP:      c.CurrentAP,
		MaxAP:   c.MaxAP,
		Q:       c.Position.Q,
		R:       c.Position.R,
	}
}

func coordOf(c *scripting.CombatantInfo) grid.Coord {
	return grid.Coord{Q: c.Q, R: c.R}
}

// publishViewLocked refreshes the view scripts see.
func (s *Session) publishViewLocked() {
	v := &scriptView{byID: make(map[string]*scripting.CombatantInfo)}
	all := append([]*combat.Combatant{s.roster.Player()}, s.roster.Enemies()...)
	for _, c := range all {
		info := infoOf(c)
		v.list = append(v.list, info)
		v.byID[info.UID] = info
	}
	s.view.Store(v)
}

// bindScripts points the script manager's engine.* callbacks at this session.
func (s *Session) bindScripts() {
	if s.scripts == nil {
		return
	}
	s.scripts.GetCombatant = func(uid string) *scripting.CombatantInfo {
		if v := s.view.Load(); v != nil {
			if c, ok := v.byID[uid]; ok {
				cp := *c
				return &cp
			}
		}
		return nil
	}
	s.scripts.ListCombatants = func() []*scripting.CombatantInfo {
		v := s.view.Load()
		if v == nil {
			return nil
		}
		out := make([]*scripting.CombatantInfo, 0, len(v.list))
		for _, c := range v.list {
			cp := *c
			out = append(out, &cp)
		}
		return out
	}
	dist := s.grid.Distance
	s.scripts.Distance = func(a, b string) (int, bool) {
		v := s.view.Load()
		if v == nil {
			return 0, false
		}
		ca, okA := v.byID[a]
		cb, okB := v.byID[b]
		if !okA || !okB {
			return 0, false
		}
		return dist(coordOf(ca), coordOf(cb)), true
	}
	s.scripts.Notify = s.presenter.Notice
}

// defeatedHook runs on_enemy_defeated and returns the bonus it grants.
func (s *Session) defeatedHook(uid string, kills int) int {
	if s.scripts == nil {
		return 0
	}
	ret, err := s.scripts.CallHook(s.enc.ID, "on_enemy_defeated", lua.LString(uid), lua.LNumber(kills))
	if err != nil {
		return 0
	}
	if n, ok := ret.(lua.LNumber); ok && n > 0 {
		return int(n)
	}
	return 0
}

// victoryHook runs on_victory and returns its closing line, if any.
func (s *Session) victoryHook(finalScore int) string {
	if s.scripts == nil {
		return ""
	}
	ret, err := s.scripts.CallHook(s.enc.ID, "on_victory", lua.LNumber(finalScore))
	if err != nil {
		return ""
	}
	if str, ok := ret.(lua.LString); ok {
		return string(str)
	}
	return ""
}
