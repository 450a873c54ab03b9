package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/keystrike/internal/game/dice"
)

// RegisterModules registers the engine global into L:
//
//	engine.log.debug/info/warn/error(msg)
//	engine.dice.pick(n)      -> 1..n
//	engine.dice.chance(pct)  -> bool
//	engine.combatant(uid)    -> table or nil
//	engine.combatants()      -> array of tables
//	engine.distance(a, b)    -> number or nil
//	engine.notify(msg)
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	logTbl := L.NewTable()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	} {
		write := fn
		L.SetField(logTbl, name, L.NewFunction(func(L *lua.LState) int {
			write("lua", zap.String("msg", L.CheckString(1)))
			return 0
		}))
	}
	L.SetField(engine, "log", logTbl)

	diceTbl := L.NewTable()
	L.SetField(diceTbl, "pick", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n <= 0 {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(dice.Pick(m.src, n) + 1))
		return 1
	}))
	L.SetField(diceTbl, "chance", L.NewFunction(func(L *lua.LState) int {
		pct := L.CheckInt(1)
		L.Push(lua.LBool(m.src.Intn(100) < pct))
		return 1
	}))
	L.SetField(engine, "dice", diceTbl)

	L.SetField(engine, "combatant", L.NewFunction(func(L *lua.LState) int {
		uid := L.CheckString(1)
		if m.GetCombatant == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.GetCombatant(uid)
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(combatantTable(L, info))
		return 1
	}))

	L.SetField(engine, "combatants", L.NewFunction(func(L *lua.LState) int {
		out := L.NewTable()
		if m.ListCombatants != nil {
			for _, info := range m.ListCombatants() {
				out.Append(combatantTable(L, info))
			}
		}
		L.Push(out)
		return 1
	}))

	L.SetField(engine, "distance", L.NewFunction(func(L *lua.LState) int {
		a, b := L.CheckString(1), L.CheckString(2)
		if m.Distance == nil {
			L.Push(lua.LNil)
			return 1
		}
		d, ok := m.Distance(a, b)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(d))
		return 1
	}))

	L.SetField(engine, "notify", L.NewFunction(func(L *lua.LState) int {
		msg := L.CheckString(1)
		if m.Notify != nil {
			m.Notify(msg)
		}
		return 0
	}))

	L.SetGlobal("engine", engine)
}

func combatantTable(L *lua.LState, c *CombatantInfo) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "uid", lua.LString(c.UID))
	L.SetField(t, "name", lua.LString(c.Name))
	L.SetField(t, "faction", lua.LString(c.Faction))
	L.SetField(t, "hp", lua.LNumber(c.HP))
	L.SetField(t, "max_hp", lua.LNumber(c.MaxHP))
	L.SetField(t, "ap", lua.LNumber(c.AP))
	L.SetField(t, "max_ap", lua.LNumber(c.MaxAP))
	L.SetField(t, "q", lua.LNumber(c.Q))
	L.SetField(t, "r", lua.LNumber(c.R))
	return t
}
