package main

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// luaMonitor evaluates the small Lua snippets an operator can send
// over the GDB remote protocol's qRcmd ("monitor <command>") packet.
// Each invocation gets a fresh, sandboxed interpreter — only base,
// string, and math are loaded, so a monitor command has no filesystem
// or process access — seeded with a reg() accessor bound to whatever
// core is currently focused. No state persists between commands.
//
// Grounded in debug_conditions.go's hand-rolled breakpoint-condition
// parser, generalized from a bespoke operator grammar to a real
// embeddable language.
type luaMonitor struct{}

func newLuaMonitor() *luaMonitor { return &luaMonitor{} }

// Run evaluates cmd and returns whatever it printed, or "ok\n" if it
// printed nothing. target may be nil, in which case reg() is
// unavailable to the script.
func (m *luaMonitor) Run(cmd string, target GdbTarget) (string, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	lua.OpenBase(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// The base library also carries file loaders; remove them.
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)

	var out strings.Builder
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.Get(i).String())
		}
		out.WriteString(strings.Join(parts, "\t"))
		out.WriteByte('\n')
		return 0
	}))

	if target != nil {
		L.SetGlobal("reg", L.NewFunction(func(L *lua.LState) int {
			idx := L.CheckInt(1)
			regs := target.ReadRegisters(target.CurrentThread())
			if idx < 0 || idx >= len(regs) {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LNumber(regs[idx]))
			return 1
		}))
	}

	if err := L.DoString(cmd); err != nil {
		return "", fmt.Errorf("lua: %w", err)
	}
	if out.Len() == 0 {
		return "ok\n", nil
	}
	return out.String(), nil
}
