package script

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// newState creates a Lua state with only the safe standard libraries.
// print output is collected into out.
func newState(out *[]string) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// io, os, debug and package are never opened
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		*out = append(*out, strings.Join(parts, "\t"))
		return 0
	}))
	return L
}

// field reads an optional string field from a Lua table.
func field(L *lua.LState, t *lua.LTable, name string) string {
	v := L.GetField(t, name)
	if v == lua.LNil {
		return ""
	}
	s, ok := v.(lua.LString)
	if !ok {
		L.ArgError(1, "field "+name+" must be a string")
	}
	return string(s)
}
