// Package hooks runs optional user Lua callbacks around build operations.
// A project may carry .enginectl/hooks.lua defining any of on_build_start,
// on_build_success, and on_build_failure. Hook errors are logged and never
// fail the build.
package hooks

import (
	"log/slog"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
)

const FileName = "hooks.lua"

type Hooks struct {
	path string
	log  *slog.Logger
}

// Load returns nil when the project has no hook script; all methods are
// nil-safe no-ops in that case.
func Load(projectDir string, log *slog.Logger) *Hooks {
	path := filepath.Join(projectDir, ".enginectl", FileName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return &Hooks{path: path, log: log}
}

func (h *Hooks) OnBuildStart(operation string) {
	h.call("on_build_start", lua.LString(operation))
}

func (h *Hooks) OnBuildSuccess(operation string) {
	h.call("on_build_success", lua.LString(operation))
}

func (h *Hooks) OnBuildFailure(operation, message string) {
	h.call("on_build_failure", lua.LString(operation), lua.LString(message))
}

// call runs one hook in a fresh sandboxed state. Scripts see only the safe
// standard libraries plus a log() function.
func (h *Hooks) call(name string, args ...lua.LValue) {
	if h == nil {
		return
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	h.openSafeLibs(L)
	L.SetGlobal("log", L.NewFunction(h.luaLog))

	if err := L.DoFile(h.path); err != nil {
		h.log.Warn("hook script failed to load", "path", h.path, "error", err)
		return
	}

	fn := L.GetGlobal(name)
	if fn == lua.LNil {
		return
	}

	L.Push(fn)
	for _, a := range args {
		L.Push(a)
	}
	if err := L.PCall(len(args), 0, nil); err != nil {
		h.log.Warn("hook failed", "hook", name, "error", err)
	}
}

// openSafeLibs loads only the safe standard libraries.
func (h *Hooks) openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)

	// Remove filesystem and code-loading escape hatches
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)
	L.SetGlobal("print", lua.LNil) // Use log() instead

	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

func (h *Hooks) luaLog(L *lua.LState) int {
	msg := L.CheckString(1)
	h.log.Info("hook", "message", msg)
	return 0
}
