// Package luaengine implements the Script contract on a gopher-lua VM,
// registered under engine name "lua". Native callbacks appear to Lua code as
// functions on the global "tmw" table; entity handles cross the boundary as
// opaque userdata tokens.
package luaengine

import (
	"context"
	"fmt"

	"github.com/tmwgo/server/internal/core/handle"
	"github.com/tmwgo/server/internal/script"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Namespace is the global table Lua scripts reach callbacks through.
const Namespace = "tmw"

func init() {
	script.MustRegister("lua", Load)
}

// Script wraps a single Lua VM. One owner, game-loop access only.
type Script struct {
	vm   *lua.LState
	host *script.Host
	log  *zap.Logger

	fn     lua.LValue // resolved by Prepare, possibly LNil
	fnName string
	args   []lua.LValue
	nargs  int // -1 = no call prepared

	dead   bool // top-level code failed; every call fails
	closed bool
}

// Load compiles and runs src as top-level code in a fresh VM. A syntax error
// yields no Script; a runtime error in top-level code yields a dead Script
// whose calls all fail, matching the load-versus-call error split.
func Load(host *script.Host, path string, src []byte) (script.Script, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})

	s := &Script{
		vm:    vm,
		host:  host,
		log:   host.Logger().With(zap.String("engine", "lua"), zap.String("file", path)),
		nargs: -1,
	}
	s.registerBridge()

	top, err := vm.LoadString(string(src))
	if err != nil {
		vm.Close()
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}

	vm.Push(top)
	if err := vm.PCall(0, 0, nil); err != nil {
		s.log.Error("failure while initializing script", zap.Error(err))
		s.dead = true
	}
	return s, nil
}

// registerBridge binds every bridge callback into the tmw table. The
// closures translate Lua values into tagged arguments; validation and side
// effects stay in the bridge.
func (s *Script) registerBridge() {
	if s.host.Bridge == nil {
		return
	}
	tbl := s.vm.NewTable()
	for _, cb := range s.host.Bridge.Callbacks() {
		name := cb.Name
		s.vm.SetField(tbl, name, s.vm.NewFunction(func(L *lua.LState) int {
			top := L.GetTop()
			args := make([]script.Arg, top)
			for i := 1; i <= top; i++ {
				args[i-1] = luaArg(L.Get(i))
			}
			s.host.Bridge.Invoke(name, args)
			return 0
		}))
	}
	s.vm.SetGlobal(Namespace, tbl)
}

// luaArg tags a Lua value for the bridge. Values with no native equivalent
// become KindNone and fail shape validation there.
func luaArg(v lua.LValue) script.Arg {
	switch lv := v.(type) {
	case lua.LNumber:
		return script.IntArg(int64(lv))
	case lua.LString:
		return script.StrArg(string(lv))
	case *lua.LUserData:
		if h, ok := lv.Value.(handle.Handle); ok {
			return script.HandleArg(h)
		}
	}
	return script.Arg{Kind: script.KindNone}
}

func (s *Script) Prepare(fn string) {
	s.checkOpen()
	if s.nargs != -1 {
		panic("luaengine: Prepare with a call already in progress")
	}
	s.fn = s.vm.GetGlobal(fn)
	s.fnName = fn
	s.args = s.args[:0]
	s.nargs = 0
}

func (s *Script) PushInt(v int) {
	s.checkOpen()
	if s.nargs < 0 {
		panic("luaengine: PushInt without a prepared call")
	}
	s.args = append(s.args, lua.LNumber(v))
	s.nargs++
}

// PushHandle passes the handle as userdata rather than a number: Lua numbers
// are float64 and cannot carry all 64 token bits losslessly. The userdata is
// freely storable by the script but only the bridge can resolve it.
func (s *Script) PushHandle(h handle.Handle) {
	s.checkOpen()
	if s.nargs < 0 {
		panic("luaengine: PushHandle without a prepared call")
	}
	ud := s.vm.NewUserData()
	ud.Value = h
	s.args = append(s.args, ud)
	s.nargs++
}

func (s *Script) Execute() int {
	s.checkOpen()
	if s.nargs < 0 {
		panic("luaengine: Execute without a prepared call")
	}
	fn, fnName := s.fn, s.fnName
	args := make([]lua.LValue, len(s.args))
	copy(args, s.args)

	// Reset the call context unconditionally before running.
	s.fn = nil
	s.fnName = ""
	s.args = s.args[:0]
	s.nargs = -1

	if s.dead {
		s.log.Warn("call on script whose initialization failed", zap.String("func", fnName))
		return 0
	}
	if fn == lua.LNil {
		s.log.Warn("script function not found", zap.String("func", fnName))
		return 0
	}

	if d := s.host.CallTimeout; d > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), d)
		s.vm.SetContext(ctx)
		defer func() {
			cancel()
			s.vm.RemoveContext()
		}()
	}

	if err := s.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		s.log.Warn("failure while calling script function",
			zap.String("func", fnName),
			zap.Error(err),
		)
		return 0
	}

	ret := s.vm.Get(-1)
	s.vm.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		s.log.Warn("script function returned non-numeric value",
			zap.String("func", fnName),
			zap.String("type", ret.Type().String()),
		)
		return 0
	}
	return int(n)
}

func (s *Script) Close() {
	if s.closed {
		panic("luaengine: Close on closed script")
	}
	s.closed = true
	s.vm.Close()
}

func (s *Script) checkOpen() {
	if s.closed {
		panic("luaengine: call on closed script")
	}
}
