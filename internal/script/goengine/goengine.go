// Package goengine implements the Script contract on a yaegi interpreter,
// registered under engine name "go". Scripts are plain Go source evaluated
// in a sandboxed interpreter with a restricted standard library; native
// callbacks are importable as package "tmw" with CamelCased names
// (npc_message becomes tmw.NpcMessage).
package goengine

import (
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tmwgo/server/internal/core/handle"
	"github.com/tmwgo/server/internal/script"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"
)

func init() {
	script.MustRegister("go", Load)
}

// allowedPkgs is the stdlib surface exposed to scripts. Anything touching
// the OS, the network, or unsafe stays out.
var allowedPkgs = []string{
	"fmt/fmt",
	"math/math",
	"math/rand/rand",
	"sort/sort",
	"strconv/strconv",
	"strings/strings",
}

// Script wraps a single yaegi interpreter.
type Script struct {
	interp *interp.Interpreter
	host   *script.Host
	log    *zap.Logger

	fn     reflect.Value
	fnOK   bool
	fnName string
	args   []reflect.Value
	nargs  int // -1 = no call prepared

	dead   bool // a call exceeded its budget; the interpreter may still be running it
	closed bool

	// abandoned cuts the runaway goroutine off from the bridge. It is the
	// only field that goroutine may touch after a budget overrun, read
	// inside every synthesized callback before the bridge is entered.
	abandoned atomic.Bool
}

// Load evaluates src as top-level Go code. yaegi reports syntax and
// top-level runtime failures through the same error path, so either yields
// an absent Script.
func Load(host *script.Host, path string, src []byte) (script.Script, error) {
	i := interp.New(interp.Options{})
	s := &Script{
		interp: i,
		host:   host,
		log:    host.Logger().With(zap.String("engine", "go"), zap.String("file", path)),
		nargs:  -1,
	}
	i.Use(restrictedStdlib())
	i.Use(bridgeExports(s))

	if _, err := i.Eval(string(src)); err != nil {
		return nil, fmt.Errorf("eval script %s: %w", path, err)
	}
	return s, nil
}

func restrictedStdlib() interp.Exports {
	restricted := interp.Exports{}
	for _, key := range allowedPkgs {
		if syms, ok := stdlib.Symbols[key]; ok {
			restricted[key] = syms
		}
	}
	return restricted
}

var (
	intType    = reflect.TypeOf(int(0))
	stringType = reflect.TypeOf("")
	handleType = reflect.TypeOf(handle.Handle(0))
)

// bridgeExports builds the "tmw" package from the bridge's callback table.
// Each callback gets a typed function synthesized from its shape, so script
// code gets ordinary compile-style type checking from the interpreter while
// the bridge still revalidates every argument. The functions are bound to
// the owning Script so an abandoned call can be disconnected from the
// bridge instead of racing the game loop.
func bridgeExports(s *Script) interp.Exports {
	syms := map[string]reflect.Value{
		"Handle": reflect.ValueOf((*handle.Handle)(nil)),
	}
	if s.host.Bridge != nil {
		for _, cb := range s.host.Bridge.Callbacks() {
			syms[exportName(cb.Name)] = makeCallbackFunc(s, cb)
		}
	}
	return interp.Exports{"tmw/tmw": syms}
}

func makeCallbackFunc(s *Script, cb *script.Callback) reflect.Value {
	name := cb.Name
	in := make([]reflect.Type, len(cb.Shape))
	for i, k := range cb.Shape {
		switch k {
		case script.KindInt:
			in[i] = intType
		case script.KindString:
			in[i] = stringType
		case script.KindHandle:
			in[i] = handleType
		default:
			in[i] = reflect.TypeOf((*any)(nil)).Elem()
		}
	}
	ft := reflect.FuncOf(in, nil, false)
	return reflect.MakeFunc(ft, func(vals []reflect.Value) []reflect.Value {
		if s.abandoned.Load() {
			return nil
		}
		args := make([]script.Arg, len(vals))
		for i, v := range vals {
			switch cb.Shape[i] {
			case script.KindInt:
				args[i] = script.IntArg(v.Int())
			case script.KindString:
				args[i] = script.StrArg(v.String())
			case script.KindHandle:
				args[i] = script.HandleArg(v.Interface().(handle.Handle))
			}
		}
		s.host.Bridge.Invoke(name, args)
		return nil
	})
}

// exportName converts a callback's script name to the exported Go form:
// npc_message -> NpcMessage.
func exportName(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}

func (s *Script) Prepare(fn string) {
	s.checkOpen()
	if s.nargs != -1 {
		panic("goengine: Prepare with a call already in progress")
	}
	v, err := s.interp.Eval(fn)
	s.fnOK = err == nil && v.IsValid() && v.Kind() == reflect.Func
	s.fn = v
	s.fnName = fn
	s.args = s.args[:0]
	s.nargs = 0
}

func (s *Script) PushInt(v int) {
	s.checkOpen()
	if s.nargs < 0 {
		panic("goengine: PushInt without a prepared call")
	}
	s.args = append(s.args, reflect.ValueOf(v))
	s.nargs++
}

func (s *Script) PushHandle(h handle.Handle) {
	s.checkOpen()
	if s.nargs < 0 {
		panic("goengine: PushHandle without a prepared call")
	}
	s.args = append(s.args, reflect.ValueOf(h))
	s.nargs++
}

type callResult struct {
	out      []reflect.Value
	panicked any
}

func (s *Script) Execute() int {
	s.checkOpen()
	if s.nargs < 0 {
		panic("goengine: Execute without a prepared call")
	}
	fn, fnOK, fnName := s.fn, s.fnOK, s.fnName
	args := make([]reflect.Value, len(s.args))
	copy(args, s.args)

	s.fn = reflect.Value{}
	s.fnOK = false
	s.fnName = ""
	s.args = s.args[:0]
	s.nargs = -1

	if s.dead {
		s.log.Warn("call on script abandoned after budget exhaustion", zap.String("func", fnName))
		return 0
	}
	if !fnOK {
		s.log.Warn("script function not found", zap.String("func", fnName))
		return 0
	}

	// Reflect calls cannot be preempted, so the call runs on its own
	// goroutine. On deadline the goroutine is abandoned: the script is
	// marked dead so the interpreter is never entered again, and the
	// abandoned flag cuts the runaway call off from the bridge before
	// control returns to the game loop.
	ch := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- callResult{panicked: r}
			}
		}()
		ch <- callResult{out: fn.Call(args)}
	}()

	var res callResult
	if d := s.host.CallTimeout; d > 0 {
		select {
		case res = <-ch:
		case <-time.After(d):
			s.dead = true
			s.abandoned.Store(true)
			s.log.Warn("script call exceeded budget",
				zap.String("func", fnName),
				zap.Duration("budget", d),
			)
			return 0
		}
	} else {
		res = <-ch
	}

	if res.panicked != nil {
		s.log.Warn("failure while calling script function",
			zap.String("func", fnName),
			zap.Any("error", res.panicked),
		)
		return 0
	}
	if len(res.out) != 1 || res.out[0].Kind() != reflect.Int {
		s.log.Warn("script function returned non-numeric value", zap.String("func", fnName))
		return 0
	}
	return int(res.out[0].Int())
}

func (s *Script) Close() {
	if s.closed {
		panic("goengine: Close on closed script")
	}
	s.closed = true
	s.abandoned.Store(true)
	s.interp = nil
}

func (s *Script) checkOpen() {
	if s.closed {
		panic("goengine: call on closed script")
	}
}
