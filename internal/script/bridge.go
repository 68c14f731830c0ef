package script

import (
	"github.com/tmwgo/server/internal/core/handle"
	"go.uber.org/zap"
)

// CallbackFunc performs a callback's native side effect. It runs only after
// every argument has validated; handle arguments arrive already resolved.
type CallbackFunc func(inv *Invocation)

// Callback is one native function invocable from script code, with a fixed
// name and argument shape. The name/shape pair is the contract between
// content authors and the engine.
type Callback struct {
	Name  string
	Shape []Kind
	Fn    CallbackFunc
}

// Invocation gives a callback typed access to its validated arguments.
type Invocation struct {
	args []Arg
	objs []any // resolved object per handle argument, nil elsewhere
}

// Int returns argument i as an integer.
func (inv *Invocation) Int(i int) int { return int(inv.args[i].Int) }

// Str returns argument i as a string.
func (inv *Invocation) Str(i int) string { return inv.args[i].Str }

// Object returns the live simulation object behind handle argument i.
func (inv *Invocation) Object(i int) any { return inv.objs[i] }

// Bridge is the set of native callbacks a backend exposes to script code
// under the fixed namespace. It applies the validation protocol uniformly:
// arity, then tags, then handle liveness; any failure aborts the callback
// with a logged warning and no native side effect. Validation failures are
// silent to the script — a malformed call can never crash the host or
// corrupt state.
type Bridge struct {
	handles   *handle.Table
	log       *zap.Logger
	order     []string
	callbacks map[string]*Callback
}

func NewBridge(handles *handle.Table, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		handles:   handles,
		log:       log,
		callbacks: make(map[string]*Callback),
	}
}

// Register adds a callback. Names are fixed at startup; registering the same
// name twice is a programming error.
func (b *Bridge) Register(name string, shape []Kind, fn CallbackFunc) {
	if _, dup := b.callbacks[name]; dup {
		panic("script: duplicate callback " + name)
	}
	b.callbacks[name] = &Callback{Name: name, Shape: shape, Fn: fn}
	b.order = append(b.order, name)
}

// Callbacks returns all callbacks in registration order, for backends to
// bind into their interpreter namespace.
func (b *Bridge) Callbacks() []*Callback {
	out := make([]*Callback, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.callbacks[name])
	}
	return out
}

// Handles returns the table handle arguments resolve against.
func (b *Bridge) Handles() *handle.Table { return b.handles }

// Invoke validates args against the named callback's shape and runs it.
// Unknown names and validation failures log and return without side effect.
func (b *Bridge) Invoke(name string, args []Arg) {
	cb, ok := b.callbacks[name]
	if !ok {
		b.log.Warn("unknown callback invoked from script", zap.String("callback", name))
		return
	}

	if len(args) != len(cb.Shape) {
		b.log.Warn("callback called with wrong argument count",
			zap.String("callback", name),
			zap.Int("want", len(cb.Shape)),
			zap.Int("got", len(args)),
		)
		return
	}

	inv := &Invocation{args: args, objs: make([]any, len(args))}
	for i, want := range cb.Shape {
		if args[i].Kind != want {
			b.log.Warn("callback called with incorrect parameters",
				zap.String("callback", name),
				zap.Int("arg", i),
				zap.String("want", want.String()),
				zap.String("got", args[i].Kind.String()),
			)
			return
		}
		if want == KindHandle {
			obj, live := b.handles.Resolve(args[i].Handle)
			if !live {
				b.log.Warn("callback called with stale or unknown handle",
					zap.String("callback", name),
					zap.Int("arg", i),
				)
				return
			}
			inv.objs[i] = obj
		}
	}

	cb.Fn(inv)
}
