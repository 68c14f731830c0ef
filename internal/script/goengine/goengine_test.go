package goengine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tmwgo/server/internal/core/handle"
	"github.com/tmwgo/server/internal/script"
)

type npc struct{ name string }

type sink struct {
	objs []any
	ints []int
	strs []string
}

func newHost(s *sink) *script.Host {
	handles := handle.NewTable()
	bridge := script.NewBridge(handles, nil)
	bridge.Register("say", []script.Kind{script.KindHandle, script.KindString}, func(inv *script.Invocation) {
		s.objs = append(s.objs, inv.Object(0))
		s.strs = append(s.strs, inv.Str(1))
	})
	bridge.Register("emit", []script.Kind{script.KindInt}, func(inv *script.Invocation) {
		s.ints = append(s.ints, inv.Int(0))
	})
	return &script.Host{Handles: handles, Bridge: bridge}
}

func load(t *testing.T, host *script.Host, src string) script.Script {
	t.Helper()
	s, err := Load(host, "test.go", []byte(src))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestExportName(t *testing.T) {
	require.Equal(t, "NpcMessage", exportName("npc_message"))
	require.Equal(t, "Say", exportName("say"))
	require.Equal(t, "ChrMoneyChange", exportName("chr_money_change"))
}

func TestLoad(t *testing.T) {
	t.Run("syntax error yields no script", func(t *testing.T) {
		s, err := Load(newHost(&sink{}), "bad.go", []byte("func ("))
		require.Error(t, err)
		require.Nil(t, s)
	})

	t.Run("top-level code runs at load", func(t *testing.T) {
		out := &sink{}
		load(t, newHost(out), `
import "tmw"

tmw.Emit(42)
`)
		require.Equal(t, []int{42}, out.ints)
	})
}

func TestExecute(t *testing.T) {
	t.Run("integer result", func(t *testing.T) {
		s := load(t, newHost(&sink{}), `func f() int { return 7 }`)
		s.Prepare("f")
		require.Equal(t, 7, s.Execute())
	})

	t.Run("arguments arrive in order", func(t *testing.T) {
		s := load(t, newHost(&sink{}), `func sub(a, b int) int { return a - b }`)
		s.Prepare("sub")
		s.PushInt(10)
		s.PushInt(4)
		require.Equal(t, 6, s.Execute())
	})

	t.Run("missing function returns 0", func(t *testing.T) {
		s := load(t, newHost(&sink{}), `func f() int { return 1 }`)
		s.Prepare("nope")
		require.Equal(t, 0, s.Execute())
	})

	t.Run("script panic returns 0", func(t *testing.T) {
		s := load(t, newHost(&sink{}), `func f() int { panic("boom") }`)
		s.Prepare("f")
		require.Equal(t, 0, s.Execute())
	})

	t.Run("arity mismatch returns 0", func(t *testing.T) {
		s := load(t, newHost(&sink{}), `func f(a int) int { return a }`)
		s.Prepare("f")
		require.Equal(t, 0, s.Execute())
	})

	t.Run("non-int return yields 0", func(t *testing.T) {
		s := load(t, newHost(&sink{}), `func f() string { return "words" }`)
		s.Prepare("f")
		require.Equal(t, 0, s.Execute())
	})

	t.Run("failed call still resets for the next one", func(t *testing.T) {
		s := load(t, newHost(&sink{}), `func f() int { return 3 }`)
		s.Prepare("nope")
		require.Equal(t, 0, s.Execute())
		s.Prepare("f")
		require.Equal(t, 3, s.Execute())
	})

	t.Run("call budget marks script dead", func(t *testing.T) {
		host := newHost(&sink{})
		host.CallTimeout = 20 * time.Millisecond
		s := load(t, host, `func spin() int { select {} }`)
		s.Prepare("spin")
		require.Equal(t, 0, s.Execute())

		// Every later call fails; the abandoned goroutine may still hold
		// the interpreter.
		s.Prepare("spin")
		require.Equal(t, 0, s.Execute())
	})

	t.Run("abandoned call cannot reach the bridge", func(t *testing.T) {
		var pokes atomic.Int64
		handles := handle.NewTable()
		bridge := script.NewBridge(handles, nil)
		bridge.Register("poke", []script.Kind{script.KindInt}, func(inv *script.Invocation) {
			pokes.Add(1)
		})
		host := &script.Host{Handles: handles, Bridge: bridge, CallTimeout: 20 * time.Millisecond}

		// The loop is bounded so the goroutine eventually exits, but it far
		// outlives the call deadline.
		s := load(t, host, `
import "tmw"

func flood() int {
	for i := 0; i < 500000; i++ {
		tmw.Poke(i)
	}
	return 0
}
`)
		s.Prepare("flood")
		require.Equal(t, 0, s.Execute())

		// A callback already past the cutoff check may finish, so let the
		// goroutine observe the flag before sampling.
		time.Sleep(10 * time.Millisecond)
		settled := pokes.Load()
		time.Sleep(50 * time.Millisecond)
		require.Equal(t, settled, pokes.Load())
	})
}

func TestHandles(t *testing.T) {
	t.Run("handle roundtrip through callback", func(t *testing.T) {
		out := &sink{}
		host := newHost(out)
		target := &npc{name: "barber"}

		s := load(t, host, `
import "tmw"

func talk(who tmw.Handle) int {
	tmw.Say(who, "hello")
	return 1
}
`)
		s.Prepare("talk")
		s.PushHandle(host.Handles.Mint(target))
		require.Equal(t, 1, s.Execute())

		require.Len(t, out.objs, 1)
		require.Same(t, target, out.objs[0])
		require.Equal(t, []string{"hello"}, out.strs)
	})

	t.Run("stored handle goes stale on invalidate", func(t *testing.T) {
		out := &sink{}
		host := newHost(out)
		target := &npc{name: "doomed"}

		s := load(t, host, `
import "tmw"

var kept tmw.Handle

func remember(who tmw.Handle) int {
	kept = who
	return 0
}

func speak() int {
	tmw.Say(kept, "ghost")
	return 0
}
`)
		s.Prepare("remember")
		s.PushHandle(host.Handles.Mint(target))
		s.Execute()

		host.Handles.Invalidate(target)

		s.Prepare("speak")
		s.Execute()
		require.Empty(t, out.objs)
	})
}

func TestCallSequenceContract(t *testing.T) {
	host := newHost(&sink{})

	t.Run("push without prepare panics", func(t *testing.T) {
		s := load(t, host, `func f() int { return 0 }`)
		require.Panics(t, func() { s.PushInt(1) })
	})

	t.Run("prepare during call panics", func(t *testing.T) {
		s := load(t, host, `func f() int { return 0 }`)
		s.Prepare("f")
		require.Panics(t, func() { s.Prepare("g") })
	})

	t.Run("use after close panics", func(t *testing.T) {
		s, err := Load(host, "x.go", []byte(`func f() int { return 0 }`))
		require.NoError(t, err)
		s.Close()
		require.Panics(t, func() { s.Execute() })
		require.Panics(t, func() { s.Close() })
	})
}
