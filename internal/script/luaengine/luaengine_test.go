package luaengine

import (
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
	s, err := Load(host, "test.lua", []byte(src))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestLoad(t *testing.T) {
	t.Run("syntax error yields no script", func(t *testing.T) {
		s, err := Load(newHost(&sink{}), "bad.lua", []byte("function ("))
		require.Error(t, err)
		require.Nil(t, s)
	})

	t.Run("top-level runtime error yields dead script", func(t *testing.T) {
		s, err := Load(newHost(&sink{}), "dead.lua", []byte(`error("boom")`))
		require.NoError(t, err)
		require.NotNil(t, s)
		defer s.Close()

		s.Prepare("anything")
		require.Equal(t, 0, s.Execute())
	})

	t.Run("top-level code runs at load", func(t *testing.T) {
		out := &sink{}
		load(t, newHost(out), `tmw.emit(42)`)
		require.Equal(t, []int{42}, out.ints)
	})
}

func TestExecute(t *testing.T) {
	t.Run("integer result", func(t *testing.T) {
		s := load(t, newHost(&sink{}), `function f() return 7 end`)
		s.Prepare("f")
		require.Equal(t, 7, s.Execute())
	})

	t.Run("arguments arrive in order", func(t *testing.T) {
		s := load(t, newHost(&sink{}), `function add(a, b) return a - b end`)
		s.Prepare("add")
		s.PushInt(10)
		s.PushInt(4)
		require.Equal(t, 6, s.Execute())
	})

	t.Run("missing function returns 0", func(t *testing.T) {
		s := load(t, newHost(&sink{}), ``)
		s.Prepare("nope")
		require.Equal(t, 0, s.Execute())
	})

	t.Run("runtime error returns 0", func(t *testing.T) {
		s := load(t, newHost(&sink{}), `function f() error("boom") end`)
		s.Prepare("f")
		require.Equal(t, 0, s.Execute())
	})

	t.Run("non-numeric return yields 0", func(t *testing.T) {
		s := load(t, newHost(&sink{}), `function f() return "words" end`)
		s.Prepare("f")
		require.Equal(t, 0, s.Execute())
	})

	t.Run("failed call still resets for the next one", func(t *testing.T) {
		s := load(t, newHost(&sink{}), `function f() return 3 end`)
		s.Prepare("nope")
		require.Equal(t, 0, s.Execute())
		s.Prepare("f")
		require.Equal(t, 3, s.Execute())
	})

	t.Run("call budget", func(t *testing.T) {
		host := newHost(&sink{})
		host.CallTimeout = 20 * time.Millisecond
		s := load(t, host, `function spin() while true do end end`)
		s.Prepare("spin")
		require.Equal(t, 0, s.Execute())
	})
}

func TestHandles(t *testing.T) {
	t.Run("handle roundtrip through callback", func(t *testing.T) {
		out := &sink{}
		host := newHost(out)
		target := &npc{name: "barber"}

		s := load(t, host, `function talk(who) tmw.say(who, "hello") end`)
		s.Prepare("talk")
		s.PushHandle(host.Handles.Mint(target))
		s.Execute()

		require.Len(t, out.objs, 1)
		require.Same(t, target, out.objs[0])
		require.Equal(t, []string{"hello"}, out.strs)
	})

	t.Run("script can store a handle across calls", func(t *testing.T) {
		out := &sink{}
		host := newHost(out)
		target := &npc{name: "barber"}

		s := load(t, host, `
			function remember(who) kept = who end
			function speak() tmw.say(kept, "still here") end
		`)
		s.Prepare("remember")
		s.PushHandle(host.Handles.Mint(target))
		s.Execute()

		s.Prepare("speak")
		s.Execute()
		require.Len(t, out.objs, 1)
		require.Same(t, target, out.objs[0])
	})

	t.Run("stored handle goes stale on invalidate", func(t *testing.T) {
		out := &sink{}
		host := newHost(out)
		target := &npc{name: "doomed"}

		s := load(t, host, `
			function remember(who) kept = who end
			function speak() tmw.say(kept, "ghost") end
		`)
		s.Prepare("remember")
		s.PushHandle(host.Handles.Mint(target))
		s.Execute()

		host.Handles.Invalidate(target)

		s.Prepare("speak")
		s.Execute()
		require.Empty(t, out.objs)
	})

	t.Run("forged argument fails shape validation", func(t *testing.T) {
		out := &sink{}
		s := load(t, newHost(out), `function talk() tmw.say(12345, "hi") end`)
		s.Prepare("talk")
		s.Execute()
		require.Empty(t, out.objs)
	})
}

func TestCallSequenceContract(t *testing.T) {
	host := newHost(&sink{})

	t.Run("push without prepare panics", func(t *testing.T) {
		s := load(t, host, ``)
		require.Panics(t, func() { s.PushInt(1) })
	})

	t.Run("execute without prepare panics", func(t *testing.T) {
		s := load(t, host, ``)
		require.Panics(t, func() { s.Execute() })
	})

	t.Run("prepare during call panics", func(t *testing.T) {
		s := load(t, host, ``)
		s.Prepare("f")
		require.Panics(t, func() { s.Prepare("g") })
	})

	t.Run("use after close panics", func(t *testing.T) {
		s, err := Load(host, "x.lua", []byte(``))
		require.NoError(t, err)
		s.Close()
		require.Panics(t, func() { s.Prepare("f") })
		require.Panics(t, func() { s.Close() })
	})
}
