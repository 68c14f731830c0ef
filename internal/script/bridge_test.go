package script

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmwgo/server/internal/core/handle"
)

type npc struct{ said string }

func TestBridgeInvoke(t *testing.T) {
	newBridge := func(t *testing.T) (*Bridge, *handle.Table, *int) {
		t.Helper()
		handles := handle.NewTable()
		b := NewBridge(handles, nil)
		calls := 0
		b.Register("say", []Kind{KindHandle, KindString}, func(inv *Invocation) {
			calls++
			inv.Object(0).(*npc).said = inv.Str(1)
		})
		return b, handles, &calls
	}

	t.Run("valid call resolves handle and runs side effect", func(t *testing.T) {
		b, handles, calls := newBridge(t)
		target := &npc{}
		h := handles.Mint(target)

		b.Invoke("say", []Arg{HandleArg(h), StrArg("hello")})
		require.Equal(t, 1, *calls)
		require.Equal(t, "hello", target.said)
	})

	t.Run("unknown callback is ignored", func(t *testing.T) {
		b, _, calls := newBridge(t)
		b.Invoke("shout", nil)
		require.Equal(t, 0, *calls)
	})

	t.Run("arity mismatch aborts", func(t *testing.T) {
		b, handles, calls := newBridge(t)
		h := handles.Mint(&npc{})
		b.Invoke("say", []Arg{HandleArg(h)})
		require.Equal(t, 0, *calls)
	})

	t.Run("kind mismatch aborts", func(t *testing.T) {
		b, _, calls := newBridge(t)
		b.Invoke("say", []Arg{IntArg(7), StrArg("hello")})
		require.Equal(t, 0, *calls)
	})

	t.Run("stale handle aborts without side effect", func(t *testing.T) {
		b, handles, calls := newBridge(t)
		target := &npc{}
		h := handles.Mint(target)
		handles.Invalidate(target)

		b.Invoke("say", []Arg{HandleArg(h), StrArg("hello")})
		require.Equal(t, 0, *calls)
		require.Empty(t, target.said)
	})

	t.Run("zero handle aborts", func(t *testing.T) {
		b, _, calls := newBridge(t)
		b.Invoke("say", []Arg{HandleArg(0), StrArg("hello")})
		require.Equal(t, 0, *calls)
	})
}

func TestBridgeRegister(t *testing.T) {
	b := NewBridge(handle.NewTable(), nil)
	b.Register("a", nil, func(*Invocation) {})
	b.Register("b", nil, func(*Invocation) {})

	require.Panics(t, func() {
		b.Register("a", nil, func(*Invocation) {})
	})

	cbs := b.Callbacks()
	require.Len(t, cbs, 2)
	require.Equal(t, "a", cbs[0].Name)
	require.Equal(t, "b", cbs[1].Name)
}
