package script

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmwgo/server/internal/core/handle"
)

type fakeScript struct {
	closed bool
}

func (f *fakeScript) Prepare(string)           {}
func (f *fakeScript) PushInt(int)              {}
func (f *fakeScript) PushHandle(handle.Handle) {}
func (f *fakeScript) Execute() int             { return 0 }
func (f *fakeScript) Close()                   { f.closed = true }

func fakeLoader(got *[]byte) Loader {
	return func(host *Host, path string, src []byte) (Script, error) {
		if got != nil {
			*got = src
		}
		return &fakeScript{}, nil
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("lua", fakeLoader(nil)))

	t.Run("duplicate name rejected, first kept", func(t *testing.T) {
		var viaFirst []byte
		r := NewRegistry()
		require.NoError(t, r.Register("lua", fakeLoader(&viaFirst)))
		require.Error(t, r.Register("lua", fakeLoader(nil)))

		host := &Host{ReadFile: func(string) ([]byte, error) { return []byte("src"), nil }}
		_, err := r.Load(host, "lua", "x.lua")
		require.NoError(t, err)
		require.Equal(t, []byte("src"), viaFirst)
	})
}

func TestRegistryLoad(t *testing.T) {
	t.Run("unknown engine", func(t *testing.T) {
		r := NewRegistry()
		s, err := r.Load(&Host{}, "nope", "x.script")
		require.Error(t, err)
		require.Nil(t, s)
	})

	t.Run("read failure", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register("lua", fakeLoader(nil)))
		host := &Host{ReadFile: func(string) ([]byte, error) { return nil, errors.New("boom") }}
		s, err := r.Load(host, "lua", "missing.lua")
		require.Error(t, err)
		require.Nil(t, s)
	})

	t.Run("loader failure", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register("bad", func(*Host, string, []byte) (Script, error) {
			return nil, errors.New("syntax error")
		}))
		host := &Host{ReadFile: func(string) ([]byte, error) { return []byte("x"), nil }}
		s, err := r.Load(host, "bad", "x.script")
		require.Error(t, err)
		require.Nil(t, s)
	})

	t.Run("success hands source to loader", func(t *testing.T) {
		var got []byte
		r := NewRegistry()
		require.NoError(t, r.Register("lua", fakeLoader(&got)))
		host := &Host{ReadFile: func(string) ([]byte, error) { return []byte("return 1"), nil }}
		s, err := r.Load(host, "lua", "x.lua")
		require.NoError(t, err)
		require.NotNil(t, s)
		require.Equal(t, []byte("return 1"), got)
	})
}

func TestDefaultRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	MustRegister("lua", fakeLoader(nil))
	require.Panics(t, func() {
		MustRegister("lua", fakeLoader(nil))
	})
}
