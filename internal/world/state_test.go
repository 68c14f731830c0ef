package world

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmwgo/server/internal/core/handle"
)

func TestStateNpcs(t *testing.T) {
	s := NewState(handle.NewTable())

	n := &Npc{ID: NextNpcID(), TemplateID: 110, Name: "Barber"}
	s.AddNpc(n)
	require.NotZero(t, n.PublicID)
	require.Same(t, n, s.GetNpc(n.ID))
	require.Equal(t, 1, s.NpcCount())

	removed := s.RemoveNpc(n.ID)
	require.Same(t, n, removed)
	require.Nil(t, s.GetNpc(n.ID))
	require.Empty(t, s.NpcList())
}

func TestRemoveNpcInvalidatesHandle(t *testing.T) {
	handles := handle.NewTable()
	s := NewState(handles)

	n := &Npc{ID: NextNpcID()}
	s.AddNpc(n)
	h := handles.Mint(n)

	s.RemoveNpc(n.ID)

	_, ok := handles.Resolve(h)
	require.False(t, ok)
}

func TestStateCharacters(t *testing.T) {
	s := NewState(handle.NewTable())

	c := &Character{SessionID: 7, ID: NextCharID(), Name: "Ayla"}
	s.AddCharacter(c)
	require.Same(t, c, s.GetBySession(7))
	require.Same(t, c, s.GetCharacter(c.ID))
	require.Same(t, c, s.GetByName("Ayla"))
	require.Equal(t, 1, s.CharacterCount())

	removed := s.RemoveCharacter(7)
	require.Same(t, c, removed)
	require.Nil(t, s.GetBySession(7))
	require.Zero(t, s.CharacterCount())

	require.Nil(t, s.RemoveCharacter(7))
}

func TestRemoveCharacterInvalidatesHandle(t *testing.T) {
	handles := handle.NewTable()
	s := NewState(handles)

	c := &Character{SessionID: 1, ID: NextCharID(), Name: "Ayla"}
	s.AddCharacter(c)
	h := handles.Mint(c)

	s.RemoveCharacter(1)

	_, ok := handles.Resolve(h)
	require.False(t, ok)
}
