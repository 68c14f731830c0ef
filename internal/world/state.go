package world

import (
	"github.com/tmwgo/server/internal/core/handle"
)

// State is the authoritative in-memory world. All access happens on the
// game loop goroutine; the handle table it carries is what scripts use to
// refer to the objects stored here, so every removal path must invalidate
// handles before the object leaves the maps.
type State struct {
	handles *handle.Table

	bySession map[uint64]*Character // SessionID → Character
	byID      map[int32]*Character  // character DB ID → Character
	byName    map[string]*Character // character name → Character

	npcs    map[int32]*Npc // NPC object ID → Npc
	npcList []*Npc         // all NPCs, for tick iteration

	nextPublicID uint16 // client-facing short NPC IDs
}

func NewState(handles *handle.Table) *State {
	return &State{
		handles:   handles,
		bySession: make(map[uint64]*Character),
		byID:      make(map[int32]*Character),
		byName:    make(map[string]*Character),
		npcs:      make(map[int32]*Npc),
	}
}

// Handles returns the world's handle table.
func (s *State) Handles() *handle.Table { return s.handles }

// AddCharacter registers a character in the world.
func (s *State) AddCharacter(c *Character) {
	s.bySession[c.SessionID] = c
	s.byID[c.ID] = c
	s.byName[c.Name] = c
}

// RemoveCharacter removes a character from the world. Any handle minted for
// it goes stale before the character is unreachable from the maps.
func (s *State) RemoveCharacter(sessionID uint64) *Character {
	c, ok := s.bySession[sessionID]
	if !ok {
		return nil
	}
	s.handles.Invalidate(c)
	delete(s.bySession, sessionID)
	delete(s.byID, c.ID)
	delete(s.byName, c.Name)
	return c
}

// GetBySession returns a character by session ID.
func (s *State) GetBySession(sessionID uint64) *Character {
	return s.bySession[sessionID]
}

// GetCharacter returns a character by DB ID.
func (s *State) GetCharacter(id int32) *Character {
	return s.byID[id]
}

// GetByName returns a character by name.
func (s *State) GetByName(name string) *Character {
	return s.byName[name]
}

// CharacterCount returns the number of characters in-world.
func (s *State) CharacterCount() int {
	return len(s.bySession)
}

// AllCharacters iterates over every character in-world.
func (s *State) AllCharacters(fn func(*Character)) {
	for _, c := range s.bySession {
		fn(c)
	}
}

// AddNpc registers an NPC in the world, assigning its public ID.
func (s *State) AddNpc(n *Npc) {
	s.nextPublicID++
	n.PublicID = s.nextPublicID
	s.npcs[n.ID] = n
	s.npcList = append(s.npcList, n)
}

// GetNpc returns an NPC by object ID.
func (s *State) GetNpc(id int32) *Npc {
	return s.npcs[id]
}

// RemoveNpc removes an NPC from the world, invalidating its handle first so
// a script still holding it resolves nothing rather than a destroyed NPC.
func (s *State) RemoveNpc(id int32) *Npc {
	n, ok := s.npcs[id]
	if !ok {
		return nil
	}
	s.handles.Invalidate(n)
	delete(s.npcs, id)
	for i, e := range s.npcList {
		if e == n {
			s.npcList = append(s.npcList[:i], s.npcList[i+1:]...)
			break
		}
	}
	return n
}

// NpcList returns all NPCs for tick iteration. The returned slice is owned
// by the State; callers must not retain it across removals.
func (s *State) NpcList() []*Npc {
	return s.npcList
}

// NpcCount returns the number of NPCs in-world.
func (s *State) NpcCount() int {
	return len(s.npcs)
}
