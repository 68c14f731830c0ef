package world

import "sync/atomic"

// npcIDCounter generates unique NPC object IDs.
// Starts at 200_000_000 to avoid collision with character DB IDs.
var npcIDCounter atomic.Int32

func init() {
	npcIDCounter.Store(200_000_000)
}

// NextNpcID returns a unique object ID for an NPC instance.
func NextNpcID() int32 {
	return npcIDCounter.Add(1)
}

// Npc holds runtime data for an NPC currently in-world.
// Accessed only from the game loop goroutine — no locks.
type Npc struct {
	ID         int32  // unique object ID (from NextNpcID)
	PublicID   uint16 // short ID used in client-facing packets, assigned by AddNpc
	TemplateID int32  // template ID from the NPC table
	Name       string
	GfxID      int32
	X          int32
	Y          int32
	MapID      int16
	Heading    int16
}
