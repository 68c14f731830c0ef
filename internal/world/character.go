package world

import "sync/atomic"

var charIDCounter atomic.Int32

// NextCharID returns a unique character object ID.
func NextCharID() int32 {
	return charIDCounter.Add(1)
}

// Character holds in-memory data for a player character currently in-world.
// ID is the character object ID used in packets (from NextCharID).
// Accessed only from the game loop goroutine — no locks needed.
type Character struct {
	SessionID uint64
	ID        int32
	Name      string
	X         int32
	Y         int32
	MapID     int16
	Heading   int16
	Level     int16
	HP        int32
	MaxHP     int32
	Money     int32

	// Pending warp destination (set by script or command, executed on the
	// next output phase)
	WarpX    int32
	WarpY    int32
	HasWarp  bool

	// Dialogue state: object ID of the NPC this character is talking to
	// (0 = no dialogue open).
	TalkingTo int32
}

// Warp schedules a same-map position change.
func (c *Character) Warp(x, y int32) {
	c.WarpX = x
	c.WarpY = y
	c.HasWarp = true
}
