// Package handle maps opaque tokens to live simulation objects. Scripts
// receive handles instead of references, so a script that keeps a value past
// the object's destruction holds a detectably stale token rather than a
// dangling pointer.
package handle

import "sync"

// Handle encodes a 32-bit slot index in the lower bits and a 32-bit
// generation in the upper bits. Generation increments when the slot's object
// is destroyed, so stale handles never resolve and never alias a later
// object placed in the same slot. The zero value is reserved as "no handle".
type Handle uint64

func New(index uint32, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32      { return uint32(h) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }
func (h Handle) IsZero() bool       { return h == 0 }

type slot struct {
	generation uint32
	obj        any // nil = unoccupied
}

// Table is the arena of object identities exposed to scripts. An entry is
// minted when an object is first pushed into a script call and invalidated
// by the simulation's destroy path. The simulation owns object lifetime;
// the table only observes it.
//
// Mint and Invalidate serialize on a mutex even though the game loop is
// single-threaded, so the table stays correct under a multi-threaded port.
type Table struct {
	mu    sync.Mutex
	slots []slot
	free  []uint32
	index map[any]uint32 // live object -> slot, so repeated mints reuse the handle
}

func NewTable() *Table {
	return &Table{
		slots: make([]slot, 1, 256), // slot 0 burned so Handle zero is never minted
		index: make(map[any]uint32, 256),
	}
}

// Mint returns the handle for obj, allocating a slot on first exposure.
// While obj is live every call returns the same handle.
func (t *Table) Mint(obj any) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	if idx, ok := t.index[obj]; ok {
		return New(idx, t.slots[idx].generation)
	}

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot{})
	}
	t.slots[idx].obj = obj
	t.index[obj] = idx
	return New(idx, t.slots[idx].generation)
}

// Resolve returns the live object for h. A zero, unknown, or stale handle
// yields (nil, false); it never reads reclaimed state.
func (t *Table) Resolve(h Handle) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := h.Index()
	if h.IsZero() || idx >= uint32(len(t.slots)) {
		return nil, false
	}
	s := t.slots[idx]
	if s.obj == nil || s.generation != h.Generation() {
		return nil, false
	}
	return s.obj, true
}

// Invalidate marks obj's handle stale. The destroy path must call this
// synchronously, before the object's storage is reused, because a script may
// call back into native code at any point afterwards. Unexposed objects are
// a no-op.
func (t *Table) Invalidate(obj any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.index[obj]
	if !ok {
		return
	}
	t.slots[idx].generation++
	t.slots[idx].obj = nil
	delete(t.index, obj)
	t.free = append(t.free, idx)
}

// Live reports the number of currently resolvable handles.
func (t *Table) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.index)
}
