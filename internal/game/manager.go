// Package game ties the world, the network layer, and the script engines
// together. The Manager owns every live script instance and is the only
// code that drives the prepare/push/execute calling convention.
package game

import (
	"path/filepath"
	"time"

	"github.com/tmwgo/server/internal/data"
	"github.com/tmwgo/server/internal/net/packet"
	"github.com/tmwgo/server/internal/script"
	"github.com/tmwgo/server/internal/world"
	"go.uber.org/zap"
)

// Sender delivers built packets to sessions. *net.SessionStore implements it.
type Sender interface {
	SendTo(sessionID uint64, data []byte)
	Broadcast(data []byte)
}

// Manager owns NPC and item scripts and dispatches game events into them.
// All methods run on the game loop goroutine.
type Manager struct {
	log   *zap.Logger
	world *world.State
	host  *script.Host
	send  Sender

	npcTable  *data.NpcTable
	itemTable *data.ItemTable

	scriptsDir    string
	defaultEngine string

	npcScripts  map[int32]script.Script // NPC object ID → script
	itemScripts map[int32]script.Script // item class ID → script (lazy, nil = load failed)

	// Scripts of NPCs removed mid-tick. An NPC can be removed from inside
	// its own script call, so Close is deferred until the cleanup phase.
	deadScripts []script.Script
}

// Options configures a Manager.
type Options struct {
	World         *world.State
	Send          Sender
	NpcTable      *data.NpcTable
	ItemTable     *data.ItemTable
	ScriptsDir    string
	DefaultEngine string
	CallTimeout   time.Duration
	Log           *zap.Logger
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		log:           opts.Log,
		world:         opts.World,
		send:          opts.Send,
		npcTable:      opts.NpcTable,
		itemTable:     opts.ItemTable,
		scriptsDir:    opts.ScriptsDir,
		defaultEngine: opts.DefaultEngine,
		npcScripts:    make(map[int32]script.Script),
		itemScripts:   make(map[int32]script.Script),
	}
	bridge := script.NewBridge(opts.World.Handles(), opts.Log)
	m.registerCallbacks(bridge)
	m.host = &script.Host{
		Handles:     opts.World.Handles(),
		Bridge:      bridge,
		Log:         opts.Log,
		CallTimeout: opts.CallTimeout,
	}
	return m
}

// Host returns the script host shared by every script the Manager loads.
func (m *Manager) Host() *script.Host { return m.host }

// SpawnNpc instantiates an NPC from its template, loads its behavior script
// if it has one, and announces it to all clients. Returns nil when the
// template is unknown. A script that fails to load leaves the NPC in-world
// without behavior.
func (m *Manager) SpawnNpc(templateID int32, mapID int16, x, y int32, heading int16) *world.Npc {
	tmpl := m.npcTable.Get(templateID)
	if tmpl == nil {
		m.log.Warn("spawn of unknown NPC template", zap.Int32("template", templateID))
		return nil
	}
	npc := &world.Npc{
		ID:         world.NextNpcID(),
		TemplateID: tmpl.NpcID,
		Name:       tmpl.Name,
		GfxID:      tmpl.GfxID,
		X:          x,
		Y:          y,
		MapID:      mapID,
		Heading:    heading,
	}
	m.world.AddNpc(npc)

	if tmpl.Script != "" {
		engine := tmpl.Engine
		if engine == "" {
			engine = m.defaultEngine
		}
		s, err := script.Load(m.host, engine, filepath.Join(m.scriptsDir, tmpl.Script))
		if err != nil {
			m.log.Warn("NPC script failed to load",
				zap.Int32("template", tmpl.NpcID),
				zap.String("script", tmpl.Script),
				zap.Error(err),
			)
		} else {
			m.npcScripts[npc.ID] = s
		}
	}

	w := packet.NewWriterWithOpcode(packet.GPMSG_BEING_ENTER)
	w.WriteC(1) // being type: NPC
	w.WriteD(npc.ID)
	w.WriteS(npc.Name)
	w.WriteH(uint16(npc.X))
	w.WriteH(uint16(npc.Y))
	m.send.Broadcast(w.Bytes())

	return npc
}

// OnTalk runs the NPC's on_talk entry point when a character starts a
// conversation. NPCs without a script ignore the talk request.
func (m *Manager) OnTalk(chr *world.Character, npcID int32) {
	npc := m.world.GetNpc(npcID)
	if npc == nil || chr == nil {
		return
	}
	s := m.npcScripts[npc.ID]
	if s == nil {
		m.log.Debug("talk to NPC without script", zap.Int32("npc", npc.TemplateID))
		return
	}
	chr.TalkingTo = npc.ID
	s.Prepare("on_talk")
	s.PushHandle(m.host.Handles.Mint(npc))
	s.PushHandle(m.host.Handles.Mint(chr))
	s.Execute()
}

// OnSelect runs the NPC's on_select entry point when a character picks a
// dialogue choice.
func (m *Manager) OnSelect(chr *world.Character, npcID int32, choice int) {
	npc := m.world.GetNpc(npcID)
	if npc == nil || chr == nil {
		return
	}
	s := m.npcScripts[npc.ID]
	if s == nil || chr.TalkingTo != npc.ID {
		return
	}
	s.Prepare("on_select")
	s.PushHandle(m.host.Handles.Mint(npc))
	s.PushHandle(m.host.Handles.Mint(chr))
	s.PushInt(choice)
	s.Execute()
}

// UpdateNpcs runs every scripted NPC's npc_update entry point. Called once
// per tick from the update phase.
func (m *Manager) UpdateNpcs() {
	for id, s := range m.npcScripts {
		npc := m.world.GetNpc(id)
		if npc == nil {
			continue
		}
		s.Prepare("npc_update")
		s.PushHandle(m.host.Handles.Mint(npc))
		s.Execute()
	}
}

// UseItem runs the item's on_use entry point and returns its result
// (non-zero means the script consumed the item). Items without a script,
// or with a script that failed to load, return 0.
func (m *Manager) UseItem(chr *world.Character, itemClassID int32) int {
	it := m.itemTable.Get(itemClassID)
	if it == nil || chr == nil {
		return 0
	}
	s, ok := m.itemScripts[it.ItemID]
	if !ok {
		s = m.loadItemScript(it)
		m.itemScripts[it.ItemID] = s
	}
	if s == nil {
		return 0
	}
	s.Prepare("on_use")
	s.PushHandle(m.host.Handles.Mint(chr))
	s.PushInt(int(it.ItemID))
	return s.Execute()
}

func (m *Manager) loadItemScript(it *data.ItemClass) script.Script {
	if it.Script == "" {
		return nil
	}
	engine := it.Engine
	if engine == "" {
		engine = m.defaultEngine
	}
	s, err := script.Load(m.host, engine, filepath.Join(m.scriptsDir, it.Script))
	if err != nil {
		m.log.Warn("item script failed to load",
			zap.Int32("item", it.ItemID),
			zap.String("script", it.Script),
			zap.Error(err),
		)
		return nil
	}
	return s
}

// RemoveNpc takes an NPC out of the world. Handles minted for it go stale
// immediately; its script, which may be the caller, is closed at the next
// Sweep.
func (m *Manager) RemoveNpc(npcID int32) {
	if s, ok := m.npcScripts[npcID]; ok {
		delete(m.npcScripts, npcID)
		m.deadScripts = append(m.deadScripts, s)
	}
	npc := m.world.RemoveNpc(npcID)
	if npc == nil {
		return
	}
	w := packet.NewWriterWithOpcode(packet.GPMSG_BEING_LEAVE)
	w.WriteD(npc.ID)
	m.send.Broadcast(w.Bytes())
}

// Sweep closes scripts whose NPCs were removed this tick. Must not run
// while a script call is on the stack.
func (m *Manager) Sweep() {
	for _, s := range m.deadScripts {
		s.Close()
	}
	m.deadScripts = m.deadScripts[:0]
}

// Shutdown closes every live script.
func (m *Manager) Shutdown() {
	m.Sweep()
	for id, s := range m.npcScripts {
		s.Close()
		delete(m.npcScripts, id)
	}
	for id, s := range m.itemScripts {
		if s != nil {
			s.Close()
		}
		delete(m.itemScripts, id)
	}
}
