package game

import (
	"github.com/tmwgo/server/internal/net"
	"github.com/tmwgo/server/internal/net/packet"
	"github.com/tmwgo/server/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all message handlers.
type Deps struct {
	Log      *zap.Logger
	World    *world.State
	Manager  *Manager
	Sessions *net.SessionStore

	SpawnMapID int16
	SpawnX     int32
	SpawnY     int32
}

// RegisterHandlers registers all message handlers into the registry.
func RegisterHandlers(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.PGMSG_CONNECT,
		[]packet.SessionState{packet.StateConnected},
		func(sess any, r *packet.Reader) {
			HandleConnect(sess.(*net.Session), r, deps)
		},
	)

	inWorld := []packet.SessionState{packet.StateInWorld}

	reg.Register(packet.PGMSG_NPC_TALK, inWorld,
		func(sess any, r *packet.Reader) {
			HandleNpcTalk(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.PGMSG_NPC_SELECT, inWorld,
		func(sess any, r *packet.Reader) {
			HandleNpcSelect(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.PGMSG_USE_ITEM, inWorld,
		func(sess any, r *packet.Reader) {
			HandleUseItem(sess.(*net.Session), r, deps)
		},
	)
}

// HandleConnect processes PGMSG_CONNECT — the client announces its
// character name and enters the world at the configured spawn point.
func HandleConnect(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := r.ReadS()
	if name == "" {
		w := packet.NewWriterWithOpcode(packet.GPMSG_CONNECT_RESPONSE)
		w.WriteC(1) // error: bad name
		w.WriteD(0)
		sess.Send(w.Bytes())
		sess.Close()
		return
	}

	chr := &world.Character{
		SessionID: sess.ID,
		ID:        world.NextCharID(),
		Name:      name,
		X:         deps.SpawnX,
		Y:         deps.SpawnY,
		MapID:     deps.SpawnMapID,
		Level:     1,
		HP:        100,
		MaxHP:     100,
	}
	deps.World.AddCharacter(chr)
	sess.CharName = name
	sess.SetState(packet.StateInWorld)

	deps.Log.Info("character entered world",
		zap.Uint64("session", sess.ID),
		zap.String("name", name),
	)

	w := packet.NewWriterWithOpcode(packet.GPMSG_CONNECT_RESPONSE)
	w.WriteC(0) // ok
	w.WriteD(chr.ID)
	sess.Send(w.Bytes())
}

// HandleNpcTalk processes PGMSG_NPC_TALK — player clicks an NPC.
func HandleNpcTalk(sess *net.Session, r *packet.Reader, deps *Deps) {
	npcID := r.ReadD()
	chr := deps.World.GetBySession(sess.ID)
	if chr == nil {
		return
	}
	deps.Manager.OnTalk(chr, npcID)
}

// HandleNpcSelect processes PGMSG_NPC_SELECT — player picks a dialogue choice.
func HandleNpcSelect(sess *net.Session, r *packet.Reader, deps *Deps) {
	npcID := r.ReadD()
	choice := r.ReadC()
	chr := deps.World.GetBySession(sess.ID)
	if chr == nil {
		return
	}
	deps.Manager.OnSelect(chr, npcID, int(choice))
}

// HandleUseItem processes PGMSG_USE_ITEM — player activates an item.
func HandleUseItem(sess *net.Session, r *packet.Reader, deps *Deps) {
	itemID := r.ReadD()
	chr := deps.World.GetBySession(sess.ID)
	if chr == nil {
		return
	}
	deps.Manager.UseItem(chr, itemID)
}
