package game

import (
	"github.com/tmwgo/server/internal/net/packet"
	"github.com/tmwgo/server/internal/script"
	"github.com/tmwgo/server/internal/world"
	"go.uber.org/zap"
)

// registerCallbacks installs the native functions scripts can call. The
// bridge has already checked arity, argument tags, and handle liveness by
// the time a callback runs; callbacks still own the dynamic type of each
// resolved object and abort without side effects on a mismatch.
func (m *Manager) registerCallbacks(b *script.Bridge) {
	// npc_message(npc, chr, text): show a dialogue line to one character.
	b.Register("npc_message",
		[]script.Kind{script.KindHandle, script.KindHandle, script.KindString},
		func(inv *script.Invocation) {
			npc, chr, ok := m.npcChrArgs("npc_message", inv)
			if !ok {
				return
			}
			w := packet.NewWriterWithOpcode(packet.GPMSG_NPC_MESSAGE)
			w.WriteH(npc.PublicID)
			w.WriteS(inv.Str(2))
			m.send.SendTo(chr.SessionID, w.Bytes())
		})

	// npc_choice(npc, chr, choices): present a choice menu; entries are
	// separated by ':' in the choices string.
	b.Register("npc_choice",
		[]script.Kind{script.KindHandle, script.KindHandle, script.KindString},
		func(inv *script.Invocation) {
			npc, chr, ok := m.npcChrArgs("npc_choice", inv)
			if !ok {
				return
			}
			w := packet.NewWriterWithOpcode(packet.GPMSG_NPC_CHOICE)
			w.WriteH(npc.PublicID)
			w.WriteS(inv.Str(2))
			m.send.SendTo(chr.SessionID, w.Bytes())
		})

	// chr_warp(chr, x, y): move a character on its current map.
	b.Register("chr_warp",
		[]script.Kind{script.KindHandle, script.KindInt, script.KindInt},
		func(inv *script.Invocation) {
			chr, ok := inv.Object(0).(*world.Character)
			if !ok {
				m.warnType("chr_warp", 0, "character")
				return
			}
			x, y := int32(inv.Int(1)), int32(inv.Int(2))
			chr.Warp(x, y)
			w := packet.NewWriterWithOpcode(packet.GPMSG_PLAYER_WARP)
			w.WriteH(uint16(x))
			w.WriteH(uint16(y))
			m.send.SendTo(chr.SessionID, w.Bytes())
		})

	// chr_money_change(chr, amount): credit or debit a character's money.
	// A debit past zero aborts without changing anything.
	b.Register("chr_money_change",
		[]script.Kind{script.KindHandle, script.KindInt},
		func(inv *script.Invocation) {
			chr, ok := inv.Object(0).(*world.Character)
			if !ok {
				m.warnType("chr_money_change", 0, "character")
				return
			}
			amount := int32(inv.Int(1))
			if chr.Money+amount < 0 {
				m.log.Warn("script tried to debit more money than held",
					zap.String("char", chr.Name),
					zap.Int32("held", chr.Money),
					zap.Int32("amount", amount),
				)
				return
			}
			chr.Money += amount
			w := packet.NewWriterWithOpcode(packet.GPMSG_PLAYER_MONEY)
			w.WriteD(chr.Money)
			m.send.SendTo(chr.SessionID, w.Bytes())
		})

	// being_remove(being): destroy an NPC. Safe to call from the NPC's own
	// script; the script is closed after the call returns.
	b.Register("being_remove",
		[]script.Kind{script.KindHandle},
		func(inv *script.Invocation) {
			switch o := inv.Object(0).(type) {
			case *world.Npc:
				m.RemoveNpc(o.ID)
			default:
				m.warnType("being_remove", 0, "npc")
			}
		})
}

func (m *Manager) npcChrArgs(cb string, inv *script.Invocation) (*world.Npc, *world.Character, bool) {
	npc, ok := inv.Object(0).(*world.Npc)
	if !ok {
		m.warnType(cb, 0, "npc")
		return nil, nil, false
	}
	chr, ok := inv.Object(1).(*world.Character)
	if !ok {
		m.warnType(cb, 1, "character")
		return nil, nil, false
	}
	return npc, chr, true
}

func (m *Manager) warnType(cb string, arg int, want string) {
	m.log.Warn("callback argument has wrong object type",
		zap.String("callback", cb),
		zap.Int("arg", arg),
		zap.String("want", want),
	)
}
