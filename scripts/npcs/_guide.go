// Tutorial guide, written against the "go" engine.

import "tmw"

func on_talk(npc tmw.Handle, chr tmw.Handle) int {
	tmw.NpcMessage(npc, chr, "Welcome! Talk to the barber for a new look.")
	return 0
}
