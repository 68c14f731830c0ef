package packet

// Message IDs. PGMSG_* flow player to game server, GPMSG_* flow game
// server to player. Values are 16-bit and written little-endian as the
// first field of every message.
const (
	PGMSG_CONNECT          uint16 = 0x0050 // S name
	GPMSG_CONNECT_RESPONSE uint16 = 0x0051 // B error, D public id

	GPMSG_BEING_ENTER uint16 = 0x0200 // B type, D id, S name, W x, W y
	GPMSG_BEING_LEAVE uint16 = 0x0201 // D id

	GPMSG_PLAYER_MONEY uint16 = 0x0260 // D amount
	GPMSG_PLAYER_WARP  uint16 = 0x0262 // W x, W y

	GPMSG_NPC_CHOICE  uint16 = 0x02A0 // W npc public id, S choices
	GPMSG_NPC_MESSAGE uint16 = 0x02A1 // W npc public id, S text
	PGMSG_NPC_TALK    uint16 = 0x02A2 // D npc id
	PGMSG_NPC_SELECT  uint16 = 0x02A4 // D npc id, B choice

	PGMSG_USE_ITEM uint16 = 0x0300 // D item class id
)
