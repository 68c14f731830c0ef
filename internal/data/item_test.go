package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadItemTable(t *testing.T) {
	path := writeYAML(t, "item_list.yaml", `
items:
  - item_id: 501
    name: Candy
    category: usable
    weight: 10
    value: 5
    max_per_slot: 30
    script: items/candy.lua
  - item_id: 502
    name: Leather Shirt
    category: equipment
    weight: 0
    value: 100
    max_per_slot: 12
  - item_id: 503
    name: Pebble
`)
	tbl, err := LoadItemTable(path)
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Count())

	t.Run("fields", func(t *testing.T) {
		it := tbl.Get(501)
		require.NotNil(t, it)
		require.Equal(t, "Candy", it.Name)
		require.Equal(t, CategoryUsable, it.Category)
		require.Equal(t, int32(30), it.MaxPerSlot)
		require.Equal(t, "items/candy.lua", it.Script)
		require.Equal(t, int32(501), it.SpriteID) // defaults to item id
	})

	t.Run("zero weight becomes 1", func(t *testing.T) {
		require.Equal(t, int32(1), tbl.Get(502).Weight)
	})

	t.Run("equipment stacks one per slot", func(t *testing.T) {
		require.Equal(t, int32(1), tbl.Get(502).MaxPerSlot)
	})

	t.Run("defaults for bare entry", func(t *testing.T) {
		it := tbl.Get(503)
		require.Equal(t, CategoryGeneric, it.Category)
		require.Equal(t, int32(1), it.Weight)
		require.Equal(t, int32(1), it.MaxPerSlot)
	})

	t.Run("unknown id", func(t *testing.T) {
		require.Nil(t, tbl.Get(999))
	})
}

func TestLoadItemTableErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadItemTable(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("missing item_id", func(t *testing.T) {
		path := writeYAML(t, "bad.yaml", "items:\n  - name: NoID\n")
		_, err := LoadItemTable(path)
		require.Error(t, err)
	})

	t.Run("unknown category", func(t *testing.T) {
		path := writeYAML(t, "bad.yaml", "items:\n  - item_id: 1\n    category: hat\n")
		_, err := LoadItemTable(path)
		require.Error(t, err)
	})
}

func TestLoadNpcTable(t *testing.T) {
	path := writeYAML(t, "npc_list.yaml", `
npcs:
  - npc_id: 110
    name: Barber
    gfx_id: 12
    engine: lua
    script: npcs/barber.lua
  - npc_id: 111
    name: Guard
`)
	tbl, err := LoadNpcTable(path)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Count())

	b := tbl.Get(110)
	require.NotNil(t, b)
	require.Equal(t, "Barber", b.Name)
	require.Equal(t, "lua", b.Engine)
	require.Equal(t, "npcs/barber.lua", b.Script)

	require.Empty(t, tbl.Get(111).Script)
	require.Nil(t, tbl.Get(999))
}

func TestLoadSpawnList(t *testing.T) {
	path := writeYAML(t, "spawn_list.yaml", `
spawns:
  - npc_id: 110
    map_id: 1
    x: 80
    y: 100
    heading: 2
`)
	spawns, err := LoadSpawnList(path)
	require.NoError(t, err)
	require.Len(t, spawns, 1)
	require.Equal(t, int32(110), spawns[0].NpcID)
	require.Equal(t, int32(80), spawns[0].X)
}
