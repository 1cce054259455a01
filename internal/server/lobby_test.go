// internal/server/lobby_test.go
package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLobbyHostAssignment(t *testing.T) {
	l := NewLobby(true)
	assert.Equal(t, PinnedMapName, l.MapName)
	assert.Equal(t, PinnedMode, l.Mode)

	l.AddUnsafe("p1", "Player 1")
	l.AddUnsafe("p2", "Player 2")
	assert.Equal(t, "p1", l.HostID, "first in hosts")

	l.RemoveUnsafe("p1")
	assert.Equal(t, "p2", l.HostID, "host promotes on disconnect")

	l.RemoveUnsafe("p2")
	assert.Equal(t, "", l.HostID)
	assert.Empty(t, l.Players)
}

func TestLobbySetName(t *testing.T) {
	l := NewLobby(false)
	l.AddUnsafe("p1", "Player 1")

	l.SetNameUnsafe("p1", strings.Repeat("x", 40))
	assert.Equal(t, strings.Repeat("x", 24), l.FindUnsafe("p1").Name, "names truncate to 24 codepoints")

	l.SetNameUnsafe("p1", "")
	assert.Equal(t, "Player", l.FindUnsafe("p1").Name, "empty names fall back")

	l.SetNameUnsafe("p1", strings.Repeat("ß", 24))
	assert.Equal(t, strings.Repeat("ß", 24), l.FindUnsafe("p1").Name, "codepoints, not bytes")

	l.SetNameUnsafe("ghost", "anyone") // unknown id, no-op
}

func TestLobbySetChar(t *testing.T) {
	l := NewLobby(false)
	l.AddUnsafe("p1", "Player 1")

	l.SetCharUnsafe("p1", strings.Repeat("c", 40))
	assert.Equal(t, strings.Repeat("c", 32), l.FindUnsafe("p1").CharName)
}

func TestLobbyReadyFlow(t *testing.T) {
	l := NewLobby(false)
	assert.False(t, l.AllReadyUnsafe(), "empty lobbies are never ready")

	l.AddUnsafe("p1", "Player 1")
	l.AddUnsafe("p2", "Player 2")
	l.SetReadyUnsafe("p1", true)
	assert.False(t, l.AllReadyUnsafe())

	l.SetReadyUnsafe("p2", true)
	assert.True(t, l.AllReadyUnsafe())

	l.ClearReadyUnsafe()
	assert.False(t, l.AllReadyUnsafe())
	assert.False(t, l.FindUnsafe("p1").Ready)
}

func TestLobbySnapshot(t *testing.T) {
	l := NewLobby(true)
	snap := l.SnapshotUnsafe()
	assert.Nil(t, snap["host_id"], "empty lobby has a null host")
	assert.Equal(t, PinnedMapName, snap["map_name"])
	assert.Equal(t, true, snap["allow_npc"])
	assert.Empty(t, snap["players"])

	l.AddUnsafe("p1", "Player 1")
	l.SetReadyUnsafe("p1", true)
	l.SetCharUnsafe("p1", "ranger")

	snap = l.SnapshotUnsafe()
	assert.Equal(t, "p1", snap["host_id"])
	players := snap["players"].([]map[string]interface{})
	require.Len(t, players, 1)
	assert.Equal(t, "p1", players[0]["player_id"])
	assert.Equal(t, true, players[0]["ready"])
	assert.Equal(t, "ranger", players[0]["char_name"])
}
