// internal/minigame/registry_test.go
package minigame

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"quick_draw", RPSDuelID, "tile_sprint"}, r.EnabledIDs(), "sorted and all enabled by default")

	rps := r.Get(RPSDuelID)
	require.NotNil(t, rps)
	assert.NotNil(t, rps.BuildPayload)
	assert.NotNil(t, rps.ResolveResult)
	assert.NotNil(t, rps.AIChoice)

	qd := r.Get("quick_draw")
	require.NotNil(t, qd)
	assert.Nil(t, qd.ResolveResult, "relay-only minigames carry no resolve hook")
	assert.Equal(t, AutoEntry, qd.AIChoice("seed", 0, nil))
}

func TestRegisterRequiresID(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&Descriptor{}))
	require.NoError(t, r.Register(&Descriptor{ID: "coin_flip", Enabled: true}))
	assert.Contains(t, r.EnabledIDs(), "coin_flip")
}

func writeDescriptor(t *testing.T, dir, id, body string) {
	t.Helper()
	sub := filepath.Join(dir, id)
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "multiplayer.json"), []byte(body), 0o644))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "rps_duel", `{"minigame_id": "rps_duel", "multiplayer_enabled": false}`)
	writeDescriptor(t, dir, "maze_race", `{"minigame_id": "maze_race", "multiplayer_enabled": true}`)
	writeDescriptor(t, dir, "mismatch", `{"minigame_id": "other", "multiplayer_enabled": true}`)
	writeDescriptor(t, dir, "template", `{"minigame_id": "template", "multiplayer_enabled": true}`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "no_descriptor"), 0o755))

	r := NewRegistry()
	require.NoError(t, r.Discover(dir))

	ids := r.EnabledIDs()
	assert.NotContains(t, ids, RPSDuelID, "descriptor disables the builtin")
	assert.Contains(t, ids, "maze_race", "unknown ids register as relay-only")
	assert.NotContains(t, ids, "mismatch")
	assert.NotContains(t, ids, "other")
	assert.NotContains(t, ids, "template")

	mr := r.Get("maze_race")
	require.NotNil(t, mr)
	assert.Equal(t, AutoEntry, mr.AIChoice("s", 1, nil))
}

func TestDiscoverMissingDir(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Discover(filepath.Join(t.TempDir(), "nope")))
}

func TestSeededChoiceDeterministic(t *testing.T) {
	a := seededChoice("seed", 2, RPSEntries)
	b := seededChoice("seed", 2, RPSEntries)
	assert.Equal(t, a, b)
	assert.Contains(t, RPSEntries, a)
}

func TestRPSResolveResult(t *testing.T) {
	rps := NewRegistry().Get(RPSDuelID)
	sum, err := rps.ResolveResult(map[string]interface{}{
		"duel_id": "d1", "winner": "a", "loser": "b",
	})
	require.NoError(t, err)
	assert.Equal(t, &ResultSummary{DuelID: "d1", Winner: "a", Loser: "b", Outcome: "win"}, sum)

	_, err = rps.ResolveResult(map[string]interface{}{"duel_id": "d1"})
	assert.Error(t, err)
}
