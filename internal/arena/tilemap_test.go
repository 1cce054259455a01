// internal/arena/tilemap_test.go
package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExplicitTiles(t *testing.T) {
	doc := []byte(`{
		"tileSize": 32, "mapWidth": 10, "mapHeight": 8,
		"layers": [
			{"name": "walls", "tiles": [
				{"x": 0, "y": 0, "w": 10, "h": 1, "collider": true},
				{"x": 2, "y": 3, "collider": true},
				{"x": 5, "y": 5}
			]}
		]
	}`)
	m, err := Parse("t", doc)
	require.NoError(t, err)
	assert.Equal(t, Vec2{X: 320, Y: 256}, m.Bounds)
	require.Len(t, m.Colliders, 2, "non-collider tiles are skipped")
	assert.Equal(t, Rect{X: 0, Y: 0, W: 320, H: 32}, m.Colliders[0])
	assert.Equal(t, Rect{X: 64, Y: 96, W: 32, H: 32}, m.Colliders[1], "w/h default to one tile")
}

func TestParseDenseData(t *testing.T) {
	doc := []byte(`{
		"tileSize": 16, "mapWidth": 3, "mapHeight": 2,
		"layers": [{"collider": true, "data": [0, 1, 0, 0, 0, 7]}]
	}`)
	m, err := Parse("t", doc)
	require.NoError(t, err)
	require.Len(t, m.Colliders, 2)
	assert.Equal(t, Rect{X: 16, Y: 0, W: 16, H: 16}, m.Colliders[0])
	assert.Equal(t, Rect{X: 32, Y: 16, W: 16, H: 16}, m.Colliders[1])
}

func TestParseRejectsBadDimensions(t *testing.T) {
	_, err := Parse("t", []byte(`{"tileSize": 0, "mapWidth": 10, "mapHeight": 10}`))
	assert.Error(t, err)
	_, err = Parse("t", []byte(`not json`))
	assert.Error(t, err)
}

func TestLoadEmbeddedFallback(t *testing.T) {
	m, err := Load("", "test_arena")
	require.NoError(t, err)
	assert.Equal(t, Vec2{X: 1280, Y: 960}, m.Bounds)
	assert.NotEmpty(t, m.Colliders, "embedded arena carries wall colliders")
}
