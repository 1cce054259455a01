// internal/arena/tilemap.go
package arena

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

//go:embed testdata/test_arena.json
var embeddedTestArena []byte

// Document is the declarative map format the loader understands. A layer may
// carry explicit tile tuples or a dense row-major data array; the loader only
// extracts dimensions and collider rectangles, everything else in the file is
// the client's business.
type Document struct {
	TileSize  int     `json:"tileSize"`
	MapWidth  int     `json:"mapWidth"`
	MapHeight int     `json:"mapHeight"`
	Layers    []Layer `json:"layers"`
}

// Layer holds one map layer. Collider on the layer applies to every cell of a
// dense data array; per-tile collider flags win for explicit tiles.
type Layer struct {
	Name     string `json:"name,omitempty"`
	Collider bool   `json:"collider,omitempty"`
	Tiles    []Tile `json:"tiles,omitempty"`
	Data     []int  `json:"data,omitempty"`
}

// Tile is an explicit tile tuple in tile units. W/H default to 1.
type Tile struct {
	X        int  `json:"x"`
	Y        int  `json:"y"`
	W        int  `json:"w,omitempty"`
	H        int  `json:"h,omitempty"`
	Collider bool `json:"collider,omitempty"`
}

// Map is the loaded arena: pixel bounds plus collidable rectangles.
type Map struct {
	Name      string
	Bounds    Vec2
	Colliders []Rect
}

// Parse builds a Map from a raw document.
func Parse(name string, data []byte) (*Map, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("map %s: %w", name, err)
	}
	if doc.TileSize <= 0 || doc.MapWidth <= 0 || doc.MapHeight <= 0 {
		return nil, fmt.Errorf("map %s: invalid dimensions %dx%d@%d", name, doc.MapWidth, doc.MapHeight, doc.TileSize)
	}
	ts := float64(doc.TileSize)
	m := &Map{
		Name:   name,
		Bounds: Vec2{ts * float64(doc.MapWidth), ts * float64(doc.MapHeight)},
	}
	for _, layer := range doc.Layers {
		for _, t := range layer.Tiles {
			if !t.Collider && !layer.Collider {
				continue
			}
			w, h := t.W, t.H
			if w <= 0 {
				w = 1
			}
			if h <= 0 {
				h = 1
			}
			m.Colliders = append(m.Colliders, Rect{
				X: float64(t.X) * ts,
				Y: float64(t.Y) * ts,
				W: float64(w) * ts,
				H: float64(h) * ts,
			})
		}
		if len(layer.Data) > 0 && layer.Collider {
			for i, cell := range layer.Data {
				if cell == 0 {
					continue
				}
				x := i % doc.MapWidth
				y := i / doc.MapWidth
				if y >= doc.MapHeight {
					break
				}
				m.Colliders = append(m.Colliders, Rect{
					X: float64(x) * ts,
					Y: float64(y) * ts,
					W: ts,
					H: ts,
				})
			}
		}
	}
	return m, nil
}

// Load reads the named map from dir, falling back to the embedded test_arena
// document when the file is absent. The multiplayer authority only ever plays
// test_arena, so the fallback keeps the binary self-contained.
func Load(dir, name string) (*Map, error) {
	if dir != "" {
		path := filepath.Join(dir, name+".json")
		if data, err := os.ReadFile(path); err == nil {
			return Parse(name, data)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("map %s: %w", name, err)
		}
	}
	if name != "test_arena" {
		log.Warnf("map %q not found on disk, using embedded test_arena", name)
	}
	return Parse("test_arena", embeddedTestArena)
}
