// internal/arena/spawn.go
package arena

import (
	"hash/fnv"
	"math/rand"
)

// DefaultSpawnMargin is how far inside the arena edge spawn points sit.
const DefaultSpawnMargin = 96

// SeededRand returns a math/rand source derived from arbitrary seed parts.
// Every piece of match randomness flows through this so replays and tests are
// reproducible.
func SeededRand(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// PerimeterSpawns produces n points evenly distributed along the rectangle
// inset by margin, shuffled with a seeded RNG. It is a pure function of
// (bounds, margin, n, seed): repeated calls yield identical points.
//
// The inset rectangle is split into four edges in the order top, right,
// bottom, left. Each edge gets n/4 slots; the first n%4 edges get one extra.
// Slots sit at fractions (i+0.5)/slots along their edge.
func PerimeterSpawns(bounds Vec2, margin float64, n int, seed string) []Vec2 {
	if n <= 0 {
		return nil
	}
	left, top := margin, margin
	right, bottom := bounds.X-margin, bounds.Y-margin

	// Edge endpoints, traversed clockwise from the top-left corner.
	edges := [4][2]Vec2{
		{{left, top}, {right, top}},
		{{right, top}, {right, bottom}},
		{{right, bottom}, {left, bottom}},
		{{left, bottom}, {left, top}},
	}

	base := n / 4
	extra := n % 4
	points := make([]Vec2, 0, n)
	for e, edge := range edges {
		slots := base
		if e < extra {
			slots++
		}
		for i := 0; i < slots; i++ {
			f := (float64(i) + 0.5) / float64(slots)
			points = append(points, Vec2{
				X: edge[0].X + (edge[1].X-edge[0].X)*f,
				Y: edge[0].Y + (edge[1].Y-edge[0].Y)*f,
			})
		}
	}

	rng := SeededRand("spawn", seed)
	rng.Shuffle(len(points), func(i, j int) {
		points[i], points[j] = points[j], points[i]
	})

	// Wrap if the caller somehow asked for more than we generated.
	generated := len(points)
	for len(points) < n {
		points = append(points, points[len(points)%generated])
	}
	return points[:n]
}
