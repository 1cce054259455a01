// internal/match/state.go
package match

import (
	"math"
	"math/rand"
	"time"

	"github.com/duelgrounds/server/internal/arena"
)

// NPCPrefix marks authority-driven entities. Anything whose id starts with
// this is a bot: removed fully on elimination, never sent a welcome.
const NPCPrefix = "npc-"

// Config holds the simulation tunables. Production uses DefaultConfig; tests
// shrink the timers.
type Config struct {
	TickInterval time.Duration // target tick period
	MaxDt        float64       // wall-clock dt clamp, seconds

	SpeedBase      float64 // human speed, units/second
	BotSpeedFactor float64 // bot speed as a fraction of SpeedBase
	VelocityBlend  float64 // bot steering smoothness weight
	BotMinSpeed    float64 // below this a bot gets a random nudge

	BodyW float64 // nominal entity body, midbottom anchored
	BodyH float64

	ShrinkDelay      float64 // seconds before the zone starts shrinking
	ShrinkRate       float64 // units/second once shrinking
	OutsideTolerance float64 // radius multiplier before the outside timer runs
	OutsideLimit     float64 // seconds outside before elimination
	NPCIdleLimit     float64 // seconds of near-zero speed before a bot is culled

	AutoPairRadius float64 // max distance for proximity duel pairing
}

// DefaultConfig returns the production tunables.
func DefaultConfig() Config {
	return Config{
		TickInterval:     time.Second / 15,
		MaxDt:            0.2,
		SpeedBase:        110,
		BotSpeedFactor:   0.7,
		VelocityBlend:    0.12,
		BotMinSpeed:      6,
		BodyW:            10,
		BodyH:            6,
		ShrinkDelay:      8,
		ShrinkRate:       8,
		OutsideTolerance: 1.02,
		OutsideLimit:     5,
		NPCIdleLimit:     8,
		AutoPairRadius:   44,
	}
}

// WanderState is a bot's current orbit around the safe-zone center.
type WanderState struct {
	Angle  float64
	Radius float64
	Timer  float64
}

// Entity is one participant in the running match, human or bot.
type Entity struct {
	ID          string
	Pos         arena.Vec2
	Vel         arena.Vec2
	CharName    string
	DisplayName string
	IsNPC       bool

	OutsideTimer float64
	Wander       *WanderState

	idleFor float64 // continuous near-zero-speed time, bots only
}

// State is the authoritative world for one match. All mutation happens under
// the owning server's lock; State itself carries no lock.
type State struct {
	Seed      string
	Bounds    arena.Vec2
	Colliders []arena.Rect

	Entities map[string]*Entity
	Inputs   map[string]arena.Vec2

	Tick int64

	SafeCenter    arena.Vec2
	SafeRadius    float64
	SafeRadiusMin float64
	ShrinkRate    float64
	ShrinkDelay   float64
	ShrinkElapsed float64

	EliminatedBots   map[string]bool
	EliminatedHumans map[string]bool

	Active bool
	Winner string // set once the terminal snapshot has been built
	NPCWin bool

	Cfg Config
	rng *rand.Rand

	// BroadcastFn fans a payload out to every client. Set by the owning
	// server; tests install a collector.
	BroadcastFn func(msg map[string]interface{})

	// FrozenFn reports whether an entity is locked in an unresolved duel.
	FrozenFn func(id string) bool

	// PairFn asks the duel broker to start a proximity duel. Nil disables
	// auto-pairing.
	PairFn func(a, b string)

	// CanPairFn gates auto-pairing (no active duel, no pending duels,
	// cooldown elapsed).
	CanPairFn func() bool

	// OnEliminate lets the owner clear duel bookkeeping for a removed bot.
	OnEliminate func(id string)
}

// NewState builds the match world from a loaded map. The safe zone starts at
// 0.75 x the larger bound, centered, and never shrinks below
// max(220, min(w,h)/3).
func NewState(seed string, m *arena.Map, cfg Config) *State {
	w, h := m.Bounds.X, m.Bounds.Y
	return &State{
		Seed:             seed,
		Bounds:           m.Bounds,
		Colliders:        m.Colliders,
		Entities:         make(map[string]*Entity),
		Inputs:           make(map[string]arena.Vec2),
		SafeCenter:       arena.Vec2{X: w / 2, Y: h / 2},
		SafeRadius:       0.75 * math.Max(w, h),
		SafeRadiusMin:    math.Max(220, math.Min(w, h)/3),
		ShrinkRate:       cfg.ShrinkRate,
		ShrinkDelay:      cfg.ShrinkDelay,
		EliminatedBots:   make(map[string]bool),
		EliminatedHumans: make(map[string]bool),
		Active:           true,
		Cfg:              cfg,
		rng:              arena.SeededRand("match", seed),
	}
}

// AddEntity registers an entity at a spawn point. Bots get a wander state
// seeded from the match RNG.
func (s *State) AddEntity(id, charName, displayName string, pos arena.Vec2, isNPC bool) *Entity {
	e := &Entity{
		ID:          id,
		Pos:         pos,
		CharName:    charName,
		DisplayName: displayName,
		IsNPC:       isNPC,
	}
	if isNPC {
		e.Wander = &WanderState{
			Angle:  s.rng.Float64() * 2 * math.Pi,
			Radius: 80 + s.rng.Float64()*80,
			Timer:  1.8 + s.rng.Float64()*1.4,
		}
	}
	s.Entities[id] = e
	return e
}

// SetInput records a movement intent, clamped to [-1, 1] per axis.
func (s *State) SetInput(id string, x, y float64) {
	if _, ok := s.Entities[id]; !ok {
		return
	}
	s.Inputs[id] = arena.Vec2{X: clamp(x, -1, 1), Y: clamp(y, -1, 1)}
}

// AliveHumans returns the ids of non-eliminated human entities.
func (s *State) AliveHumans() []string {
	var out []string
	for id, e := range s.Entities {
		if !e.IsNPC && !s.EliminatedHumans[id] {
			out = append(out, id)
		}
	}
	return out
}

// AliveBots returns the ids of bot entities still in the world.
func (s *State) AliveBots() []string {
	var out []string
	for id, e := range s.Entities {
		if e.IsNPC {
			out = append(out, id)
		}
	}
	return out
}

// IsAlive reports whether id is an entity that has not been eliminated.
func (s *State) IsAlive(id string) bool {
	e, ok := s.Entities[id]
	if !ok {
		return false
	}
	return e.IsNPC || !s.EliminatedHumans[id]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
