// internal/match/sim.go
package match

import (
	"math"
	"time"

	"github.com/duelgrounds/server/internal/arena"
)

// Step advances the world by dt seconds: safe-zone shrink, entity movement
// with collider resolution, out-of-zone and idle eliminations, proximity duel
// pairing, end-of-match detection, and the tick snapshot. The caller (the
// authority) holds the state lock and has already run the duel sweep.
func (s *State) Step(dt float64) {
	if !s.Active {
		return
	}
	dt = clamp(dt, 0, s.Cfg.MaxDt)

	s.stepSafeZone(dt)

	for _, e := range s.Entities {
		if !e.IsNPC && s.EliminatedHumans[e.ID] {
			continue // spectators don't simulate
		}
		s.stepEntity(e, dt)
	}

	s.stepOutsideTimers(dt)
	s.stepIdleFailsafe(dt)
	s.stepAutoPair()

	// Snapshots carry the pre-increment tick, so the first one is tick 0.
	if !s.checkEnd() {
		s.broadcastSnapshot()
	}
	s.Tick++
}

// stepSafeZone accumulates the shrink clock and contracts the radius once the
// delay has elapsed, never below the minimum.
func (s *State) stepSafeZone(dt float64) {
	s.ShrinkElapsed += dt
	if s.ShrinkElapsed <= s.ShrinkDelay {
		return
	}
	s.SafeRadius = math.Max(s.SafeRadiusMin, s.SafeRadius-s.ShrinkRate*dt)
}

// stepEntity computes the entity's velocity for this tick and moves it with
// axis-separated collision against the map colliders.
func (s *State) stepEntity(e *Entity, dt float64) {
	switch {
	case s.FrozenFn != nil && s.FrozenFn(e.ID):
		e.Vel = arena.Vec2{}
	case e.IsNPC:
		s.steerBot(e, dt)
	default:
		in := s.Inputs[e.ID]
		e.Vel = arena.Vec2{X: clamp(in.X, -1, 1) * s.Cfg.SpeedBase, Y: clamp(in.Y, -1, 1) * s.Cfg.SpeedBase}
	}
	s.moveWithCollisions(e, dt)
}

// steerBot updates a bot's wander orbit and blends its velocity toward the
// anchor point. Bots drifting past 0.88 x the safe radius head straight back
// toward the center.
func (s *State) steerBot(e *Entity, dt float64) {
	w := e.Wander
	if w == nil {
		w = &WanderState{Angle: s.rng.Float64() * 2 * math.Pi, Radius: 120}
		e.Wander = w
	}

	w.Timer -= dt
	if w.Timer <= 0 {
		w.Timer = 1.8 + s.rng.Float64()*1.4
		w.Angle += (s.rng.Float64()*2 - 1) * 0.22
		w.Radius += (s.rng.Float64()*2 - 1) * 18
		maxR := math.Min(0.65*s.SafeRadius, 0.45*math.Min(s.Bounds.X, s.Bounds.Y))
		w.Radius = clamp(w.Radius, 80, math.Max(80, maxR))
	}

	anchor := arena.Vec2{
		X: s.SafeCenter.X + math.Cos(w.Angle)*w.Radius,
		Y: s.SafeCenter.Y + math.Sin(w.Angle)*w.Radius,
	}
	dir := anchor.Sub(e.Pos).Norm()
	if arena.Dist(e.Pos, s.SafeCenter) > 0.88*s.SafeRadius {
		dir = s.SafeCenter.Sub(e.Pos).Norm()
	}

	speed := s.Cfg.SpeedBase * s.Cfg.BotSpeedFactor * (0.92 + s.rng.Float64()*0.16)
	desired := dir.Scale(speed)

	blend := s.Cfg.VelocityBlend
	e.Vel = e.Vel.Scale(1 - blend).Add(desired.Scale(blend))

	if e.Vel.Len() < s.Cfg.BotMinSpeed {
		nudge := arena.Vec2{X: s.rng.Float64()*2 - 1, Y: s.rng.Float64()*2 - 1}.Norm()
		e.Vel = e.Vel.Add(nudge.Scale(s.Cfg.BotMinSpeed * 2))
	}
}

// bodyRect returns the entity's AABB. The body is midbottom anchored: Pos is
// the bottom-center of a BodyW x BodyH box.
func (s *State) bodyRect(pos arena.Vec2) arena.Rect {
	return arena.Rect{
		X: pos.X - s.Cfg.BodyW/2,
		Y: pos.Y - s.Cfg.BodyH,
		W: s.Cfg.BodyW,
		H: s.Cfg.BodyH,
	}
}

// moveWithCollisions applies the x displacement, resolves collider overlaps
// along x, then repeats for y, then clamps the body inside the map bounds.
func (s *State) moveWithCollisions(e *Entity, dt float64) {
	halfW := s.Cfg.BodyW / 2

	e.Pos.X += e.Vel.X * dt
	for _, c := range s.Colliders {
		if !s.bodyRect(e.Pos).Overlaps(c) {
			continue
		}
		if e.Vel.X > 0 {
			e.Pos.X = c.X - halfW
		} else if e.Vel.X < 0 {
			e.Pos.X = c.X + c.W + halfW
		}
	}

	e.Pos.Y += e.Vel.Y * dt
	for _, c := range s.Colliders {
		if !s.bodyRect(e.Pos).Overlaps(c) {
			continue
		}
		if e.Vel.Y > 0 {
			e.Pos.Y = c.Y
		} else if e.Vel.Y < 0 {
			e.Pos.Y = c.Y + c.H + s.Cfg.BodyH
		}
	}

	e.Pos.X = clamp(e.Pos.X, halfW, s.Bounds.X-halfW)
	e.Pos.Y = clamp(e.Pos.Y, s.Cfg.BodyH, s.Bounds.Y)
}

// stepOutsideTimers runs the out-of-zone clock for every non-frozen, alive
// entity and eliminates anyone past the limit. Duelists get a grace: their
// timer is held at zero while frozen.
func (s *State) stepOutsideTimers(dt float64) {
	tolerance := s.Cfg.OutsideTolerance * s.SafeRadius
	var doomed []string
	for id, e := range s.Entities {
		if !s.IsAlive(id) {
			continue
		}
		if s.FrozenFn != nil && s.FrozenFn(id) {
			e.OutsideTimer = 0
			continue
		}
		if arena.Dist(e.Pos, s.SafeCenter) > tolerance {
			e.OutsideTimer += dt
			if e.OutsideTimer >= s.Cfg.OutsideLimit {
				doomed = append(doomed, id)
			}
		} else {
			e.OutsideTimer = 0
		}
	}
	for _, id := range doomed {
		s.Eliminate(id)
	}
}

// stepIdleFailsafe culls bots that have been effectively motionless for too
// long; a stuck bot would otherwise stall end-of-match detection.
func (s *State) stepIdleFailsafe(dt float64) {
	var doomed []string
	for id, e := range s.Entities {
		if !e.IsNPC {
			continue
		}
		if s.FrozenFn != nil && s.FrozenFn(id) {
			e.idleFor = 0
			continue
		}
		if e.Vel.Len() < s.Cfg.BotMinSpeed {
			e.idleFor += dt
			if e.idleFor >= s.Cfg.NPCIdleLimit {
				doomed = append(doomed, id)
			}
		} else {
			e.idleFor = 0
		}
	}
	for _, id := range doomed {
		s.Eliminate(id)
	}
}

// stepAutoPair starts a proximity duel between the closest eligible pair
// within the pairing radius. Pairs involving a human win over bot-only pairs.
func (s *State) stepAutoPair() {
	if s.PairFn == nil || (s.CanPairFn != nil && !s.CanPairFn()) {
		return
	}

	var eligible []*Entity
	for id, e := range s.Entities {
		if !s.IsAlive(id) {
			continue
		}
		if s.FrozenFn != nil && s.FrozenFn(id) {
			continue
		}
		eligible = append(eligible, e)
	}

	var bestAny, bestHuman [2]*Entity
	bestAnyDist, bestHumanDist := math.Inf(1), math.Inf(1)
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			d := arena.Dist(eligible[i].Pos, eligible[j].Pos)
			if d > s.Cfg.AutoPairRadius {
				continue
			}
			if d < bestAnyDist {
				bestAnyDist = d
				bestAny = [2]*Entity{eligible[i], eligible[j]}
			}
			if (!eligible[i].IsNPC || !eligible[j].IsNPC) && d < bestHumanDist {
				bestHumanDist = d
				bestHuman = [2]*Entity{eligible[i], eligible[j]}
			}
		}
	}

	pair := bestAny
	if bestHuman[0] != nil {
		pair = bestHuman
	}
	if pair[0] != nil {
		s.PairFn(pair[0].ID, pair[1].ID)
	}
}

// checkEnd detects the terminal states: a single surviving human with no bots
// left wins; no surviving humans with a handful (or none) of bots left is a
// bot victory. Live entity counts are authoritative.
func (s *State) checkEnd() bool {
	humans := s.AliveHumans()
	bots := s.AliveBots()

	switch {
	case len(humans) == 1 && len(bots) == 0:
		s.Winner = humans[0]
	case len(humans) == 0 && len(bots) <= 4:
		s.NPCWin = true
	default:
		return false
	}

	s.Active = false
	s.broadcastSnapshot()
	return true
}

// broadcastSnapshot publishes the per-tick match_state.
func (s *State) broadcastSnapshot() {
	if s.BroadcastFn == nil {
		return
	}
	s.BroadcastFn(map[string]interface{}{
		"type":  "match_state",
		"state": s.SnapshotPayload(),
	})
}

// SnapshotPayload builds the match_state body: alive entities plus remaining
// counts, and the winner fields once the match has ended.
func (s *State) SnapshotPayload() map[string]interface{} {
	entities := make([]map[string]interface{}, 0, len(s.Entities))
	humans, total := 0, 0
	for id, e := range s.Entities {
		if !s.IsAlive(id) {
			continue
		}
		total++
		if !e.IsNPC {
			humans++
		}
		entities = append(entities, map[string]interface{}{
			"id":   e.ID,
			"pos":  []float64{e.Pos.X, e.Pos.Y},
			"vel":  []float64{e.Vel.X, e.Vel.Y},
			"char": e.CharName,
			"npc":  e.IsNPC,
			"name": e.DisplayName,
		})
	}

	state := map[string]interface{}{
		"tick":             s.Tick,
		"ts":               time.Now().UnixMilli(),
		"entities":         entities,
		"remaining":        total,
		"remaining_humans": humans,
		"remaining_total":  total,
	}
	if s.Winner != "" {
		state["winner"] = s.Winner
	}
	if s.NPCWin {
		state["npc_winner"] = true
	}
	return state
}
