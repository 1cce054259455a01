// internal/duel/resolve.go
package duel

import (
	"math/rand"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/duelgrounds/server/internal/arena"
)

var zeroTime time.Time

// staleRand derives the force-resolve RNG from the duel id and the sweep
// time, truncated to seconds so the pick is stable within the sweep window.
func staleRand(duelID string, now time.Time) *rand.Rand {
	return arena.SeededRand("stale", duelID, strconv.FormatInt(now.Unix(), 10))
}

// HandleResult ingests a duel_result report from a participant. Decisive
// outcomes against an NPC resolve immediately; explicitly named winners are
// honoured; an unknown duel id with a winner/loser pair triggers the
// synthesized-result failsafe.
func (b *Broker) HandleResult(sender, duelID, outcome, winner, loser, entry string) {
	rec, ok := b.Records[duelID]
	if !ok {
		if winner != "" && loser != "" {
			log.Warnf("duel: result for unknown duel %s, synthesizing outcome %s > %s", duelID, winner, loser)
			b.broadcast(map[string]interface{}{
				"type":    "duel_result",
				"duel_id": duelID,
				"winner":  winner,
				"loser":   loser,
				"entries": map[string]string{},
			})
			if b.EliminateFn != nil {
				b.EliminateFn(loser)
			}
		}
		return
	}
	if !rec.Has(sender) {
		return
	}

	rec.Results[sender] = Report{Entry: entry, Outcome: outcome}

	if winner != "" && rec.Has(winner) {
		rec.ForcedWinner = winner
		rec.ForcedLoser = rec.Other(winner)
		b.Resolve(rec.ID)
		return
	}

	decisive := outcome == "win" || outcome == "lose" || outcome == "forfeit"
	if decisive && rec.involvesNPC() {
		if outcome == "win" {
			rec.ForcedWinner = sender
			rec.ForcedLoser = rec.Other(sender)
		} else {
			rec.ForcedLoser = sender
			rec.ForcedWinner = rec.Other(sender)
		}
		b.Resolve(rec.ID)
		return
	}

	b.Resolve(rec.ID)
}

// Resolve settles a duel if its state implies a single winner: a forced
// winner, or every participant reported and exactly one claims a win.
// Anything else leaves the record waiting. On resolution the result is
// broadcast, the loser eliminated, the record removed and the active gate
// cleared.
func (b *Broker) Resolve(duelID string) {
	rec, ok := b.Records[duelID]
	if !ok {
		return
	}

	winner, loser := rec.ForcedWinner, rec.ForcedLoser
	if winner == "" {
		var wins []string
		reported := 0
		for _, p := range rec.Participants {
			r, ok := rec.Results[p]
			if !ok {
				continue
			}
			reported++
			if r.Outcome == "win" {
				wins = append(wins, p)
			}
		}
		if reported == len(rec.Participants) && len(wins) == 1 {
			winner = wins[0]
			loser = rec.Other(winner)
		}
	}
	if winner == "" {
		return // not decidable yet
	}
	if loser == "" {
		loser = rec.Other(winner)
	}

	entries := make(map[string]string, len(rec.Results))
	for p, r := range rec.Results {
		entries[p] = r.Entry
	}

	log.Infof("duel %s resolved: winner=%s loser=%s", rec.ID, winner, loser)
	b.broadcast(map[string]interface{}{
		"type":    "duel_result",
		"duel_id": rec.ID,
		"winner":  winner,
		"loser":   loser,
		"entries": entries,
	})

	delete(b.Records, rec.ID)
	b.Active = false
	b.Participants = [2]string{}

	if b.EliminateFn != nil {
		b.EliminateFn(loser)
	}
	if b.ResetOutsideFn != nil {
		b.ResetOutsideFn(winner)
		b.ResetOutsideFn(loser)
	}
}

// HandleAction relays a duel_action from a participant to every client with
// the sender stamped in. The authority never interprets the inner payload.
func (b *Broker) HandleAction(sender, duelID string, raw map[string]interface{}) {
	rec, ok := b.Records[duelID]
	if !ok || !rec.Has(sender) {
		return
	}
	out := make(map[string]interface{}, len(raw)+1)
	for k, v := range raw {
		out[k] = v
	}
	out["type"] = "duel_action"
	out["from"] = sender
	b.broadcast(out)
}

// Sweep runs the per-tick housekeeping: timer decrement, vanished
// participants, stale NPC duels, pending-duel auto-resolution and request
// expiry.
func (b *Broker) Sweep(dt float64) {
	if b.Cooldown > 0 {
		b.Cooldown -= dt
	}
	if b.Active {
		b.Timeout -= dt
		if b.Timeout <= 0 {
			log.Warnf("duel: active duel timed out, releasing gate (records: %d)", len(b.Records))
			b.Active = false
			b.Participants = [2]string{}
		}
	}

	now := b.Now()

	for id, rec := range b.Records {
		if b.AliveFn != nil {
			var alive []string
			for _, p := range rec.Participants {
				if b.AliveFn(p) {
					alive = append(alive, p)
				}
			}
			// A vanished participant forfeits to the survivor. Only a duel
			// with no one left drops without a result.
			if len(alive) == 1 {
				log.Infof("duel %s: participant vanished, %s wins by forfeit", id, alive[0])
				rec.ForcedWinner = alive[0]
				rec.ForcedLoser = rec.Other(alive[0])
				b.Resolve(id)
				continue
			}
			if len(alive) == 0 {
				log.Debugf("duel %s: both participants vanished, dropping record", id)
				delete(b.Records, id)
				if rec.Participants == b.Participants {
					b.Active = false
					b.Participants = [2]string{}
				}
				continue
			}
		}

		if rec.involvesNPC() && now.Sub(rec.Start) > NPCStaleAfter {
			b.forceResolveStale(rec, now)
			continue
		}

		// A record whose reports already imply a winner resolves even if
		// nothing new arrived this tick.
		b.Resolve(id)
	}

	for key, req := range b.Requests {
		if now.Sub(req.At) > RequestTTL {
			delete(b.Requests, key)
		}
	}
}

// forceResolveStale settles an NPC-involving duel that has gone quiet: any
// decisive partial report is honoured, otherwise a deterministic coin flip
// seeded by (duel_id, now) picks the winner.
func (b *Broker) forceResolveStale(rec *Record, now time.Time) {
	for _, p := range rec.Participants {
		r, ok := rec.Results[p]
		if !ok {
			continue
		}
		switch r.Outcome {
		case "win":
			rec.ForcedWinner = p
			rec.ForcedLoser = rec.Other(p)
		case "lose", "forfeit":
			rec.ForcedLoser = p
			rec.ForcedWinner = rec.Other(p)
		}
		if rec.ForcedWinner != "" {
			break
		}
	}
	if rec.ForcedWinner == "" {
		rng := staleRand(rec.ID, now)
		idx := rng.Intn(2)
		rec.ForcedWinner = rec.Participants[idx]
		rec.ForcedLoser = rec.Participants[1-idx]
	}
	log.Infof("duel %s: stale NPC duel force-resolved, winner=%s", rec.ID, rec.ForcedWinner)
	b.Resolve(rec.ID)
}
