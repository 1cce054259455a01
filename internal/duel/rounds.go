// internal/duel/rounds.go
package duel

import (
	log "github.com/sirupsen/logrus"

	"github.com/duelgrounds/server/internal/match"
	"github.com/duelgrounds/server/internal/minigame"
)

// HandleChoice records a per-round rock-paper-scissors entry from sender.
// Once both entries for the round exist the round is scored and broadcast;
// two round wins resolve the duel.
func (b *Broker) HandleChoice(sender, duelID, entry string) {
	rec, ok := b.Records[duelID]
	if !ok || rec.Selected != minigame.RPSDuelID || !rec.Has(sender) {
		return
	}
	if _, dup := rec.RoundEntries[sender]; dup {
		return
	}
	if minigame.RPSBeats[entry] == "" {
		return
	}

	rec.RoundEntries[sender] = entry
	if rec.RoundFirstChoiceAt.IsZero() {
		rec.RoundFirstChoiceAt = b.Now()
	}

	// NPC opponents answer as soon as the human commits.
	desc := b.Registry.Get(rec.Selected)
	for _, p := range rec.Participants {
		if !match.IsNPCID(p) {
			continue
		}
		if _, done := rec.RoundEntries[p]; done {
			continue
		}
		choice := minigame.RPSEntries[0]
		if desc != nil && desc.AIChoice != nil {
			choice = desc.AIChoice(rec.ID, rec.Round, rec.Participants[:])
		}
		rec.RoundEntries[p] = choice
	}

	if len(rec.RoundEntries) < 2 {
		return
	}
	b.scoreRound(rec)
}

// scoreRound decides one completed round, broadcasts it, and resolves the
// duel if someone reached the winning score.
func (b *Broker) scoreRound(rec *Record) {
	a, c := rec.Participants[0], rec.Participants[1]
	ea, ec := rec.RoundEntries[a], rec.RoundEntries[c]

	var winner string
	switch {
	case ea == ec:
		// tie, no score change
	case minigame.RPSBeats[ea] == ec:
		winner = a
	case minigame.RPSBeats[ec] == ea:
		winner = c
	}
	if winner != "" {
		rec.Scores[winner]++
	}

	choices := map[string]string{a: ea, c: ec}
	payload := map[string]interface{}{
		"type":    "duel_round_result",
		"duel_id": rec.ID,
		"round":   rec.Round,
		"choices": choices,
		"scores":  map[string]int{a: rec.Scores[a], c: rec.Scores[c]},
	}
	if winner != "" {
		payload["winner"] = winner
	} else {
		payload["winner"] = nil
	}
	b.broadcast(payload)
	log.Debugf("duel %s round %d: %s=%s %s=%s winner=%q", rec.ID, rec.Round, a, ea, c, ec, winner)

	rec.Round++
	rec.RoundEntries = make(map[string]string)
	rec.RoundFirstChoiceAt = zeroTime

	for _, p := range rec.Participants {
		if rec.Scores[p] >= WinningScore {
			rec.ForcedWinner = p
			rec.ForcedLoser = rec.Other(p)
			b.Resolve(rec.ID)
			return
		}
	}
}
