// internal/minigame/builtin.go
package minigame

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// RPSDuelID is the rock-paper-scissors duel, the wheel's fallback entry.
// The authority resolves its rounds itself, so it is the one minigame with a
// full hook set.
const RPSDuelID = "rps_duel"

// AutoEntry is the sentinel recorded for an NPC in a minigame that has no
// ai_choice hook of its own.
const AutoEntry = "auto"

// RPSEntries are the legal per-round choices for rps_duel.
var RPSEntries = []string{"rock", "paper", "scissors"}

// RPSBeats maps each entry to the entry it defeats.
var RPSBeats = map[string]string{
	"rock":     "scissors",
	"scissors": "paper",
	"paper":    "rock",
}

func seededChoice(seed string, round int, entries []string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d", seed, round)
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	return entries[rng.Intn(len(entries))]
}

// autoChoice is the ai hook for relay-only minigames.
func autoChoice(string, int, []string) string { return AutoEntry }

func registerBuiltins(r *Registry) {
	r.games[RPSDuelID] = &Descriptor{
		ID:      RPSDuelID,
		Enabled: true,
		BuildPayload: func(host map[string]interface{}, participants []string) map[string]interface{} {
			return map[string]interface{}{
				"minigame":     RPSDuelID,
				"participants": participants,
				"best_of":      3,
			}
		},
		ResolveResult: func(payload map[string]interface{}) (*ResultSummary, error) {
			duelID, _ := payload["duel_id"].(string)
			winner, _ := payload["winner"].(string)
			loser, _ := payload["loser"].(string)
			if winner == "" || loser == "" {
				return nil, fmt.Errorf("rps_duel: result payload missing winner/loser")
			}
			return &ResultSummary{DuelID: duelID, Winner: winner, Loser: loser, Outcome: "win"}, nil
		},
		AIChoice: func(seed string, round int, participants []string) string {
			return seededChoice(seed, round, RPSEntries)
		},
	}

	// Relay-only wheel entries: the authority starts them, relays their
	// duel_action traffic and arbitrates reported results, nothing more.
	for _, id := range []string{"quick_draw", "tile_sprint"} {
		r.games[id] = &Descriptor{
			ID:       id,
			Enabled:  true,
			AIChoice: autoChoice,
		}
	}
}
