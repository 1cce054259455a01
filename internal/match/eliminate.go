// internal/match/eliminate.go
package match

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// Eliminate removes id from the match. Humans are flagged and retained so the
// client can transition to spectator; bots (and ids already gone) are removed
// outright. Either way an eliminate event is broadcast and the owner's
// OnEliminate hook runs so duel bookkeeping can be cleared.
func (s *State) Eliminate(id string) {
	if id == "" {
		return
	}

	e, exists := s.Entities[id]
	if exists && !e.IsNPC {
		if s.EliminatedHumans[id] {
			return // already a spectator
		}
		s.EliminatedHumans[id] = true
		log.Infof("match: human %s eliminated (spectator)", id)
	} else {
		if s.EliminatedBots[id] {
			return
		}
		s.EliminatedBots[id] = true
		delete(s.Entities, id)
		delete(s.Inputs, id)
		log.Infof("match: bot %s eliminated (removed)", id)
	}

	if s.OnEliminate != nil {
		s.OnEliminate(id)
	}
	if s.BroadcastFn != nil {
		s.BroadcastFn(map[string]interface{}{
			"type":      "eliminate",
			"player_id": id,
		})
	}
}

// IsNPCID reports whether id carries the bot prefix. Used where the entity
// record may already be gone.
func IsNPCID(id string) bool { return strings.HasPrefix(id, NPCPrefix) }
