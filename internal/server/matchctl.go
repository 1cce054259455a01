// internal/server/matchctl.go
package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/duelgrounds/server/internal/arena"
	"github.com/duelgrounds/server/internal/match"
	"github.com/duelgrounds/server/internal/protocol"
)

// botRoster gives the NPC fill entities their display names and characters.
var botRoster = []struct{ name, char string }{
	{"Rook", "brawler"},
	{"Vex", "ranger"},
	{"Tally", "scout"},
	{"Grim", "brawler"},
	{"Piper", "ranger"},
	{"Socket", "scout"},
	{"Marrow", "brawler"},
	{"Juniper", "ranger"},
}

// newMatchSeed samples 16 bytes from the CSPRNG, hex-encoded. Matches are
// replayable from this seed alone.
func newMatchSeed() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is unrecoverable in practice; fall back to a
		// fixed seed rather than aborting the match.
		log.Errorf("seed generation failed: %v", err)
		return "00000000000000000000000000000000"
	}
	return hex.EncodeToString(b[:])
}

// startMatchUnsafe begins a match: pins the lobby, loads the map, spawns
// humans plus the NPC fill, wires the duel broker to the new world and
// broadcasts start_match. The tick loop picks the new state up on the next
// tick, so the first match_state always follows start_match.
func (s *Server) startMatchUnsafe(seed string) error {
	if s.matchActiveUnsafe() {
		return fmt.Errorf("match already active")
	}
	if len(s.Lobby.Players) == 0 {
		return fmt.Errorf("no players in lobby")
	}

	s.Lobby.MapName = PinnedMapName
	s.Lobby.Mode = PinnedMode

	m, err := arena.Load(s.opts.MapDir, PinnedMapName)
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}

	if seed == "" {
		seed = newMatchSeed()
	}

	st := match.NewState(seed, m, s.opts.MatchCfg)
	s.wireMatchUnsafe(st)

	// Roster: lobby players in order, then bots up to the fill target.
	type spawnEntry struct {
		id, name, char string
		npc            bool
	}
	roster := make([]spawnEntry, 0, len(s.Lobby.Players))
	for _, p := range s.Lobby.Players {
		roster = append(roster, spawnEntry{id: p.ID, name: p.Name, char: p.CharName})
	}
	if s.Lobby.AllowNPC {
		for i := len(roster); i < s.opts.NPCFillTarget; i++ {
			bot := botRoster[(i-len(s.Lobby.Players))%len(botRoster)]
			roster = append(roster, spawnEntry{
				id:   fmt.Sprintf("%s%d", match.NPCPrefix, i-len(s.Lobby.Players)),
				name: bot.name,
				char: bot.char,
				npc:  true,
			})
		}
	}

	spawns := arena.PerimeterSpawns(m.Bounds, arena.DefaultSpawnMargin, len(roster), seed)
	spawnList := make([]map[string]interface{}, 0, len(roster))
	for i, entry := range roster {
		pos := spawns[0]
		if i < len(spawns) {
			pos = spawns[i]
		}
		st.AddEntity(entry.id, entry.char, entry.name, pos, entry.npc)
		spawnList = append(spawnList, map[string]interface{}{
			"player_id": entry.id,
			"pos":       []float64{pos.X, pos.Y},
		})
	}

	s.Match = st
	log.Infof("match started: seed=%s players=%d entities=%d", seed, len(s.Lobby.Players), len(roster))

	players := make([]map[string]interface{}, 0, len(s.Lobby.Players))
	for _, p := range s.Lobby.Players {
		players = append(players, map[string]interface{}{
			"player_id": p.ID,
			"name":      p.Name,
			"char_name": p.CharName,
		})
	}
	s.broadcastUnsafe(map[string]interface{}{
		"type": protocol.TypeStartMatch,
		"match": map[string]interface{}{
			"map":       s.Lobby.MapName,
			"mode":      s.Lobby.Mode,
			"seed":      seed,
			"allow_npc": s.Lobby.AllowNPC,
			"players":   players,
			"spawns":    spawnList,
		},
	})
	return nil
}

// wireMatchUnsafe connects the world, the duel broker and the broadcast
// fabric for one match.
func (s *Server) wireMatchUnsafe(st *match.State) {
	st.BroadcastFn = s.broadcastUnsafe
	st.FrozenFn = s.Broker.Frozen
	st.PairFn = func(a, b string) { s.Broker.StartDuel(a, b) }
	st.CanPairFn = s.Broker.CanAutoPair
	st.OnEliminate = func(id string) {
		if match.IsNPCID(id) {
			s.Broker.ClearFor(id)
		}
	}

	s.Broker.Reset()
	s.Broker.BroadcastFn = s.broadcastUnsafe
	s.Broker.EliminateFn = st.Eliminate
	s.Broker.ResetOutsideFn = func(id string) {
		if e := st.Entities[id]; e != nil {
			e.OutsideTimer = 0
		}
	}
	s.Broker.AliveFn = st.IsAlive
	s.Broker.SeedFn = func() (string, int64) { return st.Seed, st.Tick }
}

// ForceStart starts a match regardless of ready state (admin path).
func (s *Server) ForceStart(seed string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.startMatchUnsafe(seed)
}

// ResetLobby cancels any match, clears duel state and ready flags, and
// broadcasts the fresh lobby state. Idempotent.
func (s *Server) ResetLobby() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Match = nil
	s.Broker.Reset()
	s.Lobby.ClearReadyUnsafe()
	s.broadcastLobbyStateUnsafe()
	log.Info("lobby reset")
}

// Kick disconnects a player by id. Safe on unknown ids.
func (s *Server) Kick(playerID string) bool {
	s.Mu.Lock()
	client, ok := s.clients[playerID]
	s.Mu.Unlock()
	if !ok {
		return false
	}
	// Closing the codec unblocks the read loop, which performs the usual
	// disconnect cleanup.
	client.codec.Close()
	return true
}

// SetLobbyLock toggles the admin join lock.
func (s *Server) SetLobbyLock(locked bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.LobbyLocked = locked
	s.broadcastLobbyStateUnsafe()
}

// IsLobbyLocked reports the admin join lock.
func (s *Server) IsLobbyLocked() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.LobbyLocked
}

// StatusSnapshot summarizes the authority for the admin /status endpoint.
func (s *Server) StatusSnapshot() map[string]interface{} {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	status := map[string]interface{}{
		"players":      len(s.Lobby.Players),
		"lobby_locked": s.LobbyLocked,
		"match_active": s.matchActiveUnsafe(),
		"uptime_sec":   int64(s.Uptime().Seconds()),
	}
	if s.Match != nil {
		status["tick"] = s.Match.Tick
		status["remaining_humans"] = len(s.Match.AliveHumans())
		status["remaining_bots"] = len(s.Match.AliveBots())
		status["safe_radius"] = s.Match.SafeRadius
		if s.Match.Winner != "" {
			status["winner"] = s.Match.Winner
		}
		if s.Match.NPCWin {
			status["npc_winner"] = true
		}
	}
	return status
}
