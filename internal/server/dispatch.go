// internal/server/dispatch.go
package server

import (
	log "github.com/sirupsen/logrus"

	"github.com/duelgrounds/server/internal/protocol"
)

// dispatchUnsafe routes one inbound message. Assumes the server lock is
// held. Unknown types and authority violations (non-host issuing host-only
// commands) are dropped silently, per the error policy.
func (s *Server) dispatchUnsafe(client *Client, msg protocol.Inbound) {
	isHost := s.Lobby.HostID == client.ID

	switch msg.Type {
	case protocol.TypeHello:
		s.Lobby.SetNameUnsafe(client.ID, msg.Name)
		s.broadcastLobbyStateUnsafe()

	case protocol.TypeSetReady:
		s.Lobby.SetReadyUnsafe(client.ID, msg.Ready)
		s.broadcastLobbyStateUnsafe()

	case protocol.TypeSetChar:
		s.Lobby.SetCharUnsafe(client.ID, msg.CharName)
		s.broadcastLobbyStateUnsafe()

	case protocol.TypeSetMap, protocol.TypeSetMode, protocol.TypeSetAllowNPC:
		// Accepted and ignored: multiplayer is pinned to test_arena /
		// tournament and the npc flag is server-side config.

	case protocol.TypeStartMatch:
		if !isHost {
			log.Debugf("ignoring start_match from non-host %s", client.ID)
			return
		}
		if err := s.startMatchUnsafe(msg.Seed); err != nil {
			log.Warnf("start_match: %v", err)
		}

	case protocol.TypeMatchInput, protocol.TypeInput:
		if s.Match != nil && msg.Vec != nil {
			s.Match.SetInput(client.ID, msg.Vec.X, msg.Vec.Y)
		}

	case protocol.TypeRequestDuel:
		s.Broker.RequestDuel(client.ID, msg.Target, s.matchActiveUnsafe())

	case protocol.TypeDuelChoice:
		s.Broker.HandleChoice(client.ID, msg.DuelID, msg.Entry)

	case protocol.TypeDuelAction:
		s.Broker.HandleAction(client.ID, msg.DuelID, msg.Raw)

	case protocol.TypeDuelResult:
		s.Broker.HandleResult(client.ID, msg.DuelID, msg.Outcome, msg.Winner, msg.Loser, msg.Entry)

	case protocol.TypeStartMini:
		if !isHost {
			return
		}
		out := cloneRaw(msg.Raw)
		out["type"] = protocol.TypeStartMini
		s.broadcastUnsafe(out)

	case protocol.TypeMiniResult:
		s.broadcastUnsafe(cloneRaw(msg.Raw))

	case protocol.TypeDebugDuel:
		if !isHost || !s.matchActiveUnsafe() {
			return
		}
		target := msg.Target
		if target == "" {
			target = s.anyOpponentUnsafe(client.ID)
		}
		if target != "" && s.Broker.CanAutoPair() {
			s.Broker.StartDuel(client.ID, target)
		}

	default:
		log.Debugf("ignoring unknown message type %q from %s", msg.Type, client.ID)
	}
}

// anyOpponentUnsafe picks some other alive entity for a debug duel, bots
// first so the host can exercise the NPC path alone.
func (s *Server) anyOpponentUnsafe(id string) string {
	if s.Match == nil {
		return ""
	}
	for _, bot := range s.Match.AliveBots() {
		return bot
	}
	for _, h := range s.Match.AliveHumans() {
		if h != id {
			return h
		}
	}
	return ""
}

func cloneRaw(raw map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}
