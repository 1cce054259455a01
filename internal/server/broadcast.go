// internal/server/broadcast.go
package server

import "github.com/duelgrounds/server/internal/protocol"

// broadcastUnsafe fans a payload out to every registered writer. Individual
// writer failures are swallowed here; the codec layer tears the connection
// down and the read loop performs the unregister.
func (s *Server) broadcastUnsafe(msg map[string]interface{}) {
	for _, c := range s.clients {
		c.Send(msg)
	}
}

// lobbyStateUnsafe builds the lobby snapshot body, with the admin-published
// server_meta envelope appended when one is set.
func (s *Server) lobbyStateUnsafe() map[string]interface{} {
	state := s.Lobby.SnapshotUnsafe()
	if s.serverMeta != nil {
		state["server_meta"] = s.serverMeta
	}
	return state
}

// broadcastLobbyStateUnsafe publishes one lobby snapshot. Called after every
// lobby mutation; coalescing is not required.
func (s *Server) broadcastLobbyStateUnsafe() {
	s.broadcastUnsafe(map[string]interface{}{
		"type":  protocol.TypeLobbyState,
		"state": s.lobbyStateUnsafe(),
	})
}

// SetServerMeta stores the auto-start/lock envelope and republishes the lobby
// state so clients see the change.
func (s *Server) SetServerMeta(meta map[string]interface{}) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.serverMeta = meta
	s.broadcastLobbyStateUnsafe()
}
