// internal/server/client.go
package server

import (
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/duelgrounds/server/internal/protocol"
)

// Client is one connected player: an id plus its serialized wire codec.
type Client struct {
	ID     string
	codec  *protocol.Codec
	remote string
}

// Send enqueues a message on this client's writer.
func (c *Client) Send(msg interface{}) { c.codec.Send(msg) }

// serveConn runs the lifecycle of one TCP connection: join gating, welcome,
// read loop, disconnect cleanup.
func (s *Server) serveConn(conn net.Conn) {
	codec := protocol.NewCodec(conn)
	remote := conn.RemoteAddr().String()

	client, reject := s.accept(codec, remote)
	if client == nil {
		// Written synchronously so the frame lands before the close.
		codec.SendSync(map[string]interface{}{
			"type":   protocol.TypeReject,
			"reason": reject,
		})
		codec.Close()
		return
	}
	log.Infof("player %s connected from %s", client.ID, remote)

	s.readLoop(client)

	log.Infof("player %s disconnected (%s)", client.ID, remote)
	s.dropClient(client.ID)
	codec.Close()
}

// accept applies join gating and registers the connection as a lobby player.
// A nil client with a reject reason means the caller must send the reject and
// close.
func (s *Server) accept(codec *protocol.Codec, remote string) (*Client, string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.matchActiveUnsafe() && !s.opts.AllowJoinDuringMatch {
		return nil, protocol.RejectMatchActive
	}
	if s.LobbyLocked {
		return nil, protocol.RejectLobbyLocked
	}

	id := uuid.NewString()
	s.nextPlayer++
	s.Lobby.AddUnsafe(id, fmt.Sprintf("Player %d", s.nextPlayer))

	client := &Client{ID: id, codec: codec, remote: remote}
	s.clients[id] = client

	client.Send(map[string]interface{}{
		"type":      protocol.TypeWelcome,
		"player_id": id,
		"state":     s.lobbyStateUnsafe(),
	})
	s.broadcastLobbyStateUnsafe()
	return client, ""
}

// readLoop processes inbound messages in arrival order until the connection
// dies. Per-message errors never tear the loop down.
func (s *Server) readLoop(client *Client) {
	for {
		msg, err := client.codec.Recv()
		if err != nil {
			if err != io.EOF {
				log.Debugf("player %s read error: %v", client.ID, err)
			}
			return
		}
		s.Mu.Lock()
		s.dispatchUnsafe(client, msg)
		s.Mu.Unlock()
	}
}

// dropClient removes a disconnected player everywhere: clients table, lobby,
// match inputs and entity. The duel sweep notices vanished participants on
// the next tick and resolves their duels for the other side.
func (s *Server) dropClient(id string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	delete(s.clients, id)
	s.Lobby.RemoveUnsafe(id)
	if s.Match != nil {
		delete(s.Match.Entities, id)
		delete(s.Match.Inputs, id)
	}
	s.broadcastLobbyStateUnsafe()
}
