// internal/server/ws.go
package server

import (
	"net/http"

	"github.com/coder/websocket"
	log "github.com/sirupsen/logrus"
)

// WSHandler bridges the newline-delimited JSON protocol over a WebSocket.
// The socket is wrapped into a net.Conn and served by the same connection
// lifecycle as raw TCP clients, so browser clients speak the identical
// protocol (messages still newline-terminated inside the stream).
func (s *Server) WSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"duelgrounds"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			log.Warnf("websocket accept from %s: %v", r.RemoteAddr, err)
			return
		}
		log.Infof("websocket client connected from %s", r.RemoteAddr)

		nc := websocket.NetConn(r.Context(), c, websocket.MessageText)
		s.serveConn(nc)
	}
}
