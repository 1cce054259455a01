// internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/duelgrounds/server/internal/duel"
	"github.com/duelgrounds/server/internal/match"
	"github.com/duelgrounds/server/internal/minigame"
)

// Options configures the authority.
type Options struct {
	Addr                 string // TCP listen address, host:port
	MapDir               string // optional on-disk map directory
	AllowNPC             bool
	NPCFillTarget        int // bot top-up when allow_npc is set
	AllowJoinDuringMatch bool
	MatchCfg             match.Config
}

// Server is the authority: the single owner of lobby, match and duel state.
// One mutex serializes every mutation; broadcasts observed by clients always
// reflect a prefix of applied mutations.
type Server struct {
	Mu sync.Mutex

	opts     Options
	Lobby    *Lobby
	Match    *match.State // nil while idle
	Broker   *duel.Broker
	Registry *minigame.Registry

	clients    map[string]*Client
	nextPlayer int

	// LobbyLocked rejects new joins outright (admin lock). Join gating
	// during a match is computed from match state.
	LobbyLocked bool

	// serverMeta is the admin-published envelope appended to lobby
	// snapshots; nil means no envelope.
	serverMeta map[string]interface{}

	started  time.Time
	listener net.Listener

	closeOnce sync.Once
	done      chan struct{}
}

// New builds an idle server over a populated minigame registry.
func New(opts Options, reg *minigame.Registry) *Server {
	if opts.NPCFillTarget <= 0 {
		opts.NPCFillTarget = 8
	}
	if opts.MatchCfg == (match.Config{}) {
		opts.MatchCfg = match.DefaultConfig()
	}
	s := &Server{
		opts:     opts,
		Lobby:    NewLobby(opts.AllowNPC),
		Broker:   duel.NewBroker(reg),
		Registry: reg,
		clients:  make(map[string]*Client),
		started:  time.Now(),
		done:     make(chan struct{}),
	}
	return s
}

// Run listens on the configured address and serves connections until ctx is
// cancelled. The simulation driver runs alongside the accept loop.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	s.listener = ln
	log.Infof("authority listening on %s", s.opts.Addr)

	go s.tickLoop(ctx)
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		go s.serveConn(conn)
	}
}

// Close shuts the listener and every client down.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.Mu.Lock()
		for _, c := range s.clients {
			c.codec.Close()
		}
		s.Mu.Unlock()
	})
}

// tickLoop drives the simulation at the configured tick rate. Each tick runs
// the duel sweep and then the world step, both under the authority lock. The
// simulated dt is wall clock, clamped inside Step.
func (s *Server) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.MatchCfg.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			s.Mu.Lock()
			if s.Match != nil && s.Match.Active {
				s.Broker.Sweep(dt)
				if s.Match.Active { // sweep eliminations may have ended it
					s.Match.Step(dt)
				}
			}
			s.Mu.Unlock()
		}
	}
}

// Uptime reports how long the server has been running.
func (s *Server) Uptime() time.Duration { return time.Since(s.started) }

// MatchActive reports whether a match is currently being simulated.
func (s *Server) MatchActive() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.matchActiveUnsafe()
}

func (s *Server) matchActiveUnsafe() bool {
	return s.Match != nil && s.Match.Active
}

// PlayerCount returns the number of lobby players.
func (s *Server) PlayerCount() int {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return len(s.Lobby.Players)
}

// AllReady reports whether every lobby player is ready.
func (s *Server) AllReady() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.Lobby.AllReadyUnsafe()
}
