// internal/server/lobby.go
package server

// PinnedMapName and PinnedMode are what the authority forces the lobby to;
// client set_map/set_mode messages are accepted and ignored.
const (
	PinnedMapName = "test_arena"
	PinnedMode    = "tournament"
)

const (
	maxNameLen = 24
	maxCharLen = 32
)

// Player is one lobby member. Mutated only under the server lock.
type Player struct {
	ID       string `json:"player_id"`
	Name     string `json:"name"`
	Ready    bool   `json:"ready"`
	CharName string `json:"char_name"`
}

// Lobby is the pre-match registry: who is connected, their ready flags and
// character picks, and which of them is host. Ordered; the first remaining
// player inherits host on disconnect.
type Lobby struct {
	MapName  string
	Mode     string
	AllowNPC bool
	HostID   string
	Players  []*Player
}

// NewLobby returns an empty lobby pinned to the multiplayer map and mode.
func NewLobby(allowNPC bool) *Lobby {
	return &Lobby{
		MapName:  PinnedMapName,
		Mode:     PinnedMode,
		AllowNPC: allowNPC,
	}
}

// FindUnsafe returns the player with the given id, or nil.
func (l *Lobby) FindUnsafe(id string) *Player {
	for _, p := range l.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AddUnsafe appends a new player with a default name. The first player in
// becomes host. Assumes the server lock is held.
func (l *Lobby) AddUnsafe(id, defaultName string) *Player {
	p := &Player{ID: id, Name: defaultName}
	l.Players = append(l.Players, p)
	if l.HostID == "" {
		l.HostID = id
	}
	return p
}

// RemoveUnsafe drops the player and promotes the first remaining player to
// host if the host left. Assumes the server lock is held.
func (l *Lobby) RemoveUnsafe(id string) {
	for i, p := range l.Players {
		if p.ID == id {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			break
		}
	}
	if l.HostID == id {
		l.HostID = ""
		if len(l.Players) > 0 {
			l.HostID = l.Players[0].ID
		}
	}
}

// SetNameUnsafe applies a hello: truncate to 24 codepoints, empty falls back
// to "Player".
func (l *Lobby) SetNameUnsafe(id, name string) {
	p := l.FindUnsafe(id)
	if p == nil {
		return
	}
	name = truncate(name, maxNameLen)
	if name == "" {
		name = "Player"
	}
	p.Name = name
}

// SetCharUnsafe records a character selection, truncated to 32 codepoints.
func (l *Lobby) SetCharUnsafe(id, char string) {
	if p := l.FindUnsafe(id); p != nil {
		p.CharName = truncate(char, maxCharLen)
	}
}

// SetReadyUnsafe flips a player's ready flag.
func (l *Lobby) SetReadyUnsafe(id string, ready bool) {
	if p := l.FindUnsafe(id); p != nil {
		p.Ready = ready
	}
}

// AllReadyUnsafe reports whether every player is ready. Empty lobbies are
// not ready.
func (l *Lobby) AllReadyUnsafe() bool {
	if len(l.Players) == 0 {
		return false
	}
	for _, p := range l.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// ClearReadyUnsafe resets every ready flag (lobby reset).
func (l *Lobby) ClearReadyUnsafe() {
	for _, p := range l.Players {
		p.Ready = false
	}
}

// SnapshotUnsafe builds the lobby_state payload body.
func (l *Lobby) SnapshotUnsafe() map[string]interface{} {
	players := make([]map[string]interface{}, 0, len(l.Players))
	for _, p := range l.Players {
		players = append(players, map[string]interface{}{
			"player_id": p.ID,
			"name":      p.Name,
			"ready":     p.Ready,
			"char_name": p.CharName,
		})
	}
	state := map[string]interface{}{
		"map_name":  l.MapName,
		"mode":      l.Mode,
		"allow_npc": l.AllowNPC,
		"players":   players,
	}
	if l.HostID != "" {
		state["host_id"] = l.HostID
	} else {
		state["host_id"] = nil
	}
	return state
}

// truncate cuts s to at most n codepoints.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
