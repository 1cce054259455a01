// internal/minigame/registry.go
package minigame

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ResultSummary is what a minigame's resolve hook distills from an arbitrary
// result payload. The authority only ever consumes these four fields.
type ResultSummary struct {
	DuelID  string
	Winner  string
	Loser   string
	Outcome string
}

// Descriptor is the full contract between the authority and one minigame.
// Hooks are optional; a nil hook simply means the minigame does not
// participate in that part of the duel flow.
type Descriptor struct {
	ID      string
	Enabled bool

	// BuildPayload assembles the start_minigame payload for a duel.
	BuildPayload func(host map[string]interface{}, participants []string) map[string]interface{}

	// ResolveResult maps a minigame's result payload onto a duel outcome.
	ResolveResult func(payload map[string]interface{}) (*ResultSummary, error)

	// AIChoice picks an entry for an NPC participant. Deterministic for a
	// given (seed, round, participants).
	AIChoice func(seed string, round int, participants []string) string
}

// Registry holds every known minigame descriptor. It is populated once at
// startup (builtins plus directory discovery) and read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	games map[string]*Descriptor
}

// NewRegistry returns a registry pre-populated with the builtin minigames.
func NewRegistry() *Registry {
	r := &Registry{games: make(map[string]*Descriptor)}
	registerBuiltins(r)
	return r
}

// Register adds or replaces a descriptor.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.ID == "" {
		return fmt.Errorf("minigame: descriptor requires an id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[d.ID] = d
	return nil
}

// Get returns the descriptor for id, or nil.
func (r *Registry) Get(id string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.games[id]
}

// EnabledIDs returns the sorted ids of every multiplayer-enabled minigame.
// This set populates every duel wheel.
func (r *Registry) EnabledIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.games))
	for id, d := range r.games {
		if d.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// descriptorFile is the on-disk shape of minigames/<id>/multiplayer.json.
type descriptorFile struct {
	MinigameID         string `json:"minigame_id"`
	MultiplayerEnabled bool   `json:"multiplayer_enabled"`
}

// Discover walks a minigames directory and applies each subdirectory's
// multiplayer descriptor: known ids get their enabled flag updated, unknown
// ids are registered as relay-only minigames (the authority never interprets
// their action payloads). Template directories and subdirectories without a
// descriptor are skipped.
func (r *Registry) Discover(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "template" || e.Name() == "_template" {
			continue
		}
		path := filepath.Join(dir, e.Name(), "multiplayer.json")
		data, err := os.ReadFile(path)
		if err != nil {
			continue // no descriptor, not a multiplayer minigame
		}
		var df descriptorFile
		if err := json.Unmarshal(data, &df); err != nil {
			log.Warnf("minigame: skipping %s: %v", path, err)
			continue
		}
		if df.MinigameID != e.Name() {
			log.Warnf("minigame: skipping %s: id %q does not match directory", path, df.MinigameID)
			continue
		}
		r.mu.Lock()
		if existing, ok := r.games[df.MinigameID]; ok {
			existing.Enabled = df.MultiplayerEnabled
		} else {
			r.games[df.MinigameID] = &Descriptor{
				ID:       df.MinigameID,
				Enabled:  df.MultiplayerEnabled,
				AIChoice: autoChoice,
			}
		}
		r.mu.Unlock()
		log.Debugf("minigame: discovered %s (enabled=%v)", df.MinigameID, df.MultiplayerEnabled)
	}
	return nil
}
