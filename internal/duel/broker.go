// internal/duel/broker.go
package duel

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/duelgrounds/server/internal/arena"
	"github.com/duelgrounds/server/internal/match"
	"github.com/duelgrounds/server/internal/minigame"
)

const (
	// CooldownAfterStart delays auto-pairing after a duel begins.
	CooldownAfterStart = 2.5
	// ActiveTimeout clears the duel-active gate if a duel lingers; the
	// record stays so a late result can still resolve it.
	ActiveTimeout = 10
	// RequestTTL is how long a one-sided challenge waits for its accept.
	RequestTTL = 10 * time.Second
	// NPCStaleAfter force-resolves any NPC-involving duel that has not
	// produced a result.
	NPCStaleAfter = 8 * time.Second
	// WinningScore ends a round-based duel.
	WinningScore = 2
)

// Report is one participant's result submission for a duel.
type Report struct {
	Entry   string
	Outcome string
}

// Record is the authoritative state of one 1v1 duel. Its presence in the
// broker means the duel is unresolved; resolution deletes it.
type Record struct {
	ID           string
	Participants [2]string
	Wheel        []string
	Selected     string

	Results map[string]Report
	Scores  map[string]int

	Round              int
	RoundEntries       map[string]string
	RoundFirstChoiceAt time.Time

	ForcedWinner string
	ForcedLoser  string

	Start time.Time
}

// Has reports whether id is one of the duel's participants.
func (r *Record) Has(id string) bool {
	return r.Participants[0] == id || r.Participants[1] == id
}

// Other returns the participant that is not id.
func (r *Record) Other(id string) string {
	if r.Participants[0] == id {
		return r.Participants[1]
	}
	return r.Participants[0]
}

func (r *Record) involvesNPC() bool {
	return match.IsNPCID(r.Participants[0]) || match.IsNPCID(r.Participants[1])
}

// Request is a one-sided challenge waiting for the other player to accept.
type Request struct {
	Initiator string
	Target    string
	At        time.Time
}

// pairKey builds the unordered-pair key for the request table.
func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

// Broker arbitrates duels: the request handshake, wheel construction, round
// resolution, result ingestion and the stale sweep. All methods assume the
// owning authority's lock is held.
type Broker struct {
	Registry *minigame.Registry

	Records  map[string]*Record
	Requests map[string]*Request

	Active       bool
	Participants [2]string
	Cooldown     float64
	Timeout      float64

	// BroadcastFn fans a payload out to every client.
	BroadcastFn func(msg map[string]interface{})
	// EliminateFn removes the duel loser from the match.
	EliminateFn func(id string)
	// ResetOutsideFn zeroes a participant's out-of-zone timer (grace around
	// duel start and resolution).
	ResetOutsideFn func(id string)
	// AliveFn reports whether a participant still exists in the match.
	AliveFn func(id string) bool
	// SeedFn supplies the match seed and current tick for wheel RNG.
	SeedFn func() (seed string, tick int64)
	// Now is the broker's clock; tests override it.
	Now func() time.Time
}

// NewBroker builds an idle broker over the given minigame registry.
func NewBroker(reg *minigame.Registry) *Broker {
	return &Broker{
		Registry: reg,
		Records:  make(map[string]*Record),
		Requests: make(map[string]*Request),
		Now:      time.Now,
	}
}

// Reset drops every record, request and timer. Called when a match ends or
// the lobby resets.
func (b *Broker) Reset() {
	b.Records = make(map[string]*Record)
	b.Requests = make(map[string]*Request)
	b.Active = false
	b.Participants = [2]string{}
	b.Cooldown = 0
	b.Timeout = 0
}

// ClearFor drops every record involving id and releases the active gate if
// that duel held it. Used when an entity is removed outside duel resolution.
func (b *Broker) ClearFor(id string) {
	for key, rec := range b.Records {
		if !rec.Has(id) {
			continue
		}
		delete(b.Records, key)
		if rec.Participants == b.Participants {
			b.Active = false
			b.Participants = [2]string{}
		}
	}
}

// Frozen reports whether id is locked in an unresolved duel. Frozen entities
// don't move and are ineligible for pairing.
func (b *Broker) Frozen(id string) bool {
	for _, rec := range b.Records {
		if rec.Has(id) {
			return true
		}
	}
	return false
}

// CanAutoPair gates proximity pairing: idle broker, no pending anything,
// cooldown elapsed.
func (b *Broker) CanAutoPair() bool {
	return !b.Active && len(b.Records) == 0 && len(b.Requests) == 0 && b.Cooldown <= 0
}

// RequestDuel handles a challenge from initiator against target. Challenging
// a bot starts immediately; challenging a human starts only once both sides
// have requested the same pair within the TTL.
func (b *Broker) RequestDuel(initiator, target string, matchActive bool) {
	if !matchActive || b.Active || len(b.Records) > 0 || b.Cooldown > 0 {
		return
	}
	if initiator == "" || target == "" || initiator == target {
		return
	}
	if b.AliveFn != nil && (!b.AliveFn(initiator) || !b.AliveFn(target)) {
		return
	}

	if match.IsNPCID(target) {
		b.StartDuel(initiator, target)
		return
	}

	key := pairKey(initiator, target)
	if req, ok := b.Requests[key]; ok {
		if req.Initiator == target && b.Now().Sub(req.At) <= RequestTTL {
			delete(b.Requests, key)
			b.StartDuel(req.Initiator, initiator)
			return
		}
	}
	b.Requests[key] = &Request{Initiator: initiator, Target: target, At: b.Now()}
	b.broadcast(map[string]interface{}{
		"type": "duel_request",
		"from": initiator,
		"to":   target,
	})
}

// StartDuel creates the duel record, builds the seeded wheel, pre-fills NPC
// results and broadcasts start_duel.
func (b *Broker) StartDuel(a, c string) *Record {
	seed, tick := "", int64(0)
	if b.SeedFn != nil {
		seed, tick = b.SeedFn()
	}
	rng := arena.SeededRand("duel", seed, strconv.FormatInt(tick, 10), a, c)

	// Wheel: up to 5 enabled minigames sampled without replacement.
	enabled := b.Registry.EnabledIDs()
	rng.Shuffle(len(enabled), func(i, j int) { enabled[i], enabled[j] = enabled[j], enabled[i] })
	wheel := enabled
	if len(wheel) > 5 {
		wheel = wheel[:5]
	}
	if len(wheel) == 0 {
		wheel = []string{minigame.RPSDuelID}
	}
	selected := wheel[rng.Intn(len(wheel))]

	rec := &Record{
		ID:           uuid.NewString(),
		Participants: [2]string{a, c},
		Wheel:        wheel,
		Selected:     selected,
		Results:      make(map[string]Report),
		Scores:       map[string]int{a: 0, c: 0},
		Round:        1,
		RoundEntries: make(map[string]string),
		Start:        b.Now(),
	}

	// NPC participants report up front so a one-sided duel can resolve.
	desc := b.Registry.Get(selected)
	for _, p := range rec.Participants {
		if !match.IsNPCID(p) {
			continue
		}
		entry := minigame.AutoEntry
		if desc != nil && desc.AIChoice != nil {
			entry = desc.AIChoice(rec.ID, 1, rec.Participants[:])
		}
		rec.Results[p] = Report{Entry: entry}
	}

	b.Records[rec.ID] = rec
	b.Active = true
	b.Participants = rec.Participants
	b.Cooldown = CooldownAfterStart
	b.Timeout = ActiveTimeout

	if b.ResetOutsideFn != nil {
		b.ResetOutsideFn(a)
		b.ResetOutsideFn(c)
	}

	log.Infof("duel %s: %s vs %s playing %s (wheel %v)", rec.ID, a, c, selected, wheel)
	b.broadcast(map[string]interface{}{
		"type":            "start_duel",
		"duel_id":         rec.ID,
		"participants":    rec.Participants[:],
		"wheel_entries":   wheel,
		"wheel_spin_seed": rng.Float64(),
		"selected_entry":  selected,
	})
	return rec
}

func (b *Broker) broadcast(msg map[string]interface{}) {
	if b.BroadcastFn != nil {
		b.BroadcastFn(msg)
	}
}

