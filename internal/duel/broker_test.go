// internal/duel/broker_test.go
package duel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duelgrounds/server/internal/minigame"
)

// collector captures every broadcast payload for assertions.
type collector struct {
	msgs []map[string]interface{}
}

func (c *collector) fn(msg map[string]interface{}) { c.msgs = append(c.msgs, msg) }

func (c *collector) byType(typ string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, m := range c.msgs {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// fixture wires a broker to fakes: rps-only registry, collected broadcasts,
// recorded eliminations and a controllable clock.
type fixture struct {
	b          *Broker
	c          *collector
	now        time.Time
	dead       map[string]bool
	eliminated []string
	resets     []string
}

func newFixture() *fixture {
	reg := minigame.NewRegistry()
	reg.Get("quick_draw").Enabled = false
	reg.Get("tile_sprint").Enabled = false

	f := &fixture{
		c:    &collector{},
		now:  time.Unix(1700000000, 0),
		dead: make(map[string]bool),
	}
	f.b = NewBroker(reg)
	f.b.BroadcastFn = f.c.fn
	f.b.EliminateFn = func(id string) { f.eliminated = append(f.eliminated, id) }
	f.b.ResetOutsideFn = func(id string) { f.resets = append(f.resets, id) }
	f.b.AliveFn = func(id string) bool { return !f.dead[id] }
	f.b.SeedFn = func() (string, int64) { return "matchseed", 42 }
	f.b.Now = func() time.Time { return f.now }
	return f
}

func TestRequestDuelHandshake(t *testing.T) {
	f := newFixture()

	f.b.RequestDuel("a", "b", true)
	assert.Empty(t, f.b.Records, "a one-sided challenge does not start a duel")
	reqs := f.c.byType("duel_request")
	require.Len(t, reqs, 1)
	assert.Equal(t, "a", reqs[0]["from"])
	assert.Equal(t, "b", reqs[0]["to"])

	f.now = f.now.Add(3 * time.Second)
	f.b.RequestDuel("b", "a", true)
	require.Len(t, f.b.Records, 1)
	assert.True(t, f.b.Active)
	assert.Equal(t, [2]string{"a", "b"}, f.b.Participants)
	assert.Equal(t, CooldownAfterStart, f.b.Cooldown)
	assert.Equal(t, float64(ActiveTimeout), f.b.Timeout)
	assert.Empty(t, f.b.Requests, "the matched request is consumed")

	starts := f.c.byType("start_duel")
	require.Len(t, starts, 1)
	assert.Equal(t, []string{minigame.RPSDuelID}, starts[0]["wheel_entries"])
	assert.Equal(t, minigame.RPSDuelID, starts[0]["selected_entry"])
	assert.Contains(t, starts[0], "wheel_spin_seed")
	assert.ElementsMatch(t, []string{"a", "b"}, f.resets, "outside timers reset at duel start")
}

func TestRequestDuelGates(t *testing.T) {
	f := newFixture()

	f.b.RequestDuel("a", "b", false)
	f.b.RequestDuel("a", "a", true)
	f.b.RequestDuel("", "b", true)
	assert.Empty(t, f.b.Requests)

	f.dead["ghost"] = true
	f.b.RequestDuel("a", "ghost", true)
	assert.Empty(t, f.b.Requests, "dead targets cannot be challenged")

	f.b.Cooldown = 1
	f.b.RequestDuel("a", "b", true)
	assert.Empty(t, f.b.Requests, "cooldown blocks new challenges")
	f.b.Cooldown = 0

	f.b.StartDuel("c", "d")
	f.b.RequestDuel("a", "b", true)
	assert.Empty(t, f.b.Requests, "only one duel at a time")
}

func TestRequestExpiry(t *testing.T) {
	f := newFixture()

	f.b.RequestDuel("a", "b", true)
	f.now = f.now.Add(RequestTTL + time.Second)
	f.b.RequestDuel("b", "a", true)
	assert.Empty(t, f.b.Records, "an expired challenge cannot be accepted")
	require.Len(t, f.b.Requests, 1, "the late accept becomes a fresh challenge")
	assert.Equal(t, "b", f.b.Requests[pairKey("a", "b")].Initiator)

	f.now = f.now.Add(RequestTTL + time.Second)
	f.b.Sweep(1.0 / 15)
	assert.Empty(t, f.b.Requests, "the sweep expires stale requests")
}

func TestNPCChallengeStartsImmediately(t *testing.T) {
	f := newFixture()

	f.b.RequestDuel("h", "npc-1", true)
	require.Len(t, f.b.Records, 1)

	var rec *Record
	for _, r := range f.b.Records {
		rec = r
	}
	assert.Equal(t, [2]string{"h", "npc-1"}, rec.Participants)
	report, ok := rec.Results["npc-1"]
	require.True(t, ok, "the NPC reports up front")
	assert.Contains(t, minigame.RPSEntries, report.Entry)
}

func TestRPSBestOfThree(t *testing.T) {
	f := newFixture()
	rec := f.b.StartDuel("a", "b")

	// Round 1: rock beats scissors.
	f.b.HandleChoice("a", rec.ID, "rock")
	assert.Empty(t, f.c.byType("duel_round_result"), "round waits for both entries")
	f.b.HandleChoice("a", rec.ID, "paper")   // duplicate, ignored
	f.b.HandleChoice("c", rec.ID, "rock")    // non-participant, ignored
	f.b.HandleChoice("b", rec.ID, "lizard")  // invalid entry, ignored
	f.b.HandleChoice("b", rec.ID, "scissors")

	rounds := f.c.byType("duel_round_result")
	require.Len(t, rounds, 1)
	assert.Equal(t, "a", rounds[0]["winner"])
	assert.Equal(t, 1, rounds[0]["round"])
	assert.Equal(t, map[string]string{"a": "rock", "b": "scissors"}, rounds[0]["choices"])
	assert.Equal(t, map[string]int{"a": 1, "b": 0}, rounds[0]["scores"])

	// Round 2: scissors beats paper, 1-1.
	f.b.HandleChoice("a", rec.ID, "paper")
	f.b.HandleChoice("b", rec.ID, "scissors")
	rounds = f.c.byType("duel_round_result")
	require.Len(t, rounds, 2)
	assert.Equal(t, "b", rounds[1]["winner"])

	// Round 3: tie first, then a takes the duel.
	f.b.HandleChoice("a", rec.ID, "rock")
	f.b.HandleChoice("b", rec.ID, "rock")
	rounds = f.c.byType("duel_round_result")
	require.Len(t, rounds, 3)
	assert.Nil(t, rounds[2]["winner"], "ties score nothing")

	f.b.HandleChoice("a", rec.ID, "rock")
	f.b.HandleChoice("b", rec.ID, "scissors")

	results := f.c.byType("duel_result")
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0]["winner"])
	assert.Equal(t, "b", results[0]["loser"])
	assert.Equal(t, []string{"b"}, f.eliminated)
	assert.Empty(t, f.b.Records)
	assert.False(t, f.b.Active)
}

func TestHandleChoiceNPCAutoAnswer(t *testing.T) {
	f := newFixture()
	rec := f.b.StartDuel("h", "npc-1")

	f.b.HandleChoice("h", rec.ID, "rock")

	rounds := f.c.byType("duel_round_result")
	require.Len(t, rounds, 1, "the NPC answers as soon as the human commits")
	choices := rounds[0]["choices"].(map[string]string)
	assert.Equal(t, "rock", choices["h"])
	assert.Contains(t, minigame.RPSEntries, choices["npc-1"])
}

func TestResolveWaitsForBothReports(t *testing.T) {
	f := newFixture()
	rec := f.b.StartDuel("a", "b")

	f.b.HandleResult("a", rec.ID, "win", "", "", "rock")
	assert.Len(t, f.b.Records, 1, "one report alone is not decisive between humans")

	f.b.HandleResult("b", rec.ID, "lose", "", "", "paper")
	results := f.c.byType("duel_result")
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0]["winner"])
	assert.Equal(t, map[string]string{"a": "rock", "b": "paper"}, results[0]["entries"])
	assert.Equal(t, []string{"b"}, f.eliminated)
}

func TestHandleResultNamedWinner(t *testing.T) {
	f := newFixture()
	rec := f.b.StartDuel("a", "b")

	f.b.HandleResult("b", rec.ID, "", "a", "", "")
	results := f.c.byType("duel_result")
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0]["winner"])
	assert.Equal(t, "b", results[0]["loser"])
}

func TestHandleResultDecisiveAgainstNPC(t *testing.T) {
	f := newFixture()
	rec := f.b.StartDuel("h", "npc-1")

	f.b.HandleResult("h", rec.ID, "lose", "", "", "")
	results := f.c.byType("duel_result")
	require.Len(t, results, 1)
	assert.Equal(t, "npc-1", results[0]["winner"])
	assert.Equal(t, []string{"h"}, f.eliminated)
}

func TestUnknownDuelFailsafe(t *testing.T) {
	f := newFixture()

	f.b.HandleResult("a", "no-such-duel", "win", "a", "b", "")
	results := f.c.byType("duel_result")
	require.Len(t, results, 1)
	assert.Equal(t, "no-such-duel", results[0]["duel_id"])
	assert.Equal(t, []string{"b"}, f.eliminated)

	f.b.HandleResult("a", "another", "win", "", "", "")
	assert.Len(t, f.c.byType("duel_result"), 1, "no synthesis without a named pair")
}

func TestSweepForceResolvesStaleNPCDuel(t *testing.T) {
	f := newFixture()
	rec := f.b.StartDuel("h", "npc-1")

	f.now = f.now.Add(NPCStaleAfter + time.Second)
	f.b.Sweep(1.0 / 15)

	results := f.c.byType("duel_result")
	require.Len(t, results, 1)
	assert.Contains(t, rec.Participants[:], results[0]["winner"])
	assert.Contains(t, rec.Participants[:], results[0]["loser"])
	assert.Empty(t, f.b.Records)
	require.Len(t, f.eliminated, 1)
}

func TestSweepStaleHonoursPartialReport(t *testing.T) {
	f := newFixture()
	rec := f.b.StartDuel("h", "npc-1")
	rec.Results["h"] = Report{Outcome: "lose"}

	f.now = f.now.Add(NPCStaleAfter + time.Second)
	f.b.Sweep(1.0 / 15)

	results := f.c.byType("duel_result")
	require.Len(t, results, 1)
	assert.Equal(t, "npc-1", results[0]["winner"])
	assert.Equal(t, []string{"h"}, f.eliminated)
}

func TestSweepTimeoutReleasesGateKeepsRecord(t *testing.T) {
	f := newFixture()
	rec := f.b.StartDuel("a", "b")

	f.b.Sweep(float64(ActiveTimeout) + 0.1)
	assert.False(t, f.b.Active, "the gate times out")
	assert.Len(t, f.b.Records, 1, "the record waits for a late result")
	assert.True(t, f.b.Frozen("a"))
	assert.False(t, f.b.CanAutoPair(), "an unresolved record still blocks pairing")

	f.b.HandleResult("b", rec.ID, "", "a", "", "")
	assert.Empty(t, f.b.Records, "a late result still resolves")
}

func TestSweepResolvesVanishedParticipantForSurvivor(t *testing.T) {
	f := newFixture()
	f.b.StartDuel("a", "b")
	f.dead["b"] = true

	f.b.Sweep(1.0 / 15)
	assert.Empty(t, f.b.Records)
	assert.False(t, f.b.Active)

	results := f.c.byType("duel_result")
	require.Len(t, results, 1, "the survivor always gets a final outcome")
	assert.Equal(t, "a", results[0]["winner"])
	assert.Equal(t, "b", results[0]["loser"])
	assert.Equal(t, []string{"b"}, f.eliminated)
}

func TestSweepDropsDuelWhenBothVanish(t *testing.T) {
	f := newFixture()
	f.b.StartDuel("a", "b")
	f.dead["a"] = true
	f.dead["b"] = true

	f.b.Sweep(1.0 / 15)
	assert.Empty(t, f.b.Records)
	assert.False(t, f.b.Active)
	assert.Empty(t, f.c.byType("duel_result"), "no one is left to receive a result")
	assert.Empty(t, f.eliminated)
}

func TestCanAutoPair(t *testing.T) {
	f := newFixture()
	assert.True(t, f.b.CanAutoPair())

	f.b.StartDuel("a", "b")
	assert.False(t, f.b.CanAutoPair())

	f.b.Reset()
	assert.True(t, f.b.CanAutoPair())

	f.b.Cooldown = 1
	assert.False(t, f.b.CanAutoPair())
}

func TestClearFor(t *testing.T) {
	f := newFixture()
	f.b.StartDuel("a", "b")

	f.b.ClearFor("a")
	assert.Empty(t, f.b.Records)
	assert.False(t, f.b.Active)
	assert.False(t, f.b.Frozen("b"))
}

func TestHandleActionRelay(t *testing.T) {
	f := newFixture()
	rec := f.b.StartDuel("a", "b")

	f.b.HandleAction("a", rec.ID, map[string]interface{}{
		"type": "duel_action", "duel_id": rec.ID, "action": "fire", "x": 3.0,
	})
	actions := f.c.byType("duel_action")
	require.Len(t, actions, 1)
	assert.Equal(t, "a", actions[0]["from"])
	assert.Equal(t, "fire", actions[0]["action"])

	f.b.HandleAction("c", rec.ID, map[string]interface{}{"type": "duel_action"})
	f.b.HandleAction("a", "nope", map[string]interface{}{"type": "duel_action"})
	assert.Len(t, f.c.byType("duel_action"), 1, "non-participants and unknown duels are ignored")
}
