// internal/admin/controller.go
package admin

import (
	"context"
	"math"
	"reflect"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// LoopInterval is the auto-start evaluation period.
const LoopInterval = 500 * time.Millisecond

// forceStartMinGap rate-limits force_start to once per second.
const forceStartMinGap = time.Second

// Authority is what the controller needs from the game server. *server.Server
// satisfies it; tests substitute a fake.
type Authority interface {
	MatchActive() bool
	PlayerCount() int
	AllReady() bool
	ForceStart(seed string) error
	ResetLobby()
	SetLobbyLock(locked bool)
	IsLobbyLocked() bool
	Kick(playerID string) bool
	SetServerMeta(meta map[string]interface{})
	StatusSnapshot() map[string]interface{}
}

// Config is the hot-updatable admin configuration. Durations are seconds.
type Config struct {
	AutoStart     bool    `json:"auto_start"`
	MinPlayers    int     `json:"min_players"`
	ReadyRequired bool    `json:"ready_required"`
	ReadyTimeout  float64 `json:"ready_timeout"`
	StartDelay    float64 `json:"start_delay"`
	ResetDelay    float64 `json:"reset_delay"`
	MapName       string  `json:"map_name"`
}

// DefaultConfig returns the stock lifecycle settings.
func DefaultConfig() Config {
	return Config{
		AutoStart:     true,
		MinPlayers:    2,
		ReadyRequired: true,
		ReadyTimeout:  30,
		StartDelay:    5,
		ResetDelay:    10,
		MapName:       "test_arena",
	}
}

// ConfigPatch is a partial config update; nil fields keep their current
// values.
type ConfigPatch struct {
	AutoStart     *bool    `json:"auto_start,omitempty"`
	MinPlayers    *int     `json:"min_players,omitempty"`
	ReadyRequired *bool    `json:"ready_required,omitempty"`
	ReadyTimeout  *float64 `json:"ready_timeout,omitempty"`
	StartDelay    *float64 `json:"start_delay,omitempty"`
	ResetDelay    *float64 `json:"reset_delay,omitempty"`
	MapName       *string  `json:"map_name,omitempty"`
}

// Controller runs the headless lifecycle: the auto-start state machine, the
// post-match reset schedule and the server_meta publication.
type Controller struct {
	mu  sync.Mutex
	cfg Config
	srv Authority

	minPlayersSince time.Time
	eligibleSince   time.Time
	pendingResetAt  time.Time
	wasActive       bool

	lastForceStart time.Time
	lastMeta       map[string]interface{}

	// now is the controller clock; tests override it.
	now func() time.Time
}

// NewController builds a controller over the authority.
func NewController(srv Authority, cfg Config) *Controller {
	return &Controller{cfg: cfg, srv: srv, now: time.Now}
}

// Run evaluates the lifecycle every LoopInterval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(LoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Step()
		}
	}
}

// Step runs one lifecycle evaluation. Exported so tests can drive the state
// machine with a fake clock.
func (c *Controller) Step() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()

	active := c.srv.MatchActive()
	if active {
		c.minPlayersSince = time.Time{}
		c.eligibleSince = time.Time{}
		c.wasActive = true
		c.publishMetaUnsafe(nil)
		return
	}

	// Match-just-ended edge: schedule the lobby reset.
	if c.wasActive {
		c.wasActive = false
		c.pendingResetAt = now.Add(time.Duration(c.cfg.ResetDelay * float64(time.Second)))
		log.Infof("admin: match ended, lobby reset in %.1fs", c.cfg.ResetDelay)
	}
	if !c.pendingResetAt.IsZero() {
		if !now.Before(c.pendingResetAt) {
			c.pendingResetAt = time.Time{}
			c.srv.ResetLobby()
		}
		c.publishMetaUnsafe(nil)
		return
	}

	if !c.cfg.AutoStart {
		c.minPlayersSince = time.Time{}
		c.eligibleSince = time.Time{}
		c.publishMetaUnsafe(nil)
		return
	}

	if c.srv.PlayerCount() < c.cfg.MinPlayers {
		c.minPlayersSince = time.Time{}
		c.eligibleSince = time.Time{}
		c.publishMetaUnsafe(nil)
		return
	}
	if c.minPlayersSince.IsZero() {
		c.minPlayersSince = now
	}

	eligible := true
	if c.cfg.ReadyRequired && !c.srv.AllReady() {
		// A positive ready timeout overrides stragglers; zero means wait
		// forever for everyone to ready up.
		eligible = c.cfg.ReadyTimeout > 0 &&
			now.Sub(c.minPlayersSince).Seconds() >= c.cfg.ReadyTimeout
	}
	if !eligible {
		c.eligibleSince = time.Time{}
		c.publishMetaUnsafe(nil)
		return
	}

	if c.eligibleSince.IsZero() {
		c.eligibleSince = now
	}
	remaining := c.cfg.StartDelay - now.Sub(c.eligibleSince).Seconds()
	autoStartIn := math.Max(0, remaining)
	c.publishMetaUnsafe(&autoStartIn)

	if remaining <= 0 {
		if _, err := c.forceStartUnsafe(""); err != nil {
			log.Warnf("admin: auto-start failed: %v", err)
		}
	}
}

// forceStartUnsafe applies the 1/s rate limit and starts the match. Assumes
// the controller lock is held.
func (c *Controller) forceStartUnsafe(seed string) (bool, error) {
	now := c.now()
	if now.Sub(c.lastForceStart) < forceStartMinGap {
		return false, nil
	}
	c.lastForceStart = now
	if err := c.srv.ForceStart(seed); err != nil {
		return false, err
	}
	c.eligibleSince = time.Time{}
	c.minPlayersSince = time.Time{}
	return true, nil
}

// ForceStart is the admin command: rate-limited match start. The bool is
// false when the limiter suppressed the call.
func (c *Controller) ForceStart(seed string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forceStartUnsafe(seed)
}

// ResetLobby clears the schedule and resets the lobby immediately.
func (c *Controller) ResetLobby() {
	c.mu.Lock()
	c.pendingResetAt = time.Time{}
	c.wasActive = false
	c.mu.Unlock()
	c.srv.ResetLobby()
}

// SetLobbyLock toggles the join lock.
func (c *Controller) SetLobbyLock(locked bool) {
	c.srv.SetLobbyLock(locked)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishMetaUnsafe(nil)
}

// Kick disconnects a player.
func (c *Controller) Kick(playerID string) bool {
	return c.srv.Kick(playerID)
}

// UpdateConfig merges a partial update into the current config; absent keys
// are preserved. Returns the merged result.
func (c *Controller) UpdateConfig(p ConfigPatch) Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.AutoStart != nil {
		c.cfg.AutoStart = *p.AutoStart
	}
	if p.MinPlayers != nil {
		c.cfg.MinPlayers = *p.MinPlayers
	}
	if p.ReadyRequired != nil {
		c.cfg.ReadyRequired = *p.ReadyRequired
	}
	if p.ReadyTimeout != nil {
		c.cfg.ReadyTimeout = *p.ReadyTimeout
	}
	if p.StartDelay != nil {
		c.cfg.StartDelay = *p.StartDelay
	}
	if p.ResetDelay != nil {
		c.cfg.ResetDelay = *p.ResetDelay
	}
	if p.MapName != nil {
		c.cfg.MapName = *p.MapName
	}
	log.Infof("admin: config updated: %+v", c.cfg)
	c.publishMetaUnsafe(nil)
	return c.cfg
}

// CurrentConfig returns a copy of the live config.
func (c *Controller) CurrentConfig() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Status assembles the /status body: authority snapshot plus config.
func (c *Controller) Status() map[string]interface{} {
	status := c.srv.StatusSnapshot()
	c.mu.Lock()
	status["config"] = c.cfg
	c.mu.Unlock()
	return status
}

// publishMetaUnsafe recomputes server_meta and pushes it to the authority
// when it changed. autoStartIn is nil unless the countdown is running.
func (c *Controller) publishMetaUnsafe(autoStartIn *float64) {
	meta := map[string]interface{}{
		"auto_start":     c.cfg.AutoStart,
		"min_players":    c.cfg.MinPlayers,
		"ready_required": c.cfg.ReadyRequired,
		"ready_timeout":  c.cfg.ReadyTimeout,
		"start_delay":    c.cfg.StartDelay,
		"reset_delay":    c.cfg.ResetDelay,
		"lobby_locked":   c.srv.IsLobbyLocked(),
		"join_locked":    c.srv.MatchActive(),
	}
	if autoStartIn != nil {
		meta["auto_start_in"] = math.Round(*autoStartIn*10) / 10
	} else {
		meta["auto_start_in"] = nil
	}
	if reflect.DeepEqual(meta, c.lastMeta) {
		return
	}
	c.lastMeta = meta
	c.srv.SetServerMeta(meta)
}
