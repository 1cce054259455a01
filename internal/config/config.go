// internal/config/config.go
package config

import (
	"fmt"
	"os"
)

// Config is everything the host binary needs: transport addresses, lifecycle
// defaults and the admin token.
type Config struct {
	Host    string
	Port    int
	WebHost string
	WebPort int

	AutoStart     bool
	MinPlayers    int
	ReadyRequired bool
	ReadyTimeout  float64
	StartDelay    float64
	ResetDelay    float64
	MapName       string

	AllowNPC     bool
	NPCFill      int
	MapDir       string
	MinigamesDir string

	Verbose bool

	// AdminToken guards the admin POST endpoints; empty disables auth.
	// Read from HEADLESS_ADMIN_TOKEN, never a flag.
	AdminToken string
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          8765,
		WebHost:       "0.0.0.0",
		WebPort:       5000,
		AutoStart:     true,
		MinPlayers:    2,
		ReadyRequired: true,
		ReadyTimeout:  30,
		StartDelay:    5,
		ResetDelay:    10,
		MapName:       "test_arena",
		AllowNPC:      true,
		NPCFill:       8,
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.WebPort < 1 || c.WebPort > 65535 {
		return fmt.Errorf("invalid web port (must be between 1-65535 inclusive): %d", c.WebPort)
	}
	if c.MinPlayers < 1 {
		return fmt.Errorf("min-players must be at least 1: %d", c.MinPlayers)
	}
	if c.ReadyTimeout < 0 || c.StartDelay < 0 || c.ResetDelay < 0 {
		return fmt.Errorf("timers must be non-negative")
	}
	return nil
}

// LoadEnvToken fills AdminToken from the environment.
func (c *Config) LoadEnvToken() {
	c.AdminToken = os.Getenv("HEADLESS_ADMIN_TOKEN")
}

// Addr returns the TCP listen address.
func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// WebAddr returns the admin HTTP listen address.
func (c *Config) WebAddr() string { return fmt.Sprintf("%s:%d", c.WebHost, c.WebPort) }
