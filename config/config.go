// Package config loads and validates the node's bootstrap configuration:
// everything §1 calls out as "the bootstrap/configuration loader", an
// external collaborator specified only by what it must hand the engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tolelom/tolchain/crypto"
)

// Config holds all node configuration. Global file paths (the genesis
// file, the key file, the contracts directory) live here rather than as
// process-wide constants, per the REDESIGN note in SPEC_FULL.md.
type Config struct {
	DataDir      string     `json:"data_dir"`
	Profile      crypto.Kind `json:"profile"` // "classical" or "lattice"
	KeyFile      string     `json:"key_file,omitempty"`     // override of profile.KeyFile()
	GenesisFile  string     `json:"genesis_file,omitempty"` // override of profile.GenesisFile()
	ContractsDir string     `json:"contracts_dir"`

	BusURLs []string `json:"bus_urls"` // NATS cluster URIs

	RPCPort      int    `json:"rpc_port"`
	RPCAuthToken string `json:"rpc_auth_token,omitempty"` // empty → no auth

	SPV         bool          `json:"spv"`          // catch-up fetches headers only
	SyncTimeout time.Duration `json:"sync_timeout"` // per-request timeout during catch-up
}

// DefaultConfig returns a single-node development configuration running
// the classical profile against a local NATS instance.
func DefaultConfig() *Config {
	return &Config{
		DataDir:      "./data",
		Profile:      crypto.KindClassical,
		ContractsDir: "./contracts",
		BusURLs:      []string{"nats://127.0.0.1:4222"},
		RPCPort:      8000,
		SPV:          false,
		SyncTimeout:  5 * time.Second,
	}
}

// Load reads a JSON config file from path and validates required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Profile != crypto.KindClassical && c.Profile != crypto.KindLattice {
		return fmt.Errorf("profile must be %q or %q, got %q", crypto.KindClassical, crypto.KindLattice, c.Profile)
	}
	if c.ContractsDir == "" {
		return fmt.Errorf("contracts_dir must not be empty")
	}
	if len(c.BusURLs) == 0 {
		return fmt.Errorf("bus_urls must not be empty")
	}
	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		return fmt.Errorf("rpc_port must be 1-65535, got %d", c.RPCPort)
	}
	if c.SyncTimeout <= 0 {
		return fmt.Errorf("sync_timeout must be positive")
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ResolveProfile resolves the crypto.Profile named by cfg.Profile.
func (c *Config) ResolveProfile() (crypto.Profile, error) {
	return crypto.ForKind(c.Profile)
}

// ResolveKeyFile returns cfg.KeyFile if set, otherwise profile's default.
func (c *Config) ResolveKeyFile(profile crypto.Profile) string {
	if c.KeyFile != "" {
		return c.KeyFile
	}
	return profile.KeyFile()
}

// ResolveGenesisFile returns cfg.GenesisFile if set, otherwise profile's default.
func (c *Config) ResolveGenesisFile(profile crypto.Profile) string {
	if c.GenesisFile != "" {
		return c.GenesisFile
	}
	return profile.GenesisFile()
}
