// Package config provides the storage-server onion-routing core
// configuration: a small TOML document covering the network flag, rate
// limiter knobs, onion codec defaults, and on-disk key file paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/MichaleAnderson/beldex-storage-server/crypto/channel"
	"github.com/MichaleAnderson/beldex-storage-server/ratelimit"
)

// Network carries the process-wide mainnet/testnet flag threaded through
// explicitly rather than held as a mutable global.
type Network struct {
	// IsMainnet is the mainnet/testnet flag that user-pubkey parsing
	// takes (see userpubkey.Load); false also accepts the testnet short
	// forms. Key derivation does not depend on it.
	IsMainnet bool
}

// RateLimit configures the token-bucket admission controller.
type RateLimit struct {
	// TokenRate is the number of tokens refilled per second.
	TokenRate float64

	// BucketSize is the maximum number of tokens a bucket can hold.
	BucketSize float64

	// MaxClients bounds the per-client bucket table; the oldest entry is
	// evicted once the table is full.
	MaxClients int

	// DisableRateLimit disables admission control entirely. Intended only
	// for testing.
	DisableRateLimit bool
}

func (r *RateLimit) applyDefaults() {
	if r.TokenRate <= 0 {
		r.TokenRate = ratelimit.DefaultTokenRate
	}
	if r.BucketSize <= 0 {
		r.BucketSize = ratelimit.DefaultBucketSize
	}
	if r.MaxClients <= 0 {
		r.MaxClients = ratelimit.DefaultMaxClients
	}
}

// Onion configures the onion-routing codec.
type Onion struct {
	// DefaultEncType names a symmetric scheme; it must be a known scheme
	// token. The codec does not read it: layers without enc_type are
	// peeled as aes-gcm.
	DefaultEncType string

	// MaxHops is a hop limit reported at startup. The codec and the
	// dispatcher do not read it; they enforce the fixed onion.MaxHops.
	MaxHops int

	// RequestDeadline is a request budget in the TOML duration string
	// accepted by time.ParseDuration (e.g. "30s"). The dispatcher does not
	// read it; dispatch.NewRequestContext uses the fixed
	// dispatch.DefaultRequestDeadline.
	RequestDeadline string
}

func (o *Onion) applyDefaults() {
	if o.DefaultEncType == "" {
		o.DefaultEncType = channel.AesGcm.String()
	}
	if o.MaxHops <= 0 {
		o.MaxHops = 15
	}
	if o.RequestDeadline == "" {
		o.RequestDeadline = "30s"
	}
}

func (o *Onion) validate() error {
	if !channel.IsKnownToken(o.DefaultEncType) {
		return fmt.Errorf("config: Onion: DefaultEncType '%v' is not a known scheme", o.DefaultEncType)
	}
	if _, err := time.ParseDuration(o.RequestDeadline); err != nil {
		return fmt.Errorf("config: Onion: RequestDeadline '%v' is invalid: %v", o.RequestDeadline, err)
	}
	return nil
}

// Deadline parses RequestDeadline, which has already been validated.
func (o *Onion) Deadline() time.Duration {
	d, _ := time.ParseDuration(o.RequestDeadline)
	return d
}

// Keys names the on-disk files holding this node's long-term key
// material. The config layer only resolves paths: it never generates or
// stores key material.
type Keys struct {
	LegacyKeyFile  string
	Ed25519KeyFile string
	X25519KeyFile  string
}

func (k *Keys) validate() error {
	for name, path := range map[string]string{
		"LegacyKeyFile":  k.LegacyKeyFile,
		"Ed25519KeyFile": k.Ed25519KeyFile,
		"X25519KeyFile":  k.X25519KeyFile,
	} {
		if path == "" {
			return fmt.Errorf("config: Keys: %v is not set", name)
		}
		if !filepath.IsAbs(path) {
			return fmt.Errorf("config: Keys: %v '%v' is not an absolute path", name, path)
		}
	}
	return nil
}

// Logging configures the process-wide logging backend. Level sets the
// backend level; File is not read, and the backend writes to stderr.
type Logging struct {
	Level string
	File  string
}

func (l *Logging) applyDefaults() {
	if l.Level == "" {
		l.Level = "NOTICE"
	}
}

// Config is the top level configuration for the onion-routing core.
type Config struct {
	Network   *Network
	RateLimit *RateLimit
	Onion     *Onion
	Keys      *Keys
	Logging   *Logging
}

// FixupAndValidate fills in defaults and validates the supplied
// configuration. Most callers should use one of the Load variants
// instead of calling this directly.
func (c *Config) FixupAndValidate() error {
	if c.Network == nil {
		c.Network = &Network{}
	}
	if c.RateLimit == nil {
		c.RateLimit = &RateLimit{}
	}
	c.RateLimit.applyDefaults()

	if c.Onion == nil {
		c.Onion = &Onion{}
	}
	c.Onion.applyDefaults()
	if err := c.Onion.validate(); err != nil {
		return err
	}

	if c.Keys == nil {
		return errors.New("config: No Keys block was present")
	}
	if err := c.Keys.validate(); err != nil {
		return err
	}

	if c.Logging == nil {
		c.Logging = &Logging{}
	}
	c.Logging.applyDefaults()

	return nil
}

// Load parses and validates the provided buffer as a TOML config body.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("config: no buffer supplied")
	}
	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the config file at path.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
