// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"

	"github.com/luxfi/governance/vms/spacevm/session"
	"github.com/luxfi/governance/vms/spacevm/space"
	"github.com/luxfi/governance/vms/spacevm/typeddata"
)

var (
	ErrMissingChainID       = errors.New("missing settlement chain ID")
	ErrMissingDomain        = errors.New("typed data domain needs a name and version")
	ErrMissingAuthenticator = errors.New("missing authenticator address")
	ErrDuplicateSpace       = errors.New("duplicate space")
	ErrMissingRelay         = errors.New("relayed execution needs an anchor chain and relayer key")
	ErrInvalidRelay         = errors.New("invalid relay configuration")
)

// DomainConfig is the typed data domain session and action signatures are
// bound to.
type DomainConfig struct {
	Name          string         `json:"name"`
	Version       string         `json:"version"`
	ChainID       uint64         `json:"chainId"`
	Authenticator common.Address `json:"authenticator"`
}

func (d DomainConfig) Domain() typeddata.Domain {
	return typeddata.Domain{
		Name:              d.Name,
		Version:           d.Version,
		ChainID:           d.ChainID,
		VerifyingContract: d.Authenticator,
	}
}

// RelayConfig configures the outbox finalizations leave through.
type RelayConfig struct {
	AnchorChainID ids.ID                `json:"anchorChainId"`
	RelayerKey    *secp256k1.PrivateKey `json:"relayerKey"`
	Capacity      int                   `json:"capacity"`
	RetryInterval time.Duration         `json:"retryInterval"`
}

// Config holds configuration for the settlement VM.
type Config struct {
	NetworkID uint32 `json:"networkId"`
	// ChainID is the settlement chain finalizations are attributed to.
	ChainID ids.ID       `json:"chainId"`
	Domain  DomainConfig `json:"domain"`

	Spaces []space.Config `json:"spaces"`

	SessionCacheSize int         `json:"sessionCacheSize"`
	Relay            RelayConfig `json:"relay"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() Config {
	return Config{
		NetworkID: 1,
		Domain: DomainConfig{
			Name:    "lux-governance",
			Version: "1",
			ChainID: 1,
		},
		SessionCacheSize: session.DefaultCacheSize,
		Relay: RelayConfig{
			Capacity:      1024,
			RetryInterval: time.Second,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch {
	case c.ChainID == ids.Empty:
		return ErrMissingChainID
	case c.Domain.Name == "" || c.Domain.Version == "":
		return ErrMissingDomain
	case c.Domain.Authenticator == (common.Address{}):
		return ErrMissingAuthenticator
	case c.Relay.Capacity <= 0 || c.Relay.RetryInterval <= 0:
		return fmt.Errorf("%w: capacity %d, retry %s", ErrInvalidRelay, c.Relay.Capacity, c.Relay.RetryInterval)
	}

	seen := set.NewSet[ids.ID](len(c.Spaces))
	for i := range c.Spaces {
		s := &c.Spaces[i]
		if seen.Contains(s.ID) {
			return fmt.Errorf("%w: %s", ErrDuplicateSpace, s.ID)
		}
		seen.Add(s.ID)
		if err := s.Verify(); err != nil {
			return fmt.Errorf("space %s: %w", s.ID, err)
		}
	}
	if c.Relays() && !c.Relay.Enabled() {
		return ErrMissingRelay
	}
	return nil
}

// Relays reports whether any space executes through the anchor relay.
func (c *Config) Relays() bool {
	for i := range c.Spaces {
		if c.Spaces[i].Relays() {
			return true
		}
	}
	return false
}

func (r RelayConfig) Enabled() bool {
	return r.AnchorChainID != ids.Empty && r.RelayerKey != nil
}

// ParseConfig parses configuration from JSON bytes.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
