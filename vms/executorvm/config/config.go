// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	"github.com/luxfi/governance/vms/executorvm/executor"
)

var (
	ErrMissingChainID    = errors.New("missing anchor chain ID")
	ErrMissingSettlement = errors.New("missing settlement chain ID")
	ErrMissingAddress    = errors.New("missing gateway address")
	ErrNoRelayers        = errors.New("at least one relayer must be trusted")
	ErrAddressCollision  = errors.New("parameter store collides with the gateway address")
)

// Config holds configuration for the anchor VM.
type Config struct {
	NetworkID uint32 `json:"networkId"`
	// ChainID is the anchor chain this VM runs on.
	ChainID           ids.ID `json:"chainId"`
	SettlementChainID ids.ID `json:"settlementChainId"`

	// Address is the gateway address relayed strategies must target.
	Address    common.Address      `json:"address"`
	Quorum     uint256.Int         `json:"quorum"`
	QuorumRule executor.QuorumRule `json:"quorumRule"`
	Spaces     []ids.ID            `json:"spaces"`
	Relayers   []ids.ShortID       `json:"relayers"`

	// InitialBalance funds the gateway avatar the first time the VM starts.
	InitialBalance uint256.Int `json:"initialBalance"`
	// ParameterStores are call targets backed by a key value store.
	ParameterStores []common.Address `json:"parameterStores"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() Config {
	return Config{
		NetworkID:  1,
		Quorum:     *uint256.NewInt(1),
		QuorumRule: executor.QuorumNet,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch {
	case c.ChainID == ids.Empty:
		return ErrMissingChainID
	case c.SettlementChainID == ids.Empty:
		return ErrMissingSettlement
	case c.Address == (common.Address{}):
		return ErrMissingAddress
	case len(c.Relayers) == 0:
		return ErrNoRelayers
	}
	for _, addr := range c.ParameterStores {
		if addr == c.Address {
			return fmt.Errorf("%w: %s", ErrAddressCollision, addr)
		}
	}
	return c.QuorumRule.Verify()
}

// Gateway returns the executor configuration.
func (c *Config) Gateway() executor.Config {
	return executor.Config{
		Address:    c.Address,
		Quorum:     c.Quorum,
		QuorumRule: c.QuorumRule,
		Spaces:     c.Spaces,
	}
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
