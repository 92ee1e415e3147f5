// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package space

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"

	"github.com/luxfi/governance/components/account"
	"github.com/luxfi/governance/components/proposal"
	"github.com/luxfi/governance/vms/spacevm/strategy"
)

var (
	ErrInvalidDurations      = errors.New("min voting duration exceeds max voting duration")
	ErrNoVotingStrategies    = errors.New("space needs at least one voting strategy")
	ErrTooManyStrategies     = errors.New("too many voting strategies")
	ErrDuplicateExecution    = errors.New("duplicate execution strategy")
	ErrNoExecutionStrategies = errors.New("space needs at least one execution strategy")
)

// Config is the immutable configuration of one space.
type Config struct {
	ID                  ids.ID               `json:"id"`
	Owner               account.Account      `json:"owner"`
	VotingDelay         uint64               `json:"votingDelay"`
	MinVotingDuration   uint64               `json:"minVotingDuration"`
	MaxVotingDuration   uint64               `json:"maxVotingDuration"`
	ProposalValidation  strategy.Validation  `json:"proposalValidation"`
	VotingStrategies    []strategy.Voting    `json:"votingStrategies"`
	ExecutionStrategies []strategy.Execution `json:"executionStrategies"`
}

func (c *Config) Verify() error {
	switch {
	case c.MinVotingDuration > c.MaxVotingDuration:
		return fmt.Errorf("%w: %d > %d", ErrInvalidDurations, c.MinVotingDuration, c.MaxVotingDuration)
	case len(c.VotingStrategies) == 0:
		return ErrNoVotingStrategies
	case len(c.VotingStrategies) > proposal.MaxVotingStrategies:
		return fmt.Errorf("%w: %d", ErrTooManyStrategies, len(c.VotingStrategies))
	case len(c.ExecutionStrategies) == 0:
		return ErrNoExecutionStrategies
	}
	if err := c.Owner.Verify(); err != nil {
		return err
	}
	if err := c.ProposalValidation.Verify(); err != nil {
		return err
	}
	for i, v := range c.VotingStrategies {
		if err := v.Verify(); err != nil {
			return fmt.Errorf("voting strategy %d: %w", i, err)
		}
	}
	seen := set.NewSet[common.Address](len(c.ExecutionStrategies))
	for _, e := range c.ExecutionStrategies {
		if err := e.Verify(); err != nil {
			return err
		}
		if seen.Contains(e.Address) {
			return fmt.Errorf("%w: %s", ErrDuplicateExecution, e.Address)
		}
		seen.Add(e.Address)
	}
	return nil
}

// Relays reports whether any execution strategy hands off to the anchor
// relay.
func (c *Config) Relays() bool {
	for _, e := range c.ExecutionStrategies {
		if e.Kind == strategy.ExecutionAnchorRelay {
			return true
		}
	}
	return false
}

func (c *Config) Execution(addr common.Address) (strategy.Execution, bool) {
	for _, e := range c.ExecutionStrategies {
		if e.Address == addr {
			return e, true
		}
	}
	return strategy.Execution{}, false
}
