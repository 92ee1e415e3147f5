// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package proposal holds the governance records shared by the settlement
// and anchor chains.
package proposal

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"

	"github.com/luxfi/governance/components/account"
)

// MaxVotingStrategies bounds the active-strategy bitset.
const MaxVotingStrategies = 256

var (
	ErrUnknownStatus      = errors.New("unknown finalization status")
	ErrUnknownChoice      = errors.New("unknown choice")
	ErrStrategyIndexRange = errors.New("voting strategy index out of range")
	ErrInvalidTimestamps  = errors.New("timestamps must satisfy start <= minEnd <= maxEnd")
)

type Status uint8

const (
	Pending Status = iota
	Executed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Executed:
		return "executed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

func (s Status) Verify() error {
	if s > Cancelled {
		return fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(s))
	}
	return nil
}

// Choice is a vote direction.
type Choice uint8

const (
	Against Choice = iota
	For
	Abstain
)

func (c Choice) String() string {
	switch c {
	case Against:
		return "against"
	case For:
		return "for"
	case Abstain:
		return "abstain"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

func (c Choice) Verify() error {
	if c > Abstain {
		return fmt.Errorf("%w: %d", ErrUnknownChoice, uint8(c))
	}
	return nil
}

// Strategy references a strategy by address together with the parameters
// it is configured or invoked with.
type Strategy struct {
	Address common.Address `serialize:"true" json:"address"`
	Params  hexutil.Bytes  `serialize:"true" json:"params"`
}

// IndexedStrategy references one of a space's voting strategies by index.
type IndexedStrategy struct {
	Index  uint8         `serialize:"true" json:"index"`
	Params hexutil.Bytes `serialize:"true" json:"params"`
}

// Proposal is the settlement-side governance record.
type Proposal struct {
	StartTimestamp       uint64          `serialize:"true" json:"startTimestamp"`
	MinEndTimestamp      uint64          `serialize:"true" json:"minEndTimestamp"`
	MaxEndTimestamp      uint64          `serialize:"true" json:"maxEndTimestamp"`
	FinalizationStatus   Status          `serialize:"true" json:"finalizationStatus"`
	ExecutionPayloadHash common.Hash     `serialize:"true" json:"executionPayloadHash"`
	ExecutionStrategy    common.Address  `serialize:"true" json:"executionStrategy"`
	Author               account.Account `serialize:"true" json:"author"`
	// ActiveVotingStrategies is a bitset over the space's voting strategy
	// indices, captured at creation.
	ActiveVotingStrategies uint256.Int `serialize:"true" json:"activeVotingStrategies"`
}

func (p *Proposal) Verify() error {
	if p.StartTimestamp > p.MinEndTimestamp || p.MinEndTimestamp > p.MaxEndTimestamp {
		return ErrInvalidTimestamps
	}
	if err := p.FinalizationStatus.Verify(); err != nil {
		return err
	}
	return p.Author.Verify()
}

// IsStrategyActive reports whether the voting strategy at index was active
// when the proposal was created.
func (p *Proposal) IsStrategyActive(index uint8) bool {
	var bit uint256.Int
	bit.Rsh(&p.ActiveVotingStrategies, uint(index))
	return bit.Uint64()&1 == 1
}

// ActivateStrategy sets the bit for index.
func (p *Proposal) ActivateStrategy(index int) error {
	if index < 0 || index >= MaxVotingStrategies {
		return fmt.Errorf("%w: %d", ErrStrategyIndexRange, index)
	}
	var bit uint256.Int
	bit.Lsh(uint256.NewInt(1), uint(index))
	p.ActiveVotingStrategies.Or(&p.ActiveVotingStrategies, &bit)
	return nil
}
