// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package strategy implements the closed set of voting, proposal
// validation and execution strategies a space can be configured with.
package strategy

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common/hexutil"

	"github.com/luxfi/governance/components/account"
)

const whitelistEntryLen = account.KeyLen + 32

var (
	ErrUnknownStrategy    = errors.New("unknown strategy kind")
	ErrMalformedWhitelist = errors.New("malformed whitelist")
)

type VotingKind uint8

const (
	// VotingVanilla gives every voter a power of one.
	VotingVanilla VotingKind = iota
	// VotingWhitelist gives listed accounts their configured weight and
	// everyone else nothing.
	VotingWhitelist
)

func (k VotingKind) String() string {
	switch k {
	case VotingVanilla:
		return "vanilla"
	case VotingWhitelist:
		return "whitelist"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

type Voting struct {
	Kind   VotingKind    `serialize:"true" json:"kind"`
	Params hexutil.Bytes `serialize:"true" json:"params"`
}

type WhitelistEntry struct {
	Account account.Account `json:"account"`
	Weight  uint256.Int     `json:"weight"`
}

func Vanilla() Voting {
	return Voting{Kind: VotingVanilla}
}

func Whitelist(entries ...WhitelistEntry) Voting {
	params := make([]byte, 0, len(entries)*whitelistEntryLen)
	for _, e := range entries {
		params = append(params, e.Account.Key()...)
		w := e.Weight.Bytes32()
		params = append(params, w[:]...)
	}
	return Voting{Kind: VotingWhitelist, Params: params}
}

func (v Voting) Verify() error {
	switch v.Kind {
	case VotingVanilla:
		return nil
	case VotingWhitelist:
		if len(v.Params)%whitelistEntryLen != 0 {
			return fmt.Errorf("%w: %d bytes", ErrMalformedWhitelist, len(v.Params))
		}
		return nil
	default:
		return fmt.Errorf("%w: voting %d", ErrUnknownStrategy, v.Kind)
	}
}

// Power returns the voting power of voter under this strategy.
func (v Voting) Power(voter account.Account, _ []byte) (*uint256.Int, error) {
	switch v.Kind {
	case VotingVanilla:
		return uint256.NewInt(1), nil
	case VotingWhitelist:
		if err := v.Verify(); err != nil {
			return nil, err
		}
		key := voter.Key()
		for i := 0; i < len(v.Params); i += whitelistEntryLen {
			entry := v.Params[i : i+whitelistEntryLen]
			if bytes.Equal(entry[:account.KeyLen], key) {
				return new(uint256.Int).SetBytes(entry[account.KeyLen:]), nil
			}
		}
		return new(uint256.Int), nil
	default:
		return nil, fmt.Errorf("%w: voting %d", ErrUnknownStrategy, v.Kind)
	}
}
