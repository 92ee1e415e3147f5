// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package strategy

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/math/set"

	"github.com/luxfi/governance/components/account"
)

var (
	ErrInvalidStrategyIndex = errors.New("invalid voting strategy index")
	ErrDuplicateStrategy    = errors.New("duplicate voting strategy index")
)

type ValidationKind uint8

const (
	// ValidationVanilla accepts every proposal.
	ValidationVanilla ValidationKind = iota
	// ValidationVotingPower requires the author to hold at least Threshold
	// voting power across the strategies named in the user params.
	ValidationVotingPower
)

type Validation struct {
	Kind      ValidationKind `serialize:"true" json:"kind"`
	Threshold uint256.Int    `serialize:"true" json:"threshold"`
}

func (v Validation) Verify() error {
	if v.Kind > ValidationVotingPower {
		return fmt.Errorf("%w: validation %d", ErrUnknownStrategy, v.Kind)
	}
	return nil
}

// Validate reports whether author may create a proposal. For the voting
// power strategy every byte of userParams is an index into voting.
func (v Validation) Validate(author account.Account, userParams []byte, voting []Voting) (bool, error) {
	switch v.Kind {
	case ValidationVanilla:
		return true, nil
	case ValidationVotingPower:
		total, err := SumPower(author, userParams, voting)
		if err != nil {
			return false, err
		}
		return total.Cmp(&v.Threshold) >= 0, nil
	default:
		return false, fmt.Errorf("%w: validation %d", ErrUnknownStrategy, v.Kind)
	}
}

// SumPower adds up the power of voter over the strategies at indices.
// Indices may not repeat.
func SumPower(voter account.Account, indices []byte, voting []Voting) (*uint256.Int, error) {
	var (
		total = new(uint256.Int)
		seen  = set.NewSet[byte](len(indices))
	)
	for _, index := range indices {
		if int(index) >= len(voting) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidStrategyIndex, index)
		}
		if seen.Contains(index) {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateStrategy, index)
		}
		seen.Add(index)

		power, err := voting[index].Power(voter, nil)
		if err != nil {
			return nil, err
		}
		if _, overflow := total.AddOverflow(total, power); overflow {
			total.SetAllOne()
		}
	}
	return total, nil
}
