// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var ErrUnknownQuorumRule = errors.New("unknown quorum rule")

type QuorumRule uint8

const (
	// QuorumNet requires for - against >= quorum.
	QuorumNet QuorumRule = iota
	// QuorumFor requires for >= quorum and for > against.
	QuorumFor
)

func (r QuorumRule) String() string {
	switch r {
	case QuorumNet:
		return "net"
	case QuorumFor:
		return "for"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(r))
	}
}

func (r QuorumRule) Verify() error {
	if r > QuorumFor {
		return fmt.Errorf("%w: %d", ErrUnknownQuorumRule, uint8(r))
	}
	return nil
}

// Met reports whether the tallies pass. Against votes exceeding for votes
// never underflow into a pass.
func (r QuorumRule) Met(quorum, forVotes, againstVotes *uint256.Int) bool {
	switch r {
	case QuorumNet:
		if forVotes.Lt(againstVotes) {
			return false
		}
		var net uint256.Int
		net.Sub(forVotes, againstVotes)
		return !net.Lt(quorum)
	case QuorumFor:
		return !forVotes.Lt(quorum) && forVotes.Gt(againstVotes)
	default:
		return false
	}
}
