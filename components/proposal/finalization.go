// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package proposal

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

// Ref identifies a proposal across chains.
type Ref struct {
	SettlementChainID ids.ID `serialize:"true" json:"settlementChainId"`
	Space             ids.ID `serialize:"true" json:"space"`
	ProposalID        uint64 `serialize:"true" json:"proposalId"`
}

// ID is a 32-byte digest of the reference, used to key per-proposal state.
func (r Ref) ID() ids.ID {
	b := make([]byte, 2*ids.IDLen+8)
	copy(b, r.SettlementChainID[:])
	copy(b[ids.IDLen:], r.Space[:])
	binary.BigEndian.PutUint64(b[2*ids.IDLen:], r.ProposalID)
	return ids.ID(hash.ComputeHash256Array(b))
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s/%d", r.SettlementChainID, r.Space, r.ProposalID)
}

// Finalization is the snapshot of a settled proposal that is relayed to
// the anchor chain.
type Finalization struct {
	Ref `serialize:"true" json:"ref"`

	// Executor is the anchor-chain gateway the outcome is addressed to.
	Executor     common.Address `serialize:"true" json:"executor"`
	Proposal     Proposal       `serialize:"true" json:"proposal"`
	ForVotes     uint256.Int    `serialize:"true" json:"forVotes"`
	AgainstVotes uint256.Int    `serialize:"true" json:"againstVotes"`
	AbstainVotes uint256.Int    `serialize:"true" json:"abstainVotes"`
}

func (f *Finalization) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, f)
}

// ID is the hash of the canonical encoding.
func (f *Finalization) ID() (ids.ID, error) {
	b, err := f.Bytes()
	if err != nil {
		return ids.Empty, err
	}
	return ids.ID(hash.ComputeHash256Array(b)), nil
}

func ParseFinalization(b []byte) (*Finalization, error) {
	f := &Finalization{}
	if _, err := Codec.Unmarshal(b, f); err != nil {
		return nil, fmt.Errorf("couldn't parse finalization: %w", err)
	}
	if err := f.Proposal.Verify(); err != nil {
		return nil, err
	}
	return f, nil
}
