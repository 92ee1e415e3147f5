// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package relay

import (
	"errors"
	"fmt"

	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"
	"github.com/luxfi/warp"

	"github.com/luxfi/governance/components/account"
	"github.com/luxfi/governance/components/proposal"
)

var (
	// ErrInvalidEnvelope wraps every reason an envelope is rejected. Such
	// envelopes are never retried.
	ErrInvalidEnvelope  = errors.New("invalid envelope")
	ErrWrongNetwork     = errors.New("wrong network")
	ErrWrongSourceChain = errors.New("wrong source chain")
	ErrWrongDestination = errors.New("wrong destination chain")
	ErrUnknownRelayer   = errors.New("unknown relayer")
)

// Inbox authenticates envelopes addressed to this chain.
type Inbox struct {
	networkID     uint32
	sourceChainID ids.ID
	destChainID   ids.ID
	relayers      set.Set[ids.ShortID]
}

func NewInbox(networkID uint32, sourceChainID, destChainID ids.ID, relayers ...ids.ShortID) *Inbox {
	return &Inbox{
		networkID:     networkID,
		sourceChainID: sourceChainID,
		destChainID:   destChainID,
		relayers:      set.Of(relayers...),
	}
}

// Open verifies env and returns the finalization it carries.
func (i *Inbox) Open(env *Envelope) (*Message, *proposal.Finalization, error) {
	msg, fin, err := i.open(env)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	return msg, fin, nil
}

func (i *Inbox) open(env *Envelope) (*Message, *proposal.Finalization, error) {
	pub, err := account.Recover(hash.ComputeHash256(env.UnsignedMessage), env.Signature[:])
	if err != nil {
		return nil, nil, err
	}
	relayer, err := account.LuxAddressOf(pub)
	if err != nil {
		return nil, nil, err
	}
	if !i.relayers.Contains(relayer) {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownRelayer, relayer)
	}

	unsigned, err := warp.ParseUnsignedMessage(env.UnsignedMessage)
	if err != nil {
		return nil, nil, err
	}
	if unsigned.NetworkID != i.networkID {
		return nil, nil, fmt.Errorf("%w: %d", ErrWrongNetwork, unsigned.NetworkID)
	}
	if unsigned.SourceChainID != i.sourceChainID {
		return nil, nil, fmt.Errorf("%w: %s", ErrWrongSourceChain, unsigned.SourceChainID)
	}

	msg, err := ParseMessage(unsigned.Payload)
	if err != nil {
		return nil, nil, err
	}
	if msg.SourceChainID != i.sourceChainID {
		return nil, nil, fmt.Errorf("%w: %s", ErrWrongSourceChain, msg.SourceChainID)
	}
	if msg.DestChainID != i.destChainID {
		return nil, nil, fmt.Errorf("%w: %s", ErrWrongDestination, msg.DestChainID)
	}

	fin, err := proposal.ParseFinalization(msg.Payload)
	if err != nil {
		return nil, nil, err
	}
	if fin.SettlementChainID != i.sourceChainID {
		return nil, nil, fmt.Errorf("%w: finalization from %s", ErrWrongSourceChain, fin.SettlementChainID)
	}
	return msg, fin, nil
}
