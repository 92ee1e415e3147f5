// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package relay carries finalized proposals from the settlement chain to
// the anchor chain. Delivery is at least once.
package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/governance/components/proposal"
)

// Sender transports attested envelopes.
type Sender interface {
	Send(ctx context.Context, env *Envelope) error
}

// Outbox wraps finalizations into attested envelopes.
type Outbox struct {
	log           log.Logger
	networkID     uint32
	sourceChainID ids.ID
	destChainID   ids.ID
	key           *secp256k1.PrivateKey
	sender        Sender

	lock  sync.Mutex
	nonce uint64
}

func NewOutbox(
	logger log.Logger,
	networkID uint32,
	sourceChainID ids.ID,
	destChainID ids.ID,
	key *secp256k1.PrivateKey,
	sender Sender,
) *Outbox {
	return &Outbox{
		log:           logger,
		networkID:     networkID,
		sourceChainID: sourceChainID,
		destChainID:   destChainID,
		key:           key,
		sender:        sender,
	}
}

// Relayer is the address the inbox must trust.
func (o *Outbox) Relayer() ids.ShortID {
	return o.key.PublicKey().Address()
}

func (o *Outbox) Send(ctx context.Context, fin *proposal.Finalization) error {
	o.lock.Lock()
	defer o.lock.Unlock()

	env, err := o.seal(fin, o.nonce)
	if err != nil {
		return err
	}
	if err := o.sender.Send(ctx, env); err != nil {
		return err
	}

	o.log.Info("relayed finalization",
		log.Stringer("ref", fin.Ref),
		log.Stringer("envelopeID", env.ID()),
		log.Uint64("nonce", o.nonce),
	)
	o.nonce++
	return nil
}

func (o *Outbox) seal(fin *proposal.Finalization, nonce uint64) (*Envelope, error) {
	payload, err := fin.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize finalization: %w", err)
	}
	msg := NewMessage(MessageFinalization, o.sourceChainID, o.destChainID, nonce, payload)
	unsigned, err := msg.ToWarpMessage(o.networkID)
	if err != nil {
		return nil, err
	}

	env := &Envelope{UnsignedMessage: unsigned.Bytes()}
	sig, err := o.key.SignHash(hash.ComputeHash256(env.UnsignedMessage))
	if err != nil {
		return nil, fmt.Errorf("failed to sign envelope: %w", err)
	}
	copy(env.Signature[:], sig)
	return env, nil
}
