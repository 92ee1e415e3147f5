// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package auth authorizes governance actions by owner signature or by a
// live session key and forwards them to the proposal ledger.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/governance/components/account"
	"github.com/luxfi/governance/vms/spacevm/session"
	"github.com/luxfi/governance/vms/spacevm/typeddata"
)

//go:generate go run go.uber.org/mock/mockgen -package=${GOPACKAGE}mock -destination=${GOPACKAGE}mock/ledger.go -mock_names=Ledger=Ledger . Ledger

var (
	ErrInvalidSignature = session.ErrInvalidSignature
	ErrSaltReused       = session.ErrSaltReused
	ErrUnknownSession   = session.ErrUnknownSession
	ErrSessionExpired   = errors.New("session key is not live")
	ErrWrongSpace       = errors.New("space has not enabled this authenticator")
)

// Ledger records authorized actions. It trusts its caller for
// authorization.
type Ledger interface {
	RecordProposal(ctx context.Context, now uint64, msg *typeddata.Propose) (uint64, error)
	RecordVote(ctx context.Context, now uint64, msg *typeddata.Vote) error
	RecordUpdate(ctx context.Context, now uint64, msg *typeddata.UpdateProposal) error
}

// Proof authorizes an action. Without a session public key the signature
// must come from the acting account itself.
type Proof struct {
	Signature        hexutil.Bytes      `json:"signature"`
	SessionPublicKey *account.PublicKey `json:"sessionPublicKey,omitempty"`
}

func OwnerSig(sig []byte) Proof {
	return Proof{Signature: sig}
}

func SessionSig(sig []byte, pk account.PublicKey) Proof {
	return Proof{Signature: sig, SessionPublicKey: &pk}
}

func (p Proof) UsesSession() bool {
	return p.SessionPublicKey != nil
}

type Authenticator struct {
	log      log.Logger
	sessions *session.Registry
	domain   typeddata.Domain

	lock    sync.RWMutex
	ledgers map[ids.ID]Ledger
}

func New(logger log.Logger, sessions *session.Registry) *Authenticator {
	return &Authenticator{
		log:      logger,
		sessions: sessions,
		domain:   sessions.Domain(),
		ledgers:  make(map[ids.ID]Ledger),
	}
}

// Enable whitelists this authenticator on a space.
func (a *Authenticator) Enable(space ids.ID, ledger Ledger) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.ledgers[space] = ledger
}

func (a *Authenticator) Disable(space ids.ID) {
	a.lock.Lock()
	defer a.lock.Unlock()

	delete(a.ledgers, space)
}

func (a *Authenticator) AuthenticatePropose(ctx context.Context, now uint64, msg *typeddata.Propose, proof Proof) (uint64, error) {
	ledger, err := a.ledger(msg.Space)
	if err != nil {
		return 0, err
	}
	if err := a.authorize(now, msg, msg.Author, proof); err != nil {
		return 0, err
	}

	var proposalID uint64
	err = a.sessions.WithSalt(msg.Author, &msg.Salt, func() error {
		var err error
		proposalID, err = ledger.RecordProposal(ctx, now, msg)
		return err
	})
	if err != nil {
		return 0, err
	}

	a.log.Debug("authenticated proposal",
		log.Stringer("space", msg.Space),
		log.Stringer("author", msg.Author),
		log.Uint64("proposalID", proposalID),
		log.Bool("session", proof.UsesSession()),
	)
	return proposalID, nil
}

func (a *Authenticator) AuthenticateVote(ctx context.Context, now uint64, msg *typeddata.Vote, proof Proof) error {
	ledger, err := a.ledger(msg.Space)
	if err != nil {
		return err
	}
	if err := a.authorize(now, msg, msg.Voter, proof); err != nil {
		return err
	}
	if err := ledger.RecordVote(ctx, now, msg); err != nil {
		return err
	}

	a.log.Debug("authenticated vote",
		log.Stringer("space", msg.Space),
		log.Stringer("voter", msg.Voter),
		log.Uint64("proposalID", msg.ProposalID),
		log.Stringer("choice", msg.Choice),
		log.Bool("session", proof.UsesSession()),
	)
	return nil
}

func (a *Authenticator) AuthenticateUpdateProposal(ctx context.Context, now uint64, msg *typeddata.UpdateProposal, proof Proof) error {
	ledger, err := a.ledger(msg.Space)
	if err != nil {
		return err
	}
	if err := a.authorize(now, msg, msg.Author, proof); err != nil {
		return err
	}
	err = a.sessions.WithSalt(msg.Author, &msg.Salt, func() error {
		return ledger.RecordUpdate(ctx, now, msg)
	})
	if err != nil {
		return err
	}

	a.log.Debug("authenticated proposal update",
		log.Stringer("space", msg.Space),
		log.Stringer("author", msg.Author),
		log.Uint64("proposalID", msg.ProposalID),
		log.Bool("session", proof.UsesSession()),
	)
	return nil
}

func (a *Authenticator) ledger(space ids.ID) (Ledger, error) {
	a.lock.RLock()
	defer a.lock.RUnlock()

	ledger, ok := a.ledgers[space]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWrongSpace, space)
	}
	return ledger, nil
}

func (a *Authenticator) authorize(now uint64, msg typeddata.Message, actor account.Account, proof Proof) error {
	if !proof.UsesSession() {
		if !typeddata.Verify(a.domain, msg, proof.Signature, typeddata.OwnerSigner(actor)) {
			return fmt.Errorf("%w: %s not signed by %s", ErrInvalidSignature, msg.Kind(), actor)
		}
		return nil
	}

	pk := *proof.SessionPublicKey
	if !typeddata.Verify(a.domain, msg, proof.Signature, typeddata.SessionKeySigner(pk)) {
		return fmt.Errorf("%w: %s not signed by session %s", ErrInvalidSignature, msg.Kind(), pk)
	}
	if !a.sessions.IsLive(actor, pk, now) {
		return fmt.Errorf("%w: %s for %s", ErrSessionExpired, pk, actor)
	}
	return nil
}
