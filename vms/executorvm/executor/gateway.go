// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package executor applies relayed proposal outcomes on the anchor chain.
// Each proposal reference executes at most once.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/governance/components/proposal"
	"github.com/luxfi/governance/components/relay"
	"github.com/luxfi/governance/vms/executorvm/payload"
)

var (
	_ relay.Receiver = (*Gateway)(nil)

	deliveredPrefix = []byte("delivered")
	recordPrefix    = []byte("record")
	avatarPrefix    = []byte("avatar")

	deliveredValue = []byte{1}

	ErrMessageNotDelivered     = errors.New("finalization was not delivered by the relay")
	ErrSpaceNotEnabled         = errors.New("space not enabled")
	ErrInvalidStrategy         = errors.New("finalization addressed to another executor")
	ErrProposalNotPending      = errors.New("proposal not pending on settlement")
	ErrPayloadMismatch         = errors.New("execution payload does not match committed hash")
	ErrVotingPeriodNotExceeded = errors.New("voting period not exceeded")
	ErrQuorumNotMet            = errors.New("quorum not met")
	ErrAlreadyExecuted         = errors.New("proposal already executed")
	ErrCallFailed              = errors.New("payload call failed")
)

type Config struct {
	// Address identifies this gateway in relay strategy params.
	Address    common.Address
	Quorum     uint256.Int
	QuorumRule QuorumRule
	Spaces     []ids.ID
}

type Gateway struct {
	log   log.Logger
	cfg   Config
	inbox *relay.Inbox

	lock      sync.Mutex
	spaces    set.Set[ids.ID]
	db        *versiondb.Database
	delivered database.Database
	records   database.Database
	avatar    *Avatar
}

func New(
	logger log.Logger,
	db database.Database,
	cfg Config,
	inbox *relay.Inbox,
	handlers map[common.Address]Handler,
) (*Gateway, error) {
	if err := cfg.QuorumRule.Verify(); err != nil {
		return nil, err
	}
	vdb := versiondb.New(db)
	g := &Gateway{
		log:       logger,
		cfg:       cfg,
		inbox:     inbox,
		spaces:    set.Of(cfg.Spaces...),
		db:        vdb,
		delivered: prefixdb.New(deliveredPrefix, vdb),
		records:   prefixdb.New(recordPrefix, vdb),
		avatar:    NewAvatar(cfg.Address, prefixdb.New(avatarPrefix, vdb), handlers),
	}
	return g, nil
}

func (g *Gateway) Address() common.Address {
	return g.cfg.Address
}

func (g *Gateway) EnableSpace(space ids.ID) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.spaces.Add(space)
}

func (g *Gateway) DisableSpace(space ids.ID) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.spaces.Remove(space)
}

// Deliver accepts an envelope from the relay. Redelivery of a known
// finalization is a no-op.
func (g *Gateway) Deliver(_ context.Context, env *relay.Envelope) error {
	_, fin, err := g.inbox.Open(env)
	if err != nil {
		return err
	}
	finID, err := fin.ID()
	if err != nil {
		return err
	}

	g.lock.Lock()
	defer g.lock.Unlock()
	defer g.db.Abort()

	known, err := g.delivered.Has(finID[:])
	if err != nil {
		return err
	}
	if known {
		g.log.Debug("dropping duplicate finalization",
			log.Stringer("ref", fin.Ref),
			log.Stringer("finalizationID", finID),
		)
		return nil
	}
	if err := g.delivered.Put(finID[:], deliveredValue); err != nil {
		return err
	}
	if err := g.db.Commit(); err != nil {
		return err
	}

	g.log.Info("finalization delivered",
		log.Stringer("ref", fin.Ref),
		log.Stringer("finalizationID", finID),
	)
	return nil
}

// Execute applies p for the delivered finalization fin. Either every call
// applies and the record becomes executed, or nothing changes.
func (g *Gateway) Execute(ctx context.Context, now uint64, fin *proposal.Finalization, p *payload.Payload) error {
	g.lock.Lock()
	defer g.lock.Unlock()
	defer g.db.Abort()

	if err := g.preflight(fin); err != nil {
		return err
	}

	payloadHash, err := p.Hash()
	if err != nil {
		return err
	}
	if payloadHash != fin.Proposal.ExecutionPayloadHash {
		return fmt.Errorf("%w: got %s, committed %s", ErrPayloadMismatch, payloadHash, fin.Proposal.ExecutionPayloadHash)
	}
	if now < fin.Proposal.MaxEndTimestamp {
		return fmt.Errorf("%w: now %d, ends %d", ErrVotingPeriodNotExceeded, now, fin.Proposal.MaxEndTimestamp)
	}
	if !g.cfg.QuorumRule.Met(&g.cfg.Quorum, &fin.ForVotes, &fin.AgainstVotes) {
		return fmt.Errorf("%w: for %s, against %s, quorum %s",
			ErrQuorumNotMet, &fin.ForVotes, &fin.AgainstVotes, &g.cfg.Quorum)
	}
	record, err := g.record(fin.Ref)
	if err != nil {
		return err
	}
	if record.Status == Executed {
		return fmt.Errorf("%w: %s", ErrAlreadyExecuted, fin.Ref)
	}

	for i, call := range p.Calls {
		if err := g.avatar.Apply(ctx, call); err != nil {
			return fmt.Errorf("%w: call %d to %s: %w", ErrCallFailed, i, call.To, err)
		}
	}
	record = &Record{
		Ref:         fin.Ref,
		Status:      Executed,
		PayloadHash: payloadHash,
		ExecutedAt:  now,
	}
	if err := g.putRecord(record); err != nil {
		return err
	}
	if err := g.db.Commit(); err != nil {
		return err
	}

	g.log.Info("proposal executed",
		log.Stringer("ref", fin.Ref),
		log.Int("calls", len(p.Calls)),
	)
	return nil
}

func (g *Gateway) preflight(fin *proposal.Finalization) error {
	finID, err := fin.ID()
	if err != nil {
		return err
	}
	delivered, err := g.delivered.Has(finID[:])
	if err != nil {
		return err
	}
	if !delivered {
		return fmt.Errorf("%w: %s", ErrMessageNotDelivered, fin.Ref)
	}
	if !g.spaces.Contains(fin.Space) {
		return fmt.Errorf("%w: %s", ErrSpaceNotEnabled, fin.Space)
	}
	if fin.Executor != g.cfg.Address {
		return fmt.Errorf("%w: %s", ErrInvalidStrategy, fin.Executor)
	}
	if status := fin.Proposal.FinalizationStatus; status != proposal.Pending {
		return fmt.Errorf("%w: %s", ErrProposalNotPending, status)
	}
	return nil
}

// Record returns the execution state of ref. Unknown references are
// unseen.
func (g *Gateway) Record(ref proposal.Ref) (*Record, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.record(ref)
}

// Delivered reports whether fin arrived through the relay.
func (g *Gateway) Delivered(fin *proposal.Finalization) (bool, error) {
	finID, err := fin.ID()
	if err != nil {
		return false, err
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	return g.delivered.Has(finID[:])
}

// Fund credits the avatar.
func (g *Gateway) Fund(amount *uint256.Int) error {
	g.lock.Lock()
	defer g.lock.Unlock()
	defer g.db.Abort()

	if err := g.avatar.Credit(g.avatar.Address(), amount); err != nil {
		return err
	}
	return g.db.Commit()
}

func (g *Gateway) Balance(addr common.Address) (*uint256.Int, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.avatar.Balance(addr)
}

// Get reads key from the storage of the target at addr.
func (g *Gateway) Get(addr common.Address, key []byte) ([]byte, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.avatar.State(addr).Get(key)
}

func (g *Gateway) record(ref proposal.Ref) (*Record, error) {
	id := ref.ID()
	b, err := g.records.Get(id[:])
	if errors.Is(err, database.ErrNotFound) {
		return &Record{Ref: ref, Status: Unseen}, nil
	}
	if err != nil {
		return nil, err
	}
	record := &Record{}
	if _, err := Codec.Unmarshal(b, record); err != nil {
		return nil, fmt.Errorf("couldn't parse record %s: %w", ref, err)
	}
	return record, nil
}

func (g *Gateway) putRecord(record *Record) error {
	b, err := Codec.Marshal(CodecVersion, record)
	if err != nil {
		return err
	}
	id := record.Ref.ID()
	return g.records.Put(id[:], b)
}
