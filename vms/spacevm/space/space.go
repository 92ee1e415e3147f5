// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package space is the settlement-chain proposal ledger. It records
// proposals, tallies votes and finalizes outcomes.
package space

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/governance/components/account"
	"github.com/luxfi/governance/components/proposal"
	"github.com/luxfi/governance/vms/spacevm/auth"
	"github.com/luxfi/governance/vms/spacevm/strategy"
	"github.com/luxfi/governance/vms/spacevm/typeddata"

	safemath "github.com/luxfi/math"
)

var (
	_ auth.Ledger = (*Space)(nil)

	proposalPrefix = []byte("proposal")
	votePrefix     = []byte("vote")
	metaPrefix     = []byte("meta")

	nextProposalIDKey = []byte("nextProposalID")

	ErrWrongSpace               = errors.New("action targets another space")
	ErrUnknownProposal          = errors.New("unknown proposal")
	ErrProposalFinalized        = errors.New("proposal already finalized")
	ErrProposalValidationFailed = errors.New("author failed proposal validation")
	ErrUnknownExecutionStrategy = errors.New("execution strategy not enabled on space")
	ErrTimestampOverflow        = errors.New("voting window overflows")
	ErrVotingNotStarted         = errors.New("voting has not started")
	ErrVotingClosed             = errors.New("voting period has ended")
	ErrAlreadyVoted             = errors.New("voter already voted")
	ErrInvalidStrategyIndex     = errors.New("voting strategy not active for proposal")
	ErrDuplicateStrategy        = errors.New("duplicate voting strategy")
	ErrNoVotingPower            = errors.New("voter has no voting power")
	ErrTallyOverflow            = errors.New("vote tally overflows")
	ErrNotAuthor                = errors.New("only the author may update a proposal")
	ErrVotingStarted            = errors.New("proposal can no longer be updated")
	ErrVotingPeriodNotEnded     = errors.New("voting period has not ended")
	ErrNotOwner                 = errors.New("only the space owner may cancel")
	ErrNoSink                   = errors.New("space has no relay configured")
)

// Sink carries finalized outcomes to the anchor chain.
type Sink interface {
	Send(ctx context.Context, fin *proposal.Finalization) error
}

// Record is the stored form of a proposal.
type Record struct {
	Proposal        proposal.Proposal `serialize:"true" json:"proposal"`
	ExecutionParams hexutil.Bytes     `serialize:"true" json:"executionParams"`
	MetadataURI     string            `serialize:"true" json:"metadataUri"`
	ForVotes        uint256.Int       `serialize:"true" json:"forVotes"`
	AgainstVotes    uint256.Int       `serialize:"true" json:"againstVotes"`
	AbstainVotes    uint256.Int       `serialize:"true" json:"abstainVotes"`
}

func (r *Record) tally(choice proposal.Choice) *uint256.Int {
	switch choice {
	case proposal.For:
		return &r.ForVotes
	case proposal.Against:
		return &r.AgainstVotes
	default:
		return &r.AbstainVotes
	}
}

type Space struct {
	log               log.Logger
	cfg               Config
	settlementChainID ids.ID
	sink              Sink

	lock      sync.Mutex
	db        *versiondb.Database
	proposals database.Database
	votes     database.Database
	meta      database.Database
}

// New opens the space stored in db. sink may be nil if no execution
// strategy relays.
func New(logger log.Logger, db database.Database, settlementChainID ids.ID, cfg Config, sink Sink) (*Space, error) {
	if err := cfg.Verify(); err != nil {
		return nil, fmt.Errorf("invalid space config: %w", err)
	}
	vdb := versiondb.New(db)
	return &Space{
		log:               logger,
		cfg:               cfg,
		settlementChainID: settlementChainID,
		sink:              sink,
		db:                vdb,
		proposals:         prefixdb.New(proposalPrefix, vdb),
		votes:             prefixdb.New(votePrefix, vdb),
		meta:              prefixdb.New(metaPrefix, vdb),
	}, nil
}

func (s *Space) ID() ids.ID {
	return s.cfg.ID
}

func (s *Space) Config() Config {
	return s.cfg
}

func (s *Space) RecordProposal(_ context.Context, now uint64, msg *typeddata.Propose) (uint64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	defer s.db.Abort()

	if msg.Space != s.cfg.ID {
		return 0, fmt.Errorf("%w: %s", ErrWrongSpace, msg.Space)
	}
	ok, err := s.cfg.ProposalValidation.Validate(msg.Author, msg.UserProposalValidationParams, s.cfg.VotingStrategies)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProposalValidationFailed, err)
	}
	if !ok {
		return 0, ErrProposalValidationFailed
	}
	_, payloadHash, err := s.target(msg.ExecutionStrategy)
	if err != nil {
		return 0, err
	}

	start, err := add(now, s.cfg.VotingDelay)
	if err != nil {
		return 0, err
	}
	minEnd, err := add(start, s.cfg.MinVotingDuration)
	if err != nil {
		return 0, err
	}
	maxEnd, err := add(start, s.cfg.MaxVotingDuration)
	if err != nil {
		return 0, err
	}

	record := &Record{
		Proposal: proposal.Proposal{
			StartTimestamp:       start,
			MinEndTimestamp:      minEnd,
			MaxEndTimestamp:      maxEnd,
			FinalizationStatus:   proposal.Pending,
			ExecutionPayloadHash: payloadHash,
			ExecutionStrategy:    msg.ExecutionStrategy.Address,
			Author:               msg.Author,
		},
		ExecutionParams: msg.ExecutionStrategy.Params,
		MetadataURI:     msg.MetadataURI,
	}
	for i := range s.cfg.VotingStrategies {
		if err := record.Proposal.ActivateStrategy(i); err != nil {
			return 0, err
		}
	}

	proposalID, err := s.nextProposalID()
	if err != nil {
		return 0, err
	}
	if err := s.putRecord(proposalID, record); err != nil {
		return 0, err
	}
	if err := database.PutUInt64(s.meta, nextProposalIDKey, proposalID+1); err != nil {
		return 0, err
	}
	if err := s.db.Commit(); err != nil {
		return 0, err
	}

	s.log.Info("proposal created",
		log.Stringer("space", s.cfg.ID),
		log.Uint64("proposalID", proposalID),
		log.Stringer("author", msg.Author),
		log.Uint64("start", start),
		log.Uint64("maxEnd", maxEnd),
	)
	return proposalID, nil
}

func (s *Space) RecordVote(_ context.Context, now uint64, msg *typeddata.Vote) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	defer s.db.Abort()

	if msg.Space != s.cfg.ID {
		return fmt.Errorf("%w: %s", ErrWrongSpace, msg.Space)
	}
	if err := msg.Choice.Verify(); err != nil {
		return err
	}
	record, err := s.pendingRecord(msg.ProposalID)
	if err != nil {
		return err
	}
	p := &record.Proposal
	if now < p.StartTimestamp {
		return fmt.Errorf("%w: starts at %d", ErrVotingNotStarted, p.StartTimestamp)
	}
	if now >= p.MaxEndTimestamp {
		return fmt.Errorf("%w: ended at %d", ErrVotingClosed, p.MaxEndTimestamp)
	}

	key := voteKey(msg.ProposalID, msg.Voter)
	voted, err := s.votes.Has(key)
	if err != nil {
		return err
	}
	if voted {
		return fmt.Errorf("%w: %s", ErrAlreadyVoted, msg.Voter)
	}

	power, err := s.votingPower(p, msg)
	if err != nil {
		return err
	}
	if power.IsZero() {
		return fmt.Errorf("%w: %s", ErrNoVotingPower, msg.Voter)
	}
	tally := record.tally(msg.Choice)
	if _, overflow := tally.AddOverflow(tally, power); overflow {
		return ErrTallyOverflow
	}

	if err := s.votes.Put(key, []byte{byte(msg.Choice)}); err != nil {
		return err
	}
	if err := s.putRecord(msg.ProposalID, record); err != nil {
		return err
	}
	if err := s.db.Commit(); err != nil {
		return err
	}

	s.log.Debug("vote recorded",
		log.Stringer("space", s.cfg.ID),
		log.Uint64("proposalID", msg.ProposalID),
		log.Stringer("voter", msg.Voter),
		log.Stringer("choice", msg.Choice),
		log.Stringer("power", power),
	)
	return nil
}

func (s *Space) RecordUpdate(_ context.Context, now uint64, msg *typeddata.UpdateProposal) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	defer s.db.Abort()

	if msg.Space != s.cfg.ID {
		return fmt.Errorf("%w: %s", ErrWrongSpace, msg.Space)
	}
	record, err := s.pendingRecord(msg.ProposalID)
	if err != nil {
		return err
	}
	p := &record.Proposal
	if p.Author != msg.Author {
		return fmt.Errorf("%w: %s", ErrNotAuthor, msg.Author)
	}
	if now >= p.StartTimestamp {
		return fmt.Errorf("%w: started at %d", ErrVotingStarted, p.StartTimestamp)
	}
	_, payloadHash, err := s.target(msg.ExecutionStrategy)
	if err != nil {
		return err
	}

	p.ExecutionStrategy = msg.ExecutionStrategy.Address
	p.ExecutionPayloadHash = payloadHash
	record.ExecutionParams = msg.ExecutionStrategy.Params
	record.MetadataURI = msg.MetadataURI
	if err := s.putRecord(msg.ProposalID, record); err != nil {
		return err
	}
	if err := s.db.Commit(); err != nil {
		return err
	}

	s.log.Info("proposal updated",
		log.Stringer("space", s.cfg.ID),
		log.Uint64("proposalID", msg.ProposalID),
	)
	return nil
}

// Execute finalizes a proposal once its voting window has closed. The
// returned snapshot still reports the proposal as pending; it is the
// message relayed to the anchor chain. Locally the proposal becomes
// executed only if the relay accepted the message.
func (s *Space) Execute(ctx context.Context, now uint64, proposalID uint64) (*proposal.Finalization, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	defer s.db.Abort()

	record, err := s.pendingRecord(proposalID)
	if err != nil {
		return nil, err
	}
	p := &record.Proposal
	if now < p.MaxEndTimestamp {
		return nil, fmt.Errorf("%w: ends at %d", ErrVotingPeriodNotEnded, p.MaxEndTimestamp)
	}
	exec, ok := s.cfg.Execution(p.ExecutionStrategy)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExecutionStrategy, p.ExecutionStrategy)
	}
	executor, _, err := exec.Target(record.ExecutionParams)
	if err != nil {
		return nil, err
	}

	fin := &proposal.Finalization{
		Ref: proposal.Ref{
			SettlementChainID: s.settlementChainID,
			Space:             s.cfg.ID,
			ProposalID:        proposalID,
		},
		Executor:     executor,
		Proposal:     *p,
		ForVotes:     record.ForVotes,
		AgainstVotes: record.AgainstVotes,
		AbstainVotes: record.AbstainVotes,
	}

	p.FinalizationStatus = proposal.Executed
	if err := s.putRecord(proposalID, record); err != nil {
		return nil, err
	}
	if exec.Kind == strategy.ExecutionAnchorRelay {
		if s.sink == nil {
			return nil, ErrNoSink
		}
		if err := s.sink.Send(ctx, fin); err != nil {
			return nil, fmt.Errorf("couldn't relay finalization: %w", err)
		}
	}
	if err := s.db.Commit(); err != nil {
		return nil, err
	}

	s.log.Info("proposal finalized",
		log.Stringer("ref", fin.Ref),
		log.Stringer("strategy", exec.Kind),
		log.Stringer("for", &fin.ForVotes),
		log.Stringer("against", &fin.AgainstVotes),
	)
	return fin, nil
}

func (s *Space) Cancel(_ context.Context, caller account.Account, proposalID uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	defer s.db.Abort()

	if caller != s.cfg.Owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}
	record, err := s.pendingRecord(proposalID)
	if err != nil {
		return err
	}
	record.Proposal.FinalizationStatus = proposal.Cancelled
	if err := s.putRecord(proposalID, record); err != nil {
		return err
	}
	if err := s.db.Commit(); err != nil {
		return err
	}

	s.log.Info("proposal cancelled",
		log.Stringer("space", s.cfg.ID),
		log.Uint64("proposalID", proposalID),
	)
	return nil
}

func (s *Space) Proposal(proposalID uint64) (*Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.getRecord(proposalID)
}

// VoteOf returns the choice voter made on the proposal, if any.
func (s *Space) VoteOf(proposalID uint64, voter account.Account) (proposal.Choice, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	b, err := s.votes.Get(voteKey(proposalID, voter))
	if errors.Is(err, database.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return proposal.Choice(b[0]), true, nil
}

func (s *Space) target(st proposal.Strategy) (common.Address, common.Hash, error) {
	exec, ok := s.cfg.Execution(st.Address)
	if !ok {
		return common.Address{}, common.Hash{}, fmt.Errorf("%w: %s", ErrUnknownExecutionStrategy, st.Address)
	}
	return exec.Target(st.Params)
}

func (s *Space) votingPower(p *proposal.Proposal, msg *typeddata.Vote) (*uint256.Int, error) {
	var (
		total = new(uint256.Int)
		seen  = set.NewSet[uint8](len(msg.UserVotingStrategies))
	)
	for _, us := range msg.UserVotingStrategies {
		if int(us.Index) >= len(s.cfg.VotingStrategies) || !p.IsStrategyActive(us.Index) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidStrategyIndex, us.Index)
		}
		if seen.Contains(us.Index) {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateStrategy, us.Index)
		}
		seen.Add(us.Index)

		power, err := s.cfg.VotingStrategies[us.Index].Power(msg.Voter, us.Params)
		if err != nil {
			return nil, err
		}
		if _, overflow := total.AddOverflow(total, power); overflow {
			return nil, ErrTallyOverflow
		}
	}
	return total, nil
}

func (s *Space) nextProposalID() (uint64, error) {
	next, err := database.GetUInt64(s.meta, nextProposalIDKey)
	if errors.Is(err, database.ErrNotFound) {
		return 1, nil
	}
	return next, err
}

func (s *Space) pendingRecord(proposalID uint64) (*Record, error) {
	record, err := s.getRecord(proposalID)
	if err != nil {
		return nil, err
	}
	if status := record.Proposal.FinalizationStatus; status != proposal.Pending {
		return nil, fmt.Errorf("%w: proposal %d is %s", ErrProposalFinalized, proposalID, status)
	}
	return record, nil
}

func (s *Space) getRecord(proposalID uint64) (*Record, error) {
	b, err := s.proposals.Get(proposalKey(proposalID))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownProposal, proposalID)
	}
	if err != nil {
		return nil, err
	}
	record := &Record{}
	if _, err := Codec.Unmarshal(b, record); err != nil {
		return nil, fmt.Errorf("couldn't parse proposal %d: %w", proposalID, err)
	}
	return record, nil
}

func (s *Space) putRecord(proposalID uint64, record *Record) error {
	b, err := Codec.Marshal(CodecVersion, record)
	if err != nil {
		return err
	}
	return s.proposals.Put(proposalKey(proposalID), b)
}

func proposalKey(proposalID uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, proposalID)
	return k
}

func voteKey(proposalID uint64, voter account.Account) []byte {
	return append(proposalKey(proposalID), voter.Key()...)
}

func add(a, b uint64) (uint64, error) {
	sum, err := safemath.Add64(a, b)
	if err != nil {
		return 0, fmt.Errorf("%w: %d + %d", ErrTimestampOverflow, a, b)
	}
	return sum, nil
}
