// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package space

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/governance/components/account"
	"github.com/luxfi/governance/components/proposal"
	"github.com/luxfi/governance/vms/spacevm/strategy"
	"github.com/luxfi/governance/vms/spacevm/typeddata"
)

const (
	votingDelay = 10
	minDuration = 20
	maxDuration = 100
)

var (
	errTest = errors.New("non-nil error")

	owner    = account.Ethereum(common.HexToAddress("0x0e"))
	author   = account.Ethereum(common.HexToAddress("0xa11ce"))
	voter    = account.Ethereum(common.HexToAddress("0xb0b"))
	whale    = account.Ethereum(common.HexToAddress("0xc0ffee"))
	executor = common.HexToAddress("0xe0e")

	vanillaExecution = common.HexToAddress("0x01")
	relayExecution   = common.HexToAddress("0x02")

	payloadHash = common.HexToHash("0x1234")
)

type sink struct {
	sent []*proposal.Finalization
	err  error
}

func (s *sink) Send(_ context.Context, fin *proposal.Finalization) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, fin)
	return nil
}

func testConfig() Config {
	return Config{
		ID:                ids.GenerateTestID(),
		Owner:             owner,
		VotingDelay:       votingDelay,
		MinVotingDuration: minDuration,
		MaxVotingDuration: maxDuration,
		VotingStrategies: []strategy.Voting{
			strategy.Vanilla(),
			strategy.Whitelist(strategy.WhitelistEntry{Account: whale, Weight: *uint256.NewInt(100)}),
		},
		ExecutionStrategies: []strategy.Execution{
			{Address: vanillaExecution, Kind: strategy.ExecutionVanilla},
			{Address: relayExecution, Kind: strategy.ExecutionAnchorRelay},
		},
	}
}

func newTestSpace(t *testing.T, s Sink) *Space {
	sp, err := New(log.NewNoOpLogger(), memdb.New(), ids.GenerateTestID(), testConfig(), s)
	require.NoError(t, err)
	return sp
}

func relayPropose(sp *Space) *typeddata.Propose {
	return &typeddata.Propose{
		Space:  sp.ID(),
		Author: author,
		ExecutionStrategy: proposal.Strategy{
			Address: relayExecution,
			Params:  strategy.AnchorRelayParams(executor, payloadHash),
		},
	}
}

func vote(sp *Space, who account.Account, proposalID uint64, choice proposal.Choice, indices ...uint8) *typeddata.Vote {
	msg := &typeddata.Vote{
		Space:      sp.ID(),
		Voter:      who,
		ProposalID: proposalID,
		Choice:     choice,
	}
	for _, i := range indices {
		msg.UserVotingStrategies = append(msg.UserVotingStrategies, proposal.IndexedStrategy{Index: i})
	}
	return msg
}

func TestConfigVerify(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectedErr error
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:        "min above max",
			mutate:      func(c *Config) { c.MinVotingDuration = c.MaxVotingDuration + 1 },
			expectedErr: ErrInvalidDurations,
		},
		{
			name:        "no voting strategies",
			mutate:      func(c *Config) { c.VotingStrategies = nil },
			expectedErr: ErrNoVotingStrategies,
		},
		{
			name:        "no execution strategies",
			mutate:      func(c *Config) { c.ExecutionStrategies = nil },
			expectedErr: ErrNoExecutionStrategies,
		},
		{
			name: "duplicate execution strategy",
			mutate: func(c *Config) {
				c.ExecutionStrategies = append(c.ExecutionStrategies, c.ExecutionStrategies[0])
			},
			expectedErr: ErrDuplicateExecution,
		},
		{
			name:        "malformed whitelist",
			mutate:      func(c *Config) { c.VotingStrategies[1].Params = []byte{1} },
			expectedErr: strategy.ErrMalformedWhitelist,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := testConfig()
			test.mutate(&cfg)
			require.ErrorIs(t, cfg.Verify(), test.expectedErr)
		})
	}
}

func TestRecordProposal(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	sp := newTestSpace(t, &sink{})

	proposalID, err := sp.RecordProposal(ctx, 1_000, relayPropose(sp))
	require.NoError(err)
	require.Equal(uint64(1), proposalID)

	record, err := sp.Proposal(proposalID)
	require.NoError(err)
	p := record.Proposal
	require.Equal(uint64(1_000+votingDelay), p.StartTimestamp)
	require.Equal(uint64(1_000+votingDelay+minDuration), p.MinEndTimestamp)
	require.Equal(uint64(1_000+votingDelay+maxDuration), p.MaxEndTimestamp)
	require.Equal(proposal.Pending, p.FinalizationStatus)
	require.Equal(payloadHash, p.ExecutionPayloadHash)
	require.Equal(relayExecution, p.ExecutionStrategy)
	require.Equal(author, p.Author)
	require.True(p.IsStrategyActive(0))
	require.True(p.IsStrategyActive(1))
	require.False(p.IsStrategyActive(2))

	vanilla := &typeddata.Propose{
		Space:             sp.ID(),
		Author:            author,
		ExecutionStrategy: proposal.Strategy{Address: vanillaExecution, Params: []byte("payload")},
	}
	proposalID, err = sp.RecordProposal(ctx, 1_000, vanilla)
	require.NoError(err)
	require.Equal(uint64(2), proposalID)
	record, err = sp.Proposal(proposalID)
	require.NoError(err)
	require.Equal(common.Hash(crypto.Keccak256Hash([]byte("payload"))), record.Proposal.ExecutionPayloadHash)

	_, err = sp.Proposal(3)
	require.ErrorIs(err, ErrUnknownProposal)
}

func TestRecordProposalErrors(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cfg := testConfig()
	cfg.ProposalValidation = strategy.Validation{
		Kind:      strategy.ValidationVotingPower,
		Threshold: *uint256.NewInt(50),
	}
	sp, err := New(log.NewNoOpLogger(), memdb.New(), ids.GenerateTestID(), cfg, nil)
	require.NoError(err)

	msg := relayPropose(sp)
	msg.UserProposalValidationParams = []byte{0, 1}
	_, err = sp.RecordProposal(ctx, 0, msg)
	require.ErrorIs(err, ErrProposalValidationFailed)

	msg.Author = whale
	proposalID, err := sp.RecordProposal(ctx, 0, msg)
	require.NoError(err)
	require.Equal(uint64(1), proposalID)

	msg.ExecutionStrategy.Address = common.HexToAddress("0x99")
	_, err = sp.RecordProposal(ctx, 0, msg)
	require.ErrorIs(err, ErrUnknownExecutionStrategy)

	msg.ExecutionStrategy = proposal.Strategy{Address: relayExecution, Params: []byte{1}}
	_, err = sp.RecordProposal(ctx, 0, msg)
	require.ErrorIs(err, strategy.ErrMalformedRelayParams)

	msg = relayPropose(sp)
	msg.Author = whale
	_, err = sp.RecordProposal(ctx, ^uint64(0), msg)
	require.ErrorIs(err, ErrTimestampOverflow)

	msg.Space = ids.GenerateTestID()
	_, err = sp.RecordProposal(ctx, 0, msg)
	require.ErrorIs(err, ErrWrongSpace)

	// Failed proposals do not consume ids.
	msg = relayPropose(sp)
	msg.Author = whale
	proposalID, err = sp.RecordProposal(ctx, 0, msg)
	require.NoError(err)
	require.Equal(uint64(2), proposalID)
}

func TestRecordVote(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	sp := newTestSpace(t, &sink{})

	proposalID, err := sp.RecordProposal(ctx, 0, relayPropose(sp))
	require.NoError(err)
	start := uint64(votingDelay)
	maxEnd := start + maxDuration

	require.ErrorIs(sp.RecordVote(ctx, start-1, vote(sp, voter, proposalID, proposal.For, 0)), ErrVotingNotStarted)
	require.NoError(sp.RecordVote(ctx, start, vote(sp, voter, proposalID, proposal.For, 0)))
	require.ErrorIs(sp.RecordVote(ctx, start, vote(sp, voter, proposalID, proposal.Against, 0)), ErrAlreadyVoted)

	require.ErrorIs(sp.RecordVote(ctx, start, vote(sp, author, proposalID, proposal.For, 1)), ErrNoVotingPower)
	require.ErrorIs(sp.RecordVote(ctx, start, vote(sp, author, proposalID, proposal.For, 2)), ErrInvalidStrategyIndex)
	require.ErrorIs(sp.RecordVote(ctx, start, vote(sp, author, proposalID, proposal.For, 0, 0)), ErrDuplicateStrategy)
	require.ErrorIs(sp.RecordVote(ctx, start, vote(sp, author, proposalID, 3, 0)), proposal.ErrUnknownChoice)
	require.ErrorIs(sp.RecordVote(ctx, start, vote(sp, author, 9, proposal.For, 0)), ErrUnknownProposal)

	require.NoError(sp.RecordVote(ctx, maxEnd-1, vote(sp, whale, proposalID, proposal.Against, 0, 1)))
	require.NoError(sp.RecordVote(ctx, maxEnd-1, vote(sp, author, proposalID, proposal.Abstain, 0)))
	require.ErrorIs(sp.RecordVote(ctx, maxEnd, vote(sp, owner, proposalID, proposal.For, 0)), ErrVotingClosed)

	record, err := sp.Proposal(proposalID)
	require.NoError(err)
	require.Equal(uint64(1), record.ForVotes.Uint64())
	require.Equal(uint64(101), record.AgainstVotes.Uint64())
	require.Equal(uint64(1), record.AbstainVotes.Uint64())

	choice, voted, err := sp.VoteOf(proposalID, whale)
	require.NoError(err)
	require.True(voted)
	require.Equal(proposal.Against, choice)

	_, voted, err = sp.VoteOf(proposalID, owner)
	require.NoError(err)
	require.False(voted)
}

func TestRecordUpdate(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	sp := newTestSpace(t, &sink{})

	proposalID, err := sp.RecordProposal(ctx, 0, relayPropose(sp))
	require.NoError(err)

	newHash := common.HexToHash("0x5678")
	update := &typeddata.UpdateProposal{
		Space:      sp.ID(),
		Author:     author,
		ProposalID: proposalID,
		ExecutionStrategy: proposal.Strategy{
			Address: relayExecution,
			Params:  strategy.AnchorRelayParams(executor, newHash),
		},
		MetadataURI: "ipfs://v2",
	}

	notAuthor := *update
	notAuthor.Author = voter
	require.ErrorIs(sp.RecordUpdate(ctx, 0, &notAuthor), ErrNotAuthor)
	require.ErrorIs(sp.RecordUpdate(ctx, votingDelay, update), ErrVotingStarted)

	require.NoError(sp.RecordUpdate(ctx, votingDelay-1, update))
	record, err := sp.Proposal(proposalID)
	require.NoError(err)
	require.Equal(newHash, record.Proposal.ExecutionPayloadHash)
	require.Equal("ipfs://v2", record.MetadataURI)
}

func TestExecute(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	out := &sink{}
	sp := newTestSpace(t, out)

	proposalID, err := sp.RecordProposal(ctx, 0, relayPropose(sp))
	require.NoError(err)
	require.NoError(sp.RecordVote(ctx, votingDelay, vote(sp, whale, proposalID, proposal.For, 1)))
	maxEnd := uint64(votingDelay + maxDuration)

	_, err = sp.Execute(ctx, maxEnd-1, proposalID)
	require.ErrorIs(err, ErrVotingPeriodNotEnded)

	out.err = errTest
	_, err = sp.Execute(ctx, maxEnd, proposalID)
	require.ErrorIs(err, errTest)
	record, err := sp.Proposal(proposalID)
	require.NoError(err)
	require.Equal(proposal.Pending, record.Proposal.FinalizationStatus)

	out.err = nil
	fin, err := sp.Execute(ctx, maxEnd, proposalID)
	require.NoError(err)
	require.Len(out.sent, 1)
	require.Equal(fin, out.sent[0])
	require.Equal(proposalID, fin.ProposalID)
	require.Equal(sp.ID(), fin.Space)
	require.Equal(executor, fin.Executor)
	require.Equal(proposal.Pending, fin.Proposal.FinalizationStatus)
	require.Equal(uint64(100), fin.ForVotes.Uint64())

	record, err = sp.Proposal(proposalID)
	require.NoError(err)
	require.Equal(proposal.Executed, record.Proposal.FinalizationStatus)

	_, err = sp.Execute(ctx, maxEnd, proposalID)
	require.ErrorIs(err, ErrProposalFinalized)
	require.Len(out.sent, 1)
}

func TestExecuteVanillaDoesNotRelay(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	sp := newTestSpace(t, nil)

	msg := relayPropose(sp)
	msg.ExecutionStrategy = proposal.Strategy{Address: vanillaExecution}
	proposalID, err := sp.RecordProposal(ctx, 0, msg)
	require.NoError(err)

	fin, err := sp.Execute(ctx, votingDelay+maxDuration, proposalID)
	require.NoError(err)
	require.Equal(common.Address{}, fin.Executor)

	msg.ExecutionStrategy = proposal.Strategy{
		Address: relayExecution,
		Params:  strategy.AnchorRelayParams(executor, payloadHash),
	}
	proposalID, err = sp.RecordProposal(ctx, 0, msg)
	require.NoError(err)
	_, err = sp.Execute(ctx, votingDelay+maxDuration, proposalID)
	require.ErrorIs(err, ErrNoSink)
}

func TestCancel(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	sp := newTestSpace(t, &sink{})

	proposalID, err := sp.RecordProposal(ctx, 0, relayPropose(sp))
	require.NoError(err)

	require.ErrorIs(sp.Cancel(ctx, author, proposalID), ErrNotOwner)
	require.NoError(sp.Cancel(ctx, owner, proposalID))
	require.ErrorIs(sp.Cancel(ctx, owner, proposalID), ErrProposalFinalized)
	require.ErrorIs(sp.RecordVote(ctx, votingDelay, vote(sp, voter, proposalID, proposal.For, 0)), ErrProposalFinalized)

	_, err = sp.Execute(ctx, votingDelay+maxDuration, proposalID)
	require.ErrorIs(err, ErrProposalFinalized)
}
