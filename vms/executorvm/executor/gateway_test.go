// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/governance/components/account"
	"github.com/luxfi/governance/components/proposal"
	"github.com/luxfi/governance/components/relay"
	"github.com/luxfi/governance/vms/executorvm/payload"
)

const (
	testNetworkID uint32 = 1
	maxEnd               = 1_000
)

var (
	gatewayAddress = common.HexToAddress("0x9a7e")
	paramsTarget   = common.HexToAddress("0x9a9a")
	recipient      = common.HexToAddress("0xb0b")
	paramKey       = common.HexToHash("0x01")
)

type capture struct {
	envs []*relay.Envelope
}

func (c *capture) Send(_ context.Context, env *relay.Envelope) error {
	c.envs = append(c.envs, env)
	return nil
}

type testEnv struct {
	ctx        context.Context
	settlement ids.ID
	space      ids.ID
	outbox     *relay.Outbox
	sent       *capture
	gateway    *Gateway
	db         database.Database
}

func newTestEnv(t *testing.T) *testEnv {
	require := require.New(t)

	key, err := secp256k1.NewPrivateKey()
	require.NoError(err)

	env := &testEnv{
		ctx:        context.Background(),
		settlement: ids.GenerateTestID(),
		space:      ids.GenerateTestID(),
		sent:       &capture{},
		db:         memdb.New(),
	}
	anchor := ids.GenerateTestID()
	env.outbox = relay.NewOutbox(log.NewNoOpLogger(), testNetworkID, env.settlement, anchor, key, env.sent)
	inbox := relay.NewInbox(testNetworkID, env.settlement, anchor, env.outbox.Relayer())

	env.gateway, err = New(
		log.NewNoOpLogger(),
		env.db,
		Config{
			Address: gatewayAddress,
			Quorum:  *uint256.NewInt(2),
			Spaces:  []ids.ID{env.space},
		},
		inbox,
		map[common.Address]Handler{paramsTarget: ParameterStore{}},
	)
	require.NoError(err)
	require.NoError(env.gateway.Fund(uint256.NewInt(100)))
	return env
}

func testPayload() *payload.Payload {
	return payload.New(
		payload.Call{To: recipient, Value: *uint256.NewInt(10)},
		payload.Call{To: paramsTarget, Data: ParameterCall(paramKey, []byte("on")), Salt: *uint256.NewInt(1)},
	)
}

func (e *testEnv) finalization(t *testing.T, p *payload.Payload, forVotes, againstVotes uint64) *proposal.Finalization {
	h, err := p.Hash()
	require.NoError(t, err)
	return &proposal.Finalization{
		Ref: proposal.Ref{
			SettlementChainID: e.settlement,
			Space:             e.space,
			ProposalID:        1,
		},
		Executor: gatewayAddress,
		Proposal: proposal.Proposal{
			StartTimestamp:       maxEnd - 100,
			MinEndTimestamp:      maxEnd - 50,
			MaxEndTimestamp:      maxEnd,
			ExecutionPayloadHash: h,
			ExecutionStrategy:    common.HexToAddress("0x02"),
			Author:               account.Ethereum(common.HexToAddress("0xa11ce")),
		},
		ForVotes:     *uint256.NewInt(forVotes),
		AgainstVotes: *uint256.NewInt(againstVotes),
	}
}

func (e *testEnv) deliver(t *testing.T, fin *proposal.Finalization) {
	require.NoError(t, e.outbox.Send(e.ctx, fin))
	require.NoError(t, e.gateway.Deliver(e.ctx, e.sent.envs[len(e.sent.envs)-1]))
}

func (e *testEnv) requireUnseen(t *testing.T, fin *proposal.Finalization) {
	record, err := e.gateway.Record(fin.Ref)
	require.NoError(t, err)
	require.Equal(t, Unseen, record.Status)
}

func (e *testEnv) requireBalance(t *testing.T, addr common.Address, expected uint64) {
	balance, err := e.gateway.Balance(addr)
	require.NoError(t, err)
	require.Equal(t, expected, balance.Uint64())
}

func TestExecuteAtBoundary(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	p := testPayload()
	fin := env.finalization(t, p, 3, 1)
	env.deliver(t, fin)

	err := env.gateway.Execute(env.ctx, maxEnd-1, fin, p)
	require.ErrorIs(err, ErrVotingPeriodNotExceeded)
	env.requireUnseen(t, fin)

	require.NoError(env.gateway.Execute(env.ctx, maxEnd, fin, p))

	record, err := env.gateway.Record(fin.Ref)
	require.NoError(err)
	require.Equal(Executed, record.Status)
	require.Equal(uint64(maxEnd), record.ExecutedAt)
	require.Equal(fin.Proposal.ExecutionPayloadHash, record.PayloadHash)

	env.requireBalance(t, gatewayAddress, 90)
	env.requireBalance(t, recipient, 10)
	value, err := env.gateway.Get(paramsTarget, paramKey[:])
	require.NoError(err)
	require.Equal([]byte("on"), value)
}

func TestSpaceWhitelistToggle(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	p := testPayload()
	fin := env.finalization(t, p, 2, 0)
	env.deliver(t, fin)

	env.gateway.DisableSpace(fin.Space)
	env.gateway.DisableSpace(fin.Space)
	require.ErrorIs(env.gateway.Execute(env.ctx, maxEnd, fin, p), ErrSpaceNotEnabled)
	env.requireUnseen(t, fin)

	env.gateway.EnableSpace(fin.Space)
	env.gateway.EnableSpace(fin.Space)
	require.NoError(env.gateway.Execute(env.ctx, maxEnd, fin, p))
}

func TestExecuteIsIdempotent(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	p := testPayload()
	fin := env.finalization(t, p, 2, 0)
	env.deliver(t, fin)
	// Redelivery of the same outcome is accepted and ignored.
	env.deliver(t, fin)

	require.NoError(env.gateway.Execute(env.ctx, maxEnd, fin, p))
	err := env.gateway.Execute(env.ctx, maxEnd+1, fin, p)
	require.ErrorIs(err, ErrAlreadyExecuted)

	env.requireBalance(t, gatewayAddress, 90)
	env.requireBalance(t, recipient, 10)
}

func TestExecuteQuorumNotMet(t *testing.T) {
	tests := []struct {
		name    string
		forV    uint64
		against uint64
	}{
		{name: "net below quorum", forV: 3, against: 2},
		{name: "no votes", forV: 0, against: 0},
		{name: "against exceeds for", forV: 1, against: 5},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)
			env := newTestEnv(t)

			p := testPayload()
			fin := env.finalization(t, p, test.forV, test.against)
			env.deliver(t, fin)

			err := env.gateway.Execute(env.ctx, maxEnd+1_000, fin, p)
			require.ErrorIs(err, ErrQuorumNotMet)
			env.requireUnseen(t, fin)
			env.requireBalance(t, gatewayAddress, 100)
		})
	}
}

func TestExecutePayloadMismatch(t *testing.T) {
	env := newTestEnv(t)

	p := testPayload()
	substituted := payload.New(payload.Call{To: recipient, Value: *uint256.NewInt(100)})

	tests := []struct {
		name string
		now  uint64
		forV uint64
	}{
		{name: "before window closes", now: maxEnd - 1, forV: 10},
		{name: "quorum not met", now: maxEnd, forV: 0},
		{name: "otherwise executable", now: maxEnd, forV: 10},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fin := env.finalization(t, p, test.forV, 0)
			env.deliver(t, fin)

			err := env.gateway.Execute(env.ctx, test.now, fin, substituted)
			require.ErrorIs(t, err, ErrPayloadMismatch)
			env.requireUnseen(t, fin)
			env.requireBalance(t, recipient, 0)
		})
	}
}

func TestExecutePreflight(t *testing.T) {
	tests := []struct {
		name        string
		prepare     func(t *testing.T, env *testEnv, fin *proposal.Finalization)
		expectedErr error
	}{
		{
			name:        "not delivered",
			prepare:     func(*testing.T, *testEnv, *proposal.Finalization) {},
			expectedErr: ErrMessageNotDelivered,
		},
		{
			name: "tally differs from delivered",
			prepare: func(t *testing.T, env *testEnv, fin *proposal.Finalization) {
				env.deliver(t, fin)
				fin.ForVotes = *uint256.NewInt(1_000)
			},
			expectedErr: ErrMessageNotDelivered,
		},
		{
			name: "space disabled",
			prepare: func(t *testing.T, env *testEnv, fin *proposal.Finalization) {
				env.deliver(t, fin)
				env.gateway.DisableSpace(fin.Space)
			},
			expectedErr: ErrSpaceNotEnabled,
		},
		{
			name: "other executor",
			prepare: func(t *testing.T, env *testEnv, fin *proposal.Finalization) {
				fin.Executor = common.HexToAddress("0x01")
				env.deliver(t, fin)
			},
			expectedErr: ErrInvalidStrategy,
		},
		{
			name: "not pending",
			prepare: func(t *testing.T, env *testEnv, fin *proposal.Finalization) {
				fin.Proposal.FinalizationStatus = proposal.Cancelled
				env.deliver(t, fin)
			},
			expectedErr: ErrProposalNotPending,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)
			env := newTestEnv(t)

			p := testPayload()
			fin := env.finalization(t, p, 10, 0)
			test.prepare(t, env, fin)

			err := env.gateway.Execute(env.ctx, maxEnd, fin, p)
			require.ErrorIs(err, test.expectedErr)
			env.requireUnseen(t, fin)
		})
	}
}

func TestExecuteRollsBackFailedCalls(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	p := payload.New(
		payload.Call{To: paramsTarget, Data: ParameterCall(paramKey, []byte("on"))},
		payload.Call{To: recipient, Value: *uint256.NewInt(150)},
	)
	fin := env.finalization(t, p, 10, 0)
	env.deliver(t, fin)

	err := env.gateway.Execute(env.ctx, maxEnd, fin, p)
	require.ErrorIs(err, ErrCallFailed)
	require.ErrorIs(err, ErrInsufficientBalance)
	env.requireUnseen(t, fin)
	env.requireBalance(t, gatewayAddress, 100)
	_, err = env.gateway.Get(paramsTarget, paramKey[:])
	require.ErrorIs(err, database.ErrNotFound)

	// A corrected retry succeeds once the avatar can cover the transfer.
	require.NoError(env.gateway.Fund(uint256.NewInt(50)))
	require.NoError(env.gateway.Execute(env.ctx, maxEnd, fin, p))
	env.requireBalance(t, gatewayAddress, 0)
	env.requireBalance(t, recipient, 150)
}

func TestExecuteRejectsUnsupportedCalls(t *testing.T) {
	tests := []struct {
		name        string
		call        payload.Call
		expectedErr error
	}{
		{
			name:        "delegate call",
			call:        payload.Call{To: paramsTarget, Operation: payload.OperationDelegateCall},
			expectedErr: ErrUnsupportedOperation,
		},
		{
			name:        "malformed parameter",
			call:        payload.Call{To: paramsTarget, Data: []byte{1}},
			expectedErr: ErrMalformedCall,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)
			env := newTestEnv(t)

			p := payload.New(test.call)
			fin := env.finalization(t, p, 10, 0)
			env.deliver(t, fin)

			err := env.gateway.Execute(env.ctx, maxEnd, fin, p)
			require.ErrorIs(err, test.expectedErr)
			env.requireUnseen(t, fin)
		})
	}
}

func TestDeliverRejectsInvalidEnvelope(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	fin := env.finalization(t, testPayload(), 10, 0)
	require.NoError(env.outbox.Send(env.ctx, fin))
	sealed := env.sent.envs[0]
	sealed.Signature[0] ^= 1

	require.ErrorIs(env.gateway.Deliver(env.ctx, sealed), relay.ErrInvalidEnvelope)
	delivered, err := env.gateway.Delivered(fin)
	require.NoError(err)
	require.False(delivered)
}

func TestGatewayStatePersists(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	p := testPayload()
	fin := env.finalization(t, p, 10, 0)
	env.deliver(t, fin)
	require.NoError(env.gateway.Execute(env.ctx, maxEnd, fin, p))

	reopened, err := New(log.NewNoOpLogger(), env.db, env.gateway.cfg, env.gateway.inbox, nil)
	require.NoError(err)
	record, err := reopened.Record(fin.Ref)
	require.NoError(err)
	require.Equal(Executed, record.Status)
	delivered, err := reopened.Delivered(fin)
	require.NoError(err)
	require.True(delivered)
}

func TestQuorumRule(t *testing.T) {
	tests := []struct {
		rule    QuorumRule
		quorum  uint64
		forV    uint64
		against uint64
		met     bool
	}{
		{rule: QuorumNet, quorum: 2, forV: 3, against: 1, met: true},
		{rule: QuorumNet, quorum: 2, forV: 3, against: 2, met: false},
		{rule: QuorumNet, quorum: 0, forV: 0, against: 0, met: true},
		{rule: QuorumNet, quorum: 0, forV: 0, against: 1, met: false},
		{rule: QuorumFor, quorum: 2, forV: 2, against: 1, met: true},
		{rule: QuorumFor, quorum: 2, forV: 2, against: 2, met: false},
		{rule: QuorumFor, quorum: 2, forV: 1, against: 0, met: false},
		{rule: 9, quorum: 0, forV: 1, against: 0, met: false},
	}
	for _, test := range tests {
		t.Run(test.rule.String(), func(t *testing.T) {
			require.Equal(t, test.met, test.rule.Met(
				uint256.NewInt(test.quorum),
				uint256.NewInt(test.forV),
				uint256.NewInt(test.against),
			))
		})
	}
}
