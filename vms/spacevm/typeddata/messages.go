// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package typeddata

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/ids"

	"github.com/luxfi/governance/components/account"
	"github.com/luxfi/governance/components/proposal"
)

const (
	proposeType = "Propose(bytes32 space,Account author,string metadataUri,Strategy executionStrategy,bytes userProposalValidationParams,uint256 salt)" +
		accountType + strategyType
	voteType = "Vote(bytes32 space,Account voter,uint256 proposalId,uint8 choice,IndexedStrategy[] userVotingStrategies,string voteMetadataUri)" +
		accountType + indexedStrategyType
	updateProposalType = "UpdateProposal(bytes32 space,Account author,uint256 proposalId,Strategy executionStrategy,string metadataUri,uint256 salt)" +
		accountType + strategyType
	sessionKeyAuthType = "SessionKeyAuth(uint256 chainId,address authenticator,Account owner,bytes sessionPublicKey,uint256 sessionDuration,uint256 salt)" +
		accountType
	sessionKeyRevokeType = "SessionKeyRevoke(uint256 chainId,address authenticator,Account owner,bytes sessionPublicKey,uint256 salt)" +
		accountType
)

var (
	proposeTypeHash          = keccak([]byte(proposeType))
	voteTypeHash             = keccak([]byte(voteType))
	updateProposalTypeHash   = keccak([]byte(updateProposalType))
	sessionKeyAuthTypeHash   = keccak([]byte(sessionKeyAuthType))
	sessionKeyRevokeTypeHash = keccak([]byte(sessionKeyRevokeType))

	_ Message = (*Propose)(nil)
	_ Message = (*Vote)(nil)
	_ Message = (*UpdateProposal)(nil)
	_ Message = (*SessionKeyAuth)(nil)
	_ Message = (*SessionKeyRevoke)(nil)
)

type Kind uint8

const (
	KindPropose Kind = iota
	KindVote
	KindUpdateProposal
	KindSessionKeyAuth
	KindSessionKeyRevoke
)

func (k Kind) String() string {
	switch k {
	case KindPropose:
		return "propose"
	case KindVote:
		return "vote"
	case KindUpdateProposal:
		return "updateProposal"
	case KindSessionKeyAuth:
		return "sessionKeyAuth"
	case KindSessionKeyRevoke:
		return "sessionKeyRevoke"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Message is a typed payload with a fixed schema.
type Message interface {
	Kind() Kind
	HashStruct() common.Hash
}

type Propose struct {
	Space                        ids.ID            `json:"space"`
	Author                       account.Account   `json:"author"`
	MetadataURI                  string            `json:"metadataUri"`
	ExecutionStrategy            proposal.Strategy `json:"executionStrategy"`
	UserProposalValidationParams hexutil.Bytes     `json:"userProposalValidationParams"`
	Salt                         uint256.Int       `json:"salt"`
}

func (*Propose) Kind() Kind { return KindPropose }

func (m *Propose) HashStruct() common.Hash {
	return newEncoder(proposeTypeHash).
		id(m.Space).
		word(hashAccount(m.Author)).
		string(m.MetadataURI).
		word(hashStrategy(m.ExecutionStrategy)).
		bytes(m.UserProposalValidationParams).
		uint256(&m.Salt).
		hash()
}

type Vote struct {
	Space                ids.ID                     `json:"space"`
	Voter                account.Account            `json:"voter"`
	ProposalID           uint64                     `json:"proposalId"`
	Choice               proposal.Choice            `json:"choice"`
	UserVotingStrategies []proposal.IndexedStrategy `json:"userVotingStrategies"`
	MetadataURI          string                     `json:"voteMetadataUri"`
}

func (*Vote) Kind() Kind { return KindVote }

func (m *Vote) HashStruct() common.Hash {
	return newEncoder(voteTypeHash).
		id(m.Space).
		word(hashAccount(m.Voter)).
		uint64(m.ProposalID).
		uint64(uint64(m.Choice)).
		word(hashIndexedStrategies(m.UserVotingStrategies)).
		string(m.MetadataURI).
		hash()
}

type UpdateProposal struct {
	Space             ids.ID            `json:"space"`
	Author            account.Account   `json:"author"`
	ProposalID        uint64            `json:"proposalId"`
	ExecutionStrategy proposal.Strategy `json:"executionStrategy"`
	MetadataURI       string            `json:"metadataUri"`
	Salt              uint256.Int       `json:"salt"`
}

func (*UpdateProposal) Kind() Kind { return KindUpdateProposal }

func (m *UpdateProposal) HashStruct() common.Hash {
	return newEncoder(updateProposalTypeHash).
		id(m.Space).
		word(hashAccount(m.Author)).
		uint64(m.ProposalID).
		word(hashStrategy(m.ExecutionStrategy)).
		string(m.MetadataURI).
		uint256(&m.Salt).
		hash()
}

// SessionKeyAuth delegates signing authority to a session key for
// SessionDuration seconds.
type SessionKeyAuth struct {
	ChainID          uint64            `json:"chainId"`
	Authenticator    common.Address    `json:"authenticator"`
	Owner            account.Account   `json:"owner"`
	SessionPublicKey account.PublicKey `json:"sessionPublicKey"`
	SessionDuration  uint64            `json:"sessionDuration"`
	Salt             uint256.Int       `json:"salt"`
}

func (*SessionKeyAuth) Kind() Kind { return KindSessionKeyAuth }

func (m *SessionKeyAuth) HashStruct() common.Hash {
	return newEncoder(sessionKeyAuthTypeHash).
		uint64(m.ChainID).
		address(m.Authenticator).
		word(hashAccount(m.Owner)).
		bytes(m.SessionPublicKey[:]).
		uint64(m.SessionDuration).
		uint256(&m.Salt).
		hash()
}

type SessionKeyRevoke struct {
	ChainID          uint64            `json:"chainId"`
	Authenticator    common.Address    `json:"authenticator"`
	Owner            account.Account   `json:"owner"`
	SessionPublicKey account.PublicKey `json:"sessionPublicKey"`
	Salt             uint256.Int       `json:"salt"`
}

func (*SessionKeyRevoke) Kind() Kind { return KindSessionKeyRevoke }

func (m *SessionKeyRevoke) HashStruct() common.Hash {
	return newEncoder(sessionKeyRevokeTypeHash).
		uint64(m.ChainID).
		address(m.Authenticator).
		word(hashAccount(m.Owner)).
		bytes(m.SessionPublicKey[:]).
		uint256(&m.Salt).
		hash()
}
