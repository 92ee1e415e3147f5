// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package spacevm

import (
	"net/http"

	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/utils/json"

	"github.com/luxfi/governance/components/account"
	"github.com/luxfi/governance/components/proposal"
	"github.com/luxfi/governance/vms/spacevm/auth"
	"github.com/luxfi/governance/vms/spacevm/session"
	"github.com/luxfi/governance/vms/spacevm/space"
	"github.com/luxfi/governance/vms/spacevm/typeddata"
)

// Service is the JSON-RPC API of the settlement chain, registered as
// "space".
type Service struct {
	vm *VM
}

type EmptyReply struct{}

type RegisterSessionArgs struct {
	Message   typeddata.SessionKeyAuth `json:"message"`
	Signature hexutil.Bytes            `json:"signature"`
}

func (s *Service) RegisterSession(_ *http.Request, args *RegisterSessionArgs, _ *EmptyReply) error {
	s.vm.log.Debug("API called",
		log.String("service", "space"),
		log.String("method", "registerSession"),
		log.Stringer("owner", args.Message.Owner),
	)
	return s.vm.RegisterSession(&args.Message, args.Signature)
}

type RevokeSessionArgs struct {
	Message   typeddata.SessionKeyRevoke `json:"message"`
	Signature hexutil.Bytes              `json:"signature"`
}

// RevokeSession revokes a session key with the owner's signature.
func (s *Service) RevokeSession(_ *http.Request, args *RevokeSessionArgs, _ *EmptyReply) error {
	s.vm.log.Debug("API called",
		log.String("service", "space"),
		log.String("method", "revokeSession"),
		log.Stringer("owner", args.Message.Owner),
	)
	return s.vm.RevokeSession(&args.Message, args.Signature)
}

// RevokeSessionWithSessionKey revokes a session key with its own
// signature.
func (s *Service) RevokeSessionWithSessionKey(_ *http.Request, args *RevokeSessionArgs, _ *EmptyReply) error {
	s.vm.log.Debug("API called",
		log.String("service", "space"),
		log.String("method", "revokeSessionWithSessionKey"),
		log.Stringer("owner", args.Message.Owner),
	)
	return s.vm.RevokeSessionWithSessionKey(&args.Message, args.Signature)
}

type IsSessionLiveArgs struct {
	Owner            account.Account   `json:"owner"`
	SessionPublicKey account.PublicKey `json:"sessionPublicKey"`
}

type IsSessionLiveReply struct {
	Live      bool        `json:"live"`
	State     string      `json:"state"`
	ExpiresAt json.Uint64 `json:"expiresAt"`
}

func (s *Service) IsSessionLive(_ *http.Request, args *IsSessionLiveArgs, reply *IsSessionLiveReply) error {
	if err := s.vm.ready(); err != nil {
		return err
	}
	entry, err := s.vm.sessions.Entry(args.Owner, args.SessionPublicKey)
	if err != nil {
		return err
	}
	now := s.vm.clock.Unix()
	reply.Live = entry.IsLive(now)
	reply.State = entry.State(now).String()
	if entry != nil {
		reply.ExpiresAt = json.Uint64(entry.ExpiresAt)
	}
	return nil
}

type ProposeArgs struct {
	Message typeddata.Propose `json:"message"`
	Proof   auth.Proof        `json:"proof"`
}

type ProposeReply struct {
	ProposalID json.Uint64 `json:"proposalId"`
}

func (s *Service) Propose(r *http.Request, args *ProposeArgs, reply *ProposeReply) error {
	s.vm.log.Debug("API called",
		log.String("service", "space"),
		log.String("method", "propose"),
		log.Stringer("space", args.Message.Space),
	)
	proposalID, err := s.vm.Propose(r.Context(), &args.Message, args.Proof)
	if err != nil {
		return err
	}
	reply.ProposalID = json.Uint64(proposalID)
	return nil
}

type VoteArgs struct {
	Message typeddata.Vote `json:"message"`
	Proof   auth.Proof     `json:"proof"`
}

func (s *Service) Vote(r *http.Request, args *VoteArgs, _ *EmptyReply) error {
	s.vm.log.Debug("API called",
		log.String("service", "space"),
		log.String("method", "vote"),
		log.Stringer("space", args.Message.Space),
		log.Uint64("proposalID", args.Message.ProposalID),
	)
	return s.vm.Vote(r.Context(), &args.Message, args.Proof)
}

type UpdateProposalArgs struct {
	Message typeddata.UpdateProposal `json:"message"`
	Proof   auth.Proof               `json:"proof"`
}

func (s *Service) UpdateProposal(r *http.Request, args *UpdateProposalArgs, _ *EmptyReply) error {
	s.vm.log.Debug("API called",
		log.String("service", "space"),
		log.String("method", "updateProposal"),
		log.Stringer("space", args.Message.Space),
		log.Uint64("proposalID", args.Message.ProposalID),
	)
	return s.vm.UpdateProposal(r.Context(), &args.Message, args.Proof)
}

type ProposalArgs struct {
	Space      ids.ID      `json:"space"`
	ProposalID json.Uint64 `json:"proposalId"`
}

type ExecuteReply struct {
	Finalization *proposal.Finalization `json:"finalization"`
}

// Execute finalizes a proposal. Anyone may call it once voting has closed.
func (s *Service) Execute(r *http.Request, args *ProposalArgs, reply *ExecuteReply) error {
	s.vm.log.Debug("API called",
		log.String("service", "space"),
		log.String("method", "execute"),
		log.Stringer("space", args.Space),
		log.Uint64("proposalID", uint64(args.ProposalID)),
	)
	fin, err := s.vm.Execute(r.Context(), args.Space, uint64(args.ProposalID))
	if err != nil {
		return err
	}
	reply.Finalization = fin
	return nil
}

type GetProposalReply struct {
	Proposal *space.Record `json:"proposal"`
}

func (s *Service) GetProposal(_ *http.Request, args *ProposalArgs, reply *GetProposalReply) error {
	record, err := s.vm.Proposal(args.Space, uint64(args.ProposalID))
	if err != nil {
		return err
	}
	reply.Proposal = record
	return nil
}

type GetVoteArgs struct {
	Space      ids.ID          `json:"space"`
	ProposalID json.Uint64     `json:"proposalId"`
	Voter      account.Account `json:"voter"`
}

type GetVoteReply struct {
	Voted  bool            `json:"voted"`
	Choice proposal.Choice `json:"choice"`
}

func (s *Service) GetVote(_ *http.Request, args *GetVoteArgs, reply *GetVoteReply) error {
	sp, err := s.vm.space(args.Space)
	if err != nil {
		return err
	}
	reply.Choice, reply.Voted, err = sp.VoteOf(uint64(args.ProposalID), args.Voter)
	return err
}

type GetSessionReply struct {
	Entry *session.Entry `json:"entry"`
}

// GetSession returns the stored session entry, or null if none exists.
func (s *Service) GetSession(_ *http.Request, args *IsSessionLiveArgs, reply *GetSessionReply) error {
	if err := s.vm.ready(); err != nil {
		return err
	}
	entry, err := s.vm.sessions.Entry(args.Owner, args.SessionPublicKey)
	if err != nil {
		return err
	}
	reply.Entry = entry
	return nil
}
