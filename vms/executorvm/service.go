// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executorvm

import (
	"net/http"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/log"

	"github.com/luxfi/governance/components/proposal"
	"github.com/luxfi/governance/components/relay"
	"github.com/luxfi/governance/vms/executorvm/executor"
	"github.com/luxfi/governance/vms/executorvm/payload"
)

// Service is the JSON-RPC API of the anchor chain, registered as
// "executor".
type Service struct {
	vm *VM
}

type EmptyReply struct{}

type DeliverArgs struct {
	Envelope hexutil.Bytes `json:"envelope"`
}

// Deliver accepts a relay envelope submitted by an off-chain relayer.
func (s *Service) Deliver(r *http.Request, args *DeliverArgs, _ *EmptyReply) error {
	env, err := relay.ParseEnvelope(args.Envelope)
	if err != nil {
		return err
	}
	s.vm.log.Debug("API called",
		log.String("service", "executor"),
		log.String("method", "deliver"),
		log.Stringer("envelopeID", env.ID()),
	)
	return s.vm.Deliver(r.Context(), env)
}

type ExecuteArgs struct {
	Finalization proposal.Finalization `json:"finalization"`
	Payload      payload.Payload       `json:"payload"`
}

func (s *Service) Execute(r *http.Request, args *ExecuteArgs, _ *EmptyReply) error {
	s.vm.log.Debug("API called",
		log.String("service", "executor"),
		log.String("method", "execute"),
		log.Stringer("ref", args.Finalization.Ref),
	)
	return s.vm.Execute(r.Context(), &args.Finalization, &args.Payload)
}

type GetRecordArgs struct {
	Ref proposal.Ref `json:"ref"`
}

type GetRecordReply struct {
	Record *executor.Record `json:"record"`
}

func (s *Service) GetRecord(_ *http.Request, args *GetRecordArgs, reply *GetRecordReply) error {
	record, err := s.vm.Record(args.Ref)
	if err != nil {
		return err
	}
	reply.Record = record
	return nil
}

type GetBalanceArgs struct {
	Address common.Address `json:"address"`
}

type GetBalanceReply struct {
	Balance string `json:"balance"`
}

func (s *Service) GetBalance(_ *http.Request, args *GetBalanceArgs, reply *GetBalanceReply) error {
	balance, err := s.vm.Balance(args.Address)
	if err != nil {
		return err
	}
	reply.Balance = balance.Dec()
	return nil
}

type GetParameterArgs struct {
	Target common.Address `json:"target"`
	Key    common.Hash    `json:"key"`
}

type GetParameterReply struct {
	Value hexutil.Bytes `json:"value"`
}

// GetParameter reads a value written by an executed ParameterStore call.
func (s *Service) GetParameter(_ *http.Request, args *GetParameterArgs, reply *GetParameterReply) error {
	value, err := s.vm.Parameter(args.Target, args.Key)
	if err != nil {
		return err
	}
	reply.Value = value
	return nil
}
