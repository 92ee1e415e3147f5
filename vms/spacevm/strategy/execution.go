// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package strategy

import (
	"errors"
	"fmt"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
)

// AnchorRelayParamsLen is executor address || payload hash.
const AnchorRelayParamsLen = common.AddressLength + common.HashLength

var ErrMalformedRelayParams = errors.New("malformed anchor relay params")

type ExecutionKind uint8

const (
	// ExecutionVanilla finalizes locally without relaying.
	ExecutionVanilla ExecutionKind = iota
	// ExecutionAnchorRelay relays the finalized outcome to an executor
	// gateway on the anchor chain.
	ExecutionAnchorRelay
)

func (k ExecutionKind) String() string {
	switch k {
	case ExecutionVanilla:
		return "vanilla"
	case ExecutionAnchorRelay:
		return "anchorRelay"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Execution is an execution strategy enabled on a space, identified by
// its address.
type Execution struct {
	Address common.Address `serialize:"true" json:"address"`
	Kind    ExecutionKind  `serialize:"true" json:"kind"`
}

func (e Execution) Verify() error {
	if e.Kind > ExecutionAnchorRelay {
		return fmt.Errorf("%w: execution %d", ErrUnknownStrategy, e.Kind)
	}
	return nil
}

// Target resolves the executor and payload hash a proposal commits to
// when created with params under this strategy. Vanilla execution has no
// executor and hashes the params.
func (e Execution) Target(params []byte) (common.Address, common.Hash, error) {
	switch e.Kind {
	case ExecutionVanilla:
		return common.Address{}, common.Hash(crypto.Keccak256Hash(params)), nil
	case ExecutionAnchorRelay:
		return ParseAnchorRelayParams(params)
	default:
		return common.Address{}, common.Hash{}, fmt.Errorf("%w: execution %d", ErrUnknownStrategy, e.Kind)
	}
}

func AnchorRelayParams(executor common.Address, payloadHash common.Hash) []byte {
	params := make([]byte, 0, AnchorRelayParamsLen)
	params = append(params, executor[:]...)
	return append(params, payloadHash[:]...)
}

func ParseAnchorRelayParams(params []byte) (common.Address, common.Hash, error) {
	if len(params) != AnchorRelayParamsLen {
		return common.Address{}, common.Hash{}, fmt.Errorf("%w: %d bytes", ErrMalformedRelayParams, len(params))
	}
	return common.BytesToAddress(params[:common.AddressLength]),
		common.BytesToHash(params[common.AddressLength:]),
		nil
}
