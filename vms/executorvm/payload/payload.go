// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package payload defines the calls a passed proposal executes on the
// anchor chain and the hash proposals commit to.
package payload

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
)

var (
	ErrUnknownOperation = errors.New("unknown operation")

	callsArguments = mustCallsArguments()
)

type Operation uint8

const (
	OperationCall Operation = iota
	OperationDelegateCall
)

func (o Operation) String() string {
	switch o {
	case OperationCall:
		return "call"
	case OperationDelegateCall:
		return "delegateCall"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(o))
	}
}

type Call struct {
	To        common.Address `json:"to"`
	Value     uint256.Int    `json:"value"`
	Data      hexutil.Bytes  `json:"data"`
	Operation Operation      `json:"operation"`
	Salt      uint256.Int    `json:"salt"`
}

type Payload struct {
	Calls []Call `json:"calls"`
}

func New(calls ...Call) *Payload {
	return &Payload{Calls: calls}
}

func (p *Payload) Verify() error {
	for i, c := range p.Calls {
		if c.Operation > OperationDelegateCall {
			return fmt.Errorf("%w: call %d: %d", ErrUnknownOperation, i, c.Operation)
		}
	}
	return nil
}

// abiCall mirrors tuple(address to,uint256 value,bytes data,uint8 operation,uint256 salt).
type abiCall struct {
	To        common.Address
	Value     *big.Int
	Data      []byte
	Operation uint8
	Salt      *big.Int
}

// Hash is keccak256(abi.encode(calls)).
func (p *Payload) Hash() (common.Hash, error) {
	packed, err := p.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(crypto.Keccak256Hash(packed)), nil
}

// Encode returns the calls ABI-encoded as a single
// tuple(address,uint256,bytes,uint8,uint256)[] argument.
func (p *Payload) Encode() ([]byte, error) {
	calls := make([]abiCall, len(p.Calls))
	for i, c := range p.Calls {
		calls[i] = abiCall{
			To:        c.To,
			Value:     c.Value.ToBig(),
			Data:      c.Data,
			Operation: uint8(c.Operation),
			Salt:      c.Salt.ToBig(),
		}
	}
	packed, err := callsArguments.Pack(calls)
	if err != nil {
		return nil, fmt.Errorf("couldn't encode payload: %w", err)
	}
	return packed, nil
}

func mustCallsArguments() abi.Arguments {
	callsType, err := abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "data", Type: "bytes"},
		{Name: "operation", Type: "uint8"},
		{Name: "salt", Type: "uint256"},
	})
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: callsType}}
}
