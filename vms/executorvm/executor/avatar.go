// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/governance/vms/executorvm/payload"
)

var (
	balancePrefix = []byte("balance")
	targetPrefix  = []byte("target")

	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrMalformedCall        = errors.New("malformed call data")
)

// Handler is a call target with its own storage.
type Handler interface {
	Call(ctx context.Context, state database.Database, value *uint256.Int, data []byte) error
}

// Avatar is the account that owns the governed assets. It applies
// payload calls against its balances and registered targets. Calls to
// addresses without a handler only move value.
type Avatar struct {
	address  common.Address
	balances database.Database
	targets  database.Database
	handlers map[common.Address]Handler
}

func NewAvatar(address common.Address, db database.Database, handlers map[common.Address]Handler) *Avatar {
	if handlers == nil {
		handlers = make(map[common.Address]Handler)
	}
	return &Avatar{
		address:  address,
		balances: prefixdb.New(balancePrefix, db),
		targets:  prefixdb.New(targetPrefix, db),
		handlers: handlers,
	}
}

func (a *Avatar) Address() common.Address {
	return a.address
}

func (a *Avatar) Apply(ctx context.Context, call payload.Call) error {
	if call.Operation != payload.OperationCall {
		return fmt.Errorf("%w: %s", ErrUnsupportedOperation, call.Operation)
	}
	if !call.Value.IsZero() {
		if err := a.transfer(call.To, &call.Value); err != nil {
			return err
		}
	}
	handler, ok := a.handlers[call.To]
	if !ok {
		return nil
	}
	return handler.Call(ctx, a.State(call.To), &call.Value, call.Data)
}

// State is the storage of the target at addr.
func (a *Avatar) State(addr common.Address) database.Database {
	return prefixdb.New(addr[:], a.targets)
}

func (a *Avatar) Balance(addr common.Address) (*uint256.Int, error) {
	b, err := a.balances.Get(addr[:])
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(b), nil
}

// Credit adds amount to addr.
func (a *Avatar) Credit(addr common.Address, amount *uint256.Int) error {
	balance, err := a.Balance(addr)
	if err != nil {
		return err
	}
	if _, overflow := balance.AddOverflow(balance, amount); overflow {
		return fmt.Errorf("balance of %s overflows", addr)
	}
	return a.setBalance(addr, balance)
}

func (a *Avatar) transfer(to common.Address, amount *uint256.Int) error {
	balance, err := a.Balance(a.address)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, amount)
	}
	balance.Sub(balance, amount)
	if err := a.setBalance(a.address, balance); err != nil {
		return err
	}
	return a.Credit(to, amount)
}

func (a *Avatar) setBalance(addr common.Address, balance *uint256.Int) error {
	b := balance.Bytes32()
	return a.balances.Put(addr[:], b[:])
}

// ParameterStore is a target that records named parameters. Call data is
// a 32-byte key followed by the value.
type ParameterStore struct{}

func (ParameterStore) Call(_ context.Context, state database.Database, _ *uint256.Int, data []byte) error {
	if len(data) < common.HashLength {
		return fmt.Errorf("%w: %d bytes", ErrMalformedCall, len(data))
	}
	return state.Put(data[:common.HashLength], data[common.HashLength:])
}

// ParameterCall builds call data for a ParameterStore.
func ParameterCall(key common.Hash, value []byte) []byte {
	data := make([]byte, 0, common.HashLength+len(value))
	data = append(data, key[:]...)
	return append(data, value...)
}
