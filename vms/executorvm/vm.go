// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package executorvm implements the anchor chain VM. It accepts relayed
// finalizations and executes their payloads through the gateway.
package executorvm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/rpc/v2"
	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/utils/json"
	"github.com/luxfi/version"

	"github.com/luxfi/governance/components/proposal"
	"github.com/luxfi/governance/components/relay"
	"github.com/luxfi/governance/utils/timer/mockable"
	"github.com/luxfi/governance/vms/executorvm/config"
	"github.com/luxfi/governance/vms/executorvm/executor"
	"github.com/luxfi/governance/vms/executorvm/payload"
)

const Name = "executorvm"

var (
	_ relay.Receiver = (*VM)(nil)

	Version = &version.Semantic{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}

	gatewayPrefix = []byte("gateway")
	metaPrefix    = []byte("meta")

	fundedKey = []byte("funded")

	errShuttingDown   = errors.New("VM is shutting down")
	errNotInitialized = errors.New("VM is not initialized")
)

// VM is the anchor chain VM.
type VM struct {
	config.Config

	log      log.Logger
	registry metric.Registry
	db       database.Database
	clock    mockable.Clock
	metrics  *metrics

	gateway   *executor.Gateway
	rpcServer *rpc.Server

	shutdownLock sync.RWMutex
	initialized  bool
	shuttingDown bool
}

// Initialize opens the VM state in db. configBytes, when present, replace
// the factory configuration.
func (vm *VM) Initialize(_ context.Context, db database.Database, configBytes []byte) error {
	if len(configBytes) > 0 {
		cfg, err := config.ParseConfig(configBytes)
		if err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		vm.Config = cfg
	}
	if err := vm.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var err error
	vm.metrics, err = newMetrics(vm.registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	vm.db = db
	handlers := make(map[common.Address]executor.Handler, len(vm.ParameterStores))
	for _, addr := range vm.ParameterStores {
		handlers[addr] = executor.ParameterStore{}
	}
	inbox := relay.NewInbox(vm.NetworkID, vm.SettlementChainID, vm.ChainID, vm.Relayers...)
	vm.gateway, err = executor.New(vm.log, prefixdb.New(gatewayPrefix, db), vm.Config.Gateway(), inbox, handlers)
	if err != nil {
		return err
	}
	if err := vm.fund(prefixdb.New(metaPrefix, db)); err != nil {
		return fmt.Errorf("failed to fund gateway: %w", err)
	}

	if err := vm.initializeHTTPHandlers(); err != nil {
		return fmt.Errorf("failed to initialize HTTP handlers: %w", err)
	}

	vm.shutdownLock.Lock()
	vm.initialized = true
	vm.shutdownLock.Unlock()

	vm.log.Info("executor VM initialized",
		log.String("version", Version.String()),
		log.Stringer("chainID", vm.ChainID),
		log.Stringer("settlementChainID", vm.SettlementChainID),
		log.String("address", vm.Address.Hex()),
		log.Stringer("quorumRule", vm.QuorumRule),
		log.Int("relayers", len(vm.Relayers)),
	)
	return nil
}

// fund credits InitialBalance once per database.
func (vm *VM) fund(meta database.Database) error {
	funded, err := meta.Has(fundedKey)
	if err != nil || funded {
		return err
	}
	if !vm.InitialBalance.IsZero() {
		if err := vm.gateway.Fund(&vm.InitialBalance); err != nil {
			return err
		}
	}
	return meta.Put(fundedKey, []byte{1})
}

// Deliver accepts a relay envelope.
func (vm *VM) Deliver(ctx context.Context, env *relay.Envelope) error {
	if err := vm.ready(); err != nil {
		return err
	}
	if err := vm.gateway.Deliver(ctx, env); err != nil {
		vm.metrics.rejected.Inc()
		return err
	}
	vm.metrics.deliveries.Inc()
	return nil
}

// Execute applies p for a delivered finalization.
func (vm *VM) Execute(ctx context.Context, fin *proposal.Finalization, p *payload.Payload) error {
	if err := vm.ready(); err != nil {
		return err
	}
	err := vm.gateway.Execute(ctx, vm.clock.Unix(), fin, p)
	vm.metrics.executions.WithLabelValues(executionResult(err)).Inc()
	if err != nil {
		return err
	}
	vm.metrics.calls.Add(float64(len(p.Calls)))
	return nil
}

func (vm *VM) Record(ref proposal.Ref) (*executor.Record, error) {
	if err := vm.ready(); err != nil {
		return nil, err
	}
	return vm.gateway.Record(ref)
}

func (vm *VM) Delivered(fin *proposal.Finalization) (bool, error) {
	if err := vm.ready(); err != nil {
		return false, err
	}
	return vm.gateway.Delivered(fin)
}

func (vm *VM) Balance(addr common.Address) (*uint256.Int, error) {
	if err := vm.ready(); err != nil {
		return nil, err
	}
	return vm.gateway.Balance(addr)
}

// Parameter reads key from the parameter store at target. Unset keys are
// empty.
func (vm *VM) Parameter(target common.Address, key common.Hash) ([]byte, error) {
	if err := vm.ready(); err != nil {
		return nil, err
	}
	value, err := vm.gateway.Get(target, key[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

// Clock is the time source every check reads.
func (vm *VM) Clock() *mockable.Clock {
	return &vm.clock
}

// Shutdown closes the database.
func (vm *VM) Shutdown(context.Context) error {
	vm.shutdownLock.Lock()
	if vm.shuttingDown {
		vm.shutdownLock.Unlock()
		return nil
	}
	vm.shuttingDown = true
	vm.shutdownLock.Unlock()

	vm.log.Info("shutting down executor VM")

	if vm.db == nil {
		return nil
	}
	return vm.db.Close()
}

func (*VM) Version(context.Context) (string, error) {
	return Version.String(), nil
}

// HealthCheck returns VM health status. The error is non-nil until the VM
// is initialized and after it starts shutting down.
func (vm *VM) HealthCheck(context.Context) (interface{}, error) {
	err := vm.ready()
	healthy := err == nil

	return map[string]interface{}{
		"healthy":    healthy,
		"version":    Version.String(),
		"address":    vm.Address.Hex(),
		"quorumRule": vm.QuorumRule.String(),
		"relayers":   len(vm.Relayers),
	}, err
}

// CreateHandlers returns HTTP handlers for the VM.
func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	if vm.rpcServer == nil {
		return nil, errNotInitialized
	}
	return map[string]http.Handler{
		"/rpc": vm.rpcServer,
	}, nil
}

func (vm *VM) initializeHTTPHandlers() error {
	vm.rpcServer = rpc.NewServer()
	vm.rpcServer.RegisterCodec(json.NewCodec(), "application/json")
	vm.rpcServer.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	vm.rpcServer.RegisterInterceptFunc(vm.metrics.InterceptRequest)
	vm.rpcServer.RegisterAfterFunc(vm.metrics.AfterRequest)
	return vm.rpcServer.RegisterService(&Service{vm: vm}, "executor")
}

func (vm *VM) ready() error {
	vm.shutdownLock.RLock()
	defer vm.shutdownLock.RUnlock()

	switch {
	case vm.shuttingDown:
		return errShuttingDown
	case !vm.initialized:
		return errNotInitialized
	}
	return nil
}
