// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package spacevm implements the settlement chain VM. It hosts the session
// key registry, the authenticator and the spaces it is enabled on, and
// relays finalized proposals to the anchor chain.
package spacevm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/utils/json"
	"github.com/luxfi/version"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/governance/components/proposal"
	"github.com/luxfi/governance/components/relay"
	"github.com/luxfi/governance/utils/timer/mockable"
	"github.com/luxfi/governance/vms/spacevm/auth"
	"github.com/luxfi/governance/vms/spacevm/config"
	"github.com/luxfi/governance/vms/spacevm/session"
	"github.com/luxfi/governance/vms/spacevm/space"
	"github.com/luxfi/governance/vms/spacevm/typeddata"
)

const Name = "spacevm"

var (
	Version = &version.Semantic{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}

	sessionPrefix = []byte("session")
	spacePrefix   = []byte("space")

	errShuttingDown   = errors.New("VM is shutting down")
	errNotInitialized = errors.New("VM is not initialized")
	errNoReceiver     = errors.New("relayed execution needs a receiver")

	ErrUnknownSpace = errors.New("unknown space")
)

// VM is the settlement chain VM.
type VM struct {
	config.Config

	log      log.Logger
	registry metric.Registry
	db       database.Database
	clock    mockable.Clock
	metrics  *metrics

	sessions *session.Registry
	auth     *auth.Authenticator
	spaces   map[ids.ID]*space.Space
	outbox   *relay.Outbox
	channel  *relay.Channel

	rpcServer *rpc.Server

	cancel   context.CancelFunc
	relaying *errgroup.Group

	shutdownLock sync.RWMutex
	initialized  bool
	shuttingDown bool
}

// Initialize opens the VM state in db. configBytes, when present, replace
// the factory configuration. receiver is where relayed finalizations are
// delivered; it may be nil if no space relays.
func (vm *VM) Initialize(
	ctx context.Context,
	db database.Database,
	configBytes []byte,
	receiver relay.Receiver,
) error {
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
	vm.sessions = session.NewRegistry(
		vm.log,
		prefixdb.New(sessionPrefix, db),
		vm.Domain.Domain(),
		vm.SessionCacheSize,
	)
	vm.auth = auth.New(vm.log, vm.sessions)

	var sink space.Sink
	if vm.Config.Relays() {
		if receiver == nil {
			return errNoReceiver
		}
		vm.channel = relay.NewChannel(vm.log, receiver, vm.Relay.Capacity, vm.Relay.RetryInterval)
		vm.outbox = relay.NewOutbox(
			vm.log,
			vm.NetworkID,
			vm.ChainID,
			vm.Relay.AnchorChainID,
			vm.Relay.RelayerKey,
			vm.channel,
		)
		sink = vm.outbox
	}

	spaceDB := prefixdb.New(spacePrefix, db)
	vm.spaces = make(map[ids.ID]*space.Space, len(vm.Spaces))
	for _, cfg := range vm.Spaces {
		s, err := space.New(vm.log, prefixdb.New(cfg.ID[:], spaceDB), vm.ChainID, cfg, sink)
		if err != nil {
			return err
		}
		vm.spaces[cfg.ID] = s
		vm.auth.Enable(cfg.ID, s)
	}

	if err := vm.initializeHTTPHandlers(); err != nil {
		return fmt.Errorf("failed to initialize HTTP handlers: %w", err)
	}

	if vm.channel != nil {
		var relayCtx context.Context
		relayCtx, vm.cancel = context.WithCancel(ctx)
		vm.relaying = &errgroup.Group{}
		vm.relaying.Go(func() error {
			return vm.channel.Run(relayCtx)
		})
	}

	vm.shutdownLock.Lock()
	vm.initialized = true
	vm.shutdownLock.Unlock()

	vm.log.Info("space VM initialized",
		log.String("version", Version.String()),
		log.Stringer("chainID", vm.ChainID),
		log.Int("spaces", len(vm.spaces)),
		log.Bool("relaying", vm.outbox != nil),
	)
	return nil
}

func (vm *VM) RegisterSession(msg *typeddata.SessionKeyAuth, sig []byte) error {
	if err := vm.ready(); err != nil {
		return err
	}
	err := vm.sessions.RegisterWithOwnerSig(vm.clock.Unix(), msg, sig)
	vm.metrics.observe("registerSession", err)
	return err
}

func (vm *VM) RevokeSession(msg *typeddata.SessionKeyRevoke, sig []byte) error {
	if err := vm.ready(); err != nil {
		return err
	}
	err := vm.sessions.RevokeWithOwnerSig(vm.clock.Unix(), msg, sig)
	vm.metrics.observe("revokeSession", err)
	return err
}

func (vm *VM) RevokeSessionWithSessionKey(msg *typeddata.SessionKeyRevoke, sig []byte) error {
	if err := vm.ready(); err != nil {
		return err
	}
	err := vm.sessions.RevokeWithSessionKeySig(vm.clock.Unix(), msg, sig)
	vm.metrics.observe("revokeSessionWithSessionKey", err)
	return err
}

func (vm *VM) Propose(ctx context.Context, msg *typeddata.Propose, proof auth.Proof) (uint64, error) {
	if err := vm.ready(); err != nil {
		return 0, err
	}
	proposalID, err := vm.auth.AuthenticatePropose(ctx, vm.clock.Unix(), msg, proof)
	vm.metrics.observe("propose", err)
	return proposalID, err
}

func (vm *VM) Vote(ctx context.Context, msg *typeddata.Vote, proof auth.Proof) error {
	if err := vm.ready(); err != nil {
		return err
	}
	err := vm.auth.AuthenticateVote(ctx, vm.clock.Unix(), msg, proof)
	vm.metrics.observe("vote", err)
	return err
}

func (vm *VM) UpdateProposal(ctx context.Context, msg *typeddata.UpdateProposal, proof auth.Proof) error {
	if err := vm.ready(); err != nil {
		return err
	}
	err := vm.auth.AuthenticateUpdateProposal(ctx, vm.clock.Unix(), msg, proof)
	vm.metrics.observe("updateProposal", err)
	return err
}

// Execute finalizes a proposal whose voting window has closed and, for
// relayed strategies, queues it for the anchor chain.
func (vm *VM) Execute(ctx context.Context, spaceID ids.ID, proposalID uint64) (*proposal.Finalization, error) {
	s, err := vm.space(spaceID)
	if err != nil {
		return nil, err
	}
	fin, err := s.Execute(ctx, vm.clock.Unix(), proposalID)
	vm.metrics.observe("execute", err)
	if err != nil {
		return nil, err
	}
	cfg := s.Config()
	if exec, ok := cfg.Execution(fin.Proposal.ExecutionStrategy); ok {
		vm.metrics.finalized.WithLabelValues(exec.Kind.String()).Inc()
	}
	return fin, nil
}

func (vm *VM) Proposal(spaceID ids.ID, proposalID uint64) (*space.Record, error) {
	s, err := vm.space(spaceID)
	if err != nil {
		return nil, err
	}
	return s.Proposal(proposalID)
}

func (vm *VM) Space(spaceID ids.ID) (*space.Space, error) {
	return vm.space(spaceID)
}

// Sessions exposes the session key registry.
func (vm *VM) Sessions() *session.Registry {
	return vm.sessions
}

// Clock is the time source every check reads.
func (vm *VM) Clock() *mockable.Clock {
	return &vm.clock
}

// Relayer is the address the anchor inbox must trust, if the VM relays.
func (vm *VM) Relayer() (ids.ShortID, bool) {
	if vm.outbox == nil {
		return ids.ShortEmpty, false
	}
	return vm.outbox.Relayer(), true
}

// Shutdown stops the relay and closes the database.
func (vm *VM) Shutdown(context.Context) error {
	vm.shutdownLock.Lock()
	if vm.shuttingDown {
		vm.shutdownLock.Unlock()
		return nil
	}
	vm.shuttingDown = true
	vm.shutdownLock.Unlock()

	vm.log.Info("shutting down space VM")

	var errs []error
	if vm.cancel != nil {
		vm.cancel()
		errs = append(errs, vm.relaying.Wait())
	}
	if vm.db != nil {
		errs = append(errs, vm.db.Close())
	}
	return errors.Join(errs...)
}

func (*VM) Version(context.Context) (string, error) {
	return Version.String(), nil
}

// HealthCheck returns VM health status. The error is non-nil until the VM
// is initialized and after it starts shutting down.
func (vm *VM) HealthCheck(context.Context) (interface{}, error) {
	err := vm.ready()
	healthy := err == nil

	pending := 0
	if vm.channel != nil {
		pending = vm.channel.Pending()
	}
	return map[string]interface{}{
		"healthy":         healthy,
		"version":         Version.String(),
		"spaces":          len(vm.spaces),
		"pendingRelays":   pending,
		"relayingEnabled": vm.outbox != nil,
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
	return vm.rpcServer.RegisterService(&Service{vm: vm}, "space")
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

func (vm *VM) space(spaceID ids.ID) (*space.Space, error) {
	if err := vm.ready(); err != nil {
		return nil, err
	}
	s, ok := vm.spaces[spaceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSpace, spaceID)
	}
	return s, nil
}
