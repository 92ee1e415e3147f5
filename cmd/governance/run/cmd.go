// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/governance/api/health"
	"github.com/luxfi/governance/api/metrics"
	"github.com/luxfi/governance/api/server"
	"github.com/luxfi/governance/vms/executorvm"
	"github.com/luxfi/governance/vms/spacevm"

	executorconfig "github.com/luxfi/governance/vms/executorvm/config"
	spaceconfig "github.com/luxfi/governance/vms/spacevm/config"
)

const (
	spaceAlias    = "space"
	executorAlias = "executor"
)

var (
	spacePrefix    = []byte("space")
	executorPrefix = []byte("executor")

	errAnchorMismatch = errors.New("settlement chain relays to another anchor chain")
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Runs the settlement and anchor chains behind one API server",
		RunE:  runFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func runFunc(c *cobra.Command, args []string) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	return Run(c.Context(), log.NewLogger("governance"), config)
}

// Run serves both chains until ctx is cancelled.
func Run(ctx context.Context, logger log.Logger, config *Config) error {
	db, err := openDB(config.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	gatherer := metrics.NewPrefixGatherer()
	executorReg, err := metrics.MakeAndRegister(gatherer, executorAlias)
	if err != nil {
		return err
	}
	spaceReg, err := metrics.MakeAndRegister(gatherer, spaceAlias)
	if err != nil {
		return err
	}
	apiReg, err := metrics.MakeAndRegister(gatherer, "api")
	if err != nil {
		return err
	}

	anchor, err := executorvm.NewFactory(executorconfig.DefaultConfig()).New(logger, executorReg)
	if err != nil {
		return err
	}
	if err := anchor.Initialize(ctx, prefixdb.New(executorPrefix, db), config.ExecutorConfig); err != nil {
		return fmt.Errorf("couldn't initialize anchor chain: %w", err)
	}
	defer anchor.Shutdown(context.Background())

	settlement, err := spacevm.NewFactory(spaceconfig.DefaultConfig()).New(logger, spaceReg)
	if err != nil {
		return err
	}
	if err := settlement.Initialize(ctx, prefixdb.New(spacePrefix, db), config.SpaceConfig, anchor); err != nil {
		return fmt.Errorf("couldn't initialize settlement chain: %w", err)
	}
	defer settlement.Shutdown(context.Background())

	if err := checkRelay(logger, settlement, anchor); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(config.HTTPHost, strconv.Itoa(int(config.HTTPPort))))
	if err != nil {
		return err
	}
	srv, err := server.New(
		logger,
		listener,
		config.AllowedOrigins,
		config.ShutdownTimeout,
		apiReg,
		server.HTTPConfig{},
	)
	if err != nil {
		_ = listener.Close()
		return err
	}

	if err := addRoutes(ctx, logger, srv, apiReg, gatherer, settlement, anchor); err != nil {
		_ = listener.Close()
		return err
	}

	logger.Info("serving API",
		log.String("address", listener.Addr().String()),
		log.Stringer("settlementChainID", settlement.ChainID),
		log.Stringer("anchorChainID", anchor.ChainID),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Dispatch(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown()
	})
	return g.Wait()
}

func openDB(dataDir string) (database.Database, error) {
	if dataDir == "" {
		return memdb.New(), nil
	}
	return badgerdb.New(dataDir, nil, "", nil)
}

// checkRelay verifies the settlement chain relays to the hosted anchor
// chain and warns if the anchor would drop its envelopes.
func checkRelay(logger log.Logger, settlement *spacevm.VM, anchor *executorvm.VM) error {
	relayer, ok := settlement.Relayer()
	if !ok {
		return nil
	}
	if settlement.Relay.AnchorChainID != anchor.ChainID {
		return fmt.Errorf("%w: %s, hosting %s", errAnchorMismatch, settlement.Relay.AnchorChainID, anchor.ChainID)
	}
	if !slices.Contains(anchor.Relayers, relayer) {
		logger.Warn("anchor chain does not trust the settlement relayer",
			log.Stringer("relayer", relayer),
		)
	}
	return nil
}

func addRoutes(
	ctx context.Context,
	logger log.Logger,
	srv server.Server,
	registry metric.Registry,
	gatherer metric.Gatherer,
	settlement *spacevm.VM,
	anchor *executorvm.VM,
) error {
	checks, err := health.New(logger, "health", registry)
	if err != nil {
		return err
	}
	if err := registerChains(ctx, srv, checks, settlement, anchor); err != nil {
		return err
	}
	if err := srv.AddRoute(checks.Handler(), "health", ""); err != nil {
		return err
	}
	return srv.AddRoute(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}), "metrics", "")
}

type chain interface {
	health.Checker
	CreateHandlers(context.Context) (map[string]http.Handler, error)
}

func registerChains(
	ctx context.Context,
	srv server.Server,
	checks *health.Health,
	settlement *spacevm.VM,
	anchor *executorvm.VM,
) error {
	chains := []struct {
		alias   string
		chainID fmt.Stringer
		vm      chain
	}{
		{spaceAlias, settlement.ChainID, settlement},
		{executorAlias, anchor.ChainID, anchor},
	}
	for _, c := range chains {
		handlers, err := c.vm.CreateHandlers(ctx)
		if err != nil {
			return err
		}
		if err := srv.RegisterChain(c.chainID, c.alias, handlers); err != nil {
			return err
		}
		if err := checks.RegisterHealthCheck(c.alias, c.vm, health.ApplicationTag); err != nil {
			return err
		}
	}
	return nil
}
