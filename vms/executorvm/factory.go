// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executorvm

import (
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/governance/vms/executorvm/config"
)

// Factory creates anchor VM instances.
type Factory struct {
	config.Config
}

func (f *Factory) New(logger log.Logger, registry metric.Registry) (*VM, error) {
	return &VM{
		Config:   f.Config,
		log:      logger,
		registry: registry,
	}, nil
}

// NewFactory creates a new anchor VM factory with the given configuration.
func NewFactory(cfg config.Config) *Factory {
	return &Factory{Config: cfg}
}
