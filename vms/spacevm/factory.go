// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package spacevm

import (
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/governance/vms/spacevm/config"
)

// Factory creates settlement VM instances.
type Factory struct {
	config.Config
}

// New creates a new settlement VM. Metrics are registered on registry
// during Initialize.
func (f *Factory) New(logger log.Logger, registry metric.Registry) (*VM, error) {
	return &VM{
		Config:   f.Config,
		log:      logger,
		registry: registry,
	}, nil
}

// NewFactory creates a new settlement VM factory with the given configuration.
func NewFactory(cfg config.Config) *Factory {
	return &Factory{Config: cfg}
}

// NewDefaultFactory creates a new settlement VM factory with default configuration.
func NewDefaultFactory() *Factory {
	return &Factory{Config: config.DefaultConfig()}
}
