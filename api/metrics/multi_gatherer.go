// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics merges the registries of the chains a node hosts into one
// exposition.
package metrics

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/luxfi/metric"
)

var errConflictingFamilies = errors.New("metric families share a name but not a type")

// MultiGatherer is a Gatherer over a set of named gatherers, one per hosted
// chain or node component.
type MultiGatherer interface {
	metric.Gatherer

	// Register adds the outputs of [gatherer] to the results of future calls to
	// Gather under [name].
	Register(name string, gatherer metric.Gatherer) error

	// Deregister removes the gatherer registered under [name]. Returns true if
	// one was found.
	Deregister(name string) bool
}

type multiGatherer struct {
	lock      sync.RWMutex
	names     []string
	gatherers []metric.Gatherer
}

// Gather collects from every registered gatherer. A failing gatherer does not
// hide the others: its error is reported under its name alongside whatever
// the rest produced. Families resolving to the same name are merged.
func (g *multiGatherer) Gather() ([]*metric.MetricFamily, error) {
	g.lock.RLock()
	defer g.lock.RUnlock()

	var (
		errs     []error
		byName   = make(map[string]*metric.MetricFamily)
		families []*metric.MetricFamily
	)
	for i, gatherer := range g.gatherers {
		gathered, err := gatherer.Gather()
		if err != nil {
			errs = append(errs, fmt.Errorf("gathering %q: %w", g.names[i], err))
		}
		for _, family := range gathered {
			existing, ok := byName[family.GetName()]
			if !ok {
				byName[family.GetName()] = family
				families = append(families, family)
				continue
			}
			if existing.GetType() != family.GetType() {
				errs = append(errs, fmt.Errorf("%w: %q", errConflictingFamilies, family.GetName()))
				continue
			}
			existing.Metric = append(existing.Metric, family.Metric...)
		}
	}

	slices.SortFunc(families, func(a, b *metric.MetricFamily) int {
		return strings.Compare(a.GetName(), b.GetName())
	})
	return families, errors.Join(errs...)
}

func (g *multiGatherer) Register(name string, gatherer metric.Gatherer) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	if slices.Contains(g.names, name) {
		return fmt.Errorf("gatherer with name %q already registered", name)
	}

	g.register(name, gatherer)
	return nil
}

func (g *multiGatherer) register(name string, gatherer metric.Gatherer) {
	g.names = append(g.names, name)
	g.gatherers = append(g.gatherers, gatherer)
}

func (g *multiGatherer) Deregister(name string) bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	index := slices.Index(g.names, name)
	if index == -1 {
		return false
	}

	g.names = slices.Delete(g.names, index, index+1)
	g.gatherers = slices.Delete(g.gatherers, index, index+1)
	return true
}

// MakeAndRegister creates a registry whose metrics are gathered under name.
func MakeAndRegister(gatherer MultiGatherer, name string) (metric.Registry, error) {
	reg := metric.NewRegistry()
	if err := gatherer.Register(name, reg); err != nil {
		return nil, fmt.Errorf("couldn't register %q metrics: %w", name, err)
	}
	return reg, nil
}
