// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package spacevm

import (
	"errors"

	"github.com/luxfi/metric"

	utilmetric "github.com/luxfi/governance/utils/metric"
)

const (
	resultAccepted = "accepted"
	resultRejected = "rejected"
)

type metrics struct {
	utilmetric.APIInterceptor

	actions   metric.CounterVec
	finalized metric.CounterVec
}

func newMetrics(registry metric.Registry) (*metrics, error) {
	interceptor, err := utilmetric.NewAPIInterceptor(registry)
	if err != nil {
		return nil, err
	}

	m := &metrics{
		APIInterceptor: interceptor,
		actions: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "actions",
				Help: "Number of authenticated actions by kind and result",
			},
			[]string{"action", "result"},
		),
		finalized: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "finalized_proposals",
				Help: "Number of proposals finalized by execution strategy",
			},
			[]string{"strategy"},
		),
	}
	err = errors.Join(
		registry.Register(metric.AsCollector(m.actions)),
		registry.Register(metric.AsCollector(m.finalized)),
	)
	return m, err
}

func (m *metrics) observe(action string, err error) {
	result := resultAccepted
	if err != nil {
		result = resultRejected
	}
	m.actions.WithLabelValues(action, result).Inc()
}
