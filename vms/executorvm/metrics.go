// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executorvm

import (
	"errors"

	"github.com/luxfi/metric"

	utilmetric "github.com/luxfi/governance/utils/metric"
	"github.com/luxfi/governance/vms/executorvm/executor"
)

type metrics struct {
	utilmetric.APIInterceptor

	deliveries metric.Counter
	rejected   metric.Counter
	executions metric.CounterVec
	calls      metric.Counter
}

func newMetrics(registry metric.Registry) (*metrics, error) {
	interceptor, err := utilmetric.NewAPIInterceptor(registry)
	if err != nil {
		return nil, err
	}

	m := &metrics{
		APIInterceptor: interceptor,
		deliveries: metric.NewCounter(metric.CounterOpts{
			Name: "deliveries",
			Help: "Number of relay envelopes accepted",
		}),
		rejected: metric.NewCounter(metric.CounterOpts{
			Name: "rejected_deliveries",
			Help: "Number of relay envelopes rejected",
		}),
		executions: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "executions",
				Help: "Number of execution attempts by result",
			},
			[]string{"result"},
		),
		calls: metric.NewCounter(metric.CounterOpts{
			Name: "applied_calls",
			Help: "Number of payload calls applied",
		}),
	}
	err = errors.Join(
		registry.Register(metric.AsCollector(m.deliveries)),
		registry.Register(metric.AsCollector(m.rejected)),
		registry.Register(metric.AsCollector(m.executions)),
		registry.Register(metric.AsCollector(m.calls)),
	)
	return m, err
}

// executionResult labels an execution outcome by the gateway error kind.
func executionResult(err error) string {
	switch {
	case err == nil:
		return "executed"
	case errors.Is(err, executor.ErrPayloadMismatch):
		return "payload_mismatch"
	case errors.Is(err, executor.ErrVotingPeriodNotExceeded):
		return "voting_open"
	case errors.Is(err, executor.ErrQuorumNotMet):
		return "quorum_not_met"
	case errors.Is(err, executor.ErrAlreadyExecuted):
		return "already_executed"
	case errors.Is(err, executor.ErrCallFailed):
		return "call_failed"
	default:
		return "rejected"
	}
}
