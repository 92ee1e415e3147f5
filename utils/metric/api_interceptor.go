// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utilmetric

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/metric"
)

// Namespace prefixes the interceptor's metric names.
const Namespace = "api_interceptor"

// APIInterceptor records per-method JSON-RPC metrics. Register its methods
// with rpc.Server.RegisterInterceptFunc and RegisterAfterFunc.
type APIInterceptor interface {
	InterceptRequest(i *rpc.RequestInfo) *http.Request
	AfterRequest(i *rpc.RequestInfo)
}

type contextKey int

const requestTimestampKey contextKey = iota

type apiInterceptor struct {
	requestDurationCount metric.CounterVec
	requestDurationSum   metric.GaugeVec
	requestErrors        metric.CounterVec
}

func NewAPIInterceptor(registry metric.Registry) (APIInterceptor, error) {
	metricsInstance := metric.NewWithRegistry(Namespace, registry)

	return &apiInterceptor{
		requestDurationCount: metricsInstance.NewCounterVec(
			"request_duration_count",
			"Number of times this type of request was made",
			[]string{"method"},
		),
		requestDurationSum: metricsInstance.NewGaugeVec(
			"request_duration_sum",
			"Amount of time in nanoseconds that has been spent handling this type of request",
			[]string{"method"},
		),
		requestErrors: metricsInstance.NewCounterVec(
			"request_error_count",
			"Number of request errors",
			[]string{"method"},
		),
	}, nil
}

func (*apiInterceptor) InterceptRequest(i *rpc.RequestInfo) *http.Request {
	ctx := i.Request.Context()
	ctx = context.WithValue(ctx, requestTimestampKey, time.Now())
	return i.Request.WithContext(ctx)
}

func (a *apiInterceptor) AfterRequest(i *rpc.RequestInfo) {
	timestamp, ok := i.Request.Context().Value(requestTimestampKey).(time.Time)
	if !ok {
		return
	}

	labels := metric.Labels{"method": i.Method}
	a.requestDurationCount.With(labels).Inc()
	a.requestDurationSum.With(labels).Add(float64(time.Since(timestamp)))
	if i.Error != nil {
		a.requestErrors.With(labels).Inc()
	}
}
