// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package health aggregates the health checks of the hosted chains.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/luxfi/log"
	"github.com/luxfi/metric"
)

const (
	// AllTag is implicitly attached to every check.
	AllTag = "all"
	// ApplicationTag marks checks that report on a hosted chain.
	ApplicationTag = "application"
)

var errDuplicateCheck = errors.New("duplicated health check")

// Checker is implemented by anything that can report its health. A non-nil
// error marks the check as failing.
type Checker interface {
	HealthCheck(context.Context) (interface{}, error)
}

// CheckerFunc adapts a function to a Checker.
type CheckerFunc func(context.Context) (interface{}, error)

func (f CheckerFunc) HealthCheck(ctx context.Context) (interface{}, error) {
	return f(ctx)
}

// Result is the outcome of one check.
type Result struct {
	Details   interface{} `json:"message,omitempty"`
	Error     *string     `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Duration  string      `json:"duration"`
}

// Report is the outcome of every check matching a set of tags.
type Report struct {
	Checks  map[string]Result `json:"checks"`
	Healthy bool              `json:"healthy"`
}

type check struct {
	checker Checker
	tags    []string
}

type Health struct {
	log     log.Logger
	metrics *healthMetrics

	lock   sync.RWMutex
	checks map[string]check
}

func New(logger log.Logger, namespace string, registry metric.Registry) (*Health, error) {
	m, err := newMetrics(namespace, registry)
	if err != nil {
		return nil, err
	}
	return &Health{
		log:     logger,
		metrics: m,
		checks:  make(map[string]check),
	}, nil
}

// RegisterHealthCheck adds checker under name. Every check carries AllTag.
func (h *Health) RegisterHealthCheck(name string, checker Checker, tags ...string) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if _, ok := h.checks[name]; ok {
		return fmt.Errorf("%w: %q", errDuplicateCheck, name)
	}
	if !slices.Contains(tags, AllTag) {
		tags = append(tags, AllTag)
	}
	h.checks[name] = check{
		checker: checker,
		tags:    tags,
	}
	return nil
}

// Check runs every check carrying one of tags, or every check if no tag is
// given.
func (h *Health) Check(ctx context.Context, tags ...string) Report {
	h.lock.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]check, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.lock.RUnlock()
	sort.Strings(names)

	report := Report{
		Checks:  make(map[string]Result, len(names)),
		Healthy: true,
	}
	failing := make(map[string]int)
	for _, name := range names {
		c := checks[name]
		if len(tags) > 0 && !hasAnyTag(c.tags, tags) {
			continue
		}

		start := time.Now()
		details, err := c.checker.HealthCheck(ctx)
		result := Result{
			Details:   details,
			Timestamp: start,
			Duration:  time.Since(start).String(),
		}
		if err != nil {
			msg := err.Error()
			result.Error = &msg
			report.Healthy = false
			for _, tag := range c.tags {
				failing[tag]++
			}
			h.log.Warn("health check failing",
				log.String("name", name),
				log.Err(err),
			)
		}
		report.Checks[name] = result
	}

	if len(tags) == 0 {
		h.metrics.failingChecks.WithLabelValues(AllTag).Set(float64(failing[AllTag]))
		h.metrics.failingChecks.WithLabelValues(ApplicationTag).Set(float64(failing[ApplicationTag]))
	}
	return report
}

// Handler serves the report as JSON. Unhealthy reports use status 503. The
// "tag" query parameter narrows the checks.
func (h *Health) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := h.Check(r.Context(), r.URL.Query()["tag"]...)

		w.Header().Set("Content-Type", "application/json")
		if !report.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(report); err != nil {
			h.log.Debug("failed to write health report", log.Err(err))
		}
	})
}

func hasAnyTag(have, want []string) bool {
	for _, tag := range want {
		if slices.Contains(have, tag) {
			return true
		}
	}
	return false
}
