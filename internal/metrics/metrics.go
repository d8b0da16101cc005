// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus counters for the hitreestat CLI. The
// core hitree package never imports this - metrics are wired in from
// outside, via the Hooks callbacks and the results of Add, so the library
// stays free of an
// observability dependency it doesn't need itself.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors bundles the counters hitreestat updates: AggregationsTotal from
// its Aggregate hook, LeavesTotal from the Hit each Add returns.
type Collectors struct {
	LeavesTotal       prometheus.Counter
	AggregationsTotal *prometheus.CounterVec
}

// New registers the hitree collectors against reg.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		LeavesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hitree_leaves_total",
			Help: "New leaf networks created by Add calls, including ones immediately folded into an aggregate.",
		}),
		AggregationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hitree_aggregations_total",
			Help: "Subtree collapses, labeled by the checkpoint prefix length they fired at.",
		}, []string{"family", "depth"}),
	}
}
