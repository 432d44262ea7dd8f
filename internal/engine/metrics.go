// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	MutationsTotal   *prometheus.CounterVec
	QueriesTotal     *prometheus.CounterVec
	DirectoryUsers   prometheus.Gauge
	WhitelistEntries prometheus.Gauge
}

// NewMetrics creates the engine collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiergate_mutations_total",
				Help: "Total number of engine mutations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiergate_queries_total",
				Help: "Total number of engine queries by operation",
			},
			[]string{"operation"},
		),
		DirectoryUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tiergate_directory_users",
			Help: "Number of user records in the directory",
		}),
		WhitelistEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tiergate_whitelist_entries",
			Help: "Number of whitelisted addresses, permanent and dynamic",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.MutationsTotal, m.QueriesTotal, m.DirectoryUsers, m.WhitelistEntries)
	}
	return m
}

func (m *Metrics) mutation(operation string, outcome Outcome) {
	m.MutationsTotal.WithLabelValues(operation, string(outcome)).Inc()
}

func (m *Metrics) query(operation string) {
	m.QueriesTotal.WithLabelValues(operation).Inc()
}
