// Package metrics exposes the prometheus collectors for the DocVault
// core. The exhausted-anchor-job counter is the operational alert
// channel: alerting rules page on any increase.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AnchorAttemptsTotal  prometheus.Counter
	AnchorConfirmedTotal prometheus.Counter
	AnchorExhaustedTotal prometheus.Counter
	DeletionsTotal       prometheus.Counter
	DeletionDenialsTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AnchorAttemptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "docvault_anchor_attempts_total",
			Help: "Total number of anchor submission attempts",
		}),
		AnchorConfirmedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "docvault_anchor_confirmed_total",
			Help: "Total number of anchor jobs confirmed on the ledger",
		}),
		AnchorExhaustedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "docvault_anchor_exhausted_total",
			Help: "Total number of anchor jobs that exhausted their attempt budget",
		}),
		DeletionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "docvault_deletions_total",
			Help: "Total number of completed document deletions",
		}),
		DeletionDenialsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_deletion_denials_total",
			Help: "Total number of denied deletion attempts by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) IncrementDeletionDenial(reason string) {
	m.DeletionDenialsTotal.WithLabelValues(reason).Inc()
}
