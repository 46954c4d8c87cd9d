// Package metrics owns the prometheus collectors for the financial core.
// The module registers everything on its own registry; exposing /metrics is
// the host process's concern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	registry *prometheus.Registry

	EntriesPosted     prometheus.Counter
	EntriesCancelled  prometheus.Counter
	InvoicesIssued    prometheus.Counter
	PaymentsRecorded  *prometheus.CounterVec
	PaymentsCancelled prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EntriesPosted: factory.NewCounter(prometheus.CounterOpts{
			Name: "schoolfin_journal_entries_posted_total",
			Help: "Journal entries transitioned to posted.",
		}),
		EntriesCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "schoolfin_journal_entries_cancelled_total",
			Help: "Journal entries cancelled, including reversals of posted entries.",
		}),
		InvoicesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "schoolfin_invoices_issued_total",
			Help: "Invoices issued to students.",
		}),
		PaymentsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolfin_payments_recorded_total",
			Help: "Payments recorded, by method.",
		}, []string{"method"}),
		PaymentsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "schoolfin_payments_cancelled_total",
			Help: "Completed payments reversed.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
