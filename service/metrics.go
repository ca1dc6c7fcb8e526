package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type metrics struct {
	registry        *prometheus.Registry
	rowsWritten     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	expensesHandled *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	m := &metrics{
		registry: registry,
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomies",
			Name:      "settlement_rows_written_total",
			Help:      "Settlement rows written, by whether the counterpart row was written too.",
		}, []string{"kind"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomies",
			Name:      "ledger_rejections_total",
			Help:      "Ledger operations rejected before reaching the store.",
		}, []string{"operation", "reason"}),
		expensesHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomies",
			Name:      "expenses_handled_total",
			Help:      "Expenses turned into settlements, by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(m.rowsWritten, m.rejections, m.expensesHandled, collectors.NewGoCollector())
	return m
}
