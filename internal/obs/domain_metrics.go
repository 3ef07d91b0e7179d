package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SaleLinesTotal counts per-line sale outcomes during checkout.
	SaleLinesTotal *prometheus.CounterVec
	// CheckoutBatchesTotal counts finalized and discarded sale batches.
	CheckoutBatchesTotal *prometheus.CounterVec
	// WalletSettlementsTotal counts wallet settlement outcomes.
	WalletSettlementsTotal *prometheus.CounterVec
	// CheckoutDuration records end-to-end checkout latency in milliseconds.
	CheckoutDuration *prometheus.HistogramVec
	// InvoiceGenerationTotal counts invoice rendering outcomes in the worker.
	InvoiceGenerationTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SaleLinesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_lines_total",
			Help:      "Count of checkout sale lines by outcome and failure reason.",
		}, []string{"result", "reason"})
		CheckoutBatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_batches_total",
			Help:      "Count of sale batches by kind and outcome.",
		}, []string{"kind", "outcome"})
		WalletSettlementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_settlements_total",
			Help:      "Count of wallet settlements by resulting payment status.",
		}, []string{"status"})
		CheckoutDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_ms",
			Help:      "End-to-end checkout latency in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"kind"})
		InvoiceGenerationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_generation_total",
			Help:      "Count of invoice generation attempts by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, SaleLinesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SaleLinesTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutBatchesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutBatchesTotal = v
			}
		})
		mustRegisterCollector(reg, WalletSettlementsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				WalletSettlementsTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CheckoutDuration = v
			}
		})
		mustRegisterCollector(reg, InvoiceGenerationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				InvoiceGenerationTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
