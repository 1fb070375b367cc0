package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutTotal counts checkout attempts by payment method and outcome.
	CheckoutTotal *prometheus.CounterVec
	// CheckoutDuration records end-to-end checkout composition latency in milliseconds.
	CheckoutDuration *prometheus.HistogramVec
	// GatewayOrderTotal counts payment-gateway order creation outcomes.
	GatewayOrderTotal *prometheus.CounterVec
	// SettlementTotal counts post-commit settlement side-effect outcomes.
	SettlementTotal *prometheus.CounterVec
	// SettlementReconciliation counts orders flagged for manual reconciliation.
	SettlementReconciliation prometheus.Counter
	// PaymentWebhookTotal counts inbound payment webhook processing outcomes.
	PaymentWebhookTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout attempts by payment method and outcome.",
		}, []string{"method", "result"})
		CheckoutDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_ms",
			Help:      "Checkout composition latency distribution in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method"})
		GatewayOrderTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_order_total",
			Help:      "Count of payment-gateway order creation outcomes.",
		}, []string{"provider", "result"})
		SettlementTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_total",
			Help:      "Count of post-commit settlement outcomes by step.",
		}, []string{"step", "result"})
		SettlementReconciliation = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_reconciliation_total",
			Help:      "Number of orders flagged for manual reconciliation.",
		})
		PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed payment webhooks by outcome.",
		}, []string{"provider", "result"})

		mustRegisterCollector(reg, CheckoutTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CheckoutDuration = v
			}
		})
		mustRegisterCollector(reg, GatewayOrderTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				GatewayOrderTotal = v
			}
		})
		mustRegisterCollector(reg, SettlementTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SettlementTotal = v
			}
		})
		mustRegisterCollector(reg, SettlementReconciliation, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SettlementReconciliation = v
			}
		})
		mustRegisterCollector(reg, PaymentWebhookTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentWebhookTotal = v
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
