package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 账务核心指标，/metrics 端点暴露
var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "webmart",
		Subsystem: "payment",
		Name:      "webhook_events_total",
		Help:      "Payment webhook events by outcome.",
	}, []string{"outcome"})

	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "webmart",
		Subsystem: "ledger",
		Name:      "settlements_total",
		Help:      "Order commission settlements by outcome.",
	}, []string{"outcome"})

	SettlementAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "webmart",
		Subsystem: "ledger",
		Name:      "settlement_commission_amount_total",
		Help:      "Total commission amount credited.",
	})

	ReconcileDrift = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "webmart",
		Subsystem: "ledger",
		Name:      "reconcile_drift_last",
		Help:      "Absolute balance drift found by the last reconcile run.",
	})

	ReconcileAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "webmart",
		Subsystem: "ledger",
		Name:      "reconcile_alerts_total",
		Help:      "Balance drift alerts raised by reconciliation.",
	})

	Payouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "webmart",
		Subsystem: "ledger",
		Name:      "payouts_total",
		Help:      "Withdrawal payouts by outcome.",
	}, []string{"outcome"})
)
