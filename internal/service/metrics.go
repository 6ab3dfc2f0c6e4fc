package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Checkout outcomes.
const (
	checkoutSucceeded = "success"
	checkoutRejected  = "rejected"
	checkoutFailed    = "error"
)

var (
	checkoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Checkout attempts by result.",
	}, []string{"result"})

	orderTotalCents = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_order_total_cents",
		Help:    "Grand total of placed orders in minor currency units.",
		Buckets: prometheus.ExponentialBuckets(500, 2, 12),
	})

	orderStatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_status_transitions_total",
		Help: "Applied order status transitions by target status.",
	}, []string{"status"})
)
