package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OffersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_submitted_total",
		Help: "Total number of offer proposals submitted",
	})

	OffersAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_accepted_total",
		Help: "Total number of offer proposals accepted",
	})

	OffersDeclinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_declined_total",
		Help: "Total number of offer proposals declined",
	})

	OffersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offers_failed_total",
		Help: "Total number of rejected offer submissions",
	}, []string{"reason"})

	TransactionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_created_total",
		Help: "Total number of barter transactions created",
	})

	TransactionsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_completed_total",
		Help: "Total number of barter transactions completed",
	})

	TransactionsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_cancelled_total",
		Help: "Total number of barter transactions cancelled",
	})

	TransactionsDisputedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_disputed_total",
		Help: "Total number of barter transactions moved to dispute",
	})

	TransactionsAutoResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transactions_auto_resolved_total",
		Help: "Total number of transactions resolved by the time-based check",
	}, []string{"rule"})

	ConfirmationAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confirmation_attempts_total",
		Help: "Total number of receipt confirmation attempts",
	})

	ConfirmationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confirmation_failures_total",
		Help: "Total number of failed receipt confirmations",
	}, []string{"reason"})

	TrackingLookupLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracking_lookup_latency_seconds",
		Help:    "Latency of courier tracking lookups",
		Buckets: prometheus.DefBuckets,
	})

	TrackingFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_fallback_total",
		Help: "Total number of tracking lookups served by the simulated fallback",
	}, []string{"courier"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
