package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for HTTP requests
var (
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// Prometheus metrics for business operations
var (
	WalletsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallets_created_total",
			Help: "Total number of wallets created",
		},
	)

	AccountsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "accounts_created_total",
			Help: "Total number of interest accounts created",
		},
	)

	// TransfersTotal counts transfer outcomes: completed, failed, replayed.
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfers_total",
			Help: "Total number of transfer requests by outcome",
		},
		[]string{"outcome"},
	)

	TransferAmountHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transfer_amount",
			Help:    "Distribution of transfer amounts",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		},
	)

	// InterestApplicationsTotal counts daily applications: new, replay.
	InterestApplicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interest_applications_total",
			Help: "Total number of daily interest applications by result",
		},
		[]string{"result"},
	)
)

// RecordTransfer records the outcome of one transfer request.
func RecordTransfer(outcome string) {
	TransfersTotal.WithLabelValues(outcome).Inc()
}

// RecordTransferAmount records the amount of a completed transfer.
func RecordTransferAmount(amount float64) {
	TransferAmountHistogram.Observe(amount)
}

// RecordWalletCreation increments the wallet creation counter.
func RecordWalletCreation() {
	WalletsCreatedTotal.Inc()
}

// RecordAccountCreation increments the account creation counter.
func RecordAccountCreation() {
	AccountsCreatedTotal.Inc()
}

// RecordInterestApplication records one daily interest application.
func RecordInterestApplication(result string) {
	InterestApplicationsTotal.WithLabelValues(result).Inc()
}
