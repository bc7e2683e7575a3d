package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tingle_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tingle_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tingle_transfers_total",
			Help: "Total number of wallet-to-wallet transfers",
		},
		[]string{"category", "status"},
	)

	TransferVolumeKobo = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tingle_transfer_volume_kobo_total",
			Help: "Gross transfer volume in kobo",
		},
		[]string{"category"},
	)

	InsufficientBalanceTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tingle_insufficient_balance_total",
			Help: "Total number of debits rejected for insufficient balance",
		},
	)

	WalletTopUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tingle_wallet_topups_total",
			Help: "Total number of confirmed wallet top-ups",
		},
	)

	WithdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tingle_withdrawals_total",
			Help: "Total number of withdrawal requests by final status",
		},
		[]string{"status"},
	)

	SubscriptionsGrantedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tingle_subscriptions_granted_total",
			Help: "Total number of subscription grants",
		},
		[]string{"kind"}, // new or renewal
	)

	PurchasesGrantedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tingle_purchases_granted_total",
			Help: "Total number of content purchase grants",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tingle_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordTransfer(category, status string, grossKobo int64) {
	TransfersTotal.WithLabelValues(category, status).Inc()
	if status == "completed" {
		TransferVolumeKobo.WithLabelValues(category).Add(float64(grossKobo))
	}
}

func RecordInsufficientBalance() {
	InsufficientBalanceTotal.Inc()
}

func RecordTopUp() {
	WalletTopUpsTotal.Inc()
}

func RecordWithdrawal(status string) {
	WithdrawalsTotal.WithLabelValues(status).Inc()
}

func RecordSubscriptionGrant(kind string) {
	SubscriptionsGrantedTotal.WithLabelValues(kind).Inc()
}

func RecordPurchaseGrant() {
	PurchasesGrantedTotal.Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}
