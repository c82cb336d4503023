package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_reservations_total",
			Help: "Total number of class reservations",
		},
		[]string{"outcome"},
	)

	CancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymflow_cancellations_total",
			Help: "Total number of reservation cancellations",
		},
	)

	WaitlistPromotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymflow_waitlist_promotions_total",
			Help: "Total number of waitlist promotions",
		},
	)

	MembershipPurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_membership_purchases_total",
			Help: "Total number of membership purchases",
		},
		[]string{"method"},
	)

	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_payment_reconciliations_total",
			Help: "Total number of payment webhook reconciliations",
		},
		[]string{"result"},
	)

	PaymentRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_payment_retries_total",
			Help: "Total number of payment retry attempts",
		},
		[]string{"outcome"},
	)

	NotificationsQueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_notifications_queued_total",
			Help: "Total number of notifications queued",
		},
		[]string{"kind", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gymflow_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordReservation(outcome string) {
	ReservationsTotal.WithLabelValues(outcome).Inc()
}

func RecordCancellation() {
	CancellationsTotal.Inc()
}

func RecordPromotion() {
	WaitlistPromotionsTotal.Inc()
}

func RecordPurchase(method string) {
	MembershipPurchasesTotal.WithLabelValues(method).Inc()
}

func RecordReconciliation(result string) {
	ReconciliationsTotal.WithLabelValues(result).Inc()
}

func RecordPaymentRetry(outcome string) {
	PaymentRetriesTotal.WithLabelValues(outcome).Inc()
}

func RecordNotification(kind, status string) {
	NotificationsQueuedTotal.WithLabelValues(kind, status).Inc()
}
