package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters and histograms for the booking pipeline. Registered once via
// promauto; exposed on /metrics through Handler.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanderly_http_requests_total",
		Help: "Total HTTP requests by method, path and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wanderly_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HoldsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wanderly_inventory_holds_granted_total",
		Help: "Capacity holds successfully placed",
	})

	HoldsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wanderly_inventory_holds_rejected_total",
		Help: "Hold attempts rejected because capacity was exhausted",
	})

	HoldsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wanderly_inventory_holds_released_total",
		Help: "Holds released back to the pool",
	})

	IntentsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wanderly_intents_expired_total",
		Help: "Reservation intents expired by the sweeper",
	})

	BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wanderly_bookings_confirmed_total",
		Help: "Bookings confirmed after successful payment",
	})

	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wanderly_bookings_cancelled_total",
		Help: "Bookings cancelled by the traveller or settlement timeout",
	})

	PaymentAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanderly_payment_attempts_total",
		Help: "Payment charge attempts by method and outcome",
	}, []string{"method", "status"})

	PaymentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wanderly_payment_duration_seconds",
		Help:    "Time spent charging a payment, including retries",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wanderly_sweep_duration_seconds",
		Help:    "Duration of one expiry sweep pass",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
