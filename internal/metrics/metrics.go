package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "taxbook"

const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeError       = "error"
	OutcomeStale       = "stale"
	OutcomeUnavailable = "unavailable"
	OutcomeRejected    = "rejected"
	OutcomeInFlight    = "in_flight"
)

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Outbound REST requests by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	availabilityFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_fetches_total",
			Help:      "Availability fetches by outcome.",
		},
		[]string{"outcome"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_submissions_total",
			Help:      "Booking submissions by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, availabilityFetches, submissions)
	})
}

func IncAPI(endpoint, outcome string) {
	apiRequests.WithLabelValues(endpoint, outcome).Inc()
}

func IncAvailability(outcome string) {
	availabilityFetches.WithLabelValues(outcome).Inc()
}

func IncSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}
