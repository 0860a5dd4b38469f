package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics структура для метрик Prometheus
type Metrics struct {
	UpdateProcessingTime prometheus.Histogram
	CommandsProcessed    *prometheus.CounterVec
	ErrorsTotal          prometheus.Counter
	RateLimited          prometheus.Counter
	BookingsCreated      *prometheus.CounterVec
	ExpensesSaved        *prometheus.CounterVec
}

// NewMetrics registers the bot metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "telegram_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),

		CommandsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_commands_processed_total",
			Help: "Commands and callbacks handled, by name",
		}, []string{"command"}),

		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_errors_total",
			Help: "Panics recovered while handling updates",
		}),

		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_rate_limited_total",
			Help: "Updates dropped by the per-user rate limit",
		}),

		BookingsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_bookings_created_total",
			Help: "Total number of bookings created",
		}, []string{"service"}),

		ExpensesSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_expenses_saved_total",
			Help: "Expenses created or updated from chat",
		}, []string{"action"}),
	}
}

func (m *Metrics) command(name string) {
	if m == nil {
		return
	}
	m.CommandsProcessed.WithLabelValues(name).Inc()
}
