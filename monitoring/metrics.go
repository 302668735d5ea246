package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	viewResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_view_resolutions_total",
			Help: "Purchase view resolutions per settled state",
		},
		[]string{"state"},
	)

	checkoutSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Checkout session attempts per outcome",
		},
		[]string{"status"},
	)

	paymentRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_records_total",
			Help: "Payment record writes per outcome",
		},
		[]string{"status"},
	)

	pendingCheckouts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_checkout_sessions_total",
			Help: "Current number of open checkout dialogs",
		},
	)
)

// TrackResolution counts one settled purchase view resolution.
func TrackResolution(state string) {
	viewResolutions.WithLabelValues(state).Inc()
}

// TrackCheckout counts one checkout session attempt (opened,
// unavailable, failed, cancelled).
func TrackCheckout(status string) {
	checkoutSessions.WithLabelValues(status).Inc()
}

// TrackPayment counts one payment record write attempt (recorded,
// insert_failed, signature_mismatch).
func TrackPayment(status string) {
	paymentRecords.WithLabelValues(status).Inc()
}

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	// Start metrics collection
	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.collectPendingCheckouts(context.Background())
	}
}

func (m *Monitor) collectPendingCheckouts(ctx context.Context) {
	keys, err := m.redis.Keys(ctx, "checkout:pending:*").Result()
	if err != nil {
		return
	}
	pendingCheckouts.Set(float64(len(keys)))
}
