package payment

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes payment counters to Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	initiations   *prometheus.CounterVec
	statusChecks  *prometheus.CounterVec
	outcomes      *prometheus.CounterVec
	checkDuration prometheus.Histogram
	activePolls   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		initiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visa_portal",
			Subsystem: "payment",
			Name:      "stk_push_total",
			Help:      "STK push requests sent to the gateway, by result.",
		}, []string{"result"}),
		statusChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visa_portal",
			Subsystem: "payment",
			Name:      "status_checks_total",
			Help:      "Verification requests issued while polling, by classified result.",
		}, []string{"result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visa_portal",
			Subsystem: "payment",
			Name:      "sessions_completed_total",
			Help:      "Payment sessions that reached a terminal status.",
		}, []string{"status"}),
		checkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "visa_portal",
			Subsystem: "payment",
			Name:      "status_check_duration_seconds",
			Help:      "Latency of verification requests to the gateway.",
			Buckets:   prometheus.DefBuckets,
		}),
		activePolls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "visa_portal",
			Subsystem: "payment",
			Name:      "active_polls",
			Help:      "Sessions currently being polled.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.initiations, m.statusChecks, m.outcomes, m.checkDuration, m.activePolls)
	}
	return m
}

func (m *Metrics) Initiation(result string) {
	if m == nil {
		return
	}
	m.initiations.WithLabelValues(result).Inc()
}

func (m *Metrics) StatusCheck(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.statusChecks.WithLabelValues(result).Inc()
	m.checkDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Completed(status Status) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) PollStarted() {
	if m == nil {
		return
	}
	m.activePolls.Inc()
}

func (m *Metrics) PollFinished() {
	if m == nil {
		return
	}
	m.activePolls.Dec()
}
