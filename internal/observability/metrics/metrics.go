package metrics

import "github.com/prometheus/client_golang/prometheus"

// Submission outcomes recorded by the relay.
const (
	OutcomeSent        = "sent"
	OutcomeDropped     = "dropped" // honeypot
	OutcomeRejected    = "rejected"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// RelayMetrics exposes counters/histograms for the lead relay pipeline.
type RelayMetrics struct {
	submissionsTotal *prometheus.CounterVec
	captchaTotal     *prometheus.CounterVec
	dispatchTotal    *prometheus.CounterVec
	handlerLatency   prometheus.Histogram
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadrelay",
			Subsystem: "submissions",
			Name:      "total",
			Help:      "Lead submissions by terminal outcome",
		}, []string{"outcome"}),
		captchaTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadrelay",
			Subsystem: "captcha",
			Name:      "verifications_total",
			Help:      "CAPTCHA verification attempts by result",
		}, []string{"result"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadrelay",
			Subsystem: "email",
			Name:      "dispatch_total",
			Help:      "Outbound email dispatches by status",
		}, []string{"status"}),
		handlerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadrelay",
			Subsystem: "http",
			Name:      "handler_latency_seconds",
			Help:      "Latency of the send-email handler",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.captchaTotal, m.dispatchTotal, m.handlerLatency)
	return m
}

func (m *RelayMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *RelayMetrics) ObserveCaptcha(result string) {
	if m == nil {
		return
	}
	m.captchaTotal.WithLabelValues(result).Inc()
}

func (m *RelayMetrics) ObserveDispatch(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.dispatchTotal.WithLabelValues(status).Inc()
}

func (m *RelayMetrics) ObserveLatency(seconds float64) {
	if m == nil {
		return
	}
	m.handlerLatency.Observe(seconds)
}
