package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters for the intake conversation flow. All
// observe methods are nil-safe so wiring stays optional in tests.
type IntakeMetrics struct {
	conversationsStarted   prometheus.Counter
	conversationsCompleted prometheus.Counter
	postsTotal             *prometheus.CounterVec
	extractionFailures     prometheus.Counter
	llmFallbacks           prometheus.Counter
	turnLatency            prometheus.Histogram
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		conversationsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dentalchat",
			Subsystem: "intake",
			Name:      "conversations_started_total",
			Help:      "Total intake conversations started",
		}),
		conversationsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dentalchat",
			Subsystem: "intake",
			Name:      "conversations_completed_total",
			Help:      "Total intake conversations completed",
		}),
		postsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalchat",
			Subsystem: "intake",
			Name:      "posts_total",
			Help:      "Total patient post creation attempts",
		}, []string{"status"}),
		extractionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dentalchat",
			Subsystem: "intake",
			Name:      "extraction_failures_total",
			Help:      "Total extraction model failures",
		}),
		llmFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dentalchat",
			Subsystem: "intake",
			Name:      "llm_fallbacks_total",
			Help:      "Total switches from the primary to the fallback model",
		}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dentalchat",
			Subsystem: "intake",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one full message turn",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.conversationsStarted,
		m.conversationsCompleted,
		m.postsTotal,
		m.extractionFailures,
		m.llmFallbacks,
		m.turnLatency,
	)
	return m
}

func (m *IntakeMetrics) ConversationStarted() {
	if m == nil {
		return
	}
	m.conversationsStarted.Inc()
}

func (m *IntakeMetrics) ConversationCompleted() {
	if m == nil {
		return
	}
	m.conversationsCompleted.Inc()
}

func (m *IntakeMetrics) PostCreated(status string) {
	if m == nil {
		return
	}
	m.postsTotal.WithLabelValues(status).Inc()
}

func (m *IntakeMetrics) ExtractionFailure() {
	if m == nil {
		return
	}
	m.extractionFailures.Inc()
}

func (m *IntakeMetrics) LLMFallback() {
	if m == nil {
		return
	}
	m.llmFallbacks.Inc()
}

func (m *IntakeMetrics) ObserveTurnLatency(seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.Observe(seconds)
}
