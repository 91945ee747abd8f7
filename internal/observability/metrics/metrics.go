package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "lysandra"

// Metric family names read back by the admin dashboard.
const (
	LLMLatencyFamily = namespace + "_conversation_llm_latency_seconds"
	LLMTokensFamily  = namespace + "_conversation_llm_tokens_total"
	ToolCallsFamily  = namespace + "_conversation_tool_calls_total"
	InboundFamily    = namespace + "_messaging_inbound_webhook_total"
)

// MessagingMetrics exposes counters/histograms for the WhatsApp webhook.
type MessagingMetrics struct {
	inboundTotal   *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewMessagingMetrics(reg prometheus.Registerer) *MessagingMetrics {
	m := &MessagingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound WhatsApp webhooks",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of WhatsApp webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.webhookLatency)
	return m
}

// ObserveInbound records one webhook outcome: replied, apology, or rejected.
func (m *MessagingMetrics) ObserveInbound(status string, seconds float64) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
	m.webhookLatency.WithLabelValues(status).Observe(seconds)
}

// LLMMetrics records model calls and tool executions.
type LLMMetrics struct {
	latency   *prometheus.HistogramVec
	tokens    *prometheus.CounterVec
	toolCalls *prometheus.CounterVec
}

func NewLLMMetrics(reg prometheus.Registerer) *LLMMetrics {
	m := &LLMMetrics{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "llm_latency_seconds",
			Help:      "Latency of LLM chat turns",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10, 15, 20, 30},
		}, []string{"model", "status"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "llm_tokens_total",
			Help:      "Provider-reported tokens used by the LLM",
		}, []string{"model", "type"}), // type: input, output, total
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "tool_calls_total",
			Help:      "Tool executions requested by the model",
		}, []string{"tool", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.latency, m.tokens, m.toolCalls)
	return m
}

func (m *LLMMetrics) ObserveTurn(model, status string, seconds float64) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(model, status).Observe(seconds)
}

func (m *LLMMetrics) ObserveTokens(model string, input, output, total int32) {
	if m == nil {
		return
	}
	if input > 0 {
		m.tokens.WithLabelValues(model, "input").Add(float64(input))
	}
	if output > 0 {
		m.tokens.WithLabelValues(model, "output").Add(float64(output))
	}
	if total > 0 {
		m.tokens.WithLabelValues(model, "total").Add(float64(total))
	}
}

func (m *LLMMetrics) ObserveToolCall(tool, status string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
}
