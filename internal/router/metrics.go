package router

import "github.com/prometheus/client_golang/prometheus"

// Metrics 记录路由层的请求、响应与丢弃情况。
type Metrics struct {
	requests  *prometheus.CounterVec
	responses *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	inFlight  *prometheus.GaugeVec
	latency   *prometheus.HistogramVec
}

// NewMetrics 构造 Metrics，reg 为空则注册到默认注册器。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletbridge_requests_total",
			Help: "Requests routed per operation",
		}, []string{"dialect", "operation"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletbridge_responses_total",
			Help: "Responses produced per operation and status",
		}, []string{"dialect", "operation", "status"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletbridge_requests_dropped_total",
			Help: "Requests that will never produce a response",
		}, []string{"dialect", "reason"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "walletbridge_delegate_inflight",
			Help: "Requests waiting for a delegate callback",
		}, []string{"dialect"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "walletbridge_delegate_latency_ms",
			Help:    "Time from delegate invocation to callback in milliseconds",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000, 120000},
		}, []string{"dialect", "operation"}),
	}
	reg.MustRegister(m.requests, m.responses, m.dropped, m.inFlight, m.latency)
	return m
}

func (m *Metrics) incRequest(dialect, op string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(labelOrUnknown(dialect), labelOrUnknown(op)).Inc()
}

func (m *Metrics) incResponse(dialect, op, status string) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(labelOrUnknown(dialect), labelOrUnknown(op), labelOrUnknown(status)).Inc()
}

func (m *Metrics) incDropped(dialect, reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(labelOrUnknown(dialect), labelOrUnknown(reason)).Inc()
}

func (m *Metrics) addInFlight(dialect string, delta float64) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(labelOrUnknown(dialect)).Add(delta)
}

func (m *Metrics) observeLatency(dialect, op string, durMs float64) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(labelOrUnknown(dialect), labelOrUnknown(op)).Observe(durMs)
}

func labelOrUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
