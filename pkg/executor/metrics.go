package executor

import "github.com/prometheus/client_golang/prometheus"

// Metrics 记录执行器的队列与任务指标。
type Metrics struct {
	queueDepth *prometheus.GaugeVec
	rejected   *prometheus.CounterVec
	panics     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewMetrics 构造 Metrics，reg 为空则注册到默认注册器。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "walletbridge_executor_queue_depth",
			Help: "Number of tasks waiting in an executor queue",
		}, []string{"executor"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletbridge_executor_rejected_total",
			Help: "Number of tasks rejected because the queue was full",
		}, []string{"executor"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletbridge_executor_panics_total",
			Help: "Number of tasks that panicked",
		}, []string{"executor"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "walletbridge_executor_task_ms",
			Help:    "Task run time in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"executor"}),
	}
	reg.MustRegister(m.queueDepth, m.rejected, m.panics, m.latency)
	return m
}

func (m *Metrics) incQueueDepth(name string) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(labelOrUnknown(name)).Inc()
}

func (m *Metrics) decQueueDepth(name string) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(labelOrUnknown(name)).Dec()
}

func (m *Metrics) incRejected(name string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(labelOrUnknown(name)).Inc()
}

func (m *Metrics) incPanic(name string) {
	if m == nil {
		return
	}
	m.panics.WithLabelValues(labelOrUnknown(name)).Inc()
}

func (m *Metrics) observeLatency(name string, durMs float64) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(labelOrUnknown(name)).Observe(durMs)
}

func labelOrUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
