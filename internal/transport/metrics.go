package transport

import "github.com/prometheus/client_golang/prometheus"

// Metrics 记录消息边界上的收发情况。
type Metrics struct {
	received   *prometheus.CounterVec
	discarded  *prometheus.CounterVec
	deliveries *prometheus.CounterVec
}

// NewMetrics 构造 Metrics，reg 为空则注册到默认注册器。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletbridge_messages_received_total",
			Help: "Inbound messages received from the content host",
		}, []string{"dialect"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletbridge_messages_discarded_total",
			Help: "Inbound messages discarded before routing",
		}, []string{"dialect", "reason"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walletbridge_deliveries_total",
			Help: "Outbound script evaluations by result",
		}, []string{"dialect", "status"}),
	}
	reg.MustRegister(m.received, m.discarded, m.deliveries)
	return m
}

func (m *Metrics) incReceived(dialect string) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(labelOrUnknown(dialect)).Inc()
}

func (m *Metrics) incDiscarded(dialect, reason string) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(labelOrUnknown(dialect), labelOrUnknown(reason)).Inc()
}

func (m *Metrics) incDelivery(dialect, status string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(labelOrUnknown(dialect), labelOrUnknown(status)).Inc()
}

func labelOrUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
