package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 转发结果标签
const (
	OutcomeRelayed       = "relayed"
	OutcomeFailed        = "failed"
	OutcomeRespondFailed = "respond_failed"
)

// Metrics 转发相关的 Prometheus 指标
type Metrics struct {
	RelayRequests *prometheus.CounterVec
	RelayDuration *prometheus.HistogramVec
	BridgedPages  prometheus.Gauge
}

// New 创建指标并注册到 reg；reg 为 nil 时不注册。已注册过的同名指标会被复用
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RelayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cdpmock_relay_requests_total",
				Help: "Total number of intercepted browser requests relayed through the HTTP client",
			},
			[]string{"method", "outcome"},
		),
		RelayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cdpmock_relay_duration_seconds",
				Help:    "Time from interception to respond/abort in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		BridgedPages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cdpmock_bridged_pages",
				Help: "Number of open pages with a request bridge attached",
			},
		),
	}
	if reg == nil {
		return m
	}
	m.RelayRequests = register(reg, m.RelayRequests)
	m.RelayDuration = register(reg, m.RelayDuration)
	m.BridgedPages = register(reg, m.BridgedPages)
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

// ObserveRelay 记录一次转发结果
func (m *Metrics) ObserveRelay(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RelayRequests.WithLabelValues(method, outcome).Inc()
	m.RelayDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// PageBridged 页面挂载转发器
func (m *Metrics) PageBridged() {
	if m == nil {
		return
	}
	m.BridgedPages.Inc()
}

// PageClosed 挂载转发器的页面关闭
func (m *Metrics) PageClosed() {
	if m == nil {
		return
	}
	m.BridgedPages.Dec()
}
