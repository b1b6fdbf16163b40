package thirdparty

import "github.com/prometheus/client_golang/prometheus"

// PushMetrics 推送指标
type PushMetrics struct {
	PushTotal    *prometheus.CounterVec // labels: event_type, result=success|failed
	PushDuration *prometheus.HistogramVec
	RetryTotal   *prometheus.CounterVec
}

// NewPushMetrics 在给定 registry 上注册推送指标
func NewPushMetrics(reg prometheus.Registerer) *PushMetrics {
	m := &PushMetrics{
		PushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thirdparty_push_total",
			Help: "Total number of event pushes to third party",
		}, []string{"event_type", "result"}),
		PushDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "thirdparty_push_duration_seconds",
			Help:    "Duration of event push to third party in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"event_type"}),
		RetryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thirdparty_push_retry_total",
			Help: "Total number of event push retries",
		}, []string{"event_type"}),
	}
	reg.MustRegister(m.PushTotal, m.PushDuration, m.RetryTotal)
	return m
}
