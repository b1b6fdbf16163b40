package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// BMSMetrics BMS 采集业务指标
type BMSMetrics struct {
	DevicesDiscovered  prometheus.Gauge
	FramesTotal        *prometheus.CounterVec // labels: kind
	ChecksumMismatch   prometheus.Counter
	SessionsTotal      *prometheus.CounterVec // labels: result=ok|error
	SessionDuration    prometheus.Histogram
	CellVoltage        *prometheus.GaugeVec // labels: device, cell
	CellDeltaVolts     *prometheus.GaugeVec // labels: device
	ConnectWaitSeconds prometheus.Histogram
}

// NewBMSMetrics 注册并返回业务指标
func NewBMSMetrics(reg prometheus.Registerer) *BMSMetrics {
	m := &BMSMetrics{
		DevicesDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bms_devices_discovered",
			Help: "Devices returned by the last discovery scan.",
		}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bms_frames_total",
			Help: "Notification frames by classification.",
		}, []string{"kind"}),
		ChecksumMismatch: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bms_checksum_mismatch_total",
			Help: "Device info frames whose trailing checksum did not match.",
		}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bms_sessions_total",
			Help: "Completed device sessions by result.",
		}, []string{"result"}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bms_session_duration_seconds",
			Help:    "Wall time of a device session.",
			Buckets: []float64{1, 5, 10, 20, 30, 35, 45, 60},
		}),
		CellVoltage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bms_cell_voltage_volts",
			Help: "Last reported cell voltage.",
		}, []string{"device", "cell"}),
		CellDeltaVolts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bms_cell_delta_volts",
			Help: "Spread between the highest and lowest reported cell.",
		}, []string{"device"}),
		ConnectWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bms_connect_wait_seconds",
			Help:    "Time spent waiting on the connect rate limiter.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.DevicesDiscovered,
		m.FramesTotal,
		m.ChecksumMismatch,
		m.SessionsTotal,
		m.SessionDuration,
		m.CellVoltage,
		m.CellDeltaVolts,
		m.ConnectWaitSeconds,
	)
	return m
}
