package app

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/bms-monitor/internal/metrics"
	"github.com/taoyao-code/bms-monitor/internal/protocol/bms"
	"github.com/taoyao-code/bms-monitor/internal/session"
	redisstorage "github.com/taoyao-code/bms-monitor/internal/storage/redis"
)

// MultiHandler 依次调用多个 Handler
type MultiHandler []session.Handler

func (m MultiHandler) HandleResult(ctx context.Context, sessionID string, dev session.Device, res bms.Result) {
	for _, h := range m {
		if h != nil {
			h.HandleResult(ctx, sessionID, dev, res)
		}
	}
}

// MetricsSink 把电芯读数写入 gauge
type MetricsSink struct {
	m *metrics.BMSMetrics
}

func NewMetricsSink(m *metrics.BMSMetrics) *MetricsSink { return &MetricsSink{m: m} }

func (s *MetricsSink) HandleResult(_ context.Context, _ string, dev session.Device, res bms.Result) {
	if res.Kind != bms.KindCellInfo || res.CellInfo == nil {
		return
	}
	label := deviceLabel(dev)
	for _, c := range res.CellInfo.Cells {
		s.m.CellVoltage.WithLabelValues(label, strconv.Itoa(c.Index)).Set(c.Volts)
	}
	if len(res.CellInfo.Cells) > 0 {
		s.m.CellDeltaVolts.WithLabelValues(label).Set(res.CellInfo.Delta())
	}
}

// RecordPublisher 解码结果的发布端
type RecordPublisher interface {
	Publish(ctx context.Context, rec redisstorage.Record) (int64, error)
}

// PublishSink 将设备信息与电芯信息发布到 Redis；发布失败只记录日志
type PublishSink struct {
	pub   RecordPublisher
	runID string
	log   *zap.Logger
	now   func() time.Time
}

func NewPublishSink(pub RecordPublisher, runID string, log *zap.Logger) *PublishSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &PublishSink{pub: pub, runID: runID, log: log, now: time.Now}
}

func (s *PublishSink) HandleResult(ctx context.Context, sessionID string, dev session.Device, res bms.Result) {
	rec, ok := toRecord(res)
	if !ok {
		return
	}
	rec.RunID = s.runID
	rec.SessionID = sessionID
	rec.Device = deviceLabel(dev)
	rec.Address = dev.Address
	rec.At = s.now()

	if _, err := s.pub.Publish(ctx, rec); err != nil {
		s.log.Warn("publish record failed",
			zap.String("addr", dev.Address),
			zap.String("kind", rec.Kind),
			zap.Error(err))
	}
}

// toRecord 仅设备信息与电芯信息会被发布
func toRecord(res bms.Result) (redisstorage.Record, bool) {
	rec := redisstorage.Record{Kind: res.Kind.String()}
	switch res.Kind {
	case bms.KindDeviceInfo:
		di := res.DeviceInfo
		ok := di.ChecksumOK
		rec.Name = di.Name
		rec.SerialNumber = di.SerialNumber
		rec.FirmwareVersion = di.FirmwareVersion
		rec.HardwareVersion = di.HardwareVersion
		rec.ChecksumOK = &ok
	case bms.KindCellInfo:
		rec.Cells = make([]redisstorage.CellRecord, 0, len(res.CellInfo.Cells))
		for _, c := range res.CellInfo.Cells {
			rec.Cells = append(rec.Cells, redisstorage.CellRecord{Index: c.Index, Volts: c.Volts})
		}
	default:
		return rec, false
	}
	return rec, true
}

func deviceLabel(dev session.Device) string {
	if dev.Name != "" {
		return dev.Name
	}
	return dev.Address
}
