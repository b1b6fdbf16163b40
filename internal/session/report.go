package session

import (
	"context"
	"time"

	"github.com/taoyao-code/bms-monitor/internal/protocol/bms"
)

// Handler 接收每个非 Ignored 的解析结果，在通知消费协程中按到达顺序同步调用
type Handler interface {
	HandleResult(ctx context.Context, sessionID string, dev Device, res bms.Result)
}

// HandlerFunc 函数适配器
type HandlerFunc func(ctx context.Context, sessionID string, dev Device, res bms.Result)

func (f HandlerFunc) HandleResult(ctx context.Context, sessionID string, dev Device, res bms.Result) {
	f(ctx, sessionID, dev, res)
}

// Report 单个设备会话的结果汇总
type Report struct {
	SessionID string
	Device    Device
	StartedAt time.Time
	EndedAt   time.Time

	// Frames 按分类统计的通知数量（含 Ignored）
	Frames             map[bms.Kind]int
	ChecksumMismatches int

	// 最近一次解析成功的帧
	DeviceInfo *bms.DeviceInfo
	CellInfo   *bms.CellInfo

	Err error
}

// Duration 会话时长
func (r *Report) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// OK 会话是否完整结束
func (r *Report) OK() bool { return r.Err == nil }

func (r *Report) record(res bms.Result) {
	r.Frames[res.Kind]++
	switch res.Kind {
	case bms.KindDeviceInfo:
		r.DeviceInfo = res.DeviceInfo
		if !res.DeviceInfo.ChecksumOK {
			r.ChecksumMismatches++
		}
	case bms.KindCellInfo:
		r.CellInfo = res.CellInfo
	}
}
