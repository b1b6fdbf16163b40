package health

import (
	"context"
	"time"
)

// Status 健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"  // 部分会话失败，仍在运行
	StatusUnhealthy Status = "unhealthy" // 无法服务
)

// severity 未知状态按 unhealthy 处理
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worse s 是否比 o 更严重
func (s Status) Worse(o Status) bool { return s.severity() > o.severity() }

// CheckResult 单项检查结果；Details 会原样出现在 /health 响应里
type CheckResult struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency"`
}

// Checker 由 Aggregator 并发调用
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// CheckFunc 把一个函数包装成 Checker，未填写 Latency 时自动计时
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

func NewCheckFunc(name string, fn func(ctx context.Context) CheckResult) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

func (c *CheckFunc) Name() string { return c.name }

func (c *CheckFunc) Check(ctx context.Context) CheckResult {
	start := time.Now()
	res := c.fn(ctx)
	if res.Latency == 0 {
		res.Latency = time.Since(start)
	}
	return res
}

// ScanChecker 首次扫描完成前报告 degraded
func ScanChecker(r *Readiness) *CheckFunc {
	return NewCheckFunc("ble_scan", func(ctx context.Context) CheckResult {
		if !r.scanned.Load() {
			return CheckResult{Status: StatusDegraded, Message: "scan pending"}
		}
		return CheckResult{Status: StatusHealthy, Message: "scan finished"}
	})
}
