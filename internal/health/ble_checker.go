package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RunChecker 根据最近一次采集运行的结果报告健康状态
type RunChecker struct {
	readiness *Readiness

	mu       sync.Mutex
	ok       int
	failed   int
	lastRun  time.Time
	lastNote string
}

func NewRunChecker(r *Readiness) *RunChecker {
	return &RunChecker{readiness: r}
}

func (c *RunChecker) Name() string { return "ble" }

// Record 记录一次运行的会话成功/失败数
func (c *RunChecker) Record(ok, failed int, note string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ok, c.failed = ok, failed
	c.lastRun = time.Now()
	c.lastNote = note
}

func (c *RunChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if c.readiness != nil && !c.readiness.adapterReady.Load() {
		return CheckResult{Status: StatusUnhealthy, Message: "adapter not enabled", Latency: time.Since(start)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	res := CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]any{"sessions_ok": c.ok, "sessions_failed": c.failed},
	}
	if !c.lastRun.IsZero() {
		res.Details["last_run"] = c.lastRun.Format(time.RFC3339)
	}
	if c.lastNote != "" {
		res.Details["note"] = c.lastNote
	}
	switch {
	case c.failed > 0 && c.ok == 0:
		res.Status = StatusUnhealthy
		res.Message = fmt.Sprintf("all %d sessions failed", c.failed)
	case c.failed > 0:
		res.Status = StatusDegraded
		res.Message = fmt.Sprintf("%d of %d sessions failed", c.failed, c.ok+c.failed)
	}
	res.Latency = time.Since(start)
	return res
}
