package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	cfgpkg "github.com/taoyao-code/bms-monitor/internal/config"
	"github.com/taoyao-code/bms-monitor/internal/metrics"
	"github.com/taoyao-code/bms-monitor/internal/session"
	"github.com/taoyao-code/bms-monitor/internal/thirdparty"
)

// Runner 扫描并依次驱动每台允许的设备；单台失败不影响后续设备
type Runner struct {
	scanner   session.Scanner
	connector session.Connector
	cfg       cfgpkg.BLEConfig
	log       *zap.Logger
	runID     string

	handler session.Handler
	metrics *metrics.BMSMetrics
	// limiter 控制相邻两次连接的最小间隔；nil 表示不限速
	limiter *rate.Limiter
}

// Summary 一次运行的汇总
type Summary struct {
	RunID      string
	StartedAt  time.Time
	EndedAt    time.Time
	Discovered int
	Skipped    int
	Reports    []*session.Report
	// Cancelled 运行被 ctx 取消，Reports 可能不完整
	Cancelled bool
}

// Succeeded 完整结束的会话数
func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Reports {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed 失败的会话数
func (s *Summary) Failed() int { return len(s.Reports) - s.Succeeded() }

// Lines 转换为推送用的设备列表
func (s *Summary) Lines() []thirdparty.DeviceLine {
	lines := make([]thirdparty.DeviceLine, 0, len(s.Reports))
	for _, r := range s.Reports {
		l := thirdparty.DeviceLine{Address: r.Device.Address, Name: r.Device.Name, OK: r.OK()}
		if l.Name == "" {
			l.Name = "Unknown"
		}
		if r.Err != nil {
			l.Error = r.Err.Error()
		}
		lines = append(lines, l)
	}
	return lines
}

// RunnerOption Runner 配置项
type RunnerOption func(*Runner)

// WithRunnerHandler 每个解析结果的下游处理器
func WithRunnerHandler(h session.Handler) RunnerOption {
	return func(r *Runner) { r.handler = h }
}

// WithRunnerMetrics 注入业务指标
func WithRunnerMetrics(m *metrics.BMSMetrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithRunID 固定运行 ID
func WithRunID(id string) RunnerOption {
	return func(r *Runner) { r.runID = id }
}

// NewRunner 创建 Runner
func NewRunner(scanner session.Scanner, connector session.Connector, cfg cfgpkg.BLEConfig, log *zap.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		scanner:   scanner,
		connector: connector,
		cfg:       cfg,
		log:       log,
	}
	if cfg.ConnectRatePerSec > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.ConnectRatePerSec), 1)
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = NewRunID()
	}
	return r
}

// RunID 本次运行的 ID
func (r *Runner) RunID() string { return r.runID }

// Discover 扫描并按允许列表过滤
func (r *Runner) Discover(ctx context.Context) (found []session.Device, allowed []session.Device, err error) {
	found, err = r.scanner.Discover(ctx)
	if err != nil {
		return nil, nil, err
	}
	if r.metrics != nil {
		r.metrics.DevicesDiscovered.Set(float64(len(found)))
	}
	for _, dev := range found {
		if !r.cfg.Allows(dev.Address, dev.Name) {
			r.log.Debug("device not allowed, skipping", zap.String("addr", dev.Address), zap.String("name", dev.Name))
			continue
		}
		allowed = append(allowed, dev)
	}
	r.log.Info("discovery finished", zap.Int("found", len(found)), zap.Int("allowed", len(allowed)))
	return found, allowed, nil
}

// Run 扫描后驱动所有允许的设备
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	found, devices, err := r.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		r.log.Info(thirdparty.NoDevicesMessage)
	}
	sum := r.RunAll(ctx, devices)
	sum.Discovered = len(found)
	sum.Skipped = len(found) - len(devices)
	return sum, nil
}

// RunAll 按顺序一次一台地执行会话。失败记录后继续，只有 ctx 取消会提前结束。
func (r *Runner) RunAll(ctx context.Context, devices []session.Device) *Summary {
	sum := &Summary{RunID: r.runID, StartedAt: time.Now()}
	log := r.log.With(zap.String("run_id", r.runID))

	for i, dev := range devices {
		if ctx.Err() != nil {
			sum.Cancelled = true
			break
		}
		if err := r.pace(ctx); err != nil {
			sum.Cancelled = true
			break
		}

		log.Info("starting session",
			zap.Int("index", i+1),
			zap.Int("total", len(devices)),
			zap.String("device", dev.String()))

		rep, err := r.driverFor(dev).Run(ctx, dev)
		sum.Reports = append(sum.Reports, rep)
		r.observe(rep)
		if err != nil {
			log.Error("device session failed, continuing",
				zap.String("device", dev.String()),
				zap.Error(err))
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					sum.Cancelled = true
					break
				}
			}
		}
	}

	sum.EndedAt = time.Now()
	log.Info("run finished",
		zap.Int("sessions", len(sum.Reports)),
		zap.Int("succeeded", sum.Succeeded()),
		zap.Int("failed", sum.Failed()),
		zap.Bool("cancelled", sum.Cancelled),
		zap.Duration("elapsed", sum.EndedAt.Sub(sum.StartedAt)))
	return sum
}

func (r *Runner) driverFor(dev session.Device) *session.Driver {
	opts := []session.Option{
		session.WithLogger(r.log.With(zap.String("run_id", r.runID))),
		session.WithSettleInterval(r.cfg.SettleInterval),
		session.WithObserveWindow(r.cfg.ObserveWindow),
	}
	if alias, ok := r.cfg.AliasFor(dev.Address); ok {
		opts = append(opts, session.WithDeviceTag(alias))
	}
	if r.handler != nil {
		opts = append(opts, session.WithHandler(r.handler))
	}
	return session.NewDriver(r.connector, opts...)
}

func (r *Runner) pace(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.ConnectWaitSeconds.Observe(time.Since(start).Seconds())
	}
	return nil
}

func (r *Runner) observe(rep *session.Report) {
	if r.metrics == nil || rep == nil {
		return
	}
	result := "ok"
	if !rep.OK() {
		result = "error"
	}
	r.metrics.SessionsTotal.WithLabelValues(result).Inc()
	r.metrics.SessionDuration.Observe(rep.Duration().Seconds())
	for kind, n := range rep.Frames {
		r.metrics.FramesTotal.WithLabelValues(kind.String()).Add(float64(n))
	}
	r.metrics.ChecksumMismatch.Add(float64(rep.ChecksumMismatches))
}
