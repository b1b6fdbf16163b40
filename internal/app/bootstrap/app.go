package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/bms-monitor/internal/app"
	cfgpkg "github.com/taoyao-code/bms-monitor/internal/config"
	"github.com/taoyao-code/bms-monitor/internal/health"
	redisstorage "github.com/taoyao-code/bms-monitor/internal/storage/redis"
	"github.com/taoyao-code/bms-monitor/internal/thirdparty"
)

// Run 统一启动流程：指标 -> HTTP -> Redis -> BLE -> 扫描并逐台采集 -> 推送汇总
func Run(ctx context.Context, cfg *cfgpkg.Config, log *zap.Logger) error {
	log.Info("starting bms monitor", zap.String("env", cfg.App.Env))

	// ========== 阶段1: 基础组件 ==========
	reg, bmsm := app.NewMetrics()
	ready := health.New()
	runCheck := health.NewRunChecker(ready)
	agg := health.NewAggregator(runCheck, health.ScanChecker(ready))

	// ========== 阶段2: HTTP（非阻塞）==========
	if cfg.HTTP.Enable {
		httpSrv := app.NewHTTPServer(cfg, reg, ready, agg)
		go func() {
			if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(sctx)
			log.Info("http server stopped")
		}()
		log.Info("http server started", zap.String("addr", cfg.HTTP.Addr))
	}

	// ========== 阶段3: 结果下游 ==========
	runID := app.NewRunID()
	handlers := app.MultiHandler{app.NewMetricsSink(bmsm)}

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		agg.AddChecker(health.NewRedisChecker(redisClient))
		pub := redisstorage.NewPublisher(redisClient, cfg.Redis.Channel)
		handlers = append(handlers, app.NewPublishSink(pub, runID, log))
	}

	pusher, pushURL := app.NewPusherIfEnabled(cfg.Thirdparty.Push, reg, log)

	// ========== 阶段4: BLE ==========
	adapter, err := app.NewBLEAdapter(cfg.BLE, log)
	if err != nil {
		log.Error("ble adapter initialization failed", zap.Error(err))
		return err
	}
	ready.SetAdapterReady(true)
	log.Info("ble adapter enabled")

	runner := app.NewRunner(adapter, adapter, cfg.BLE, log,
		app.WithRunID(runID),
		app.WithRunnerHandler(handlers),
		app.WithRunnerMetrics(bmsm))

	// ========== 阶段5: 采集 ==========
	sum, err := runner.Run(ctx)
	ready.SetScanned(true)
	if err != nil {
		log.Error("discovery failed", zap.Error(err))
		return err
	}
	note := ""
	if len(sum.Reports) == 0 {
		note = thirdparty.NoDevicesMessage
	}
	runCheck.Record(sum.Succeeded(), sum.Failed(), note)

	// ========== 阶段6: 推送汇总 ==========
	if pusher != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		ev := thirdparty.NewRunSummaryEvent(sum.RunID, sum.EndedAt, sum.Lines())
		if err := pusher.Push(pctx, pushURL, ev); err != nil {
			log.Warn("run summary not delivered", zap.Error(err))
		}
	}

	if sum.Cancelled {
		log.Info("run cancelled", zap.Int("sessions", len(sum.Reports)))
		return ctx.Err()
	}
	log.Info("bms monitor finished",
		zap.String("run_id", sum.RunID),
		zap.Int("discovered", sum.Discovered),
		zap.Int("skipped", sum.Skipped),
		zap.Int("succeeded", sum.Succeeded()),
		zap.Int("failed", sum.Failed()))
	return nil
}
