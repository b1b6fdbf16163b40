package app

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/taoyao-code/bms-monitor/internal/ble"
	cfgpkg "github.com/taoyao-code/bms-monitor/internal/config"
	"github.com/taoyao-code/bms-monitor/internal/health"
	"github.com/taoyao-code/bms-monitor/internal/httpserver"
	"github.com/taoyao-code/bms-monitor/internal/metrics"
	redisstorage "github.com/taoyao-code/bms-monitor/internal/storage/redis"
	"github.com/taoyao-code/bms-monitor/internal/thirdparty"
)

// NewMetrics 初始化注册表与业务指标
func NewMetrics() (*prometheus.Registry, *metrics.BMSMetrics) {
	reg := metrics.NewRegistry()
	return reg, metrics.NewBMSMetrics(reg)
}

// NewHTTPServer 根据配置创建 HTTP 服务器
func NewHTTPServer(cfg *cfgpkg.Config, reg *prometheus.Registry, ready *health.Readiness, agg *health.Aggregator) *httpserver.Server {
	opts := httpserver.Options{
		ReadyFn: ready.Ready,
		Health:  agg,
	}
	if cfg.Metrics.Enable {
		opts.MetricsPath = cfg.Metrics.Path
		opts.MetricsHandler = metrics.Handler(reg)
	}
	return httpserver.New(cfg.HTTP, opts)
}

// NewRedisClient 创建Redis客户端；未启用时返回 nil
func NewRedisClient(ctx context.Context, cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}
	client, err := redisstorage.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.String("channel", cfg.Channel))
	return client, nil
}

// NewPusherIfEnabled 配置了 webhook 时创建推送器
func NewPusherIfEnabled(cfg cfgpkg.PushConfig, reg prometheus.Registerer, logger *zap.Logger) (*thirdparty.Pusher, string) {
	if cfg.WebhookURL == "" {
		return nil, ""
	}
	p := thirdparty.NewPusher(&http.Client{Timeout: cfg.Timeout}, cfg.APIKey, cfg.Secret)
	p.Metrics = thirdparty.NewPushMetrics(reg)
	p.Logger = logger
	return p, cfg.WebhookURL
}

// NewBLEAdapter 创建并启用 BLE 适配器
func NewBLEAdapter(cfg cfgpkg.BLEConfig, logger *zap.Logger) (*ble.Adapter, error) {
	a, err := ble.New(ble.Config{
		ServiceUUID:        cfg.ServiceUUID,
		CharacteristicUUID: cfg.CharacteristicUUID,
		ScanTimeout:        cfg.ScanTimeout,
		NotifyBuffer:       cfg.NotifyBuffer,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Enable(); err != nil {
		return nil, err
	}
	return a, nil
}
