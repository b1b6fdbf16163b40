package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/taoyao-code/bms-monitor/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/bms-monitor/internal/config"
	"github.com/taoyao-code/bms-monitor/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults to $BMS_CONFIG or configs/example.yaml)")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 3) SIGINT/SIGTERM 取消当前会话并结束运行
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Run(ctx, cfg, log); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("interrupted")
			return
		}
		log.Error("bms monitor exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
