package logging

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	cfgpkg "github.com/taoyao-code/bms-monitor/internal/config"
)

// InitLogger 初始化 zap 日志器；配置了文件名时同时写入 lumberjack 滚动文件
func InitLogger(cfg cfgpkg.LoggingConfig) (*zap.Logger, error) {
	core := zapcore.NewCore(newEncoder(cfg.Format), writeSyncer(cfg.File), parseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller()), nil
}

// ForDevice 派生携带设备标识的子日志器
func ForDevice(log *zap.Logger, name, addr string) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	if name == "" {
		name = addr
	}
	return log.With(zap.String("device", name), zap.String("addr", addr))
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format(time.RFC3339Nano)) },
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if strings.ToLower(format) == "json" {
		return zapcore.NewJSONEncoder(encoderCfg)
	}
	return zapcore.NewConsoleEncoder(encoderCfg)
}

func writeSyncer(f cfgpkg.LumberjackConfig) zapcore.WriteSyncer {
	stdout := zapcore.AddSync(os.Stdout)
	if f.Filename == "" {
		return stdout
	}
	lj := &lumberjack.Logger{
		Filename:   f.Filename,
		MaxSize:    f.MaxSizeMB,
		MaxBackups: f.MaxBackups,
		MaxAge:     f.MaxAgeDays,
		Compress:   f.Compress,
	}
	// 控制台 + 文件双写
	return zapcore.NewMultiWriteSyncer(stdout, zapcore.AddSync(lj))
}
