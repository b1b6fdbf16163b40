package session

import (
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSettleInterval 两条命令之间的间隔，避免请求重叠
	DefaultSettleInterval = time.Second
	// DefaultObserveWindow 第二条命令后保持订阅的时长，用于接收设备主动推送
	DefaultObserveWindow = 30 * time.Second
)

// Config Driver 配置
type Config struct {
	Logger *zap.Logger
	// DeviceTag 覆盖日志中的设备标识，为空时使用设备名
	DeviceTag      string
	SettleInterval time.Duration
	ObserveWindow  time.Duration
	Handler        Handler
	// Clock 报告时间戳来源
	Clock func() time.Time
}

func defaultConfig() Config {
	return Config{
		Logger:         zap.NewNop(),
		SettleInterval: DefaultSettleInterval,
		ObserveWindow:  DefaultObserveWindow,
		Clock:          time.Now,
	}
}

// Option 函数式配置项
type Option func(*Config)

// WithLogger 注入日志器
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithDeviceTag 固定日志中的设备标识
func WithDeviceTag(tag string) Option {
	return func(c *Config) { c.DeviceTag = tag }
}

// WithSettleInterval 设置命令间隔
func WithSettleInterval(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.SettleInterval = d
		}
	}
}

// WithObserveWindow 设置观察窗口
func WithObserveWindow(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.ObserveWindow = d
		}
	}
}

// WithHandler 注册解析结果回调
func WithHandler(h Handler) Option {
	return func(c *Config) { c.Handler = h }
}

// WithClock 替换报告的时间来源，nil 忽略
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Clock = now
		}
	}
}
