package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig 探针与指标 HTTP 服务配置
type HTTPConfig struct {
	Enable       bool          `mapstructure:"enable"`
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// AllowedDevice 允许驱动的设备；Address 或 LocalName 任一匹配即可
type AllowedDevice struct {
	LocalName string `mapstructure:"localName" yaml:"localName"`
	Address   string `mapstructure:"address" yaml:"address"`
}

// BLEConfig 扫描与会话时序配置
type BLEConfig struct {
	ServiceUUID        string          `mapstructure:"serviceUUID"`
	CharacteristicUUID string          `mapstructure:"characteristicUUID"`
	ScanTimeout        time.Duration   `mapstructure:"scanTimeout"`
	SettleInterval     time.Duration   `mapstructure:"settleInterval"`
	ObserveWindow      time.Duration   `mapstructure:"observeWindow"`
	NotifyBuffer       int             `mapstructure:"notifyBuffer"`
	ConnectRatePerSec  float64         `mapstructure:"connectRatePerSec"`
	NamePrefix         string          `mapstructure:"namePrefix"`
	AllowedDevices     []AllowedDevice `mapstructure:"allowedDevices"`
	// DevicesFile 额外的设备清单（YAML），与 AllowedDevices 合并
	DevicesFile string `mapstructure:"devicesFile"`
}

// RedisConfig Redis 发布配置（仅 PUBLISH，不落库）
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"poolSize"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	Channel      string        `mapstructure:"channel"`
}

// PushConfig 运行结束后的 webhook 通知
type PushConfig struct {
	WebhookURL string        `mapstructure:"webhookURL"`
	APIKey     string        `mapstructure:"apiKey"`
	Secret     string        `mapstructure:"secret"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ThirdpartyConfig 第三方集成
type ThirdpartyConfig struct {
	Push PushConfig `mapstructure:"push"`
}

// Config 顶层配置结构
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	BLE        BLEConfig        `mapstructure:"ble"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Thirdparty ThirdpartyConfig `mapstructure:"thirdparty"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 BMS_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	// 环境变量覆盖：前缀 BMS_，并将点号替换为下划线
	v.SetEnvPrefix("BMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 未显式指定时允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.BLE.DevicesFile != "" {
		list, err := LoadDeviceList(cfg.BLE.DevicesFile)
		if err != nil {
			return nil, err
		}
		cfg.BLE.AllowedDevices = MergeDevices(cfg.BLE.AllowedDevices, list)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验时序与必填项
func (c *Config) Validate() error {
	if c.BLE.ScanTimeout <= 0 {
		return fmt.Errorf("ble.scanTimeout must be positive, got %s", c.BLE.ScanTimeout)
	}
	if c.BLE.SettleInterval < 0 {
		return fmt.Errorf("ble.settleInterval must not be negative, got %s", c.BLE.SettleInterval)
	}
	if c.BLE.ObserveWindow <= 0 {
		return fmt.Errorf("ble.observeWindow must be positive, got %s", c.BLE.ObserveWindow)
	}
	if c.BLE.ConnectRatePerSec < 0 {
		return fmt.Errorf("ble.connectRatePerSec must not be negative")
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Channel) == "" {
		return fmt.Errorf("redis.channel is required when redis is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bms-monitor")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.enable", false)
	v.SetDefault("http.addr", ":9108")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("ble.serviceUUID", "0000FFE0-0000-1000-8000-00805f9b34fb")
	v.SetDefault("ble.characteristicUUID", "0000FFE1-0000-1000-8000-00805f9b34fb")
	v.SetDefault("ble.scanTimeout", "10s")
	v.SetDefault("ble.settleInterval", "1s")
	v.SetDefault("ble.observeWindow", "30s")
	v.SetDefault("ble.notifyBuffer", 64)
	v.SetDefault("ble.connectRatePerSec", 0)
	v.SetDefault("ble.namePrefix", "")
	v.SetDefault("ble.devicesFile", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 4)
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.channel", "bms:frames")

	v.SetDefault("thirdparty.push.webhookURL", "")
	v.SetDefault("thirdparty.push.timeout", "5s")
}
