// Package ble 基于 tinygo.org/x/bluetooth 实现 session 的传输层接口
package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/taoyao-code/bms-monitor/internal/session"
)

// 默认 UUID（FFE0 服务 / FFE1 特征，写入与通知共用）
const (
	DefaultServiceUUID        = "0000ffe0-0000-1000-8000-00805f9b34fb"
	DefaultCharacteristicUUID = "0000ffe1-0000-1000-8000-00805f9b34fb"
)

// Config 适配器配置
type Config struct {
	ServiceUUID        string
	CharacteristicUUID string
	ScanTimeout        time.Duration
	// NotifyBuffer 通知 channel 容量
	NotifyBuffer int
}

// Adapter 本机 BLE 适配器
type Adapter struct {
	adapter        *bluetooth.Adapter
	service        bluetooth.UUID
	characteristic bluetooth.UUID
	cfg            Config
	log            *zap.Logger

	mu   sync.Mutex
	seen map[string]bluetooth.Address
}

// New 解析 UUID 并绑定默认适配器（尚未启用）
func New(cfg Config, log *zap.Logger) (*Adapter, error) {
	if cfg.ServiceUUID == "" {
		cfg.ServiceUUID = DefaultServiceUUID
	}
	if cfg.CharacteristicUUID == "" {
		cfg.CharacteristicUUID = DefaultCharacteristicUUID
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 10 * time.Second
	}
	if cfg.NotifyBuffer <= 0 {
		cfg.NotifyBuffer = 64
	}
	if log == nil {
		log = zap.NewNop()
	}

	svc, err := parseUUID(cfg.ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("service uuid: %w", err)
	}
	chr, err := parseUUID(cfg.CharacteristicUUID)
	if err != nil {
		return nil, fmt.Errorf("characteristic uuid: %w", err)
	}

	return &Adapter{
		adapter:        bluetooth.DefaultAdapter,
		service:        svc,
		characteristic: chr,
		cfg:            cfg,
		log:            log,
		seen:           make(map[string]bluetooth.Address),
	}, nil
}

// Enable 启用本机适配器
func (a *Adapter) Enable() error {
	if err := a.adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}
	return nil
}

// Discover 扫描 ScanTimeout 时长，按首次发现顺序返回去重后的设备
func (a *Adapter) Discover(ctx context.Context) ([]session.Device, error) {
	var (
		mu      sync.Mutex
		order   []session.Device
		indexOf = make(map[string]int)
	)

	errc := make(chan error, 1)
	go func() {
		errc <- a.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
			addr := r.Address.String()
			dev := session.Device{Address: addr, Name: r.LocalName(), RSSI: int(r.RSSI)}

			mu.Lock()
			defer mu.Unlock()
			if i, ok := indexOf[addr]; ok {
				if dev.Name == "" {
					dev.Name = order[i].Name
				}
				order[i] = dev
				return
			}
			indexOf[addr] = len(order)
			order = append(order, dev)

			a.mu.Lock()
			a.seen[addr] = r.Address
			a.mu.Unlock()

			a.log.Info("discovered device",
				zap.String("addr", addr),
				zap.String("name", nameOrUnknown(dev.Name)),
				zap.Int("rssi", dev.RSSI),
				zap.String("signal", SignalStrength(dev.RSSI)))
		})
	}()

	timer := time.NewTimer(a.cfg.ScanTimeout)
	defer timer.Stop()

	var ctxErr error
	scanning := true
	select {
	case err := <-errc:
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		scanning = false
	case <-ctx.Done():
		ctxErr = ctx.Err()
	case <-timer.C:
	}

	if scanning {
		if err := a.adapter.StopScan(); err != nil {
			a.log.Warn("stop scan failed", zap.Error(err))
		}
		if err := <-errc; err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
	}
	if ctxErr != nil {
		return nil, ctxErr
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]session.Device, len(order))
	copy(out, order)
	return out, nil
}

// Connect 连接已发现的设备并定位通知特征
func (a *Adapter) Connect(ctx context.Context, dev session.Device) (session.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	addr, ok := a.seen[dev.Address]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("device %s was not discovered", dev.Address)
	}

	device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, err
	}

	chr, err := a.findCharacteristic(device)
	if err != nil {
		_ = device.Disconnect()
		return nil, err
	}
	return newConn(device, chr, a.cfg.NotifyBuffer, a.log.With(zap.String("addr", dev.Address))), nil
}

func (a *Adapter) findCharacteristic(device bluetooth.Device) (bluetooth.DeviceCharacteristic, error) {
	srvs, err := device.DiscoverServices([]bluetooth.UUID{a.service})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("discover services: %w", err)
	}
	if len(srvs) == 0 {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("service %s not found", a.service)
	}
	chars, err := srvs[0].DiscoverCharacteristics([]bluetooth.UUID{a.characteristic})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("discover characteristics: %w", err)
	}
	for _, c := range chars {
		if c.UUID() == a.characteristic {
			return c, nil
		}
	}
	return bluetooth.DeviceCharacteristic{}, fmt.Errorf("characteristic %s not found", a.characteristic)
}

func parseUUID(s string) (bluetooth.UUID, error) {
	return bluetooth.ParseUUID(strings.ToLower(strings.TrimSpace(s)))
}

func nameOrUnknown(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

// SignalStrength RSSI 分级：>= -60 strong，>= -80 medium，其余 weak
func SignalStrength(rssi int) string {
	switch {
	case rssi >= -60:
		return "strong"
	case rssi >= -80:
		return "medium"
	default:
		return "weak"
	}
}
