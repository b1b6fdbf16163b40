package ble

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/taoyao-code/bms-monitor/internal/session"
)

var (
	_ session.Scanner   = (*Adapter)(nil)
	_ session.Connector = (*Adapter)(nil)
	_ session.Conn      = (*conn)(nil)
)

// conn 单设备 GATT 连接，实现 session.Conn
type conn struct {
	device bluetooth.Device
	char   bluetooth.DeviceCharacteristic
	buffer int
	log    *zap.Logger

	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func newConn(device bluetooth.Device, char bluetooth.DeviceCharacteristic, buffer int, log *zap.Logger) *conn {
	return &conn{device: device, char: char, buffer: buffer, log: log}
}

// Subscribe 开启通知，回调中复制 buffer 后投递到 channel
func (c *conn) Subscribe(ctx context.Context) (<-chan []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.ch != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("already subscribed")
	}
	c.ch = make(chan []byte, c.buffer)
	c.closed = false
	c.mu.Unlock()

	if err := c.char.EnableNotifications(c.deliver); err != nil {
		c.closeChan()
		return nil, err
	}
	return c.ch, nil
}

// deliver 通知回调；BLE 栈线程上不阻塞，channel 满时丢弃并告警
func (c *conn) deliver(buf []byte) {
	p := make([]byte, len(buf))
	copy(p, buf)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ch == nil {
		return
	}
	select {
	case c.ch <- p:
	default:
		c.log.Warn("notification dropped, consumer too slow", zap.Int("len", len(p)))
	}
}

func (c *conn) Write(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.char.WriteWithoutResponse(p)
	return err
}

// Unsubscribe 停止通知并关闭 channel
func (c *conn) Unsubscribe() error {
	err := c.char.EnableNotifications(nil)
	c.closeChan()
	return err
}

func (c *conn) Close() error {
	c.closeChan()
	return c.device.Disconnect()
}

func (c *conn) closeChan() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch != nil && !c.closed {
		close(c.ch)
		c.closed = true
	}
}
