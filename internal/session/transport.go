package session

import (
	"context"
	"fmt"
)

// Device 一次扫描发现的 BLE 设备
type Device struct {
	Address string
	Name    string
	RSSI    int
}

func (d Device) String() string {
	if d.Name == "" {
		return d.Address
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.Address)
}

// Scanner 设备发现（由外部 BLE 协议栈实现）
type Scanner interface {
	Discover(ctx context.Context) ([]Device, error)
}

// Connector 按地址建立连接
type Connector interface {
	Connect(ctx context.Context, dev Device) (Conn, error)
}

// Conn 单个设备连接，会话期间由 Driver 独占
type Conn interface {
	// Subscribe 开启通知；每个上行 buffer 推送一次，顺序与到达顺序一致。
	// 实现应在 Unsubscribe 或 Close 之后关闭该 channel。
	Subscribe(ctx context.Context) (<-chan []byte, error)
	// Write 向已知特征写入一帧
	Write(ctx context.Context, p []byte) error
	Unsubscribe() error
	Close() error
}
