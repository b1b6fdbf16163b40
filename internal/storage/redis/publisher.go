package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Record 通过 PUBLISH 广播的一条解码结果
type Record struct {
	RunID     string    `json:"run_id"`
	SessionID string    `json:"session_id"`
	Device    string    `json:"device"`
	Address   string    `json:"address"`
	Kind      string    `json:"kind"`
	At        time.Time `json:"at"`

	Name            string `json:"name,omitempty"`
	SerialNumber    string `json:"serial_number,omitempty"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	HardwareVersion string `json:"hardware_version,omitempty"`
	ChecksumOK      *bool  `json:"checksum_ok,omitempty"`

	Cells []CellRecord `json:"cells,omitempty"`
}

// CellRecord 单节电芯电压
type CellRecord struct {
	Index int     `json:"index"`
	Volts float64 `json:"volts"`
}

// PublishClient go-redis 客户端的发布子集
type PublishClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Publisher 将解码结果发布到频道；不做持久化
type Publisher struct {
	client  PublishClient
	channel string
}

func NewPublisher(client PublishClient, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Publish 序列化并发布，返回收到消息的订阅者数量
func (p *Publisher) Publish(ctx context.Context, rec Record) (int64, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("marshal record: %w", err)
	}
	n, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return 0, fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return n, nil
}

func (p *Publisher) Channel() string { return p.channel }
