package thirdparty

import (
	"fmt"
	"strings"
	"time"
)

// EventRunSummary 一次采集运行结束后的汇总事件
const EventRunSummary = "bms.run_summary"

// NoDevicesMessage 扫描结果为空时的通知文本
const NoDevicesMessage = "No BLE devices found."

// Event 推送给 webhook 的事件信封
type Event struct {
	Event     string         `json:"event"`
	RunID     string         `json:"runId"`
	Timestamp int64          `json:"timestamp"`
	Nonce     string         `json:"nonce"`
	Data      map[string]any `json:"data"`
}

// DeviceLine 汇总中的一台设备
type DeviceLine struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// FormatConnectedDevices 每台成功会话的设备一行 "[addr] name"；没有则返回 NoDevicesMessage
func FormatConnectedDevices(lines []DeviceLine) string {
	var b strings.Builder
	for _, l := range lines {
		if !l.OK {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s", l.Address, l.Name)
	}
	if b.Len() == 0 {
		return NoDevicesMessage
	}
	return b.String()
}

// NewRunSummaryEvent 构造运行汇总事件
func NewRunSummaryEvent(runID string, at time.Time, lines []DeviceLine) Event {
	failed := 0
	for _, l := range lines {
		if !l.OK {
			failed++
		}
	}
	return Event{
		Event:     EventRunSummary,
		RunID:     runID,
		Timestamp: at.Unix(),
		Data: map[string]any{
			"message": FormatConnectedDevices(lines),
			"devices": lines,
			"total":   len(lines),
			"failed":  failed,
		},
	}
}
