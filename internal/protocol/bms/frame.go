// Package bms 实现 JK 系列 BMS 的 BLE 帧编解码：
// 下行 20 字节命令帧 (AA 55 90 EB) 与上行通知帧 (55 AA EB 90) 的分类与解析。
// 本包不做 I/O 也不记录日志。
package bms

import "fmt"

// 命令帧布局：header[4] | cmd[1] | reserved[14] | sum[1]
const (
	CommandFrameLen = 20
	headerLen       = 4
	typeOffset      = 4

	// CmdDeviceInfo 请求设备信息
	CmdDeviceInfo byte = 0x97
	// CmdCellInfo 请求电芯信息
	CmdCellInfo byte = 0x96
)

// FrameType 上行帧类型（byte 4）
type FrameType byte

const (
	FrameCellInfo   FrameType = 0x02
	FrameDeviceInfo FrameType = 0x03
)

func (t FrameType) String() string {
	switch t {
	case FrameCellInfo:
		return "cell_info"
	case FrameDeviceInfo:
		return "device_info"
	default:
		return fmt.Sprintf("0x%02X", byte(t))
	}
}

// 下行与上行 magic 互为字节逆序，但按两个独立常量处理
var (
	commandHeader      = [headerLen]byte{0xAA, 0x55, 0x90, 0xEB}
	notificationHeader = [headerLen]byte{0x55, 0xAA, 0xEB, 0x90}
)

// CommandFrame 固定 20 字节下行命令帧
type CommandFrame [CommandFrameLen]byte

// Bytes 返回帧副本，便于交给传输层
func (f CommandFrame) Bytes() []byte {
	out := make([]byte, CommandFrameLen)
	copy(out, f[:])
	return out
}

// Type 命令码
func (f CommandFrame) Type() byte { return f[typeOffset] }

// BuildCommand 构造一帧命令：header + cmd + 14 字节 0 + sum(前 19 字节)
func BuildCommand(cmd byte) CommandFrame {
	var f CommandFrame
	copy(f[:headerLen], commandHeader[:])
	f[typeOffset] = cmd
	f[CommandFrameLen-1] = Checksum(f[:CommandFrameLen-1])
	return f
}

// CommandName 命令码的可读名称
func CommandName(cmd byte) string {
	switch cmd {
	case CmdDeviceInfo:
		return "device_info"
	case CmdCellInfo:
		return "cell_info"
	default:
		return fmt.Sprintf("0x%02X", cmd)
	}
}

// hasNotificationHeader 判断是否为本协议上行帧
func hasNotificationHeader(b []byte) bool {
	if len(b) < headerLen {
		return false
	}
	return b[0] == notificationHeader[0] && b[1] == notificationHeader[1] &&
		b[2] == notificationHeader[2] && b[3] == notificationHeader[3]
}
