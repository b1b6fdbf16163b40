package bms

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"
)

// 设备信息帧字段偏移
const (
	nameStart     = 5
	serialStart   = 35
	firmwareStart = 55
	hardwareStart = 75
	vendorStart   = 95

	// DeviceInfoMinLen 覆盖全部定长字段与尾部校验字节
	DeviceInfoMinLen = vendorStart + 1

	cellCountOffset = 5
	cellDataStart   = 6
	minClassifyLen  = typeOffset + 1
)

// DeviceInfo 设备信息帧（0x03）
type DeviceInfo struct {
	Name            string
	SerialNumber    string
	FirmwareVersion string
	HardwareVersion string
	// Vendor 厂商自定义尾部数据（不含校验字节）
	Vendor []byte

	ChecksumOK       bool
	ChecksumExpected byte
	ChecksumReceived byte
}

// CellReading 单个电芯读数，Index 从 1 开始
type CellReading struct {
	Index int
	Volts float64
}

// CellInfo 电芯信息帧（0x02）
type CellInfo struct {
	// Declared 帧内声明的电芯数量
	Declared int
	// Count 实际保留的读数数量（电压为 0 的电芯被省略）
	Count int
	Cells []CellReading
}

// Kind 上行帧分类结果
type Kind int

const (
	KindIgnored Kind = iota
	KindDeviceInfo
	KindCellInfo
	KindUnknown
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindIgnored:
		return "ignored"
	case KindDeviceInfo:
		return "device_info"
	case KindCellInfo:
		return "cell_info"
	case KindUnknown:
		return "unknown"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result ClassifyAndParse 的输出
// Err 仅在 KindMalformed（长度不足）或 KindDeviceInfo（校验和不一致，字段仍有效）时非 nil
type Result struct {
	Kind       Kind
	Type       FrameType
	DeviceInfo *DeviceInfo
	CellInfo   *CellInfo
	Err        error
}

func (r Result) String() string {
	switch r.Kind {
	case KindDeviceInfo:
		d := r.DeviceInfo
		return fmt.Sprintf("device info name=%q sn=%q fw=%q hw=%q checksum_ok=%t",
			d.Name, d.SerialNumber, d.FirmwareVersion, d.HardwareVersion, d.ChecksumOK)
	case KindCellInfo:
		var sb strings.Builder
		fmt.Fprintf(&sb, "cell info count=%d", r.CellInfo.Count)
		for _, c := range r.CellInfo.Cells {
			fmt.Fprintf(&sb, " cell%d=%.3fV", c.Index, c.Volts)
		}
		return sb.String()
	case KindUnknown:
		return fmt.Sprintf("unknown frame type %s", r.Type)
	case KindMalformed:
		return r.Err.Error()
	default:
		return "ignored"
	}
}

// ClassifyAndParse 校验上行 magic 后按帧类型分发解析
// 与本协议无关的数据返回 KindIgnored；解析失败不会 panic，以 KindMalformed 返回
func ClassifyAndParse(raw []byte) Result {
	if len(raw) < minClassifyLen || !hasNotificationHeader(raw) {
		return Result{Kind: KindIgnored}
	}

	ft := FrameType(raw[typeOffset])
	switch ft {
	case FrameDeviceInfo:
		info, err := ParseDeviceInfo(raw)
		if info == nil {
			return Result{Kind: KindMalformed, Type: ft, Err: err}
		}
		return Result{Kind: KindDeviceInfo, Type: ft, DeviceInfo: info, Err: err}
	case FrameCellInfo:
		info, err := ParseCellInfo(raw)
		if err != nil {
			return Result{Kind: KindMalformed, Type: ft, Err: err}
		}
		return Result{Kind: KindCellInfo, Type: ft, CellInfo: info}
	default:
		return Result{Kind: KindUnknown, Type: ft}
	}
}

// ParseDeviceInfo 解析 0x03 帧
// 返回 (info, *ChecksumError) 表示字段已解析但校验和不一致；(nil, *MalformedFrameError) 表示长度不足
func ParseDeviceInfo(raw []byte) (*DeviceInfo, error) {
	if len(raw) < DeviceInfoMinLen {
		return nil, &MalformedFrameError{Type: FrameDeviceInfo, Need: DeviceInfoMinLen, Got: len(raw)}
	}

	last := len(raw) - 1
	info := &DeviceInfo{
		Name:            decodeField(raw[nameStart:serialStart]),
		SerialNumber:    decodeField(raw[serialStart:firmwareStart]),
		FirmwareVersion: decodeField(raw[firmwareStart:hardwareStart]),
		HardwareVersion: decodeField(raw[hardwareStart:vendorStart]),
		Vendor:          append([]byte(nil), raw[vendorStart:last]...),
	}

	expected, received, ok := VerifyChecksum(raw)
	info.ChecksumOK = ok
	info.ChecksumExpected = expected
	info.ChecksumReceived = received
	if !ok {
		return info, &ChecksumError{Expected: expected, Received: received}
	}
	return info, nil
}

// ParseCellInfo 解析 0x02 帧，协议未定义该帧的校验和
func ParseCellInfo(raw []byte) (*CellInfo, error) {
	if len(raw) < cellDataStart {
		return nil, &MalformedFrameError{Type: FrameCellInfo, Need: cellDataStart, Got: len(raw)}
	}
	n := int(raw[cellCountOffset])
	need := cellDataStart + 2*n
	if len(raw) < need {
		return nil, &MalformedFrameError{Type: FrameCellInfo, Need: need, Got: len(raw)}
	}

	info := &CellInfo{Declared: n, Cells: make([]CellReading, 0, n)}
	for i := 0; i < n; i++ {
		off := cellDataStart + 2*i
		mv := binary.LittleEndian.Uint16(raw[off : off+2])
		if mv == 0 {
			continue
		}
		info.Cells = append(info.Cells, CellReading{Index: i + 1, Volts: float64(mv) / 1000})
	}
	info.Count = len(info.Cells)
	return info, nil
}

// decodeField 宽松解码：丢弃非法 UTF-8 序列，去掉首尾 NUL 与空白
func decodeField(b []byte) string {
	s := strings.ToValidUTF8(string(b), "")
	return strings.TrimFunc(s, func(r rune) bool {
		return r == 0 || unicode.IsSpace(r)
	})
}
