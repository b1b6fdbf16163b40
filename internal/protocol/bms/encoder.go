package bms

import "encoding/binary"

// 上行帧编码（与 Parse 对应），用于模拟设备与回放测试

// putField 写入定长字段，超长截断，不足补 0
func putField(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// EncodeDeviceInfo 构造一帧 0x03 设备信息帧，尾部校验和按全部前序字节计算
func EncodeDeviceInfo(info DeviceInfo) []byte {
	buf := make([]byte, vendorStart+len(info.Vendor)+1)
	copy(buf[:headerLen], notificationHeader[:])
	buf[typeOffset] = byte(FrameDeviceInfo)
	putField(buf[nameStart:serialStart], info.Name)
	putField(buf[serialStart:firmwareStart], info.SerialNumber)
	putField(buf[firmwareStart:hardwareStart], info.FirmwareVersion)
	putField(buf[hardwareStart:vendorStart], info.HardwareVersion)
	copy(buf[vendorStart:], info.Vendor)
	buf[len(buf)-1] = Checksum(buf[:len(buf)-1])
	return buf
}

// MaxCells 电芯数量字段为单字节，一帧最多 255 节
const MaxCells = 0xFF

// EncodeCellInfo 构造一帧 0x02 电芯信息帧，millivolts 按电芯顺序排列；超过 MaxCells 的部分被截断
func EncodeCellInfo(millivolts []uint16) []byte {
	if len(millivolts) > MaxCells {
		millivolts = millivolts[:MaxCells]
	}
	buf := make([]byte, cellDataStart+2*len(millivolts))
	copy(buf[:headerLen], notificationHeader[:])
	buf[typeOffset] = byte(FrameCellInfo)
	buf[cellCountOffset] = byte(len(millivolts))
	for i, mv := range millivolts {
		binary.LittleEndian.PutUint16(buf[cellDataStart+2*i:], mv)
	}
	return buf
}
