package bms

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deviceInfoFrame 手工构造 0x03 帧（不经过 EncodeDeviceInfo）
func deviceInfoFrame(name, sn, fw, hw string, vendor []byte) []byte {
	b := make([]byte, 95+len(vendor)+1)
	copy(b, []byte{0x55, 0xAA, 0xEB, 0x90, 0x03})
	copy(b[5:35], name)
	copy(b[35:55], sn)
	copy(b[55:75], fw)
	copy(b[75:95], hw)
	copy(b[95:], vendor)
	sum := 0
	for _, v := range b[:len(b)-1] {
		sum += int(v)
	}
	b[len(b)-1] = byte(sum % 256)
	return b
}

func TestBuildCommand(t *testing.T) {
	for cmd := 0; cmd <= 0xFF; cmd++ {
		f := BuildCommand(byte(cmd))
		raw := f.Bytes()
		require.Len(t, raw, CommandFrameLen)
		assert.Equal(t, []byte{0xAA, 0x55, 0x90, 0xEB}, raw[:4])
		assert.Equal(t, byte(cmd), f.Type())
		assert.Equal(t, make([]byte, 14), raw[5:19], "reserved bytes must be zero")
		assert.Equal(t, Checksum(raw[:19]), raw[19])

		_, _, ok := VerifyChecksum(raw)
		assert.True(t, ok, "cmd 0x%02X checksum round-trip", cmd)
	}
}

func TestBuildCommandKnownFrames(t *testing.T) {
	// 0xAA+0x55+0x90+0xEB = 0x27A -> 0x7A
	assert.Equal(t, byte(0x11), BuildCommand(CmdDeviceInfo)[19]) // 0x7A+0x97
	assert.Equal(t, byte(0x10), BuildCommand(CmdCellInfo)[19])   // 0x7A+0x96
}

func TestBuildCommandBytesIsCopy(t *testing.T) {
	f := BuildCommand(CmdCellInfo)
	raw := f.Bytes()
	raw[0] = 0x00
	assert.Equal(t, byte(0xAA), f[0])
}

func TestClassifyAndParse_Ignored(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"nil", nil},
		{"空", []byte{}},
		{"短于4字节", []byte{0x55, 0xAA, 0xEB}},
		{"全零", []byte{0x00, 0x00, 0x00, 0x00}},
		{"仅帧头", []byte{0x55, 0xAA, 0xEB, 0x90}},
		{"下行帧头", BuildCommand(CmdDeviceInfo).Bytes()},
		{"帧头错误", []byte{0x55, 0xAA, 0xEB, 0x91, 0x02, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ClassifyAndParse(tt.raw)
			assert.Equal(t, KindIgnored, res.Kind)
			assert.NoError(t, res.Err)
		})
	}
}

func TestClassifyAndParse_DeviceInfo(t *testing.T) {
	raw := deviceInfoFrame("Batt1", "SN123", "v1.0", "hw2", nil)
	require.Len(t, raw, 96)

	res := ClassifyAndParse(raw)
	require.Equal(t, KindDeviceInfo, res.Kind)
	require.NoError(t, res.Err)
	require.NotNil(t, res.DeviceInfo)

	d := res.DeviceInfo
	assert.Equal(t, "Batt1", d.Name)
	assert.Equal(t, "SN123", d.SerialNumber)
	assert.Equal(t, "v1.0", d.FirmwareVersion)
	assert.Equal(t, "hw2", d.HardwareVersion)
	assert.True(t, d.ChecksumOK)
	assert.Empty(t, d.Vendor)
}

func TestClassifyAndParse_DeviceInfoVendorAndWhitespace(t *testing.T) {
	raw := deviceInfoFrame("  JK_B2A24S ", "SN\x00", "v11.48\n", "hw\t", []byte{0x01, 0x02, 0x03})

	res := ClassifyAndParse(raw)
	require.Equal(t, KindDeviceInfo, res.Kind)
	d := res.DeviceInfo
	assert.Equal(t, "JK_B2A24S", d.Name)
	assert.Equal(t, "SN", d.SerialNumber)
	assert.Equal(t, "v11.48", d.FirmwareVersion)
	assert.Equal(t, "hw", d.HardwareVersion)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, d.Vendor)
}

func TestClassifyAndParse_DeviceInfoInvalidUTF8(t *testing.T) {
	raw := deviceInfoFrame("Ba\xfftt", "\xc3", "v1", "hw", nil)

	res := ClassifyAndParse(raw)
	require.Equal(t, KindDeviceInfo, res.Kind)
	assert.Equal(t, "Batt", res.DeviceInfo.Name)
	assert.Equal(t, "", res.DeviceInfo.SerialNumber)
	assert.True(t, res.DeviceInfo.ChecksumOK)
}

func TestClassifyAndParse_DeviceInfoChecksumMismatch(t *testing.T) {
	raw := deviceInfoFrame("Batt1", "SN123", "v1.0", "hw2", nil)
	good := raw[len(raw)-1]
	raw[len(raw)-1] = good + 1

	res := ClassifyAndParse(raw)
	require.Equal(t, KindDeviceInfo, res.Kind, "checksum mismatch is advisory")
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, ErrChecksumMismatch))

	var ce *ChecksumError
	require.True(t, errors.As(res.Err, &ce))
	assert.Equal(t, good, ce.Expected)
	assert.Equal(t, good+1, ce.Received)

	require.NotNil(t, res.DeviceInfo)
	assert.Equal(t, "Batt1", res.DeviceInfo.Name)
	assert.False(t, res.DeviceInfo.ChecksumOK)
}

func TestClassifyAndParse_DeviceInfoTooShort(t *testing.T) {
	raw := deviceInfoFrame("Batt1", "SN123", "v1.0", "hw2", nil)[:95]

	res := ClassifyAndParse(raw)
	assert.Equal(t, KindMalformed, res.Kind)
	assert.Nil(t, res.DeviceInfo)
	assert.True(t, errors.Is(res.Err, ErrMalformedFrame))

	var me *MalformedFrameError
	require.True(t, errors.As(res.Err, &me))
	assert.Equal(t, FrameDeviceInfo, me.Type)
	assert.Equal(t, 96, me.Need)
	assert.Equal(t, 95, me.Got)
}

func TestClassifyAndParse_CellInfo(t *testing.T) {
	raw := []byte{0x55, 0xAA, 0xEB, 0x90, 0x02, 0x03,
		0xAC, 0x0D, // 3500
		0x00, 0x00, // 0
		0xA0, 0x0F, // 4000
	}

	res := ClassifyAndParse(raw)
	require.Equal(t, KindCellInfo, res.Kind)
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.CellInfo.Declared)
	assert.Equal(t, 2, res.CellInfo.Count)
	assert.Equal(t, []CellReading{{Index: 1, Volts: 3.5}, {Index: 3, Volts: 4.0}}, res.CellInfo.Cells)
}

func TestClassifyAndParse_CellInfoTrailingBytesIgnored(t *testing.T) {
	raw := append(EncodeCellInfo([]uint16{3300}), 0xDE, 0xAD, 0xBE, 0xEF)

	res := ClassifyAndParse(raw)
	require.Equal(t, KindCellInfo, res.Kind)
	assert.Equal(t, []CellReading{{Index: 1, Volts: 3.3}}, res.CellInfo.Cells)
}

func TestClassifyAndParse_CellInfoZeroCells(t *testing.T) {
	res := ClassifyAndParse([]byte{0x55, 0xAA, 0xEB, 0x90, 0x02, 0x00})
	require.Equal(t, KindCellInfo, res.Kind)
	assert.Equal(t, 0, res.CellInfo.Count)
	assert.Empty(t, res.CellInfo.Cells)
}

func TestClassifyAndParse_CellInfoTruncated(t *testing.T) {
	// 声明 5 个电芯，只给 4 字节电压数据
	raw := []byte{0x55, 0xAA, 0xEB, 0x90, 0x02, 0x05, 0xAC, 0x0D, 0xA0, 0x0F}

	res := ClassifyAndParse(raw)
	assert.Equal(t, KindMalformed, res.Kind)
	assert.Nil(t, res.CellInfo, "no partial cell list")
	assert.True(t, errors.Is(res.Err, ErrMalformedFrame))

	var me *MalformedFrameError
	require.True(t, errors.As(res.Err, &me))
	assert.Equal(t, 16, me.Need)
	assert.Equal(t, 10, me.Got)
}

func TestClassifyAndParse_CellInfoMissingCount(t *testing.T) {
	res := ClassifyAndParse([]byte{0x55, 0xAA, 0xEB, 0x90, 0x02})
	assert.Equal(t, KindMalformed, res.Kind)
	assert.True(t, errors.Is(res.Err, ErrMalformedFrame))
}

func TestClassifyAndParse_Unknown(t *testing.T) {
	res := ClassifyAndParse([]byte{0x55, 0xAA, 0xEB, 0x90, 0x55, 0x01, 0x02})
	assert.Equal(t, KindUnknown, res.Kind)
	assert.Equal(t, FrameType(0x55), res.Type)
	assert.NoError(t, res.Err)
	assert.Equal(t, "unknown frame type 0x55", res.String())
}

func TestParseCellInfo_MaxCells(t *testing.T) {
	mv := make([]uint16, 255)
	for i := range mv {
		mv[i] = uint16(3000 + i)
	}
	info, err := ParseCellInfo(EncodeCellInfo(mv))
	require.NoError(t, err)
	assert.Equal(t, 255, info.Count)
	assert.Equal(t, 255, info.Cells[254].Index)
	assert.InDelta(t, 3.254, info.Cells[254].Volts, 1e-9)
}

func TestEncodeCellInfo_TruncatesAtMaxCells(t *testing.T) {
	mv := make([]uint16, MaxCells+10)
	for i := range mv {
		mv[i] = 3300
	}
	raw := EncodeCellInfo(mv)
	assert.Len(t, raw, 6+2*MaxCells)
	assert.Equal(t, byte(MaxCells), raw[5])

	info, err := ParseCellInfo(raw)
	require.NoError(t, err)
	assert.Equal(t, MaxCells, info.Declared)
	assert.Equal(t, MaxCells, info.Count)
}

func TestEncodeDeviceInfoRoundTrip(t *testing.T) {
	in := DeviceInfo{Name: "BMS-A", SerialNumber: "4011A", FirmwareVersion: "11.XW", HardwareVersion: "11.A", Vendor: []byte{9, 8, 7}}
	out, err := ParseDeviceInfo(EncodeDeviceInfo(in))
	require.NoError(t, err)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.SerialNumber, out.SerialNumber)
	assert.Equal(t, in.FirmwareVersion, out.FirmwareVersion)
	assert.Equal(t, in.HardwareVersion, out.HardwareVersion)
	assert.Equal(t, in.Vendor, out.Vendor)
	assert.True(t, out.ChecksumOK)
}

func TestCellInfoStats(t *testing.T) {
	info, err := ParseCellInfo(EncodeCellInfo([]uint16{3310, 0, 3290, 3350}))
	require.NoError(t, err)

	lo, ok := info.MinCell()
	require.True(t, ok)
	assert.Equal(t, 3, lo.Index)
	hi, ok := info.MaxCell()
	require.True(t, ok)
	assert.Equal(t, 4, hi.Index)
	assert.InDelta(t, 0.060, info.Delta(), 1e-9)
	assert.InDelta(t, 9.950, info.TotalVolts(), 1e-9)

	var empty *CellInfo
	_, ok = empty.MinCell()
	assert.False(t, ok)
	assert.Equal(t, 0.0, empty.Delta())
}

func TestResultString(t *testing.T) {
	res := ClassifyAndParse(EncodeCellInfo([]uint16{3500, 0, 4000}))
	assert.Equal(t, "cell info count=2 cell1=3.500V cell3=4.000V", res.String())
	assert.Equal(t, "ignored", ClassifyAndParse(nil).String())
}

func TestClassifyAndParse_EdgeFrames(t *testing.T) {
	assert.Equal(t, KindIgnored, ClassifyAndParse([]byte{0x55, 0xAA, 0xEB, 0x90}).Kind)

	filler := bytes.Repeat([]byte{0xFF}, 96)
	copy(filler, []byte{0x55, 0xAA, 0xEB, 0x90, 0x03})
	filler[95] = Checksum(filler[:95])
	di := ClassifyAndParse(filler)
	require.Equal(t, KindDeviceInfo, di.Kind)
	require.NoError(t, di.Err)
	assert.Equal(t, "", di.DeviceInfo.Name)
	assert.True(t, di.DeviceInfo.ChecksumOK)

	short := ClassifyAndParse([]byte{0x55, 0xAA, 0xEB, 0x90, 0x02, 0x05, 0xAC, 0x0D, 0xA0, 0x0F})
	assert.Equal(t, KindMalformed, short.Kind)
	assert.Nil(t, short.CellInfo)
	assert.Contains(t, short.Err.Error(), "need 16 bytes, got 10")

	assert.Equal(t, KindUnknown, ClassifyAndParse([]byte{0x55, 0xAA, 0xEB, 0x90, 0x55}).Kind)
}
