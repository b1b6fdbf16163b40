package bms

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReplay 离线通知序列回放：噪声、设备信息、电芯信息、未知类型、截断帧
func TestReplay(t *testing.T) {
	capture := [][]byte{
		{0x01, 0x02, 0x03},
		EncodeDeviceInfo(DeviceInfo{Name: "JK_B2A24S", SerialNumber: "3052612345", FirmwareVersion: "11.XW_S11.26", HardwareVersion: "11.XW"}),
		EncodeCellInfo([]uint16{3321, 3318, 3320, 3319}),
		mustHex(t, "55aaeb9001ff"),
		mustHex(t, "55aaeb900208f40c"),
		mustHex(t, "aa5590eb970000"),
	}

	var kinds []Kind
	for _, raw := range capture {
		kinds = append(kinds, ClassifyAndParse(raw).Kind)
	}
	assert.Equal(t, []Kind{KindIgnored, KindDeviceInfo, KindCellInfo, KindUnknown, KindMalformed, KindIgnored}, kinds)

	di := ClassifyAndParse(capture[1])
	require.NoError(t, di.Err)
	assert.Equal(t, "11.XW_S11.26", di.DeviceInfo.FirmwareVersion)

	ci := ClassifyAndParse(capture[2])
	require.Equal(t, 4, ci.CellInfo.Count)
	assert.InDelta(t, 13.278, ci.CellInfo.TotalVolts(), 1e-9)
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}
