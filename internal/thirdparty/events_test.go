package thirdparty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatConnectedDevices(t *testing.T) {
	tests := []struct {
		name  string
		lines []DeviceLine
		want  string
	}{
		{"empty", nil, NoDevicesMessage},
		{"all failed", []DeviceLine{{Address: "A", Name: "x", OK: false}}, NoDevicesMessage},
		{
			"mixed",
			[]DeviceLine{
				{Address: "C8:47:80:12:9B:46", Name: "Andrii 1", OK: true},
				{Address: "C8:47:80:21:BC:F4", Name: "Andrii 2", OK: false},
				{Address: "C8:47:80:12:41:99", Name: "Andrii 3", OK: true},
			},
			"[C8:47:80:12:9B:46] Andrii 1\n[C8:47:80:12:41:99] Andrii 3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatConnectedDevices(tt.lines))
		})
	}
}

func TestNewRunSummaryEvent(t *testing.T) {
	ev := NewRunSummaryEvent("run-1", time.Unix(1700000000, 0), []DeviceLine{
		{Address: "A", Name: "a", OK: true},
		{Address: "B", Name: "b", Error: "connect B: timeout"},
	})
	assert.Equal(t, EventRunSummary, ev.Event)
	assert.EqualValues(t, 1700000000, ev.Timestamp)
	assert.Equal(t, 2, ev.Data["total"])
	assert.Equal(t, 1, ev.Data["failed"])
	assert.Equal(t, "[A] a", ev.Data["message"])
}
