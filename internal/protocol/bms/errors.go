package bms

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame 帧类型可识别但长度不足以覆盖字段布局
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrChecksumMismatch 设备信息帧校验和不一致（仅提示，字段仍可用）
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// MalformedFrameError 长度不足
type MalformedFrameError struct {
	Type FrameType
	Need int
	Got  int
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed %s frame: need %d bytes, got %d", e.Type, e.Need, e.Got)
}

func (e *MalformedFrameError) Unwrap() error { return ErrMalformedFrame }

// ChecksumError 校验和不一致
type ChecksumError struct {
	Expected byte
	Received byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: calculated 0x%02X, received 0x%02X", e.Expected, e.Received)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }
