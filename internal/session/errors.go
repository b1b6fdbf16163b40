package session

import (
	"errors"
	"fmt"
)

// ErrTransport 连接/订阅/写入/退订失败，只中止当前设备的会话
var ErrTransport = errors.New("transport failure")

// TransportError 携带设备标识与失败的操作
type TransportError struct {
	Device Device
	Op     string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Device, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }
