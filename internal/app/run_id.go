package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// NewRunID 生成运行ID
// 优先使用环境变量 BMS_RUN_ID，否则为 bms-{hostname}-{uuid前8位}
func NewRunID() string {
	if id := os.Getenv("BMS_RUN_ID"); id != "" {
		return id
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("bms-%s-%s", hostname, uuid.New().String()[:8])
}
