package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// deviceList 设备清单文件格式
//
//	devices:
//	  - localName: "Andrii 1"
//	    address: "c8:47:80:12:9b:46"
type deviceList struct {
	Devices []AllowedDevice `yaml:"devices"`
}

// LoadDeviceList 读取 YAML 设备清单
func LoadDeviceList(path string) ([]AllowedDevice, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device list: %w", err)
	}
	var l deviceList
	if err := yaml.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("unmarshal device list: %w", err)
	}
	for i, d := range l.Devices {
		if strings.TrimSpace(d.Address) == "" && strings.TrimSpace(d.LocalName) == "" {
			return nil, fmt.Errorf("device list %s: entry %d has neither address nor localName", path, i)
		}
	}
	return l.Devices, nil
}

// MergeDevices 合并两份清单，按地址（忽略大小写）去重，先出现者优先
func MergeDevices(a, b []AllowedDevice) []AllowedDevice {
	out := make([]AllowedDevice, 0, len(a)+len(b))
	seen := make(map[string]bool)
	for _, list := range [][]AllowedDevice{a, b} {
		for _, d := range list {
			key := strings.ToLower(strings.TrimSpace(d.Address))
			if key == "" {
				key = "name:" + d.LocalName
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, d)
		}
	}
	return out
}

// Allows 判断设备是否在允许范围内；清单为空时全部允许
func (c BLEConfig) Allows(address, localName string) bool {
	if c.NamePrefix != "" && !strings.HasPrefix(localName, c.NamePrefix) {
		return false
	}
	if len(c.AllowedDevices) == 0 {
		return true
	}
	for _, d := range c.AllowedDevices {
		if d.Address != "" && strings.EqualFold(strings.TrimSpace(d.Address), address) {
			return true
		}
		if d.LocalName != "" && d.LocalName == localName {
			return true
		}
	}
	return false
}

// AliasFor 清单中为该地址配置的名称
func (c BLEConfig) AliasFor(address string) (string, bool) {
	for _, d := range c.AllowedDevices {
		if d.LocalName != "" && strings.EqualFold(strings.TrimSpace(d.Address), address) {
			return d.LocalName, true
		}
	}
	return "", false
}
