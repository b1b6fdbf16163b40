package health

import "sync/atomic"

// Readiness 就绪状态：BLE 适配器已启用且首次扫描完成
type Readiness struct {
	adapterReady atomic.Bool
	scanned      atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetAdapterReady(v bool) { r.adapterReady.Store(v) }
func (r *Readiness) SetScanned(v bool)      { r.scanned.Store(v) }

// Ready 各子状态均为 true
func (r *Readiness) Ready() bool {
	return r.adapterReady.Load() && r.scanned.Load()
}
