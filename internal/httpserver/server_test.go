package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/bms-monitor/internal/config"
	"github.com/taoyao-code/bms-monitor/internal/health"
	appmetrics "github.com/taoyao-code/bms-monitor/internal/metrics"
)

type staticChecker struct{ status health.Status }

func (s staticChecker) Name() string { return "ble" }
func (s staticChecker) Check(context.Context) health.CheckResult {
	return health.CheckResult{Status: s.status}
}

func serve(s *Server, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func testCfg() cfgpkg.HTTPConfig {
	return cfgpkg.HTTPConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second}
}

func TestHealthzReadyzMetrics(t *testing.T) {
	reg := appmetrics.NewRegistry()
	appmetrics.NewBMSMetrics(reg)
	srv := New(testCfg(), Options{
		MetricsPath:    "/metrics",
		MetricsHandler: appmetrics.Handler(reg),
		ReadyFn:        func() bool { return true },
	})

	assert.Equal(t, http.StatusOK, serve(srv, "/healthz").Code)
	assert.Equal(t, http.StatusOK, serve(srv, "/readyz").Code)

	rr := serve(srv, "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "bms_checksum_mismatch_total")

	// 未配置聚合器时不注册 /health
	assert.Equal(t, http.StatusNotFound, serve(srv, "/health").Code)
}

func TestReadyzNotReady(t *testing.T) {
	srv := New(testCfg(), Options{ReadyFn: func() bool { return false }})
	rr := serve(srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "not-ready", rr.Body.String())
}

func TestHealthDetail(t *testing.T) {
	agg := health.NewAggregator(staticChecker{health.StatusDegraded})
	srv := New(testCfg(), Options{Health: agg})

	rr := serve(srv, "/health")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Status string                        `json:"status"`
		Checks map[string]health.CheckResult `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Contains(t, body.Checks, "ble")

	down := New(testCfg(), Options{Health: health.NewAggregator(staticChecker{health.StatusUnhealthy})})
	assert.Equal(t, http.StatusServiceUnavailable, serve(down, "/health").Code)
}
