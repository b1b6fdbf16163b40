package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cfgpkg "github.com/taoyao-code/bms-monitor/internal/config"
	"github.com/taoyao-code/bms-monitor/internal/health"
)

// Server HTTP 服务封装
type Server struct {
	srv *http.Server
}

// Options 路由依赖；为 nil 的项不注册或使用默认行为
type Options struct {
	MetricsPath    string
	MetricsHandler http.Handler
	ReadyFn        func() bool
	Health         *health.Aggregator
}

// New 创建 Gin + HTTP Server，注册探针、健康详情与指标路由
func New(cfg cfgpkg.HTTPConfig, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if opts.ReadyFn == nil || opts.ReadyFn() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if opts.Health != nil {
		r.GET("/health", func(c *gin.Context) {
			results := opts.Health.CheckAll(c.Request.Context())
			overall := health.Overall(results)
			code := http.StatusOK
			if overall == health.StatusUnhealthy {
				code = http.StatusServiceUnavailable
			}
			c.JSON(code, gin.H{
				"status":    overall,
				"timestamp": time.Now(),
				"checks":    results,
			})
		})
	}

	path := opts.MetricsPath
	if path == "" {
		path = "/metrics"
	}
	if opts.MetricsHandler != nil {
		r.GET(path, gin.WrapH(opts.MetricsHandler))
	}

	return &Server{srv: &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}}
}

// Start 启动 HTTP 服务（阻塞）
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
