package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AgriDirect/AgriDirect/internal/common/config"
	"github.com/AgriDirect/AgriDirect/internal/common/discovery"
	"github.com/AgriDirect/AgriDirect/internal/common/logger"
	"github.com/AgriDirect/AgriDirect/internal/common/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterFunc 用于注册业务路由（handler.Register(r) 等）。
type RegisterFunc func(r *gin.Engine) error

type RunHTTPOptions struct {
	GinMode           string
	ShutdownTimeout   time.Duration
	RateLimitCapacity int64
	RateLimitRefill   int64
}

func defaultRunHTTPOptions() RunHTTPOptions {
	return RunHTTPOptions{
		GinMode:           gin.ReleaseMode,
		ShutdownTimeout:   5 * time.Second,
		RateLimitCapacity: 100,
		RateLimitRefill:   50,
	}
}

// RunHTTPServer 统一的 HTTP 服务启动模板：
// - 构建 gin engine（含恢复/追踪/访问日志/限流中间件链）
// - 注册 /healthz（供 Consul 的 HTTP check 探测）
// - 注册业务路由
// - 注册到 Consul
// - 优雅退出
func RunHTTPServer(cfg *config.Config, log logger.Logger, register RegisterFunc, opts ...func(*RunHTTPOptions)) error {
	if cfg == nil {
		return fmt.Errorf("cfg is nil")
	}
	if log == nil {
		return fmt.Errorf("log is nil")
	}

	o := defaultRunHTTPOptions()
	for _, apply := range opts {
		if apply != nil {
			apply(&o)
		}
	}

	// 初始化 Consul 客户端（失败不阻塞服务启动）
	consulClient, err := discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port)
	if err != nil {
		log.Warnf("failed to connect to Consul: %v", err)
		consulClient = nil
	}

	gin.SetMode(o.GinMode)
	r := gin.New()

	// 统一中间件链（按顺序执行）
	r.Use(
		middleware.Recovery(log),                                     // 异常恢复，避免服务崩溃
		middleware.Tracing(cfg.Server.Name),                          // 链路追踪
		middleware.AccessLog(log),                                    // 访问日志
		middleware.RateLimit(o.RateLimitCapacity, o.RateLimitRefill), // 按客户端限流
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	if register != nil {
		if err := register(r); err != nil {
			return fmt.Errorf("failed to register http routes: %w", err)
		}
	}

	// 注册到 Consul（成功才 defer 注销）
	if consulClient != nil {
		serviceID := fmt.Sprintf("%s-%s", cfg.Server.Name, uuid.New().String())
		registry := discovery.NewServiceRegistry(
			consulClient,
			serviceID,
			cfg.Server.Name,
			cfg.Server.Host,
			cfg.Server.HTTPPort,
			[]string{"http"},
		)
		if err := registry.Register(); err != nil {
			log.Warnf("failed to register service to Consul: %v", err)
		} else {
			log.Infof("Service registered to Consul: %s", serviceID)
			defer func() {
				if err := registry.Deregister(); err != nil {
					log.Warnf("failed to deregister service from Consul: %v", err)
				}
			}()
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Infof("%s starting on %s:%d", cfg.Server.Name, cfg.Server.Host, cfg.Server.HTTPPort)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infof("received signal %v, shutting down...", sig)
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http serve failed: %w", err)
		}
		return nil
	}

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), o.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("http shutdown timeout, forcing close: %v", err)
		_ = srv.Close()
	} else {
		log.Info("http server stopped gracefully")
	}

	return nil
}

// WithShutdownTimeout 修改优雅退出等待时间。
func WithShutdownTimeout(d time.Duration) func(*RunHTTPOptions) {
	return func(o *RunHTTPOptions) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}

// WithGinMode 修改 gin 运行模式（debug / release / test）。
func WithGinMode(mode string) func(*RunHTTPOptions) {
	return func(o *RunHTTPOptions) {
		if mode != "" {
			o.GinMode = mode
		}
	}
}

// WithRateLimit 修改限流参数。
func WithRateLimit(capacity, refill int64) func(*RunHTTPOptions) {
	return func(o *RunHTTPOptions) {
		if capacity > 0 {
			o.RateLimitCapacity = capacity
		}
		if refill > 0 {
			o.RateLimitRefill = refill
		}
	}
}
