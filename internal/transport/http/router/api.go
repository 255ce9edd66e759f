package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hrms-backend/internal/core/config"
	"hrms-backend/internal/core/metrics"
	"hrms-backend/internal/core/server"
	"hrms-backend/internal/service"
	"hrms-backend/internal/transport/http/handler"
	mdw "hrms-backend/internal/transport/http/middleware"
	resp "hrms-backend/internal/transport/http/response"
)

type Deps struct {
	Log      *zap.Logger
	Auth     *service.AuthService
	Users    *service.UserService
	Metrics  *metrics.Collector  // nil 时不采集
	Gatherer prometheus.Gatherer // nil 时不暴露 /metrics
	Modules  *Registry
	Health   func(ctx context.Context) error // 例如 db ping
}

type Options struct {
	CORSOrigins []string
	Limits      config.Limits
	Policy      handler.Policy
}

func orDefault[T int | int64 | float64](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

func NewAPIEngine(d Deps, o Options) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	lim := o.Limits
	r := server.NewRouter(d.Log, server.Options{CORSOrigins: o.CORSOrigins})

	// 中间件
	chain := []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(orDefault(lim.RPS, 200)), orDefault(lim.Burst, 400)),
		mdw.ConcurrencyLimit(orDefault(lim.Concurrency, 300)),
		mdw.MaxBodyBytes(orDefault(lim.MaxBodyBytes, 16<<20)),
		mdw.Timeout(time.Duration(orDefault(lim.TimeoutSec, 10)) * time.Second),
	}
	if d.Metrics != nil {
		chain = append(chain, mdw.Metrics(d.Metrics))
	}
	chain = append(chain, mdw.AccessLog(d.Log))
	r.Use(chain...)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health(c.Request.Context()); err != nil {
				d.Log.Warn("health check failed", zap.Error(err))
				resp.Fail(c, resp.CodeUnavailable, "unavailable")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))
	}

	// 前缀
	api := r.Group("/api/v1")
	guard := mdw.AuthJWT(d.Auth)

	// 认证 + 用户管理；未登录接口按 IP 限速
	authLimit := mdw.RateLimitPerIP(rate.Limit(orDefault(lim.AuthRPS, 5)), orDefault(lim.AuthBurst, 10))
	handler.NewAuthHandler(d.Auth, d.Users, o.Policy, d.Log).
		Mount(api.Group("/auth"), guard, authLimit)

	// 业务模块（鉴权分组）
	d.Modules.MountAll(api.Group("", guard))

	return r
}
