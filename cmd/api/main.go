package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/core/cache"
	"hrms-backend/internal/core/config"
	"hrms-backend/internal/core/database"
	"hrms-backend/internal/core/events"
	"hrms-backend/internal/core/logger"
	"hrms-backend/internal/core/metrics"
	"hrms-backend/internal/core/server"
	"hrms-backend/internal/feature/worklog"
	"hrms-backend/internal/repo"
	"hrms-backend/internal/service"
	"hrms-backend/internal/transport/http/handler"
	"hrms-backend/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, cleanup := logger.Build(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: cfg.IsDev() && !cfg.Log.JSON,
		Rotate: logger.FileRotate{
			Enable:     cfg.Log.Rotate.Enable,
			Filename:   cfg.Log.Rotate.Filename,
			MaxSizeMB:  cfg.Log.Rotate.MaxSizeMB,
			MaxBackups: cfg.Log.Rotate.MaxBackups,
			MaxAgeDays: cfg.Log.Rotate.MaxAgeDays,
			Compress:   cfg.Log.Rotate.Compress,
		},
	})
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	for _, w := range cfg.Warnings() {
		log.Warn("config", zap.String("warning", w))
	}

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	// 自动迁移
	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		if err := worklog.Migrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// 依赖
	store := repo.NewStore(db)
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	deps := service.Deps{
		Store:  store,
		Hasher: auth.NewHasher(cfg.Auth.BcryptCost),
		JWT: &auth.JWTer{
			Secret: []byte(cfg.JWT.Secret),
			Issuer: cfg.JWT.Issuer,
			TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
		},
		Refresh: service.NewRefreshManager(&auth.RefreshTokens{
			TTL: time.Duration(cfg.Auth.RefreshTokenTTLDays) * 24 * time.Hour,
		}, nil),
		Roles:   service.NewRoleService(store, cfg.Auth.DefaultRole, cfg.Auth.RoleVocabulary),
		Events:  events.Nop{},
		Metrics: collector,
		Log:     log,
	}

	// redis 可选：用户视图缓存
	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer c.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.Ping(ctx); err != nil {
			log.Warn("redis unreachable, cache reads will fall through", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		deps.Cache = service.NewRedisViewCache(c, time.Duration(cfg.Redis.UserCacheTTLSec)*time.Second, log)
	}
	// AMQP 可选：认证事件
	var pub *events.Publisher
	if cfg.AMQP.URL != "" {
		pub = events.NewPublisher(events.Options{URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange}, log)
		deps.Events = pub
		log.Info("auth events enabled", zap.String("exchange", cfg.AMQP.Exchange))
	}

	authSvc := service.NewAuthService(deps, cfg.Auth.PublicRoles)
	userSvc := service.NewUserService(deps)

	// 路由（用户端）
	r := router.NewAPIEngine(router.Deps{
		Log:      log,
		Auth:     authSvc,
		Users:    userSvc,
		Metrics:  collector,
		Gatherer: prometheus.DefaultGatherer,
		Modules:  router.NewRegistry(worklog.New(db, log, cfg.Auth.UsersEndpointAllowed)),
		Health: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}, router.Options{
		CORSOrigins: cfg.App.HTTP.CORSOrigins,
		Limits:      cfg.Limits,
		Policy: handler.Policy{
			UsersAllowed:   cfg.Auth.UsersEndpointAllowed,
			UserGetAllowed: cfg.Auth.UserGetEndpointAllowed,
			AssignAllowed:  cfg.Auth.AssignRolesAllowed,
			RefreshCookie:  cfg.Auth.RefreshCookie,
		},
	})

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("hrms api starting",
		zap.String("env", cfg.App.Env),
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("auth", baseURL+"/api/v1/auth"),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("hrms api start FAILED", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	// 请求已停止，发完剩余事件
	if pub != nil {
		if err := pub.Close(ctx); err != nil {
			log.Warn("event publisher close", zap.Error(err))
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("hrms api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Writer:             logger.ToStdLogger(l.Named("gorm"), zapcore.InfoLevel),
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
