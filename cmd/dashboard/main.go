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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-gin-user-dashboard/internal/core/config"
	"go-gin-user-dashboard/internal/core/logger"
	"go-gin-user-dashboard/internal/core/server"
	"go-gin-user-dashboard/internal/core/session"
	"go-gin-user-dashboard/internal/repo"
	"go-gin-user-dashboard/internal/service"
	"go-gin-user-dashboard/internal/transport/http/handler"
	mdw "go-gin-user-dashboard/internal/transport/http/middleware"
	"go-gin-user-dashboard/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))

	log, cleanup := logger.NewWithOptions(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: !cfg.Log.JSON,
		Rotate: logger.FileRotate{
			Enable:     cfg.Log.File.Enable,
			Filename:   cfg.Log.File.Filename,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	defer cleanup()

	// gin 自身输出 / 标准库 log 都走 zap
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(log, zapcore.ErrorLevel)
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	tableOpts, err := cfg.TableOptions()
	if err != nil {
		log.Fatal("table options", zap.Error(err))
	}

	// 依赖
	store := mustSessionStore(cfg, log)
	userRepo := repo.NewUserRepo(cfg.Upstream.BaseURL, cfg.Upstream.UsersPath, cfg.Upstream.PageSize, cfg.Upstream.Timeout())
	svc := service.NewDashboardService(log, userRepo, store, service.Options{
		Table:        tableOpts,
		FetchTimeout: cfg.Upstream.Timeout(),
	})
	h := handler.NewDashboardHandler(log, svc, "Users", cfg.Upstream.MountWait())

	hc := cfg.App.HTTP
	r, err := router.NewDashboardEngine(log, h, router.Options{
		RequestTimeout:   time.Duration(hc.RequestTimeoutSec) * time.Second,
		RateLimitRPS:     hc.RateLimitRPS,
		RateLimitBurst:   hc.RateLimitBurst,
		MaxConcurrency:   hc.MaxConcurrency,
		CredentialCookie: cfg.Upstream.CredentialCookie,
		Session: mdw.SessionCookie{
			Name:   cfg.Session.CookieName,
			MaxAge: int(cfg.Session.TTL().Seconds()),
			Secure: cfg.App.Env == "prod",
		},
	})
	if err != nil {
		log.Fatal("build router", zap.Error(err))
	}

	addr := server.Addr(hc.Host, hc.Port)
	srv := server.BuildServer(addr, r,
		time.Duration(hc.ReadTimeoutSec)*time.Second,
		time.Duration(hc.WriteTimeoutSec)*time.Second,
		time.Duration(hc.IdleTimeoutSec)*time.Second,
	)

	host4human := hc.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(hc.Port)
	log.Info("dashboard starting",
		zap.String("addr", addr),
		zap.String("open", baseURL+"/users"),
		zap.String("health", baseURL+"/health"),
		zap.String("upstream", cfg.Upstream.BaseURL+cfg.Upstream.UsersPath),
		zap.String("session_store", cfg.Session.Store),
	)

	go func() {
		if err := server.StartHTTP(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("dashboard start FAILED", zap.Error(err))
		}
	}()

	// 关闭：先停 HTTP，再取消还在进行的拉取
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	svc.Close()
	log.Info("dashboard stopped gracefully")
}

func mustSessionStore(cfg *config.Config, l *zap.Logger) session.Store {
	if cfg.Session.Store != "redis" {
		return session.NewMemoryStore(cfg.Session.TTL())
	}
	rdb := session.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		l.Fatal("redis ping", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	return session.NewRedisStore(rdb, cfg.Session.KeyPrefix, cfg.Session.TTL())
}
