package main

import (
	"alumni-network/app/server/apidocs"
	"alumni-network/app/server/constants"
	"alumni-network/app/server/envelope"
	"alumni-network/app/server/handlers"
	"alumni-network/app/server/inits"
	"alumni-network/app/server/jwt"
	"alumni-network/app/server/metrics"
	"alumni-network/app/server/middlewares"
	"alumni-network/app/server/models"
	"alumni-network/app/server/notify"
	"alumni-network/app/server/principals"
	"context"
	"errors"
	"fmt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	// 初始化配置
	cfg, err := inits.Config()
	if err != nil {
		log.Fatal(fmt.Errorf("error loading config: %w", err))
	}

	// 初始化日志
	l, err := inits.Logger(!cfg.System.IsProd)
	if err != nil {
		log.Fatal(fmt.Errorf("error initializing logger: %w", err))
	}
	defer l.Sync()

	// 切换日志系统
	l.Debug("logger initialized")

	// 初始化数据库连接
	db, err := inits.DB(cfg, l)
	if err != nil {
		l.Fatal("error initializing DB connection", zap.Error(err))
	}

	// 初始化 redis 连接
	rdb, err := inits.Redis(cfg.System.RedisConnectionString)
	if err != nil {
		l.Fatal("error initializing Redis connection", zap.Error(err))
	}

	// 初始化 JWT
	j, err := jwt.New(
		cfg.Security.AccessTokenSecret, cfg.Security.AccessTokenExpiry,
		cfg.Security.RefreshTokenSecret, cfg.Security.RefreshTokenExpiry,
	)
	if err != nil {
		l.Fatal("error initializing JWT", zap.Error(err))
	}

	// 初始化计数器，管理员可以通过快照接口读取
	mp := metrics.NewProvider()
	otel.SetMeterProvider(mp.MeterProvider())
	mtr, err := metrics.NewAuth(mp.MeterProvider())
	if err != nil {
		l.Fatal("error initializing metrics", zap.Error(err))
	}

	// 成员和管理员
	dir := principals.NewDirectory(
		principals.NewGormStore[models.Member](db),
		principals.NewGormStore[models.Admin](db),
	)

	// 准备 handler app
	handlerApp := handlers.NewApp(l, rdb, j, dir, notify.New(cfg, l), mtr, mp, cfg.System.IsProd)
	guard := middlewares.NewGuard(j, dir, rdb, l)

	// 准备 echo 服务
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = envelope.ErrorHandler(l)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			l.Info("request",
				zap.String("URI", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)

			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.System.CORSOrigins,
		AllowCredentials: true,
	}))

	// 添加 API 文档
	if !cfg.System.IsProd {
		if swgJson, err := apidocs.Spec(context.Background()); err != nil {
			l.Error("error loading api document", zap.Error(err))
		} else if doc, err := apidocs.Doc(constants.APIPrefix, swgJson); err != nil {
			l.Error("error initializing api docs", zap.Error(err))
		} else {
			e.Pre(doc)
		}
	}

	// 绑定 echo 服务
	handlerApp.RegisterRoutes(e, guard)

	// 启动 echo 服务，收到信号后优雅退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(cfg.System.Listen)
	}()

	select {
	case <-ctx.Done():
		l.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			l.Error("failed to shut down the server", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("shutting down the server", zap.Error(err))
		}
	}

	if err := mp.Shutdown(context.Background()); err != nil {
		l.Error("failed to shut down metrics", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		l.Error("failed to close redis", zap.Error(err))
	}
}
