// LineCrew 排班服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paiban/linecrew/internal/cache"
	"github.com/paiban/linecrew/internal/config"
	"github.com/paiban/linecrew/internal/database"
	"github.com/paiban/linecrew/internal/handler"
	"github.com/paiban/linecrew/internal/metrics"
	"github.com/paiban/linecrew/internal/repository"
	"github.com/paiban/linecrew/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load(os.Getenv("APP_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LoggerConfig())

	fmt.Printf("LineCrew 排班服务 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	ctx := context.Background()
	options := []handler.Option{
		handler.WithBuildInfo(handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit}),
		handler.WithRateLimit(cfg.App.RateLimit),
	}

	if cfg.Metrics.Enabled {
		options = append(options, handler.WithMetrics(metrics.New(nil, metrics.DefaultNamespace)))
	}

	if cfg.Database.Enabled {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("连接数据库失败")
		}
		defer db.Close()

		if err := repository.Migrate(ctx, db); err != nil {
			logger.Fatal().Err(err).Msg("数据库迁移失败")
		}
		options = append(options,
			handler.WithStore(repository.NewRosterRepository(db)),
			handler.WithHealthCheck("database", db.Health),
		)
	}

	if cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
		if err != nil {
			logger.Fatal().Err(err).Msg("连接Redis失败")
		}
		defer client.Close()

		options = append(options,
			handler.WithCache(cache.New(client, cfg.Redis.TTL)),
			handler.WithHealthCheck("redis", func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}),
		)
	}

	h, err := handler.New(cfg.EngineOptions(), options...)
	if err != nil {
		logger.Fatal().Err(err).Msg("创建处理器失败")
	}

	port := fmt.Sprintf("%d", cfg.App.Port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Str("port", port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Bool("database", cfg.Database.Enabled).
			Bool("redis", cfg.Redis.Enabled).
			Str("url", fmt.Sprintf("http://localhost:%s", port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}
