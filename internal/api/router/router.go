package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Monkey2504/Swap-sub000/config"
	"github.com/Monkey2504/Swap-sub000/internal/api/handler"
	"github.com/Monkey2504/Swap-sub000/internal/api/middleware"
	"github.com/Monkey2504/Swap-sub000/internal/service"
	"github.com/Monkey2504/Swap-sub000/pkg/jwt"
	"github.com/Monkey2504/Swap-sub000/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, svc *service.Service, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(8 << 20)) // 排班单图片 base64 会比较大

	// ── 健康检查 ──
	// ai_configured 供前端决定是否展示排班单扫描入口
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":        "ok",
			"ai_configured": h != nil && svc.Roster.Configured(),
		})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证；登录注册加速率限制防爆破）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/register", middleware.RateLimit(rdb, 5, time.Minute), h.Auth.Register)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 段所列表（注册页用，无需认证）
		v1.GET("/depots", h.Depot.List)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 段所维护（仅管理员）
			authorized.POST("/depots", middleware.RoleAuth("admin"), h.Depot.Create)

			// 认证与档案模块
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/session", h.Auth.GetSession)
			authorized.GET("/profile", h.Auth.GetCurrentUser)
			authorized.PUT("/profile", h.Auth.UpdateProfile)
			authorized.DELETE("/profile", h.Auth.Deactivate)

			// 值乘模块
			duties := authorized.Group("/duties")
			{
				duties.GET("", h.Duty.List)
				duties.POST("", h.Duty.Create)
				duties.DELETE("", h.Duty.Clear)
				duties.DELETE("/:id", h.Duty.Delete)
				duties.POST("/batch-delete", h.Duty.BatchDelete)
				duties.POST("/scan", middleware.RateLimit(rdb, 10, time.Minute), h.Duty.ScanRoster)
			}

			// 图片编辑（AI）
			authorized.POST("/images/edit", middleware.RateLimit(rdb, 10, time.Minute), h.Duty.EditImage)

			// 换班市场模块
			swaps := authorized.Group("/swaps")
			{
				swaps.GET("", h.Swap.List)
				swaps.POST("", h.Swap.Publish)
				swaps.GET("/events", h.Swap.Events)
				swaps.POST("/match", middleware.RateLimit(rdb, 20, time.Minute), h.Swap.Match)
				swaps.POST("/:id/requests", h.Swap.Request)
				swaps.POST("/:id/requests/:request_id/accept", h.Swap.Accept)
			}

			// 换班偏好模块
			preferences := authorized.Group("/preferences")
			{
				preferences.GET("", h.Preference.List)
				preferences.PUT("", h.Preference.Save)
				preferences.GET("/export", h.Preference.Export)
				preferences.POST("/import", h.Preference.Import)
				preferences.PATCH("/:id", h.Preference.Update)
				preferences.DELETE("/:id", h.Preference.Delete)
			}

			// 值乘导出模块
			export := authorized.Group("/export")
			{
				export.GET("/duties.xlsx", h.Export.ExportXLSX)
				export.GET("/duties.ics", h.Export.ExportICS)
			}
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go
