package router

import (
	"fmt"
	"strings"

	"github.com/skinshop-next/internal/cache"
	"github.com/skinshop-next/internal/config"
	adminhandlers "github.com/skinshop-next/internal/http/handlers/admin"
	publichandlers "github.com/skinshop-next/internal/http/handlers/public"
	"github.com/skinshop-next/internal/logger"
	"github.com/skinshop-next/internal/metrics"
	"github.com/skinshop-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "skinshop"
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many login attempts, retry in %d seconds",
	}
	localLimiter := NewLocalLimiter(cfg.Security.LocalRateLimit.RequestsPerSecond, cfg.Security.LocalRateLimit.Burst)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(metrics.GinMiddleware())

	apiV1 := r.Group("/api/v1")
	apiV1.Use(DeviceIDMiddleware())
	{
		// 登录 / 登出（无需会话）
		auth := apiV1.Group("/auth")
		{
			auth.POST("/login", RateLimitMiddleware(cache.Client(), loginRule, KeyByIPAndJSONField("email"), localLimiter), publicHandler.Login)
			auth.POST("/token", RateLimitMiddleware(cache.Client(), loginRule, KeyByIP, localLimiter), publicHandler.LoginWithToken)
			auth.POST("/logout", publicHandler.Logout)
		}

		// 需要会话，按角色区域授权
		authorized := apiV1.Group("")
		authorized.Use(SessionMiddleware(c.SessionService), RoleAreaMiddleware(c.AuthzService))
		{
			authorized.GET("/me", publicHandler.Me)
			authorized.PUT("/me/profile", publicHandler.UpdateProfile)
			authorized.PUT("/me/password", publicHandler.ChangePassword)

			authorized.GET("/cart", publicHandler.GetCart)
			authorized.GET("/cart/count", publicHandler.GetCartCount)
			authorized.POST("/cart/items", publicHandler.AddCartItem)
			authorized.PUT("/cart/items/:item_id", publicHandler.UpdateCartItem)
			authorized.DELETE("/cart/items/:item_id", publicHandler.DeleteCartItem)
			authorized.POST("/cart/selection/toggle", publicHandler.ToggleSelection)
			authorized.POST("/cart/selection/toggle-all", publicHandler.ToggleAllSelection)

			authorized.POST("/checkout/drafts", publicHandler.CreateDraft)
			authorized.GET("/checkout/drafts/:id", publicHandler.GetDraft)
			authorized.PUT("/checkout/address", publicHandler.UpdateAddress)
			authorized.POST("/checkout/drafts/:id/commit", publicHandler.CommitDraft)

			authorized.GET("/orders", publicHandler.ListOrders)
			authorized.GET("/orders/more", publicHandler.LoadMoreOrders)
			authorized.GET("/orders/:id", publicHandler.GetOrder)
			authorized.POST("/orders/:id/cancel", publicHandler.CancelOrder)

			// 员工区
			authorized.GET("/staff/orders", adminHandler.ListOrders)
			authorized.GET("/staff/orders/more", adminHandler.LoadMoreOrders)
			authorized.GET("/staff/orders/:id", adminHandler.GetOrder)
			authorized.POST("/staff/orders/:id/advance", adminHandler.AdvanceOrder)

			// 管理区
			authorized.GET("/admin/orders", adminHandler.ListOrders)
			authorized.GET("/admin/orders/more", adminHandler.LoadMoreOrders)
			authorized.PATCH("/admin/orders/:id/status", adminHandler.SetOrderStatus)
			authorized.GET("/admin/authz/policies", adminHandler.ListRolePolicies)
			authorized.POST("/admin/authz/policies", adminHandler.GrantRolePolicy)
			authorized.DELETE("/admin/authz/policies", adminHandler.RevokeRolePolicy)
		}
	}

	// 健康检查
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{
			"status":         "ok",
			"sessions_ready": c.SessionService != nil && c.SessionService.Ready(),
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}
