package router

import (
	"fmt"

	"github.com/webmart-next/internal/cache"
	"github.com/webmart-next/internal/config"
	adminhandler "github.com/webmart-next/internal/http/handlers/admin"
	publichandler "github.com/webmart-next/internal/http/handlers/public"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 构建 HTTP 路由
func SetupRouter(cfg *config.Config, container *provider.Container) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	zapLogger := logger.L
	if zapLogger == nil {
		zapLogger = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}

	publicHandler := publichandler.New(container)
	adminHandler := adminhandler.New(container)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery())
	engine.Use(RequestIDMiddleware())
	engine.Use(LoggerMiddleware(zapLogger))
	engine.Use(CORSMiddleware(cfg.CORS))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	redisPrefix := cfg.Redis.Prefix
	if redisPrefix == "" {
		redisPrefix = "wm"
	}
	verifyLimiter := RateLimitMiddleware(cache.Client(), RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:verify", redisPrefix),
		WindowSeconds: cfg.Security.VerifyRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.VerifyRateLimit.MaxAttempts,
		Message:       "verification attempts exceeded, try again later",
	}, KeyByIP)

	api := engine.Group("/api/v1")
	{
		api.POST("/orders", publicHandler.CreateOrder)
		api.GET("/orders/:id", publicHandler.GetOrder)

		api.POST("/payments", publicHandler.CreatePayment)
		api.GET("/payments/verify/:reference", verifyLimiter, publicHandler.VerifyPayment)
		api.POST("/payments/webhook", publicHandler.PaymentWebhook)

		api.POST("/withdrawals", publicHandler.CreateWithdrawal)
		api.GET("/affiliates/:code", publicHandler.GetAffiliateSummary)
	}

	adminGroup := engine.Group("/api/v1/admin")
	adminGroup.POST("/login", adminHandler.AdminLogin)

	authed := adminGroup.Group("")
	authed.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, container.AdminRepo))
	authed.Use(AuthzMiddleware(container.AuthzService))
	{
		authed.GET("/orders", adminHandler.AdminListOrders)
		authed.POST("/orders/:id/mark-paid", adminHandler.AdminMarkOrderPaid)
		authed.POST("/orders/:id/cancel", adminHandler.AdminCancelOrder)
		authed.POST("/orders/:id/settle", adminHandler.AdminSettleOrder)
		authed.GET("/sales", adminHandler.AdminListSales)

		authed.GET("/commission-logs", adminHandler.AdminListCommissionLogs)
		authed.GET("/alerts", adminHandler.AdminListAlerts)

		authed.GET("/withdrawals", adminHandler.AdminListWithdrawals)
		authed.POST("/withdrawals/:id/payout", adminHandler.AdminProcessPayout)

		authed.POST("/affiliates/:id/reconcile", adminHandler.AdminReconcileAffiliate)
		authed.POST("/affiliates/:id/sync", adminHandler.AdminSyncAffiliateBalance)
		authed.POST("/reconcile-all", adminHandler.AdminReconcileAll)

		authed.GET("/domains", adminHandler.AdminListDomains)
		authed.POST("/order-items/:id/domain", adminHandler.AdminAssignDomain)
	}

	return engine
}
