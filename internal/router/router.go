package router

import (
	"bhms/internal/access"
	"bhms/internal/handlers"
	"bhms/internal/middleware"
	"bhms/internal/services"
	"bhms/pkg/config"
	"bhms/pkg/jwt"
	"bhms/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Version 服务版本
const Version = "1.0.0"

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, db *gorm.DB, notifier services.Notifier) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(middleware.RequestLogger(logger.GetLogger()))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS(cfg.CORS))

	// 注册路由
	registerRoutes(router, cfg, db, notifier)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, cfg *config.Config, db *gorm.DB, notifier services.Notifier) {
	appLogger := logger.GetLogger()
	jwtManager := jwt.NewJWTManager(cfg.JWT.SecretKey, jwt.ParseDuration(cfg.JWT.TokenDuration))

	authService := services.NewAuthService(db, appLogger)
	auth := middleware.NewAuthMiddleware(authService, jwtManager, cfg.Session.CookieName)
	loginLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst)

	systemHandler := handlers.NewSystemHandler(db, Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", systemHandler.Health)
		api.GET("/ping", systemHandler.Ping)

		authHandler := handlers.NewAuthHandler(authService, jwtManager, cfg.Session)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", loginLimiter.Middleware(), authHandler.Login)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.GET("/me", auth.RequireLogin(), authHandler.Me)
		}

		// 以下接口都需要登录
		secured := api.Group("", auth.RequireLogin())

		roomHandler := handlers.NewRoomHandler(services.NewRoomService(db))
		rooms := secured.Group("/rooms")
		{
			rooms.POST("", middleware.RequireCapability(access.CapRoomWrite), roomHandler.Create)
			rooms.GET("", middleware.RequireCapability(access.CapRoomRead), roomHandler.GetAll)
			rooms.GET("/:id", middleware.RequireCapability(access.CapRoomRead), roomHandler.GetByID)
			rooms.PUT("/:id", middleware.RequireCapability(access.CapRoomWrite), roomHandler.Update)
			rooms.DELETE("/:id", middleware.RequireCapability(access.CapRoomWrite), roomHandler.Delete)
		}

		// 租客可以查看和修改自己，归属由服务层校验
		tenantHandler := handlers.NewTenantHandler(services.NewTenantService(db, notifier, appLogger))
		tenants := secured.Group("/tenants")
		{
			tenants.POST("", middleware.RequireCapability(access.CapTenantWrite), tenantHandler.Create)
			tenants.GET("", middleware.RequireCapability(access.CapTenantWrite), tenantHandler.GetAll)
			tenants.GET("/:id", middleware.RequireCapability(access.CapTenantRead), tenantHandler.GetByID)
			tenants.PUT("/:id", middleware.RequireCapability(access.CapTenantSelf), tenantHandler.Update)
			tenants.DELETE("/:id", middleware.RequireCapability(access.CapTenantWrite), tenantHandler.Delete)
		}

		contractHandler := handlers.NewContractHandler(services.NewContractService(db))
		contracts := secured.Group("/contracts")
		{
			contracts.POST("", middleware.RequireCapability(access.CapContractWrite), contractHandler.Create)
			contracts.GET("", middleware.RequireCapability(access.CapContractRead), contractHandler.GetAll)
			contracts.GET("/:id", middleware.RequireCapability(access.CapContractRead), contractHandler.GetByID)
			contracts.PUT("/:id", middleware.RequireCapability(access.CapContractWrite), contractHandler.Update)
			contracts.DELETE("/:id", middleware.RequireCapability(access.CapContractWrite), contractHandler.Delete)
		}

		paymentHandler := handlers.NewPaymentHandler(services.NewPaymentService(db))
		payments := secured.Group("/payments")
		{
			payments.POST("", middleware.RequireCapability(access.CapPaymentWrite), paymentHandler.Create)
			payments.GET("", middleware.RequireCapability(access.CapPaymentRead), paymentHandler.GetAll)
			payments.GET("/:id", middleware.RequireCapability(access.CapPaymentRead), paymentHandler.GetByID)
			payments.PUT("/:id", middleware.RequireCapability(access.CapPaymentWrite), paymentHandler.Update)
			payments.POST("/:id/pay", middleware.RequireCapability(access.CapPaymentWrite), paymentHandler.Pay)
			payments.DELETE("/:id", middleware.RequireCapability(access.CapPaymentWrite), paymentHandler.Delete)
		}
	}
}
