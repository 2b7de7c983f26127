package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"mailadmin/backend/internal/auth"
	jwtpkg "mailadmin/backend/internal/auth/jwt"
	"mailadmin/backend/internal/authz"
	"mailadmin/backend/internal/config"
	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/health"
	"mailadmin/backend/internal/middleware"
	"mailadmin/backend/internal/monitoring"
	"mailadmin/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config            *config.Config
	AuthService       *auth.Service
	IdentityService   *service.IdentityService
	QuotaService      *service.QuotaService
	AccountService    *service.AccountService
	PermissionService *service.PermissionService
	UserPrefsService  *service.UserPrefsService
	JWTManager        *jwtpkg.Manager
	HealthChecker     *health.HealthChecker
	Metrics           *monitoring.Metrics
	Logger            *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(1 * 1024 * 1024))
	router.Use(deps.Metrics.Middleware())

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	authHandler := NewAuthHandler(deps.AuthService, deps.JWTManager)
	identityHandler := NewIdentityHandler(deps.IdentityService)
	quotaHandler := NewQuotaHandler(deps.QuotaService)
	accountHandler := NewAccountHandler(deps.AccountService, deps.Metrics)
	permissionHandler := NewPermissionHandler(deps.PermissionService, deps.Metrics)
	userPrefsHandler := NewUserPrefsHandler(deps.UserPrefsService, deps.Metrics)

	// 创建中间件
	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Logger)
	gate := middleware.NewCapabilityGate(deps.AuthService, deps.Logger)
	loginLimiter := middleware.NewLoginRateLimiter(10, 5)

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查与指标
	router.GET("/health", gin.WrapF(deps.HealthChecker.LiveEndpoint))
	router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveEndpoint))
	router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	v1 := router.Group("/v1")
	{
		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/login", loginLimiter.Middleware(), authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.GET("/me", jwtAuth.RequireAuth(), authHandler.Me)
		}

		authed := v1.Group("")
		authed.Use(jwtAuth.RequireAuth())

		// ========== Identity Routes ==========
		// 页面与数据端点都接受 core.add_user 或 admin.add_alias 之一
		identityRoutes := authed.Group("/identities")
		identityRoutes.Use(gate.RequireAny(authz.CapAddAccount, authz.CapAddAlias))
		{
			identityRoutes.GET("/", identityHandler.Page)
			identityRoutes.GET("/list/", identityHandler.List)
		}

		// ========== Quota Routes ==========
		quotaRoutes := authed.Group("/quotas")
		quotaRoutes.Use(gate.RequireAny(authz.CapAddMailbox))
		{
			quotaRoutes.GET("/list/", quotaHandler.List)
		}

		// ========== Account Routes ==========
		accountRoutes := authed.Group("/accounts")
		{
			accountRoutes.GET("/", gate.RequireAny(authz.CapAddAccount), accountHandler.ListAdmins)
			accountRoutes.POST("/new/", gate.RequireAny(authz.CapAddAccount), accountHandler.Wizard)
			accountRoutes.GET("/:id/edit/", gate.RequireAny(authz.CapChangeAccount), accountHandler.EditBundle)
			accountRoutes.POST("/:id/edit/", gate.RequireAny(authz.CapChangeAccount), accountHandler.Edit)
			accountRoutes.POST("/:id/delete/", gate.RequireAny(authz.CapDeleteAccount), accountHandler.Delete)
		}

		// ========== Permission Routes ==========
		permissionRoutes := authed.Group("/permissions")
		permissionRoutes.Use(gate.RequireAny(authz.CapAddDomain))
		{
			permissionRoutes.GET("/remove/", permissionHandler.Remove)
		}

		// ========== UserPrefs Routes ==========
		// 个人设置对任何已登录账户开放，不做能力检查
		prefRoutes := authed.Group("/userprefs")
		prefRoutes.Use(gate.LoadAccount())
		{
			prefRoutes.GET("/", userPrefsHandler.Page)
			prefRoutes.GET("/profile/", userPrefsHandler.GetProfile)
			prefRoutes.POST("/profile/", userPrefsHandler.UpdateProfile)
			prefRoutes.GET("/preferences/", userPrefsHandler.GetPreferences)
			prefRoutes.POST("/preferences/", userPrefsHandler.SavePreferences)

			// 转发仅对普通用户有意义，管理角色通过身份编辑管理别名
			prefRoutes.GET("/forward/", gate.RequireRole(domain.RoleSimpleUser), userPrefsHandler.GetForward)
			prefRoutes.POST("/forward/", gate.RequireRole(domain.RoleSimpleUser), userPrefsHandler.SetForward)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, Response{Code: http.StatusNotFound, Msg: "接口不存在"})
	})

	return router
}
