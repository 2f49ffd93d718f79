package router

import (
	"regexp"
	"time"

	"authhub/internal/handlers"
	"authhub/internal/middleware"
	"authhub/internal/services"
	"authhub/pkg/jwt"
	"authhub/pkg/response"
	"authhub/pkg/tokenstore"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// 租户编码：小写字母开头，小写字母/数字/中划线，2-50位
var tenantCodePattern = regexp.MustCompile(`^[a-z][a-z0-9-]{1,49}$`)

// SetupRouter 设置路由
func SetupRouter(db *gorm.DB, tokenManager *jwt.TokenManager, store *tokenstore.RedisTokenStore) *gin.Engine {
	registerValidators()

	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	// 注册路由
	registerRoutes(router, db, tokenManager, store)
	return router
}

// 注册自定义校验规则
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("tenantcode", func(fl validator.FieldLevel) bool {
			return tenantCodePattern.MatchString(fl.Field().String())
		})
	}
}

// 注册所有路由
func registerRoutes(router *gin.Engine, db *gorm.DB, tokenManager *jwt.TokenManager, store *tokenstore.RedisTokenStore) {

	// 服务层
	tenantService := services.NewTenantService(db)
	userService := services.NewUserService(db)
	roleService := services.NewRoleService(db)
	permissionService := services.NewPermissionService(db)
	authorizer := services.NewAuthorizer(db)
	authService := services.NewAuthService(db, tokenManager, store)
	authenticator := services.NewAuthenticator(tokenManager, store)

	auth := middleware.NewAuthMiddleware(authenticator)

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// 认证路由
		authHandler := handlers.NewAuthHandler(authService, userService, tenantService, authorizer)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register) // 用户注册
			authGroup.POST("/login", authHandler.Login)       // 用户登录
			authGroup.POST("/refresh", authHandler.Refresh)   // 刷新令牌
			authGroup.POST("/logout", authHandler.Logout)     // 用户登出

			// 🔒 获取当前用户完整信息
			authGroup.GET("/me", auth.Authenticate(), auth.RequireLogin(), authHandler.Me)

			// 🔒 修改密码
			authGroup.POST("/change-password", auth.Authenticate(), auth.RequireLogin(), authHandler.ChangePassword)
		}

		// 令牌RPC路由（服务间调用）
		tokenHandler := handlers.NewTokenHandler(authService, tenantService)
		tokenGroup := api.Group("/token")
		{
			tokenGroup.POST("/authenticate", tokenHandler.Authenticate)
			tokenGroup.POST("/validate", tokenHandler.Validate)
			tokenGroup.POST("/parse", tokenHandler.Parse)

			// 🔒 代签发与作废（仅平台管理员）
			tokenGroup.POST("/issue", auth.Authenticate(), auth.RequireLogin(), auth.RequirePlatformAdmin(), tokenHandler.Issue)
			tokenGroup.POST("/revoke", auth.Authenticate(), auth.RequireLogin(), auth.RequirePlatformAdmin(), tokenHandler.Revoke)
		}

		// 🔒 租户路由（仅平台管理员）
		tenantHandler := handlers.NewTenantHandler(tenantService)
		tenants := api.Group("/tenants", auth.Authenticate(), auth.RequireLogin(), auth.RequirePlatformAdmin())
		{
			tenants.POST("", tenantHandler.Create)
			tenants.GET("", tenantHandler.List)
			tenants.GET("/stats", tenantHandler.Stats)
			tenants.GET("/:id", tenantHandler.Get)
			tenants.PUT("/:id", tenantHandler.Update)
			tenants.DELETE("/:id", tenantHandler.Delete)
			tenants.POST("/:id/activate", tenantHandler.Activate)
			tenants.POST("/:id/deactivate", tenantHandler.Deactivate)
		}

		// 🔒 用户路由（租户内，按权限保护）
		userHandler := handlers.NewUserHandler(userService)
		users := api.Group("/users", auth.Authenticate(), auth.RequireLogin())
		{
			users.POST("", auth.RequirePermission("user:create"), userHandler.Create)
			users.GET("", auth.RequirePermission("user:read"), userHandler.List)
			users.GET("/:id", auth.RequirePermission("user:read"), userHandler.Get)
			users.PUT("/:id", auth.RequirePermission("user:write"), userHandler.Update)
			users.DELETE("/:id", auth.RequirePermission("user:delete"), userHandler.Delete)
			users.POST("/:id/activate", auth.RequirePermission("user:write"), userHandler.Activate)
			users.POST("/:id/deactivate", auth.RequirePermission("user:write"), userHandler.Deactivate)

			// 用户-角色关联
			users.GET("/:id/roles", auth.RequirePermission("role:read"), userHandler.GetRoles)
			users.PUT("/:id/roles", auth.RequirePermission("role:assign"), userHandler.AssignRoles)
		}

		// 🔒 角色路由（租户内，按权限保护）
		roleHandler := handlers.NewRoleHandler(roleService)
		roles := api.Group("/roles", auth.Authenticate(), auth.RequireLogin())
		{
			roles.POST("", auth.RequirePermission("role:create"), roleHandler.Create)
			roles.GET("", auth.RequirePermission("role:read"), roleHandler.List)
			roles.GET("/:id", auth.RequirePermission("role:read"), roleHandler.Get)
			roles.PUT("/:id", auth.RequirePermission("role:write"), roleHandler.Update)
			roles.DELETE("/:id", auth.RequirePermission("role:delete"), roleHandler.Delete)

			// 角色-权限关联
			roles.PUT("/:id/permissions", auth.RequirePermission("permission:assign"), roleHandler.AssignPermissions)
		}

		// 🔒 权限路由（租户内，按权限保护）
		permissionHandler := handlers.NewPermissionHandler(permissionService)
		permissions := api.Group("/permissions", auth.Authenticate(), auth.RequireLogin())
		{
			permissions.POST("", auth.RequirePermission("permission:assign"), permissionHandler.Create)
			permissions.GET("", auth.RequirePermission("permission:read"), permissionHandler.List)
			permissions.GET("/:id", auth.RequirePermission("permission:read"), permissionHandler.Get)
			permissions.PUT("/:id", auth.RequirePermission("permission:assign"), permissionHandler.Update)
			permissions.DELETE("/:id", auth.RequirePermission("permission:assign"), permissionHandler.Delete)
		}
	}
}

// 健康检查
func healthCheck(c *gin.Context) {
	data := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "AuthHub",
		"version":   "1.0.0",
	}
	response.Success(c, data)
}

// ping测试
func ping(c *gin.Context) {
	response.SuccessWithMessage(c, "pong", nil)
}
