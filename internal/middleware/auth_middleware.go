package middleware

import (
	"strings"

	"authhub/internal/services"
	apperrors "authhub/pkg/errors"
	"authhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ContextPrincipal = "principal"
)

// AuthMiddleware 认证与授权中间件
// 授权判定基于令牌内嵌的快照，不回源查询凭证库
type AuthMiddleware struct {
	authenticator *services.Authenticator
}

func NewAuthMiddleware(authenticator *services.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// extractToken 从Authorization头提取Bearer令牌，缺失时返回空字符串
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return authHeader[7:]
}

// Authenticate 认证管道入口
// 无令牌产出匿名请求（不报错），令牌无效则以对应错误码终止请求
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)

		principal, err := m.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, apperrors.CodeOf(err), err.Error())
			c.Abort()
			return
		}

		if principal != nil {
			c.Set(ContextPrincipal, principal)
		}
		c.Next()
	}
}

// RequireLogin 拒绝匿名请求
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextPrincipal); !exists {
			response.Error(c, apperrors.CodeTokenMissing, "请先登录")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePermission 要求快照中持有指定权限码
func (m *AuthMiddleware) RequirePermission(permissionCode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			response.Error(c, apperrors.CodeTokenMissing, "请先登录")
			c.Abort()
			return
		}

		// 平台管理员不受租户内权限码限制
		if principal.IsPlatformAdmin() {
			c.Next()
			return
		}

		if !principal.HasAuthority(permissionCode) {
			response.Error(c, apperrors.CodeAccessDenied, "权限不足：需要 "+permissionCode+" 权限")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole 要求快照中持有指定角色码
func (m *AuthMiddleware) RequireRole(roleCode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			response.Error(c, apperrors.CodeTokenMissing, "请先登录")
			c.Abort()
			return
		}

		if !principal.HasRole(roleCode) {
			response.Error(c, apperrors.CodeAccessDenied, "权限不足：需要 "+roleCode+" 角色")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequirePlatformAdmin 要求平台管理员
func (m *AuthMiddleware) RequirePlatformAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			response.Error(c, apperrors.CodeTokenMissing, "请先登录")
			c.Abort()
			return
		}

		if !principal.IsPlatformAdmin() {
			response.Error(c, apperrors.CodeAccessDenied, "需要平台管理员权限")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetPrincipal 从请求上下文取出主体，匿名请求返回nil
func GetPrincipal(c *gin.Context) *services.Principal {
	value, exists := c.Get(ContextPrincipal)
	if !exists {
		return nil
	}
	principal, ok := value.(*services.Principal)
	if !ok {
		return nil
	}
	return principal
}
