package handlers

import (
	"authhub/internal/middleware"
	"authhub/internal/models"
	"authhub/internal/services"
	"authhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService   *services.AuthService
	userService   *services.UserService
	tenantService *services.TenantService
	authorizer    *services.Authorizer
}

func NewAuthHandler(authService *services.AuthService, userService *services.UserService, tenantService *services.TenantService, authorizer *services.Authorizer) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		userService:   userService,
		tenantService: tenantService,
		authorizer:    authorizer,
	}
}

type RegisterRequest struct {
	TenantID uint    `json:"tenant_id" binding:"required"`
	Username string  `json:"username" binding:"required,min=3,max=50"`
	Password string  `json:"password" binding:"required,min=6,max=64"`
	Nickname string  `json:"nickname" binding:"omitempty,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
}

type LoginRequest struct {
	TenantID uint   `json:"tenant_id" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=64"`
}

// UserInfo 用户信息片段
type UserInfo struct {
	ID       uint     `json:"id"`
	TenantID uint     `json:"tenant_id"`
	Username string   `json:"username"`
	Nickname string   `json:"nickname"`
	Email    *string  `json:"email"`
	Roles    []string `json:"roles"`
}

func userInfo(user *models.User) UserInfo {
	return UserInfo{
		ID:       user.ID,
		TenantID: user.TenantID,
		Username: user.Username,
		Nickname: user.Nickname,
		Email:    user.Email,
		Roles:    user.RoleCodes(),
	}
}

// Register 用户注册（注册成功自动登录）
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	pair, user, err := h.authService.Register(c.Request.Context(), req.TenantID, req.Username, req.Password, req.Nickname, req.Email, req.Phone)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_in":    pair.ExpiresIn,
		"user":          userInfo(user),
	})
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	pair, user, err := h.authService.Login(c.Request.Context(), req.TenantID, req.Username, req.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_in":    pair.ExpiresIn,
		"user":          userInfo(user),
	})
}

// Refresh 刷新令牌对
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, pair)
}

// Logout 登出：当前访问令牌入黑名单，刷新令牌作废
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	// 刷新令牌可选，请求体为空也接受
	_ = c.ShouldBindJSON(&req)

	accessToken := ""
	if authHeader := c.GetHeader("Authorization"); len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		accessToken = authHeader[7:]
	}

	if err := h.authService.Logout(c.Request.Context(), accessToken, req.RefreshToken); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登出成功", nil)
}

// Me 获取当前登录用户的完整信息
// 角色与权限走实时解析路径，不使用令牌快照
func (h *AuthHandler) Me(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.Unauthorized(c, "未登录")
		return
	}

	user, err := h.userService.GetByIDWithAuthorities(principal.TenantID, principal.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	tenant, err := h.tenantService.GetByID(principal.TenantID)
	if err != nil {
		response.ServerError(c, "获取租户信息失败")
		return
	}

	permissions, err := h.authorizer.EffectivePermissionCodes(principal.TenantID, principal.UserID)
	if err != nil {
		response.ServerError(c, "获取权限信息失败")
		return
	}

	response.Success(c, gin.H{
		"user": gin.H{
			"id":            user.ID,
			"username":      user.Username,
			"nickname":      user.Nickname,
			"email":         user.Email,
			"phone":         user.Phone,
			"avatar":        user.Avatar,
			"status":        user.Status,
			"created_at":    user.CreatedAt,
			"last_login_at": user.LastLoginAt,
		},
		"tenant": gin.H{
			"id":     tenant.ID,
			"name":   tenant.Name,
			"code":   tenant.Code,
			"status": tenant.Status,
		},
		"roles":       user.RoleCodes(),
		"permissions": permissions,
	})
}

// ChangePassword 修改密码
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		response.Unauthorized(c, "未登录")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.authService.ChangePassword(principal.TenantID, principal.UserID, req.OldPassword, req.NewPassword); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "密码修改成功", nil)
}
