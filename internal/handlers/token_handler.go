package handlers

import (
	"authhub/internal/services"
	apperrors "authhub/pkg/errors"
	"authhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenHandler 面向服务间调用的令牌RPC接口
// 与 /api/v1/auth 下面向终端用户的接口共用同一套服务层
type TokenHandler struct {
	authService   *services.AuthService
	tenantService *services.TenantService
}

func NewTokenHandler(authService *services.AuthService, tenantService *services.TenantService) *TokenHandler {
	return &TokenHandler{authService: authService, tenantService: tenantService}
}

// AuthenticateRequest 租户可按ID或编码指定，二选一
type AuthenticateRequest struct {
	TenantID   uint   `json:"tenant_id"`
	TenantCode string `json:"tenant_code"`
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type IssueRequest struct {
	TenantID uint `json:"tenant_id" binding:"required"`
	UserID   uint `json:"user_id" binding:"required"`
}

type RevokeRequest struct {
	TenantID uint `json:"tenant_id" binding:"required"`
	UserID   uint `json:"user_id" binding:"required"`
}

// Authenticate 校验凭证并签发令牌对
func (h *TokenHandler) Authenticate(c *gin.Context) {
	var req AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	tenantID := req.TenantID
	if tenantID == 0 {
		if req.TenantCode == "" {
			response.BadRequest(c, "必须提供 tenant_id 或 tenant_code")
			return
		}
		tenant, err := h.tenantService.GetByCode(req.TenantCode)
		if err != nil {
			response.Error(c, apperrors.CodeTenantNotFound, "租户不存在")
			return
		}
		tenantID = tenant.ID
	}

	pair, user, err := h.authService.Login(c.Request.Context(), tenantID, req.Username, req.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_in":    pair.ExpiresIn,
		"expires_at":    pair.ExpiresAt,
		"user_id":       user.ID,
		"tenant_id":     user.TenantID,
	})
}

// Validate 校验访问令牌，角色与权限实时解析
// 令牌无效不报错，返回 valid=false
func (h *TokenHandler) Validate(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	result, err := h.authService.ValidateLive(c.Request.Context(), req.Token)
	if err != nil {
		response.ServerError(c, "令牌校验失败")
		return
	}

	response.Success(c, result)
}

// Issue 直接为指定用户签发令牌对（仅平台管理员）
func (h *TokenHandler) Issue(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	pair, err := h.authService.IssueFor(c.Request.Context(), req.TenantID, req.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, pair)
}

// Parse 从令牌中提取用户ID，不查库
func (h *TokenHandler) Parse(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	userID, ok := h.authService.Parse(req.Token)
	response.Success(c, gin.H{
		"valid":   ok,
		"user_id": userID,
	})
}

// Revoke 作废指定用户的刷新令牌（仅平台管理员）
func (h *TokenHandler) Revoke(c *gin.Context) {
	var req RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.authService.RevokeAll(c.Request.Context(), req.TenantID, req.UserID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "令牌已作废", nil)
}
