package handlers

import (
	"strconv"
	"time"

	"authhub/internal/services"
	"authhub/pkg/pagination"
	"authhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// TenantHandler 租户管理（仅平台管理员可访问）
type TenantHandler struct {
	tenantService *services.TenantService
}

func NewTenantHandler(tenantService *services.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

type CreateTenantRequest struct {
	Name      string     `json:"name" binding:"required,max=100"`
	Code      string     `json:"code" binding:"required,tenantcode"`
	ExpiredAt *time.Time `json:"expired_at"`
	MaxUsers  int        `json:"max_users"`
}

type UpdateTenantRequest struct {
	Name      string     `json:"name" binding:"required,max=100"`
	ExpiredAt *time.Time `json:"expired_at"`
	MaxUsers  int        `json:"max_users"`
}

// Create 创建租户，自动初始化默认角色与权限
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	tenant, err := h.tenantService.Create(req.Name, req.Code, req.ExpiredAt, req.MaxUsers)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "租户创建成功", tenant)
}

// List 分页查询租户列表
func (h *TenantHandler) List(c *gin.Context) {
	page := pagination.FromRequest(c)
	status := c.Query("status")
	keyword := c.Query("keyword")

	tenants, total, err := h.tenantService.List(status, keyword, page)
	if err != nil {
		response.ServerError(c, "查询租户列表失败")
		return
	}

	response.SuccessWithPage(c, tenants, page.Info(total))
}

// Get 查询单个租户
func (h *TenantHandler) Get(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的租户ID")
		return
	}

	tenant, err := h.tenantService.GetByID(id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	count, err := h.tenantService.CountUsers(id)
	if err == nil {
		tenant.UserCount = count
	}

	response.Success(c, tenant)
}

// Update 更新租户信息
func (h *TenantHandler) Update(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的租户ID")
		return
	}

	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	tenant, err := h.tenantService.Update(id, req.Name, req.ExpiredAt, req.MaxUsers)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "租户更新成功", tenant)
}

// Activate 启用租户
func (h *TenantHandler) Activate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的租户ID")
		return
	}

	tenant, err := h.tenantService.Activate(id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "租户已启用", tenant)
}

// Deactivate 停用租户，停用后该租户所有用户无法登录
func (h *TenantHandler) Deactivate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的租户ID")
		return
	}

	tenant, err := h.tenantService.Deactivate(id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "租户已停用", tenant)
}

// Delete 删除租户，级联清理该租户的用户、角色与权限
func (h *TenantHandler) Delete(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的租户ID")
		return
	}

	if err := h.tenantService.Delete(id); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "租户删除成功", nil)
}

// Stats 租户统计
func (h *TenantHandler) Stats(c *gin.Context) {
	stats, err := h.tenantService.GetStats()
	if err != nil {
		response.ServerError(c, "查询统计失败")
		return
	}
	response.Success(c, stats)
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
