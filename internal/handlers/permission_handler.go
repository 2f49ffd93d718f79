package handlers

import (
	"authhub/internal/middleware"
	"authhub/internal/services"
	"authhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// PermissionHandler 权限管理，限定在当前租户内
type PermissionHandler struct {
	permissionService *services.PermissionService
}

func NewPermissionHandler(permissionService *services.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

type CreatePermissionRequest struct {
	Code        string `json:"code" binding:"required,max=100"`
	Name        string `json:"name" binding:"required,max=100"`
	Resource    string `json:"resource" binding:"required,max=50"`
	Action      string `json:"action" binding:"required,max=50"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

type UpdatePermissionRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

// Create 创建权限
func (h *PermissionHandler) Create(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	var req CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	permission, err := h.permissionService.Create(principal.TenantID, req.Code, req.Name, req.Resource, req.Action, req.Description)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "权限创建成功", permission)
}

// List 查询当前租户的权限列表
func (h *PermissionHandler) List(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	permissions, err := h.permissionService.GetByTenant(principal.TenantID)
	if err != nil {
		response.ServerError(c, "查询权限列表失败")
		return
	}

	response.Success(c, permissions)
}

// Get 查询单个权限
func (h *PermissionHandler) Get(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的权限ID")
		return
	}

	permission, err := h.permissionService.GetByID(principal.TenantID, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, permission)
}

// Update 更新权限
func (h *PermissionHandler) Update(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的权限ID")
		return
	}

	var req UpdatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	permission, err := h.permissionService.Update(principal.TenantID, id, req.Name, req.Description)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "权限更新成功", permission)
}

// Delete 删除权限，同时清理角色与该权限的关联
func (h *PermissionHandler) Delete(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的权限ID")
		return
	}

	if err := h.permissionService.Delete(principal.TenantID, id); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "权限删除成功", nil)
}
