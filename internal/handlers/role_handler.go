package handlers

import (
	"authhub/internal/middleware"
	"authhub/internal/services"
	"authhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// RoleHandler 角色管理，限定在当前租户内
type RoleHandler struct {
	roleService *services.RoleService
}

func NewRoleHandler(roleService *services.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

type CreateRoleRequest struct {
	Code        string `json:"code" binding:"required,max=50"`
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

type AssignPermissionsRequest struct {
	PermissionIDs []uint `json:"permission_ids" binding:"required"`
}

// Create 创建角色
func (h *RoleHandler) Create(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	role, err := h.roleService.Create(principal.TenantID, req.Code, req.Name, req.Description)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "角色创建成功", role)
}

// List 查询当前租户的角色列表
func (h *RoleHandler) List(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	roles, err := h.roleService.GetByTenant(principal.TenantID)
	if err != nil {
		response.ServerError(c, "查询角色列表失败")
		return
	}

	response.Success(c, roles)
}

// Get 查询单个角色（含权限）
func (h *RoleHandler) Get(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的角色ID")
		return
	}

	role, err := h.roleService.GetByID(principal.TenantID, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, role)
}

// Update 更新角色
func (h *RoleHandler) Update(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的角色ID")
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	role, err := h.roleService.Update(principal.TenantID, id, req.Name, req.Description)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "角色更新成功", role)
}

// Delete 删除角色，系统内置角色不允许删除
func (h *RoleHandler) Delete(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的角色ID")
		return
	}

	if err := h.roleService.Delete(principal.TenantID, id); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "角色删除成功", nil)
}

// AssignPermissions 为角色分配权限（整体替换）
func (h *RoleHandler) AssignPermissions(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的角色ID")
		return
	}

	var req AssignPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.roleService.AssignPermissions(principal.TenantID, id, req.PermissionIDs); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "权限分配成功", nil)
}
