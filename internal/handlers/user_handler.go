package handlers

import (
	"authhub/internal/middleware"
	"authhub/internal/services"
	"authhub/pkg/pagination"
	"authhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户管理，所有操作限定在当前登录用户所属租户内
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type CreateUserRequest struct {
	Username string  `json:"username" binding:"required,min=3,max=50"`
	Password string  `json:"password" binding:"required,min=6,max=64"`
	Nickname string  `json:"nickname" binding:"omitempty,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
}

type UpdateUserRequest struct {
	Nickname string  `json:"nickname" binding:"omitempty,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
}

type AssignRolesRequest struct {
	RoleIDs []uint `json:"role_ids" binding:"required"`
}

// Create 创建用户
func (h *UserHandler) Create(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, err := h.userService.Create(principal.TenantID, req.Username, req.Password, req.Nickname, req.Email, req.Phone)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "用户创建成功", userInfo(user))
}

// List 分页查询用户列表
func (h *UserHandler) List(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	page := pagination.FromRequest(c)
	status := c.Query("status")
	keyword := c.Query("keyword")

	users, total, err := h.userService.List(principal.TenantID, status, keyword, page)
	if err != nil {
		response.ServerError(c, "查询用户列表失败")
		return
	}

	list := make([]UserInfo, 0, len(users))
	for _, u := range users {
		list = append(list, userInfo(u))
	}

	response.SuccessWithPage(c, list, page.Info(total))
}

// Get 查询单个用户（含角色）
func (h *UserHandler) Get(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的用户ID")
		return
	}

	user, err := h.userService.GetByIDWithAuthorities(principal.TenantID, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"id":            user.ID,
		"username":      user.Username,
		"nickname":      user.Nickname,
		"email":         user.Email,
		"phone":         user.Phone,
		"avatar":        user.Avatar,
		"status":        user.Status,
		"roles":         user.RoleCodes(),
		"permissions":   user.PermissionCodes(),
		"created_at":    user.CreatedAt,
		"last_login_at": user.LastLoginAt,
	})
}

// Update 更新用户资料
func (h *UserHandler) Update(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的用户ID")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, err := h.userService.Update(principal.TenantID, id, req.Nickname, req.Email, req.Phone)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "用户更新成功", userInfo(user))
}

// Delete 删除用户
func (h *UserHandler) Delete(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的用户ID")
		return
	}

	if id == principal.UserID {
		response.BadRequest(c, "不能删除当前登录用户")
		return
	}

	if err := h.userService.Delete(principal.TenantID, id); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "用户删除成功", nil)
}

// Activate 启用用户
func (h *UserHandler) Activate(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的用户ID")
		return
	}

	user, err := h.userService.Activate(principal.TenantID, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "用户已启用", userInfo(user))
}

// Deactivate 停用用户
func (h *UserHandler) Deactivate(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的用户ID")
		return
	}

	user, err := h.userService.Deactivate(principal.TenantID, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "用户已停用", userInfo(user))
}

// AssignRoles 为用户分配角色（整体替换）
func (h *UserHandler) AssignRoles(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的用户ID")
		return
	}

	var req AssignRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.userService.AssignRoles(principal.TenantID, id, req.RoleIDs); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "角色分配成功", nil)
}

// GetRoles 查询用户的角色列表
func (h *UserHandler) GetRoles(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.BadRequest(c, "无效的用户ID")
		return
	}

	roles, err := h.userService.GetUserRoles(principal.TenantID, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, roles)
}
