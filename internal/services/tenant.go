package services

import (
	"errors"
	"time"

	"authhub/internal/models"
	apperrors "authhub/pkg/errors"
	"authhub/pkg/logger"
	"authhub/pkg/pagination"

	"gorm.io/gorm"
)

// TenantService 租户服务，同时承担租户准入检查
type TenantService struct {
	db *gorm.DB
}

// TenantStats 租户统计信息
type TenantStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Disabled int64 `json:"disabled"`
}

func NewTenantService(db *gorm.DB) *TenantService {
	return &TenantService{db: db}
}

// ========== 准入检查 ==========

// Admit 租户准入：登录、签发令牌前必须通过
// 租户在会话中途被禁用不会回溯作废已签发的令牌
func (s *TenantService) Admit(tenantID uint) (*models.Tenant, error) {
	tenant, err := s.GetByID(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeTenantNotFound, "租户不存在")
		}
		return nil, err
	}
	if !tenant.IsValid() {
		return nil, apperrors.New(apperrors.CodeTenantInvalid, "租户已禁用或已过期")
	}
	return tenant, nil
}

// AdmitRegistration 注册准入：在准入检查之上叠加用户配额检查
func (s *TenantService) AdmitRegistration(tenantID uint) (*models.Tenant, error) {
	tenant, err := s.Admit(tenantID)
	if err != nil {
		return nil, err
	}

	count, err := s.CountUsers(tenantID)
	if err != nil {
		return nil, err
	}
	if QuotaExceeded(tenant, count) {
		return nil, apperrors.New(apperrors.CodeTenantUserLimit, "租户用户数已达上限")
	}
	return tenant, nil
}

// QuotaExceeded 配额判定：当前用户数 >= 上限即触发，上限<=0表示不限制
func QuotaExceeded(tenant *models.Tenant, currentUserCount int64) bool {
	if tenant.Unlimited() {
		return false
	}
	return currentUserCount >= int64(tenant.MaxUsers)
}

// CountUsers 统计租户内用户数量
func (s *TenantService) CountUsers(tenantID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.User{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, err
}

// ========== 基础CRUD方法 ==========

// Create 创建租户并初始化默认角色与权限
func (s *TenantService) Create(name, code string, expiredAt *time.Time, maxUsers int) (*models.Tenant, error) {
	return s.create(&models.Tenant{
		Name:      name,
		Code:      code,
		Status:    models.TenantStatusActive,
		ExpiredAt: expiredAt,
		MaxUsers:  maxUsers,
	})
}

// CreatePlatform 创建平台租户
// 平台标记与租户行在同一事务内落库，不会出现带platform编码却无标记的半成品
func (s *TenantService) CreatePlatform(name, code string) (*models.Tenant, error) {
	return s.create(&models.Tenant{
		Name:       name,
		Code:       code,
		Status:     models.TenantStatusActive,
		IsPlatform: true,
	})
}

func (s *TenantService) create(tenant *models.Tenant) (*models.Tenant, error) {
	// 检查编码是否重复
	var count int64
	s.db.Model(&models.Tenant{}).Where("code = ?", tenant.Code).Count(&count)
	if count > 0 {
		return nil, apperrors.New(apperrors.CodeTenantCodeExists, "租户编码已存在")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		return initializeDefaults(tx, tenant.ID)
	})
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Infof("Created tenant with default roles: code=%s, name=%s", tenant.Code, tenant.Name)
	return tenant, nil
}

// GetByID 根据ID获取租户
func (s *TenantService) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.First(&tenant, id).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetByCode 根据编码获取租户
func (s *TenantService) GetByCode(code string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.Where("code = ?", code).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// List 按状态与关键字过滤的分页列表
func (s *TenantService) List(status, keyword string, page pagination.Query) ([]*models.Tenant, int64, error) {
	var tenants []*models.Tenant
	var total int64

	query := s.db.Model(&models.Tenant{})

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword != "" {
		searchPattern := "%" + keyword + "%"
		query = query.Where("name LIKE ? OR code LIKE ?", searchPattern, searchPattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Scopes(page.Scope).Find(&tenants).Error; err != nil {
		return nil, 0, err
	}

	return tenants, total, nil
}

// Update 更新租户
func (s *TenantService) Update(id uint, name string, expiredAt *time.Time, maxUsers int) (*models.Tenant, error) {
	tenant, err := s.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeTenantNotFound, "租户不存在")
		}
		return nil, err
	}

	tenant.Name = name
	tenant.ExpiredAt = expiredAt
	tenant.MaxUsers = maxUsers

	err = s.db.Save(tenant).Error
	return tenant, err
}

// Activate 激活租户
func (s *TenantService) Activate(id uint) (*models.Tenant, error) {
	return s.setStatus(id, models.TenantStatusActive)
}

// Deactivate 禁用租户
func (s *TenantService) Deactivate(id uint) (*models.Tenant, error) {
	return s.setStatus(id, models.TenantStatusDisabled)
}

func (s *TenantService) setStatus(id uint, status string) (*models.Tenant, error) {
	tenant, err := s.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeTenantNotFound, "租户不存在")
		}
		return nil, err
	}

	tenant.Status = status
	err = s.db.Save(tenant).Error
	return tenant, err
}

// Delete 删除租户，级联删除其下用户、角色、权限及关联关系
// 平台租户不允许删除
func (s *TenantService) Delete(id uint) error {
	tenant, err := s.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeTenantNotFound, "租户不存在")
		}
		return err
	}

	if tenant.IsPlatform {
		return apperrors.New(apperrors.CodeTenantDeleteForbidden, "不允许删除平台租户")
	}

	logger.GetLogger().Infof("Deleting tenant and all related data: id=%d", id)

	// 依赖关联表上冗余的tenant_id做租户级级联删除
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", id).Delete(&models.Permission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", id).Delete(&models.Role{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", id).Delete(&models.User{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Tenant{}, id).Error
	})
}

// GetStats 获取租户统计
func (s *TenantService) GetStats() (*TenantStats, error) {
	stats := &TenantStats{}

	s.db.Model(&models.Tenant{}).Count(&stats.Total)
	s.db.Model(&models.Tenant{}).Where("status = ?", models.TenantStatusActive).Count(&stats.Active)
	s.db.Model(&models.Tenant{}).Where("status = ?", models.TenantStatusDisabled).Count(&stats.Disabled)

	return stats, nil
}

// ========== 默认角色与权限初始化 ==========

// defaultPermissions 新租户的默认权限集
func defaultPermissions(tenantID uint) []models.Permission {
	return []models.Permission{
		{TenantID: tenantID, Code: "user:read", Name: "查看用户", Resource: models.ResourceUser, Action: models.ActionRead, Description: "查看用户信息"},
		{TenantID: tenantID, Code: "user:create", Name: "创建用户", Resource: models.ResourceUser, Action: models.ActionCreate, Description: "创建用户"},
		{TenantID: tenantID, Code: "user:write", Name: "编辑用户", Resource: models.ResourceUser, Action: models.ActionWrite, Description: "编辑用户信息"},
		{TenantID: tenantID, Code: "user:delete", Name: "删除用户", Resource: models.ResourceUser, Action: models.ActionDelete, Description: "删除用户"},
		{TenantID: tenantID, Code: "role:read", Name: "查看角色", Resource: models.ResourceRole, Action: models.ActionRead, Description: "查看角色信息"},
		{TenantID: tenantID, Code: "role:create", Name: "创建角色", Resource: models.ResourceRole, Action: models.ActionCreate, Description: "创建角色"},
		{TenantID: tenantID, Code: "role:write", Name: "编辑角色", Resource: models.ResourceRole, Action: models.ActionWrite, Description: "编辑角色信息"},
		{TenantID: tenantID, Code: "role:delete", Name: "删除角色", Resource: models.ResourceRole, Action: models.ActionDelete, Description: "删除角色"},
		{TenantID: tenantID, Code: "role:assign", Name: "分配角色", Resource: models.ResourceRole, Action: models.ActionAssign, Description: "给用户分配角色"},
		{TenantID: tenantID, Code: "permission:read", Name: "查看权限", Resource: models.ResourcePermission, Action: models.ActionRead, Description: "查看权限信息"},
		{TenantID: tenantID, Code: "permission:assign", Name: "分配权限", Resource: models.ResourcePermission, Action: models.ActionAssign, Description: "给角色分配权限"},
	}
}

// initializeDefaults 为租户初始化默认权限及 ROLE_ADMIN / ROLE_USER 角色
// ROLE_ADMIN持有全部默认权限，ROLE_USER仅持有只读权限
func initializeDefaults(tx *gorm.DB, tenantID uint) error {
	perms := defaultPermissions(tenantID)
	if err := tx.Create(&perms).Error; err != nil {
		return err
	}

	adminRole := &models.Role{
		TenantID:    tenantID,
		Code:        models.RoleAdmin,
		Name:        "租户管理员",
		Description: "租户内全部管理权限",
		IsSystem:    true,
		Status:      models.RoleStatusActive,
	}
	if err := tx.Create(adminRole).Error; err != nil {
		return err
	}

	userRole := &models.Role{
		TenantID:    tenantID,
		Code:        models.RoleUser,
		Name:        "普通用户",
		Description: "租户内只读权限",
		IsSystem:    true,
		Status:      models.RoleStatusActive,
	}
	if err := tx.Create(userRole).Error; err != nil {
		return err
	}

	adminBindings := make([]models.RolePermission, 0, len(perms))
	userBindings := make([]models.RolePermission, 0, 4)
	for _, perm := range perms {
		adminBindings = append(adminBindings, models.RolePermission{
			RoleID: adminRole.ID, PermissionID: perm.ID, TenantID: tenantID,
		})
		if perm.Action == models.ActionRead {
			userBindings = append(userBindings, models.RolePermission{
				RoleID: userRole.ID, PermissionID: perm.ID, TenantID: tenantID,
			})
		}
	}
	if err := tx.Create(&adminBindings).Error; err != nil {
		return err
	}
	return tx.Create(&userBindings).Error
}
