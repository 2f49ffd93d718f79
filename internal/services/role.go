package services

import (
	"errors"

	"authhub/internal/models"
	apperrors "authhub/pkg/errors"

	"gorm.io/gorm"
)

// RoleService 角色服务，所有操作都限定在单一租户内
type RoleService struct {
	db *gorm.DB
}

func NewRoleService(db *gorm.DB) *RoleService {
	return &RoleService{db: db}
}

// ========== 基础CRUD方法 ==========

// Create 创建角色，角色代码在租户内唯一
func (s *RoleService) Create(tenantID uint, code, name, description string) (*models.Role, error) {
	var count int64
	s.db.Model(&models.Role{}).Where("tenant_id = ? AND code = ?", tenantID, code).Count(&count)
	if count > 0 {
		return nil, apperrors.New(apperrors.CodeRoleCodeExists, "角色编码已存在")
	}

	role := &models.Role{
		TenantID:    tenantID,
		Code:        code,
		Name:        name,
		Description: description,
		Status:      models.RoleStatusActive,
		IsSystem:    false,
	}

	err := s.db.Create(role).Error
	return role, err
}

// GetByID 在租户内按ID获取角色（含权限）
func (s *RoleService) GetByID(tenantID, id uint) (*models.Role, error) {
	var role models.Role
	err := s.db.Where("tenant_id = ?", tenantID).Preload("Permissions").First(&role, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeRoleNotFound, "角色不存在")
		}
		return nil, err
	}
	return &role, nil
}

// GetByCode 在租户内按代码获取角色
func (s *RoleService) GetByCode(tenantID uint, code string) (*models.Role, error) {
	var role models.Role
	err := s.db.Where("tenant_id = ? AND code = ?", tenantID, code).
		Preload("Permissions").First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeRoleNotFound, "角色不存在")
		}
		return nil, err
	}
	return &role, nil
}

// GetByTenant 获取租户下的角色列表
func (s *RoleService) GetByTenant(tenantID uint) ([]*models.Role, error) {
	var roles []*models.Role
	err := s.db.Where("tenant_id = ?", tenantID).Preload("Permissions").Find(&roles).Error
	return roles, err
}

// Update 更新角色
func (s *RoleService) Update(tenantID, id uint, name, description string) (*models.Role, error) {
	role, err := s.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}

	role.Name = name
	role.Description = description

	err = s.db.Save(role).Error
	return role, err
}

// Delete 删除角色及其权限/用户关联，系统角色不可删除
func (s *RoleService) Delete(tenantID, id uint) error {
	role, err := s.GetByID(tenantID, id)
	if err != nil {
		return err
	}

	if role.IsSystem {
		return apperrors.New(apperrors.CodeAccessDenied, "系统角色不允许删除")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(role).Error
	})
}

// ========== 权限管理方法 ==========

// AssignPermissions 为角色分配权限（整体替换）
// 权限必须属于角色所在租户
func (s *RoleService) AssignPermissions(tenantID, roleID uint, permissionIDs []uint) error {
	role, err := s.GetByID(tenantID, roleID)
	if err != nil {
		return err
	}

	var permissions []models.Permission
	if len(permissionIDs) > 0 {
		if err := s.db.Where("tenant_id = ? AND id IN ?", tenantID, permissionIDs).Find(&permissions).Error; err != nil {
			return err
		}
		if len(permissions) != len(permissionIDs) {
			return apperrors.New(apperrors.CodePermissionNotFound, "部分权限不存在或不属于当前租户")
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if len(permissions) == 0 {
			return nil
		}
		bindings := make([]models.RolePermission, 0, len(permissions))
		for _, perm := range permissions {
			bindings = append(bindings, models.RolePermission{
				RoleID:       role.ID,
				PermissionID: perm.ID,
				TenantID:     tenantID,
			})
		}
		return tx.Create(&bindings).Error
	})
}
