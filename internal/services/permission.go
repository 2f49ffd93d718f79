package services

import (
	"errors"

	"authhub/internal/models"
	apperrors "authhub/pkg/errors"

	"gorm.io/gorm"
)

// PermissionService 权限服务，所有操作都限定在单一租户内
type PermissionService struct {
	db *gorm.DB
}

func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{db: db}
}

// Create 创建权限，权限代码在租户内唯一
func (s *PermissionService) Create(tenantID uint, code, name, resource, action, description string) (*models.Permission, error) {
	var count int64
	s.db.Model(&models.Permission{}).Where("tenant_id = ? AND code = ?", tenantID, code).Count(&count)
	if count > 0 {
		return nil, apperrors.New(apperrors.CodePermissionCodeExists, "权限编码已存在")
	}

	permission := &models.Permission{
		TenantID:    tenantID,
		Code:        code,
		Name:        name,
		Resource:    resource,
		Action:      action,
		Description: description,
	}

	err := s.db.Create(permission).Error
	return permission, err
}

// GetByID 在租户内按ID获取权限
func (s *PermissionService) GetByID(tenantID, id uint) (*models.Permission, error) {
	var permission models.Permission
	err := s.db.Where("tenant_id = ?", tenantID).First(&permission, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodePermissionNotFound, "权限不存在")
		}
		return nil, err
	}
	return &permission, nil
}

// GetByTenant 获取租户下的权限列表
func (s *PermissionService) GetByTenant(tenantID uint) ([]*models.Permission, error) {
	var permissions []*models.Permission
	err := s.db.Where("tenant_id = ?", tenantID).Order("resource, action").Find(&permissions).Error
	return permissions, err
}

// Update 更新权限
func (s *PermissionService) Update(tenantID, id uint, name, description string) (*models.Permission, error) {
	permission, err := s.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}

	permission.Name = name
	permission.Description = description

	err = s.db.Save(permission).Error
	return permission, err
}

// Delete 删除权限及其角色关联
func (s *PermissionService) Delete(tenantID, id uint) error {
	permission, err := s.GetByID(tenantID, id)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("permission_id = ?", permission.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(permission).Error
	})
}
