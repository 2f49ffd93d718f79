package services

import (
	"authhub/internal/models"

	"gorm.io/gorm"
)

// Authorizer 授权解析器（实时路径）
// 每次调用都从凭证库重新查询角色与权限，供需要实时数据的
// 管理类/RPC调用方使用；普通请求应使用Principal上的快照路径
type Authorizer struct {
	db *gorm.DB
}

func NewAuthorizer(db *gorm.DB) *Authorizer {
	return &Authorizer{db: db}
}

// EffectivePermissions 用户经由其角色可达的权限并集（按权限码去重）
func (a *Authorizer) EffectivePermissions(tenantID, userID uint) ([]models.Permission, error) {
	var permissions []models.Permission
	err := a.db.
		Distinct("permissions.*").
		Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ?", userID).
		Where("permissions.tenant_id = ?", tenantID).
		Where("roles.status = ?", models.RoleStatusActive).
		Find(&permissions).Error
	return permissions, err
}

// EffectivePermissionCodes 权限码集合（去重）
func (a *Authorizer) EffectivePermissionCodes(tenantID, userID uint) ([]string, error) {
	permissions, err := a.EffectivePermissions(tenantID, userID)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(permissions))
	for _, perm := range permissions {
		codes = append(codes, perm.Code)
	}
	return codes, nil
}

// HasRole 用户是否直接持有指定角色（实时查询，不做角色继承）
func (a *Authorizer) HasRole(tenantID, userID uint, code string) (bool, error) {
	var count int64
	err := a.db.Model(&models.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND user_roles.tenant_id = ?", userID, tenantID).
		Where("roles.code = ? AND roles.status = ?", code, models.RoleStatusActive).
		Count(&count).Error
	return count > 0, err
}

// HasPermission 用户的某个角色是否携带指定权限码（实时查询）
func (a *Authorizer) HasPermission(tenantID, userID uint, code string) (bool, error) {
	permissions, err := a.EffectivePermissions(tenantID, userID)
	if err != nil {
		return false, err
	}
	for _, perm := range permissions {
		if perm.Code == code {
			return true, nil
		}
	}
	return false, nil
}
