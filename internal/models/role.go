package models

import "time"

// Role 角色模型
type Role struct {
	BaseModel
	TenantID    uint   `gorm:"not null;index;uniqueIndex:idx_roles_tenant_code" json:"tenant_id"`
	Code        string `gorm:"size:100;not null;uniqueIndex:idx_roles_tenant_code" json:"code"` // 角色代码，如 "ROLE_ADMIN"
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
	IsSystem    bool   `gorm:"default:false" json:"is_system"` // 系统角色（不可删除）
	Status      string `gorm:"size:20;default:'active'" json:"status"`

	// 关联关系
	Tenant      *Tenant      `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

// 角色状态常量
const (
	RoleStatusActive   = "active"
	RoleStatusDisabled = "disabled"
)

// 系统预定义角色常量
const (
	RolePlatformAdmin = "ROLE_PLATFORM_ADMIN" // 平台超级管理员（仅平台租户下有意义）
	RoleAdmin         = "ROLE_ADMIN"          // 租户管理员
	RoleUser          = "ROLE_USER"           // 租户普通用户
)

// RolePermission 角色权限关联表，冗余租户ID用于租户级级联删除
type RolePermission struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RoleID       uint      `gorm:"not null;index" json:"role_id"`
	PermissionID uint      `gorm:"not null;index" json:"permission_id"`
	TenantID     uint      `gorm:"not null;index" json:"tenant_id"`
	CreatedAt    time.Time `json:"created_at"`
}
