package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User 用户模型
// 用户名/邮箱的唯一性在租户内强制，不做全局唯一
type User struct {
	BaseModel
	TenantID     uint       `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_users_tenant_username"`
	Username     string     `json:"username" gorm:"not null;size:50;uniqueIndex:idx_users_tenant_username"`
	Email        *string    `json:"email" gorm:"size:100;index"`
	PasswordHash string     `json:"-" gorm:"not null;size:255"`
	Nickname     string     `json:"nickname" gorm:"size:100"`
	Phone        *string    `json:"phone" gorm:"size:20"`
	Avatar       *string    `json:"avatar" gorm:"size:255"`
	Status       string     `json:"status" gorm:"default:'active';size:20"`
	LastLoginAt  *time.Time `json:"last_login_at"`

	// 关联关系
	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Roles  []Role  `gorm:"many2many:user_roles;" json:"roles,omitempty"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// UserRole 用户角色关联表，冗余租户ID用于租户级级联删除
type UserRole struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	RoleID    uint      `gorm:"not null;index" json:"role_id"`
	TenantID  uint      `gorm:"not null;index" json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SetPassword 设置密码
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// IsActive 用户是否处于启用状态
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// RoleCodes 角色码集合（去重）
func (u *User) RoleCodes() []string {
	seen := make(map[string]struct{}, len(u.Roles))
	codes := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		if _, ok := seen[role.Code]; !ok {
			seen[role.Code] = struct{}{}
			codes = append(codes, role.Code)
		}
	}
	return codes
}

// PermissionCodes 经由角色可达的权限码并集（去重）
func (u *User) PermissionCodes() []string {
	seen := make(map[string]struct{})
	codes := make([]string, 0)
	for _, role := range u.Roles {
		for _, perm := range role.Permissions {
			if _, ok := seen[perm.Code]; !ok {
				seen[perm.Code] = struct{}{}
				codes = append(codes, perm.Code)
			}
		}
	}
	return codes
}

// HasRoleCode 用户是否直接持有指定角色（不做继承）
func (u *User) HasRoleCode(code string) bool {
	for _, role := range u.Roles {
		if role.Code == code {
			return true
		}
	}
	return false
}
