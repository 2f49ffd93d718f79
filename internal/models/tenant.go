package models

import "time"

// Tenant 租户模型 - 所有用户、角色、权限都归属于唯一租户
type Tenant struct {
	BaseModel
	Name       string     `json:"name" gorm:"not null;size:100"`
	Code       string     `json:"code" gorm:"unique;not null;size:50;index"`
	Status     string     `json:"status" gorm:"default:'active';size:20"`
	ExpiredAt  *time.Time `json:"expired_at"`                      // 为空表示永不过期
	MaxUsers   int        `json:"max_users" gorm:"default:0"`     // <=0 表示不限制用户数
	IsPlatform bool       `json:"is_platform" gorm:"default:false"` // 平台租户（唯一，不可删除）
	UserCount  int64      `json:"user_count" gorm:"-"`            // 用户数量，不存储在数据库中
}

// TableName 表名
func (t *Tenant) TableName() string {
	return "tenants"
}

// 租户状态常量
const (
	TenantStatusActive   = "active"
	TenantStatusDisabled = "disabled"
)

// IsValid 租户是否有效：状态为active且未过期
func (t *Tenant) IsValid() bool {
	if t.Status != TenantStatusActive {
		return false
	}
	if t.ExpiredAt != nil && !time.Now().Before(*t.ExpiredAt) {
		return false
	}
	return true
}

// Unlimited 是否不限制用户数
func (t *Tenant) Unlimited() bool {
	return t.MaxUsers <= 0
}
