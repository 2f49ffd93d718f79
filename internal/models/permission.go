package models

// Permission 权限模型
type Permission struct {
	BaseModel
	TenantID    uint   `gorm:"not null;index;uniqueIndex:idx_permissions_tenant_code" json:"tenant_id"`
	Code        string `gorm:"size:100;not null;uniqueIndex:idx_permissions_tenant_code" json:"code"` // 权限代码，如 "user:delete"
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
	Resource    string `gorm:"size:50;not null" json:"resource"` // 资源，如 "user", "role"
	Action      string `gorm:"size:50;not null" json:"action"`   // 操作，如 "create", "read"
}

// 权限资源常量
const (
	ResourceTenant     = "tenant"
	ResourceUser       = "user"
	ResourceRole       = "role"
	ResourcePermission = "permission"
)

// 权限操作常量
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionList   = "list"
	ActionAssign = "assign"
)
