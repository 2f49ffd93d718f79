package services

import (
	"errors"
	"time"

	"authhub/internal/models"
	apperrors "authhub/pkg/errors"
	"authhub/pkg/pagination"

	"gorm.io/gorm"
)

// UserService 用户服务，所有查询都限定在单一租户内
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// ========== 基础CRUD方法 ==========

// Create 在租户内创建用户
// 用户名/邮箱的重复检查只在租户内进行
func (s *UserService) Create(tenantID uint, username, password, nickname string, email, phone *string) (*models.User, error) {
	var usernameCount int64
	s.db.Model(&models.User{}).Where("tenant_id = ? AND username = ?", tenantID, username).Count(&usernameCount)
	if usernameCount > 0 {
		return nil, apperrors.New(apperrors.CodeUsernameExists, "用户名已存在")
	}

	if email != nil && *email != "" {
		var emailCount int64
		s.db.Model(&models.User{}).Where("tenant_id = ? AND email = ?", tenantID, *email).Count(&emailCount)
		if emailCount > 0 {
			return nil, apperrors.New(apperrors.CodeEmailExists, "邮箱已被使用")
		}
	}

	if nickname == "" {
		nickname = username
	}

	user := &models.User{
		TenantID: tenantID,
		Username: username,
		Email:    email,
		Nickname: nickname,
		Phone:    phone,
		Status:   models.UserStatusActive,
	}

	if err := user.SetPassword(password); err != nil {
		return nil, err
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID 在租户内按ID获取用户
func (s *UserService) GetByID(tenantID, id uint) (*models.User, error) {
	var user models.User
	err := s.db.Where("tenant_id = ?", tenantID).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeUserNotFound, "用户不存在")
		}
		return nil, err
	}
	return &user, nil
}

// GetByIDWithAuthorities 按ID获取用户并预加载角色与权限
func (s *UserService) GetByIDWithAuthorities(tenantID, id uint) (*models.User, error) {
	var user models.User
	err := s.db.Where("tenant_id = ?", tenantID).
		Preload("Roles", "status = ?", models.RoleStatusActive).
		Preload("Roles.Permissions").
		First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeUserNotFound, "用户不存在")
		}
		return nil, err
	}
	return &user, nil
}

// FindByUsernameOrEmail 在租户内按用户名或邮箱查找用户，预加载角色与权限
func (s *UserService) FindByUsernameOrEmail(tenantID uint, identifier string) (*models.User, error) {
	var user models.User
	err := s.db.Where("tenant_id = ? AND (username = ? OR email = ?)", tenantID, identifier, identifier).
		Preload("Roles", "status = ?", models.RoleStatusActive).
		Preload("Roles.Permissions").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeUserNotFound, "用户不存在")
		}
		return nil, err
	}
	return &user, nil
}

// List 租户内按状态与关键字过滤的分页列表（含角色）
func (s *UserService) List(tenantID uint, status, keyword string, page pagination.Query) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := s.db.Model(&models.User{}).Where("tenant_id = ?", tenantID)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword != "" {
		searchPattern := "%" + keyword + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR nickname LIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Preload("Roles").Scopes(page.Scope).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Update 更新用户资料
func (s *UserService) Update(tenantID, id uint, nickname string, email, phone *string) (*models.User, error) {
	user, err := s.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}

	// 邮箱变更时在租户内查重
	if email != nil && *email != "" && (user.Email == nil || *user.Email != *email) {
		var emailCount int64
		s.db.Model(&models.User{}).
			Where("tenant_id = ? AND email = ? AND id != ?", tenantID, *email, id).
			Count(&emailCount)
		if emailCount > 0 {
			return nil, apperrors.New(apperrors.CodeEmailExists, "邮箱已被使用")
		}
	}

	user.Nickname = nickname
	user.Email = email
	user.Phone = phone

	err = s.db.Save(user).Error
	return user, err
}

// Delete 删除用户及其角色关联
func (s *UserService) Delete(tenantID, id uint) error {
	user, err := s.GetByID(tenantID, id)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
}

// Activate 启用用户
func (s *UserService) Activate(tenantID, id uint) (*models.User, error) {
	return s.setStatus(tenantID, id, models.UserStatusActive)
}

// Deactivate 禁用用户
func (s *UserService) Deactivate(tenantID, id uint) (*models.User, error) {
	return s.setStatus(tenantID, id, models.UserStatusDisabled)
}

func (s *UserService) setStatus(tenantID, id uint, status string) (*models.User, error) {
	user, err := s.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	user.Status = status
	err = s.db.Save(user).Error
	return user, err
}

// UpdateLastLogin 更新最后登录时间
func (s *UserService) UpdateLastLogin(id uint) error {
	now := time.Now()
	return s.db.Model(&models.User{}).Where("id = ?", id).
		Update("last_login_at", &now).Error
}

// UpdatePassword 更新密码哈希
func (s *UserService) UpdatePassword(user *models.User, newPassword string) error {
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	return s.db.Model(user).Update("password_hash", user.PasswordHash).Error
}

// ========== 角色管理方法 ==========

// AssignRoles 为用户分配角色（整体替换）
// 角色必须属于用户所在租户
func (s *UserService) AssignRoles(tenantID, userID uint, roleIDs []uint) error {
	user, err := s.GetByID(tenantID, userID)
	if err != nil {
		return err
	}

	var roles []models.Role
	if len(roleIDs) > 0 {
		if err := s.db.Where("tenant_id = ? AND id IN ?", tenantID, roleIDs).Find(&roles).Error; err != nil {
			return err
		}
		if len(roles) != len(roleIDs) {
			return apperrors.New(apperrors.CodeRoleNotFound, "部分角色不存在或不属于当前租户")
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		if len(roles) == 0 {
			return nil
		}
		bindings := make([]models.UserRole, 0, len(roles))
		for _, role := range roles {
			bindings = append(bindings, models.UserRole{
				UserID:   user.ID,
				RoleID:   role.ID,
				TenantID: tenantID,
			})
		}
		return tx.Create(&bindings).Error
	})
}

// AddRole 为用户追加单个角色
func (s *UserService) AddRole(tenantID, userID, roleID uint) error {
	if _, err := s.GetByID(tenantID, userID); err != nil {
		return err
	}

	var role models.Role
	if err := s.db.Where("tenant_id = ?", tenantID).First(&role, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeRoleNotFound, "角色不存在")
		}
		return err
	}

	var count int64
	s.db.Model(&models.UserRole{}).Where("user_id = ? AND role_id = ?", userID, roleID).Count(&count)
	if count > 0 {
		return nil
	}

	return s.db.Create(&models.UserRole{
		UserID:   userID,
		RoleID:   roleID,
		TenantID: tenantID,
	}).Error
}

// RemoveRole 移除用户的单个角色
func (s *UserService) RemoveRole(tenantID, userID, roleID uint) error {
	if _, err := s.GetByID(tenantID, userID); err != nil {
		return err
	}
	return s.db.Where("user_id = ? AND role_id = ? AND tenant_id = ?", userID, roleID, tenantID).
		Delete(&models.UserRole{}).Error
}

// GetUserRoles 获取用户的角色列表
func (s *UserService) GetUserRoles(tenantID, userID uint) ([]models.Role, error) {
	user, err := s.GetByIDWithAuthorities(tenantID, userID)
	if err != nil {
		return nil, err
	}
	return user.Roles, nil
}
