package main

import (
	"fmt"

	"authhub/internal/models"
	"authhub/internal/services"
	"authhub/pkg/logger"

	"gorm.io/gorm"
)

// seedData 初始化种子数据
func seedData(db *gorm.DB) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	// 1. 创建平台租户（含默认角色与权限）
	if err := createPlatformTenant(db); err != nil {
		return fmt.Errorf("创建平台租户失败: %v", err)
	}

	// 2. 创建平台管理员角色
	if err := createPlatformAdminRole(db); err != nil {
		return fmt.Errorf("创建平台管理员角色失败: %v", err)
	}

	// 3. 创建默认管理员用户
	if err := createDefaultAdmin(db); err != nil {
		return fmt.Errorf("创建默认管理员失败: %v", err)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

// createPlatformTenant 创建平台租户
func createPlatformTenant(db *gorm.DB) error {
	var count int64
	db.Model(&models.Tenant{}).Where("is_platform = ?", true).Count(&count)
	if count > 0 {
		logger.GetLogger().Info("平台租户已存在，跳过创建")
		return nil
	}

	// 走服务层创建，平台标记与默认角色权限在同一事务内初始化
	tenantService := services.NewTenantService(db)
	if _, err := tenantService.CreatePlatform("平台租户", "platform"); err != nil {
		return err
	}

	logger.GetLogger().Info("平台租户创建成功")
	return nil
}

// createPlatformAdminRole 创建平台管理员角色
func createPlatformAdminRole(db *gorm.DB) error {
	var count int64
	db.Model(&models.Role{}).Where("code = ?", models.RolePlatformAdmin).Count(&count)
	if count > 0 {
		logger.GetLogger().Info("平台管理员角色已存在，跳过创建")
		return nil
	}

	// 获取平台租户
	var tenant models.Tenant
	if err := db.Where("is_platform = ?", true).First(&tenant).Error; err != nil {
		return fmt.Errorf("获取平台租户失败: %v", err)
	}

	// 创建角色
	role := &models.Role{
		TenantID:    tenant.ID,
		Name:        "平台管理员",
		Code:        models.RolePlatformAdmin,
		Description: "系统最高权限管理员",
		IsSystem:    true,
	}

	if err := db.Create(role).Error; err != nil {
		return err
	}

	// 分配平台租户下的全部权限
	var permissions []models.Permission
	db.Where("tenant_id = ?", tenant.ID).Find(&permissions)

	var rolePermissions []models.RolePermission
	for _, perm := range permissions {
		rolePermissions = append(rolePermissions, models.RolePermission{
			RoleID:       role.ID,
			PermissionID: perm.ID,
			TenantID:     tenant.ID,
		})
	}

	if len(rolePermissions) > 0 {
		if err := db.Create(&rolePermissions).Error; err != nil {
			return err
		}
	}

	logger.GetLogger().Info("平台管理员角色创建成功")
	return nil
}

// createDefaultAdmin 创建默认管理员用户
func createDefaultAdmin(db *gorm.DB) error {
	// 获取平台租户
	var tenant models.Tenant
	if err := db.Where("is_platform = ?", true).First(&tenant).Error; err != nil {
		return fmt.Errorf("获取平台租户失败: %v", err)
	}

	var count int64
	db.Model(&models.User{}).Where("tenant_id = ? AND username = ?", tenant.ID, "admin").Count(&count)
	if count > 0 {
		logger.GetLogger().Info("管理员用户已存在，跳过创建")
		return nil
	}

	email := "admin@example.com"
	user := &models.User{
		TenantID: tenant.ID,
		Username: "admin",
		Email:    &email,
		Nickname: "系统管理员",
		Status:   models.UserStatusActive,
	}

	// 设置密码
	if err := user.SetPassword("Admin@123"); err != nil {
		return fmt.Errorf("设置密码失败: %v", err)
	}

	if err := db.Create(user).Error; err != nil {
		return err
	}

	// 分配平台管理员角色
	var role models.Role
	if err := db.Where("tenant_id = ? AND code = ?", tenant.ID, models.RolePlatformAdmin).First(&role).Error; err == nil {
		userRole := &models.UserRole{
			UserID:   user.ID,
			RoleID:   role.ID,
			TenantID: tenant.ID,
		}
		db.Create(userRole)
	}

	logger.GetLogger().Infof("默认管理员创建成功 - 用户名: admin, 密码: Admin@123")
	return nil
}
