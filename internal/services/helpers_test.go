package services

import (
	"strconv"
	"testing"
	"time"

	"authhub/internal/models"
	"authhub/pkg/jwt"
	"authhub/pkg/tokenstore"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.UserRole{},
	)
	require.NoError(t, err)

	return db
}

func setupTestStore(t *testing.T) *tokenstore.RedisTokenStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	store := tokenstore.NewRedisTokenStore(&tokenstore.Config{
		Host:   mr.Host(),
		Port:   port,
		Prefix: "authhub-test",
	})
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestTokenManager(t *testing.T) *jwt.TokenManager {
	t.Helper()
	m, err := jwt.NewTokenManager(testSecret, time.Hour, 168*time.Hour, "authhub")
	require.NoError(t, err)
	return m
}

// createTestTenant 创建带默认角色与权限的租户
func createTestTenant(t *testing.T, db *gorm.DB, code string, maxUsers int) *models.Tenant {
	t.Helper()
	tenant, err := NewTenantService(db).Create("测试租户-"+code, code, nil, maxUsers)
	require.NoError(t, err)
	return tenant
}

// createTestUser 在租户内创建激活用户
func createTestUser(t *testing.T, db *gorm.DB, tenantID uint, username, password string) *models.User {
	t.Helper()
	user, err := NewUserService(db).Create(tenantID, username, password, "", nil, nil)
	require.NoError(t, err)
	return user
}
