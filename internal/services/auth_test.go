package services

import (
	"context"
	"testing"

	"authhub/internal/models"
	apperrors "authhub/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthEnv(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	store := setupTestStore(t)
	return NewAuthService(db, newTestTokenManager(t), store), db
}

func TestRegister(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)

	email := "alice@example.com"
	pair, user, err := svc.Register(ctx, tenant.ID, "alice", "password1", "Alice", &email, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	// 注册即分配默认角色
	assert.Contains(t, user.RoleCodes(), models.RoleUser)

	// 刷新令牌已落库，可直接走刷新流程
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)

	// 访问令牌快照携带角色与只读权限
	result, err := svc.ValidateLive(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Contains(t, result.Roles, models.RoleUser)
	assert.Contains(t, result.Permissions, "user:read")
	assert.NotContains(t, result.Permissions, "user:delete")
}

func TestRegister_DefaultRoleBindFailureNonBlocking(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)

	// 阻断角色绑定的写入，注册流程本身不应被打断
	require.NoError(t, db.Exec(
		`CREATE TRIGGER block_user_roles BEFORE INSERT ON user_roles BEGIN SELECT RAISE(ABORT, 'user_roles insert blocked'); END`,
	).Error)

	pair, user, err := svc.Register(ctx, tenant.ID, "alice", "password1", "", nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	// 绑定失败时用户没有角色，快照为空
	assert.Empty(t, user.RoleCodes())

	var count int64
	db.Model(&models.UserRole{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestRegister_QuotaReached(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "small", 1)

	_, _, err := svc.Register(ctx, tenant.ID, "first", "password1", "", nil, nil)
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, tenant.ID, "second", "password1", "", nil, nil)
	assert.Equal(t, apperrors.CodeTenantUserLimit, apperrors.CodeOf(err))
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	t1 := createTestTenant(t, db, "tenant-a", 0)
	t2 := createTestTenant(t, db, "tenant-b", 0)

	_, _, err := svc.Register(ctx, t1.ID, "alice", "password1", "", nil, nil)
	require.NoError(t, err)

	// 同租户内重名被拒
	_, _, err = svc.Register(ctx, t1.ID, "alice", "password1", "", nil, nil)
	assert.Equal(t, apperrors.CodeUsernameExists, apperrors.CodeOf(err))

	// 跨租户可以重名
	_, _, err = svc.Register(ctx, t2.ID, "alice", "password1", "", nil, nil)
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	createTestUser(t, db, tenant.ID, "alice", "password1")

	pair, user, err := svc.Login(ctx, tenant.ID, "alice", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, "alice", user.Username)

	// 密码错误
	_, _, err = svc.Login(ctx, tenant.ID, "alice", "wrong")
	assert.Equal(t, apperrors.CodeInvalidCredentials, apperrors.CodeOf(err))

	// 用户不存在
	_, _, err = svc.Login(ctx, tenant.ID, "nobody", "password1")
	assert.Equal(t, apperrors.CodeUserNotFound, apperrors.CodeOf(err))
}

func TestLogin_ByEmail(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	email := "alice@example.com"
	_, err := NewUserService(db).Create(tenant.ID, "alice", "password1", "", &email, nil)
	require.NoError(t, err)

	_, user, err := svc.Login(ctx, tenant.ID, "alice@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestLogin_DisabledUser(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	user := createTestUser(t, db, tenant.ID, "alice", "password1")

	_, err := NewUserService(db).Deactivate(tenant.ID, user.ID)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, tenant.ID, "alice", "password1")
	assert.Equal(t, apperrors.CodeUserDisabled, apperrors.CodeOf(err))
}

func TestLogin_DisabledTenant(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	createTestUser(t, db, tenant.ID, "alice", "password1")

	_, err := NewTenantService(db).Deactivate(tenant.ID)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, tenant.ID, "alice", "password1")
	assert.Equal(t, apperrors.CodeTenantInvalid, apperrors.CodeOf(err))
}

func TestLogin_TenantIsolation(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	t1 := createTestTenant(t, db, "tenant-a", 0)
	t2 := createTestTenant(t, db, "tenant-b", 0)
	createTestUser(t, db, t1.ID, "alice", "password1")

	// 凭证只在所属租户内有效
	_, _, err := svc.Login(ctx, t2.ID, "alice", "password1")
	assert.Equal(t, apperrors.CodeUserNotFound, apperrors.CodeOf(err))
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	createTestUser(t, db, tenant.ID, "alice", "password1")

	pair, _, err := svc.Login(ctx, tenant.ID, "alice", "password1")
	require.NoError(t, err)

	newPair, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

	// 被轮换替代的旧刷新令牌立即失效
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, apperrors.CodeRefreshTokenInvalid, apperrors.CodeOf(err))

	// 新刷新令牌可继续使用
	_, err = svc.Refresh(ctx, newPair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	createTestUser(t, db, tenant.ID, "alice", "password1")

	pair, _, err := svc.Login(ctx, tenant.ID, "alice", "password1")
	require.NoError(t, err)

	// 访问令牌不能用于刷新
	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.Equal(t, apperrors.CodeRefreshTokenInvalid, apperrors.CodeOf(err))
}

func TestRefresh_DisabledUser(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	user := createTestUser(t, db, tenant.ID, "alice", "password1")

	pair, _, err := svc.Login(ctx, tenant.ID, "alice", "password1")
	require.NoError(t, err)

	_, err = NewUserService(db).Deactivate(tenant.ID, user.ID)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, apperrors.CodeUserDisabled, apperrors.CodeOf(err))
}

func TestLogout(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	createTestUser(t, db, tenant.ID, "alice", "password1")

	pair, _, err := svc.Login(ctx, tenant.ID, "alice", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.AccessToken, pair.RefreshToken))

	// 访问令牌已入黑名单
	result, err := svc.ValidateLive(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.False(t, result.Valid)

	// 刷新令牌条目已删除
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, apperrors.CodeRefreshTokenInvalid, apperrors.CodeOf(err))
}

func TestLogout_BestEffort(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	createTestUser(t, db, tenant.ID, "alice", "password1")

	pair, _, err := svc.Login(ctx, tenant.ID, "alice", "password1")
	require.NoError(t, err)

	// 访问令牌无效时仍处理刷新令牌
	require.NoError(t, svc.Logout(ctx, "garbage", pair.RefreshToken))
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, apperrors.CodeRefreshTokenInvalid, apperrors.CodeOf(err))

	// 两个令牌都无效则报错
	err = svc.Logout(ctx, "garbage", "also-garbage")
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))

	err = svc.Logout(ctx, "", "")
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestChangePassword(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	user := createTestUser(t, db, tenant.ID, "alice", "password1")

	// 旧密码错误
	err := svc.ChangePassword(tenant.ID, user.ID, "wrong", "password2")
	assert.Equal(t, apperrors.CodeOldPasswordWrong, apperrors.CodeOf(err))

	require.NoError(t, svc.ChangePassword(tenant.ID, user.ID, "password1", "password2"))

	_, _, err = svc.Login(ctx, tenant.ID, "alice", "password1")
	assert.Equal(t, apperrors.CodeInvalidCredentials, apperrors.CodeOf(err))

	_, _, err = svc.Login(ctx, tenant.ID, "alice", "password2")
	assert.NoError(t, err)
}

func TestIssueFor(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	user := createTestUser(t, db, tenant.ID, "alice", "password1")

	pair, err := svc.IssueFor(ctx, tenant.ID, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	// 租户准入同样适用于代签发
	_, err = NewTenantService(db).Deactivate(tenant.ID)
	require.NoError(t, err)
	_, err = svc.IssueFor(ctx, tenant.ID, user.ID)
	assert.Equal(t, apperrors.CodeTenantInvalid, apperrors.CodeOf(err))
}

func TestParse(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	user := createTestUser(t, db, tenant.ID, "alice", "password1")

	pair, err := svc.IssueFor(ctx, tenant.ID, user.ID)
	require.NoError(t, err)

	userID, ok := svc.Parse(pair.AccessToken)
	assert.True(t, ok)
	assert.Equal(t, user.ID, userID)

	_, ok = svc.Parse("garbage")
	assert.False(t, ok)
}

func TestRevokeAll(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	createTestUser(t, db, tenant.ID, "alice", "password1")

	pair, _, err := svc.Login(ctx, tenant.ID, "alice", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, tenant.ID, pairUserID(t, svc, pair.AccessToken)))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, apperrors.CodeRefreshTokenInvalid, apperrors.CodeOf(err))
}

func pairUserID(t *testing.T, svc *AuthService, accessToken string) uint {
	t.Helper()
	userID, ok := svc.Parse(accessToken)
	require.True(t, ok)
	return userID
}

func TestValidateLive_ReflectsCurrentAuthorities(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	user := createTestUser(t, db, tenant.ID, "alice", "password1")

	userService := NewUserService(db)
	roleService := NewRoleService(db)
	userRole, err := roleService.GetByCode(tenant.ID, models.RoleUser)
	require.NoError(t, err)
	require.NoError(t, userService.AddRole(tenant.ID, user.ID, userRole.ID))

	pair, _, err := svc.Login(ctx, tenant.ID, "alice", "password1")
	require.NoError(t, err)

	// 令牌签发后提升角色，实时校验立即反映新权限，快照不变
	adminRole, err := roleService.GetByCode(tenant.ID, models.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, userService.AddRole(tenant.ID, user.ID, adminRole.ID))

	result, err := svc.ValidateLive(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Contains(t, result.Permissions, "user:delete")
}

func TestValidateLive_InvalidInputs(t *testing.T) {
	svc, db := newAuthEnv(t)
	ctx := context.Background()

	tenant := createTestTenant(t, db, "acme", 0)
	user := createTestUser(t, db, tenant.ID, "alice", "password1")

	// 格式错误的令牌不报错，返回 valid=false
	result, err := svc.ValidateLive(ctx, "garbage")
	require.NoError(t, err)
	assert.False(t, result.Valid)

	pair, _, err := svc.Login(ctx, tenant.ID, "alice", "password1")
	require.NoError(t, err)

	// 刷新令牌不能当访问令牌校验
	result, err = svc.ValidateLive(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.False(t, result.Valid)

	// 用户被禁用后令牌校验失败
	_, err = NewUserService(db).Deactivate(tenant.ID, user.ID)
	require.NoError(t, err)
	result, err = svc.ValidateLive(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.False(t, result.Valid)
}
