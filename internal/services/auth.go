package services

import (
	"context"
	"time"

	"authhub/internal/models"
	apperrors "authhub/pkg/errors"
	"authhub/pkg/jwt"
	"authhub/pkg/logger"
	"authhub/pkg/tokenstore"

	"gorm.io/gorm"
)

// AuthService 认证服务：注册、登录、刷新、登出、令牌签发与撤销
type AuthService struct {
	db            *gorm.DB
	userService   *UserService
	tenantService *TenantService
	authorizer    *Authorizer
	tokenManager  *jwt.TokenManager
	store         *tokenstore.RedisTokenStore
}

func NewAuthService(db *gorm.DB, tokenManager *jwt.TokenManager, store *tokenstore.RedisTokenStore) *AuthService {
	return &AuthService{
		db:            db,
		userService:   NewUserService(db),
		tenantService: NewTenantService(db),
		authorizer:    NewAuthorizer(db),
		tokenManager:  tokenManager,
		store:         store,
	}
}

// TokenPair 一次签发产出的令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`  // 访问令牌有效期（秒）
	ExpiresAt    int64  `json:"expires_at"`  // 访问令牌过期时刻（Unix秒）
}

// Register 在租户内注册用户并自动登录
// 先过租户准入（含用户配额），再做租户内查重，成功后自动分配ROLE_USER
func (s *AuthService) Register(ctx context.Context, tenantID uint, username, password, nickname string, email, phone *string) (*TokenPair, *models.User, error) {
	appLogger := logger.GetLogger()
	appLogger.Infof("Registering user: %s in tenant: %d", username, tenantID)

	if _, err := s.tenantService.AdmitRegistration(tenantID); err != nil {
		return nil, nil, err
	}

	user, err := s.userService.Create(tenantID, username, password, nickname, email, phone)
	if err != nil {
		return nil, nil, err
	}

	// 分配租户内的默认角色；角色缺失只告警，不阻断注册
	var defaultRole models.Role
	err = s.db.Where("tenant_id = ? AND code = ?", tenantID, models.RoleUser).First(&defaultRole).Error
	if err == nil {
		if err := s.db.Create(&models.UserRole{
			UserID:   user.ID,
			RoleID:   defaultRole.ID,
			TenantID: tenantID,
		}).Error; err != nil {
			appLogger.Warnf("Failed to assign %s to user %d in tenant %d: %v", models.RoleUser, user.ID, tenantID, err)
		}
	} else {
		appLogger.Warnf("%s not found for tenant: %d, skipping role assignment", models.RoleUser, tenantID)
	}

	// 重新加载用户以获取角色与权限快照
	user, err = s.userService.GetByIDWithAuthorities(tenantID, user.ID)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	appLogger.Infof("User registered successfully: %d in tenant: %d", user.ID, tenantID)
	return pair, user, nil
}

// Login 租户内登录，支持用户名或邮箱
func (s *AuthService) Login(ctx context.Context, tenantID uint, identifier, password string) (*TokenPair, *models.User, error) {
	appLogger := logger.GetLogger()
	appLogger.Infof("User login attempt: %s in tenant: %d", identifier, tenantID)

	if _, err := s.tenantService.Admit(tenantID); err != nil {
		return nil, nil, err
	}

	user, err := s.userService.FindByUsernameOrEmail(tenantID, identifier)
	if err != nil {
		return nil, nil, err
	}

	if !user.IsActive() {
		return nil, nil, apperrors.New(apperrors.CodeUserDisabled, "用户已被禁用")
	}

	if !user.CheckPassword(password) {
		return nil, nil, apperrors.New(apperrors.CodeInvalidCredentials, "用户名或密码错误")
	}

	if err := s.userService.UpdateLastLogin(user.ID); err != nil {
		// 最后登录时间更新失败不影响登录流程
		appLogger.Warnf("Failed to update last login for user %d: %v", user.ID, err)
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	appLogger.Infof("User logged in successfully: %d in tenant: %d", user.ID, tenantID)
	return pair, user, nil
}

// Refresh 用刷新令牌换取新令牌对
// 存储中的刷新令牌随之轮换：被替换的旧令牌再次使用时校验必然失败
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenManager.Decode(refreshToken)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeRefreshTokenInvalid, "刷新令牌无效")
	}
	if claims.Kind() != jwt.KindRefresh {
		return nil, apperrors.New(apperrors.CodeRefreshTokenInvalid, "刷新令牌无效")
	}

	valid, err := s.store.VerifyRefresh(ctx, claims.TenantID, claims.UserID, refreshToken)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, apperrors.New(apperrors.CodeRefreshTokenInvalid, "刷新令牌无效")
	}

	user, err := s.userService.GetByIDWithAuthorities(claims.TenantID, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, apperrors.New(apperrors.CodeUserDisabled, "用户已被禁用")
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Infof("Token refreshed successfully for user: %d in tenant: %d", claims.UserID, claims.TenantID)
	return pair, nil
}

// Logout 登出：访问令牌入黑名单（TTL取剩余有效期），刷新令牌条目删除
// 尽力而为：任一令牌无效都不阻断另一个的处理
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	appLogger := logger.GetLogger()

	handled := false

	if accessToken != "" {
		if claims, err := s.tokenManager.Decode(accessToken); err == nil && claims.Kind() == jwt.KindAccess {
			ttl := claims.RemainingTTL(time.Now())
			if err := s.store.AddToBlacklist(ctx, claims.TenantID, accessToken, ttl); err != nil {
				return err
			}
			appLogger.Infof("Added token to blacklist: tenant:%d, token:%s", claims.TenantID, tokenstore.TokenPrefix(accessToken))
			handled = true
		}
	}

	if refreshToken != "" {
		if claims, err := s.tokenManager.Decode(refreshToken); err == nil && claims.Kind() == jwt.KindRefresh {
			if err := s.store.DeleteRefresh(ctx, claims.TenantID, claims.UserID); err != nil {
				return err
			}
			appLogger.Infof("User logged out: tenant=%d, user=%d", claims.TenantID, claims.UserID)
			handled = true
		}
	}

	if !handled {
		return apperrors.New(apperrors.CodeUnauthorized, "未提供有效令牌")
	}
	return nil
}

// ChangePassword 修改密码，需校验旧密码
func (s *AuthService) ChangePassword(tenantID, userID uint, oldPassword, newPassword string) error {
	user, err := s.userService.GetByID(tenantID, userID)
	if err != nil {
		return err
	}

	if !user.CheckPassword(oldPassword) {
		return apperrors.New(apperrors.CodeOldPasswordWrong, "旧密码错误")
	}

	if err := s.userService.UpdatePassword(user, newPassword); err != nil {
		return err
	}

	logger.GetLogger().Infof("Password changed successfully for user: %d in tenant: %d", userID, tenantID)
	return nil
}

// IssueFor 为指定用户签发令牌对（RPC签发入口）
func (s *AuthService) IssueFor(ctx context.Context, tenantID, userID uint) (*TokenPair, error) {
	if _, err := s.tenantService.Admit(tenantID); err != nil {
		return nil, err
	}

	user, err := s.userService.GetByIDWithAuthorities(tenantID, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, apperrors.New(apperrors.CodeUserDisabled, "用户已被禁用")
	}

	return s.issuePair(ctx, user)
}

// Parse 从令牌中提取用户ID，无效令牌返回false
func (s *AuthService) Parse(token string) (uint, bool) {
	claims, err := s.tokenManager.Decode(token)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

// RevokeAll 撤销用户的刷新令牌（尽力而为）
// 已签发且未过期的访问令牌只能通过黑名单逐个失效
func (s *AuthService) RevokeAll(ctx context.Context, tenantID, userID uint) error {
	if err := s.store.RevokeAll(ctx, tenantID, userID); err != nil {
		return err
	}
	logger.GetLogger().Infof("Revoked all tokens for tenant:%d, user:%d", tenantID, userID)
	return nil
}

// ValidationResult RPC校验结果（实时角色/权限，非令牌快照）
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	UserID      uint     `json:"user_id,omitempty"`
	Username    string   `json:"username,omitempty"`
	TenantID    uint     `json:"tenant_id,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	ExpiresAt   int64    `json:"expires_at,omitempty"`
}

// ValidateLive RPC校验：令牌通过完整认证管道后，角色与权限从凭证库实时解析
func (s *AuthService) ValidateLive(ctx context.Context, token string) (*ValidationResult, error) {
	claims, err := s.tokenManager.Decode(token)
	if err != nil || claims.Kind() != jwt.KindAccess {
		return &ValidationResult{Valid: false}, nil
	}

	blacklisted, err := s.store.IsBlacklisted(ctx, claims.TenantID, token)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return &ValidationResult{Valid: false}, nil
	}

	user, err := s.userService.GetByIDWithAuthorities(claims.TenantID, claims.UserID)
	if err != nil {
		return &ValidationResult{Valid: false}, nil
	}
	if !user.IsActive() {
		return &ValidationResult{Valid: false}, nil
	}

	permissions, err := s.authorizer.EffectivePermissionCodes(claims.TenantID, claims.UserID)
	if err != nil {
		return nil, err
	}

	return &ValidationResult{
		Valid:       true,
		UserID:      user.ID,
		Username:    user.Username,
		TenantID:    user.TenantID,
		Roles:       user.RoleCodes(),
		Permissions: permissions,
		ExpiresAt:   claims.ExpiresAt.Unix(),
	}, nil
}

// issuePair 签发访问+刷新令牌对并保存刷新令牌
// SaveRefresh为原子替换：并发签发时最后写入者的刷新令牌生效
func (s *AuthService) issuePair(ctx context.Context, user *models.User) (*TokenPair, error) {
	roles := user.RoleCodes()
	permissions := user.PermissionCodes()

	accessToken, err := s.tokenManager.GenerateAccessToken(user.ID, user.TenantID, user.Username, roles, permissions)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenManager.GenerateRefreshToken(user.ID, user.TenantID, user.Username)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveRefresh(ctx, user.TenantID, user.ID, refreshToken, s.tokenManager.RefreshDuration()); err != nil {
		return nil, err
	}

	now := time.Now()
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokenManager.AccessDuration().Seconds()),
		ExpiresAt:    now.Add(s.tokenManager.AccessDuration()).Unix(),
	}, nil
}
