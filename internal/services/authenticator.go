package services

import (
	"context"
	"errors"

	"authhub/internal/models"
	apperrors "authhub/pkg/errors"
	"authhub/pkg/jwt"
	"authhub/pkg/tokenstore"
)

// Principal 认证通过后的请求主体
// 角色与权限来自令牌内嵌快照，请求期间不再回源查询
type Principal struct {
	UserID      uint
	TenantID    uint
	Username    string
	Roles       []string
	Permissions []string

	authorities map[string]struct{}
}

// NewPrincipal 从令牌声明构造主体，authorities = 角色码 ∪ 权限码
func NewPrincipal(claims *jwt.Claims) *Principal {
	p := &Principal{
		UserID:      claims.UserID,
		TenantID:    claims.TenantID,
		Username:    claims.Username,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
		authorities: make(map[string]struct{}, len(claims.Roles)+len(claims.Permissions)),
	}
	for _, code := range claims.Authorities() {
		p.authorities[code] = struct{}{}
	}
	return p
}

// HasAuthority 快照内是否存在指定授权码（角色或权限）
func (p *Principal) HasAuthority(code string) bool {
	_, ok := p.authorities[code]
	return ok
}

// HasRole 快照内是否持有指定角色
func (p *Principal) HasRole(code string) bool {
	for _, role := range p.Roles {
		if role == code {
			return true
		}
	}
	return false
}

// HasPermission 快照内是否持有指定权限
func (p *Principal) HasPermission(code string) bool {
	for _, perm := range p.Permissions {
		if perm == code {
			return true
		}
	}
	return false
}

// IsPlatformAdmin 是否为平台管理员
func (p *Principal) IsPlatformAdmin() bool {
	return p.HasRole(models.RolePlatformAdmin)
}

// Authenticator 认证管道
// 每个请求单遍执行：解码 -> 类型检查 -> 黑名单检查 -> 构造主体
// 只读，不写入令牌存储，可无协调地并发调用
type Authenticator struct {
	tokenManager *jwt.TokenManager
	store        *tokenstore.RedisTokenStore
}

func NewAuthenticator(tokenManager *jwt.TokenManager, store *tokenstore.RedisTokenStore) *Authenticator {
	return &Authenticator{
		tokenManager: tokenManager,
		store:        store,
	}
}

// Authenticate 校验访问令牌并产出主体
// 空令牌返回 (nil, nil)：匿名不是错误，由下游授权决定是否放行
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (*Principal, error) {
	if rawToken == "" {
		return nil, nil
	}

	claims, err := a.tokenManager.Decode(rawToken)
	if err != nil {
		return nil, rejectDecode(err)
	}

	if claims.Kind() != jwt.KindAccess {
		return nil, apperrors.New(apperrors.CodeWrongTokenType, "令牌类型错误")
	}

	blacklisted, err := a.store.IsBlacklisted(ctx, claims.TenantID, rawToken)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, apperrors.New(apperrors.CodeTokenBlacklisted, "令牌已被注销")
	}

	return NewPrincipal(claims), nil
}

// TokenManager 暴露底层编解码器（刷新/登出流程需要直接解码）
func (a *Authenticator) TokenManager() *jwt.TokenManager {
	return a.tokenManager
}

// rejectDecode 将解码错误映射为带稳定错误码的业务错误
func rejectDecode(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return apperrors.New(apperrors.CodeTokenExpired, "令牌已过期")
	case errors.Is(err, jwt.ErrBadSignature):
		return apperrors.New(apperrors.CodeTokenBadSignature, "令牌签名无效")
	default:
		return apperrors.New(apperrors.CodeTokenMalformed, "令牌格式错误")
	}
}
