package jwt

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind 令牌类型
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

var (
	ErrMalformed       = errors.New("令牌格式错误")
	ErrExpired         = errors.New("令牌已过期")
	ErrBadSignature    = errors.New("令牌签名无效")
	ErrWeakSecretKey   = errors.New("签名密钥长度不足32字节")
	ErrInvalidDuration = errors.New("令牌有效期必须为正数")
)

// Claims JWT声明
// 访问令牌携带签发时刻的角色/权限快照，刷新令牌不携带任何授权声明
type Claims struct {
	UserID      uint     `json:"user_id"`
	TenantID    uint     `json:"tenant_id"`
	Username    string   `json:"username"`
	TokenType   string   `json:"token_type"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Kind 根据声明判定令牌类型
func (c *Claims) Kind() TokenKind {
	if c.TokenType == string(KindRefresh) {
		return KindRefresh
	}
	return KindAccess
}

// RemainingTTL 计算令牌剩余有效期（用于精确设置黑名单条目的TTL）
func (c *Claims) RemainingTTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := c.ExpiresAt.Time.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Authorities 角色码与权限码的并集（去重）
func (c *Claims) Authorities() []string {
	seen := make(map[string]struct{}, len(c.Roles)+len(c.Permissions))
	result := make([]string, 0, len(c.Roles)+len(c.Permissions))
	for _, code := range c.Roles {
		if _, ok := seen[code]; !ok {
			seen[code] = struct{}{}
			result = append(result, code)
		}
	}
	for _, code := range c.Permissions {
		if _, ok := seen[code]; !ok {
			seen[code] = struct{}{}
			result = append(result, code)
		}
	}
	return result
}

// TokenManager 令牌编解码器
// 签名与校验是纯CPU操作，不持有锁，可被任意多请求并发使用
type TokenManager struct {
	secretKey       string
	accessDuration  time.Duration
	refreshDuration time.Duration
	issuer          string
}

// NewTokenManager 创建令牌管理器
// 密钥不足256位属于启动期配置错误，直接拒绝
func NewTokenManager(secretKey string, accessDuration, refreshDuration time.Duration, issuer string) (*TokenManager, error) {
	if len(secretKey) < 32 {
		return nil, ErrWeakSecretKey
	}
	if accessDuration <= 0 || refreshDuration <= 0 {
		return nil, ErrInvalidDuration
	}
	return &TokenManager{
		secretKey:       secretKey,
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
		issuer:          issuer,
	}, nil
}

// GenerateAccessToken 签发访问令牌，嵌入角色与权限快照
func (m *TokenManager) GenerateAccessToken(userID, tenantID uint, username string, roles, permissions []string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:      userID,
		TenantID:    tenantID,
		Username:    username,
		TokenType:   string(KindAccess),
		Roles:       dedup(roles),
		Permissions: dedup(permissions),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secretKey))
}

// GenerateRefreshToken 签发刷新令牌，只携带身份，不携带授权快照
func (m *TokenManager) GenerateRefreshToken(userID, tenantID uint, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		TenantID:  tenantID,
		Username:  username,
		TokenType: string(KindRefresh),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secretKey))
}

// Decode 解码并校验令牌
// 纯函数：只依赖令牌本身和签名密钥，不访问任何外部状态
// 过期判定为闭区间上界：now >= exp 即过期
func (m *TokenManager) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrBadSignature
			}
			return []byte(m.secretKey), nil
		},
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}

	return claims, nil
}

// AccessDuration 访问令牌有效期
func (m *TokenManager) AccessDuration() time.Duration {
	return m.accessDuration
}

// RefreshDuration 刷新令牌有效期
func (m *TokenManager) RefreshDuration() time.Duration {
	return m.refreshDuration
}

// dedup 去重并保持原有顺序
func dedup(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	result := make([]string, 0, len(codes))
	for _, code := range codes {
		if _, ok := seen[code]; !ok {
			seen[code] = struct{}{}
			result = append(result, code)
		}
	}
	return result
}
