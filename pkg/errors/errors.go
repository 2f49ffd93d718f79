package errors

import "fmt"

// ========== 错误码常量定义 ==========

// CodeSuccess 成功码
const (
	CodeSuccess = 200
)

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeServerError  = 500
)

// 认证错误码 (1000-1999)
const (
	CodeInvalidCredentials  = 1001 // 用户名或密码错误
	CodeUserNotFound        = 1002 // 用户不存在
	CodeUserDisabled        = 1003 // 用户已被禁用
	CodeUsernameExists      = 1004 // 用户名已存在
	CodeEmailExists         = 1005 // 邮箱已被使用
	CodeTokenMissing        = 1007 // 未提供认证令牌
	CodeTokenMalformed      = 1008 // 令牌格式错误
	CodeTokenExpired        = 1009 // 令牌已过期
	CodeTokenBlacklisted    = 1010 // 令牌已被注销
	CodeRefreshTokenInvalid = 1011 // 刷新令牌无效
	CodeOldPasswordWrong    = 1012 // 旧密码错误
	CodeTokenBadSignature   = 1013 // 令牌签名无效
	CodeWrongTokenType      = 1014 // 令牌类型错误
)

// 授权错误码 (2000-2999)
const (
	CodeAccessDenied         = 2001 // 无权限访问
	CodeRoleNotFound         = 2002 // 角色不存在
	CodeRoleCodeExists       = 2003 // 角色编码已存在
	CodePermissionNotFound   = 2004 // 权限不存在
	CodePermissionCodeExists = 2005 // 权限编码已存在
)

// 租户错误码 (3000-3999)
const (
	CodeTenantNotFound        = 3001 // 租户不存在
	CodeTenantInvalid         = 3002 // 租户已禁用或已过期
	CodeTenantUserLimit       = 3003 // 租户用户数已达上限
	CodeTenantCodeExists      = 3004 // 租户编码已存在
	CodeTenantDeleteForbidden = 3005 // 平台租户不允许删除
)

// AppError 业务错误，携带稳定的机器可读错误码
type AppError struct {
	Code    int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// New 创建业务错误
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf 创建带格式化消息的业务错误
func Newf(code int, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf 提取错误码，非业务错误归为服务器内部错误
func CodeOf(err error) int {
	if err == nil {
		return CodeSuccess
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeServerError
}
