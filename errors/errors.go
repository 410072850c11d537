// Package errors 定义批量写入层统一的错误码与错误类型。
//
// 所有对外操作返回的错误都是 *AppError：调用方通过 Code() / IsErrorCode
// 区分校验错误、配置错误与存储错误，原始驱动错误保留在 Cause() 中。
package errors

import (
	stdErrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode 错误代码类型
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnsupported  ErrorCode = "UNSUPPORTED"

	// 校验与配置错误：在任何 I/O 之前返回
	ErrCodeInvalidKey                ErrorCode = "INVALID_KEY"
	ErrCodeRestrictedKey             ErrorCode = "RESTRICTED_KEY"
	ErrCodeMissingConfiguration      ErrorCode = "MISSING_CONFIGURATION"
	ErrCodeAssociationServiceMissing ErrorCode = "ASSOCIATION_SERVICE_MISSING"

	// 存储错误
	ErrCodeDatabase            ErrorCode = "DATABASE_ERROR"
	ErrCodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"
)

// IError 错误接口
type IError interface {
	error

	Code() ErrorCode
	Message() string
	Cause() error
	Details() map[string]any
	Stack() string

	// WithContext 返回附加了一条详情的副本
	WithContext(key string, value any) IError
}

// AppError 应用错误实现
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
	stack   string
}

// NewError 创建新错误
func NewError(code ErrorCode, message string) IError {
	return &AppError{
		code:    code,
		message: message,
		details: make(map[string]any),
		stack:   captureStack(),
	}
}

// WrapError 包装错误，err 为 nil 时返回 nil
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}
	return &AppError{
		code:    code,
		message: message,
		cause:   err,
		details: make(map[string]any),
		stack:   captureStack(),
	}
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *AppError) Code() ErrorCode { return e.code }
func (e *AppError) Message() string { return e.message }
func (e *AppError) Cause() error    { return e.cause }
func (e *AppError) Stack() string   { return e.stack }

// Details 获取错误详情
func (e *AppError) Details() map[string]any {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	return e.details
}

// Is 同错误码的 *AppError 视为相等，否则沿 cause 链比较
func (e *AppError) Is(target error) bool {
	if target == nil {
		return false
	}
	if appErr, ok := target.(*AppError); ok {
		return e.code == appErr.code
	}
	if e.cause != nil {
		return stdErrors.Is(e.cause, target)
	}
	return false
}

// Unwrap 解包错误（支持 errors.Unwrap）
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithContext 添加上下文
func (e *AppError) WithContext(key string, value any) IError {
	details := copyMap(e.details)
	details[key] = value
	return &AppError{
		code:    e.code,
		message: e.message,
		cause:   e.cause,
		details: details,
		stack:   e.stack,
	}
}

// 哨兵错误，仅用于 errors.Is 按错误码匹配
var (
	ErrInvalidInput              = NewError(ErrCodeInvalidInput, "invalid input")
	ErrNotFound                  = NewError(ErrCodeNotFound, "record not found")
	ErrUnsupported               = NewError(ErrCodeUnsupported, "unsupported by dialect")
	ErrInvalidKey                = NewError(ErrCodeInvalidKey, "invalid key")
	ErrRestrictedKey             = NewError(ErrCodeRestrictedKey, "restricted key")
	ErrMissingConfiguration      = NewError(ErrCodeMissingConfiguration, "missing configuration")
	ErrAssociationServiceMissing = NewError(ErrCodeAssociationServiceMissing, "association service missing")
	ErrDatabase                  = NewError(ErrCodeDatabase, "database error")
	ErrConstraintViolation       = NewError(ErrCodeConstraintViolation, "constraint violation")
)

// NewInvalidKeyError 列名不属于目标模型（或关联名集合）
func NewInvalidKeyError(model, key string) error {
	return NewError(ErrCodeInvalidKey, fmt.Sprintf("the key %q is not allowed on %s", key, model)).
		WithContext("model", model).
		WithContext("key", key)
}

// NewRestrictedKeyError 更新载荷中包含主键列
func NewRestrictedKeyError(model string, primaryKey []string) error {
	return NewError(ErrCodeRestrictedKey,
		fmt.Sprintf("the primary key (%s) cannot be updated on %s", strings.Join(primaryKey, ", "), model)).
		WithContext("model", model).
		WithContext("primary_key", primaryKey)
}

// NewMissingConfigurationError 服务定义缺少必需配置
func NewMissingConfigurationError(model, message string) error {
	return NewError(ErrCodeMissingConfiguration, fmt.Sprintf("%s: %s", model, message)).
		WithContext("model", model)
}

// NewAssociationServiceMissingError 关联没有注册子记录创建服务
func NewAssociationServiceMissingError(model, association string) error {
	return NewError(ErrCodeAssociationServiceMissing,
		fmt.Sprintf("cannot create %s for %s: no service provided", association, model)).
		WithContext("model", model).
		WithContext("association", association)
}

// IsErrorCode 检查是否为指定错误代码
func IsErrorCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code == code
	}
	return false
}

// GetErrorCode 获取错误代码，非 AppError 视为内部错误
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code
	}
	return ErrCodeInternal
}

// IsValidation 校验/配置类错误：调用方的编程错误，不应重试
func IsValidation(err error) bool {
	switch GetErrorCode(err) {
	case ErrCodeInvalidKey, ErrCodeRestrictedKey, ErrCodeMissingConfiguration,
		ErrCodeAssociationServiceMissing, ErrCodeInvalidInput, ErrCodeUnsupported:
		return true
	default:
		return false
	}
}

// IsStorage 存储引擎返回的错误（含唯一约束冲突）
func IsStorage(err error) bool {
	switch GetErrorCode(err) {
	case ErrCodeDatabase, ErrCodeConstraintViolation:
		return true
	default:
		return false
	}
}

func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var builder strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		if !more {
			break
		}
	}
	return builder.String()
}

func copyMap(original map[string]any) map[string]any {
	copied := make(map[string]any, len(original)+1)
	for k, v := range original {
		copied[k] = v
	}
	return copied
}
