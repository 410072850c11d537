package errors

import (
	"context"
	stdErrors "errors"
	"fmt"

	"rowbatch/logging"
)

// WrapDatabaseError 包装存储引擎返回的错误
//
// 已经是 *AppError 的错误原样返回（例如存储适配器给出的 NOT_FOUND / UNSUPPORTED），
// 其余一律归入 DATABASE_ERROR 并以 Warn 级别记录。
func WrapDatabaseError(ctx context.Context, err error, operation string) error {
	return wrapStorage(ctx, err, ErrCodeDatabase, operation)
}

// WrapConstraintError 包装唯一键/主键冲突，错误码为 CONSTRAINT_VIOLATION。
// 是否属于约束冲突由调用方按方言判断。
func WrapConstraintError(ctx context.Context, err error, operation string) error {
	return wrapStorage(ctx, err, ErrCodeConstraintViolation, operation)
}

func wrapStorage(ctx context.Context, err error, code ErrorCode, operation string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return err
	}

	wrapped := WrapError(err, code, fmt.Sprintf("database operation failed: %s", operation)).
		WithContext("operation", operation)

	logging.GetLogger().Warn(ctx, "数据库操作失败",
		logging.String("operation", operation),
		logging.String("error_code", string(code)),
		logging.Error(err),
	)
	return wrapped
}
