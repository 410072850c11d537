package store

import (
	"context"
	"fmt"

	core "rowbatch/data/db"
	"rowbatch/logging"
)

type txContextKey struct{}

// ContextWithTx 把调用方持有的事务放入 ctx，SQLStore 在该 ctx 下的所有语句都走这个事务
func ContextWithTx(ctx context.Context, tx core.ITransaction) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext 取出环境事务
func TxFromContext(ctx context.Context) (core.ITransaction, bool) {
	tx, ok := ctx.Value(txContextKey{}).(core.ITransaction)
	return tx, ok && tx != nil
}

// RunInTx 在新事务中执行 fn：fn 返回 nil 时提交，否则回滚。
//
// ctx 中已有环境事务时直接复用，提交与回滚留给外层。
func RunInTx(ctx context.Context, db core.IDatabase, fn func(ctx context.Context) error) (err error) {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store.RunInTx: begin: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.GetLogger().Warn(ctx, "事务回滚失败",
					logging.Error(rbErr),
					logging.Component("store"))
			}
			return
		}
		if cmErr := tx.Commit(); cmErr != nil {
			err = fmt.Errorf("store.RunInTx: commit: %w", cmErr)
		}
	}()

	return fn(ContextWithTx(ctx, tx))
}
