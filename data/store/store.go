// Package store 是批量写入执行器消费的存储端口及其 SQL 实现。
//
// 端口只暴露四个操作：多行插入、带冲突策略的多行插入、按键更新单行、
// 按键批量删除。方言生成、连接池与事务边界都由调用方或 data/db 负责。
package store

import (
	"context"

	"rowbatch/data/model"
)

// Resolution 冲突处理方式
type Resolution int

const (
	// Ignore 冲突行由引擎直接丢弃
	Ignore Resolution = iota
	// UpdateColumns 冲突时把列设置为本次插入行的值
	UpdateColumns
)

func (r Resolution) String() string {
	switch r {
	case Ignore:
		return "ignore"
	case UpdateColumns:
		return "update"
	default:
		return "unknown"
	}
}

// ConflictPolicy 描述 upsert 的冲突目标与处理方式。
//
// Constraint 与 Columns 二选一；都为空表示不指定目标（仅 Ignore 可用）。
type ConflictPolicy struct {
	Constraint    string
	Columns       []string
	Resolution    Resolution
	UpdateColumns []string
}

// HasTarget 是否指定了冲突目标
func (p ConflictPolicy) HasTarget() bool {
	return p.Constraint != "" || len(p.Columns) > 0
}

// KeySpec 定位单行的键列与值，按位置配对
type KeySpec struct {
	Columns []string
	Values  []any
}

// IStore 存储端口
type IStore interface {
	// InsertMany 多行插入，按插入顺序返回含生成列的行
	InsertMany(ctx context.Context, table string, columns []string, rows [][]any) ([]model.Row, error)

	// InsertManyOnConflict 带冲突策略的多行插入，只返回新插入的行
	InsertManyOnConflict(ctx context.Context, table string, columns []string, rows [][]any, policy ConflictPolicy) ([]model.Row, error)

	// UpdateOne 按键更新单行并返回更新后的行；未命中返回 NOT_FOUND
	UpdateOne(ctx context.Context, table string, keys KeySpec, values map[string]any) (model.Row, error)

	// DeleteByKeys 按单列或复合键批量删除，返回删除行数
	DeleteByKeys(ctx context.Context, table string, keyColumns []string, keyValues [][]any) (int64, error)
}
