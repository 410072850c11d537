package sql

import (
	"context"
	"database/sql"

	core "rowbatch/data/db"
	"rowbatch/data/db/dialect"
)

// ISql 提供统一的 SQL 构建与执行接口。
type ISql interface {
	Select(columns ...string) ISelectBuilder
	InsertInto(table string) IInsertBuilder
	Update(table string) IUpdateBuilder
	DeleteFrom(table string) IDeleteBuilder
	UpsertInto(table string) IUpsertBuilder

	// Dialect 返回推断出的方言，供调用方在构建前做能力检查。
	Dialect() dialect.Dialect
}

// ISelectBuilder 构建 SELECT 语句。
type ISelectBuilder interface {
	From(table string) ISelectBuilder
	Where(cond string, args ...any) ISelectBuilder
	WhereTupleIn(cols []string, tuples [][]any) ISelectBuilder
	OrderBy(expr string) ISelectBuilder
	Limit(n int) ISelectBuilder
	Build() (query string, args []any)
	Query(ctx context.Context) (core.IRows, error)
	QueryRow(ctx context.Context) core.IRow
}

// IInsertBuilder 构建多行 INSERT 语句。
type IInsertBuilder interface {
	Columns(cols ...string) IInsertBuilder
	// Values 追加一行，长度必须与 Columns 一致
	Values(vals ...any) IInsertBuilder
	// Returning 追加 RETURNING 列，"*" 表示全部列
	Returning(cols ...string) IInsertBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
	Query(ctx context.Context) (core.IRows, error)
}

// IUpsertBuilder 构建 INSERT ... ON CONFLICT 语句。
type IUpsertBuilder interface {
	Columns(cols ...string) IUpsertBuilder
	Values(vals ...any) IUpsertBuilder
	// OnConflictColumns 以列集合作为冲突目标
	OnConflictColumns(cols ...string) IUpsertBuilder
	// OnConflictConstraint 以具名约束作为冲突目标（仅 Postgres）
	OnConflictConstraint(name string) IUpsertBuilder
	DoNothing() IUpsertBuilder
	// DoUpdateExcluded 冲突时把列设置为本次插入行（excluded）的值
	DoUpdateExcluded(cols ...string) IUpsertBuilder
	Returning(cols ...string) IUpsertBuilder
	// ReturningExpr 追加原始 RETURNING 表达式，由调用方保证安全
	ReturningExpr(expr string) IUpsertBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
	Query(ctx context.Context) (core.IRows, error)
}

// IUpdateBuilder 构建 UPDATE 语句。
type IUpdateBuilder interface {
	Set(column string, val any) IUpdateBuilder
	// SetMap 按列名排序后追加，保证生成的 SQL 稳定
	SetMap(values map[string]any) IUpdateBuilder
	Where(cond string, args ...any) IUpdateBuilder
	// WhereEq 追加 "col" = ? 条件，列名经过校验与转义
	WhereEq(col string, val any) IUpdateBuilder
	Returning(cols ...string) IUpdateBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
	Query(ctx context.Context) (core.IRows, error)
}

// IDeleteBuilder 构建 DELETE 语句。
type IDeleteBuilder interface {
	Where(cond string, args ...any) IDeleteBuilder
	// WhereIn 单列成员判断：col IN (?, ...)
	WhereIn(col string, vals []any) IDeleteBuilder
	// WhereTupleIn 多列行值成员判断：(a, b) IN ((?, ?), ...)
	WhereTupleIn(cols []string, tuples [][]any) IDeleteBuilder
	Limit(n int) IDeleteBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
}

type sqlImpl struct {
	db      core.IDatabase
	dialect dialect.Dialect
}

// New 创建 ISql 实例。
func New(db core.IDatabase) ISql {
	return &sqlImpl{
		db:      db,
		dialect: dialect.FromDatabase(db),
	}
}

func (s *sqlImpl) Select(columns ...string) ISelectBuilder {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	return &selectBuilder{
		db:      s.db,
		dialect: s.dialect,
		cols:    columns,
	}
}

func (s *sqlImpl) InsertInto(table string) IInsertBuilder {
	return &insertBuilder{
		db:      s.db,
		dialect: s.dialect,
		table:   table,
	}
}

func (s *sqlImpl) Update(table string) IUpdateBuilder {
	return &updateBuilder{
		db:      s.db,
		dialect: s.dialect,
		table:   table,
	}
}

func (s *sqlImpl) DeleteFrom(table string) IDeleteBuilder {
	return &deleteBuilder{
		db:      s.db,
		dialect: s.dialect,
		table:   table,
	}
}

func (s *sqlImpl) UpsertInto(table string) IUpsertBuilder {
	return &upsertBuilder{
		insert: insertBuilder{
			db:      s.db,
			dialect: s.dialect,
			table:   table,
		},
	}
}

func (s *sqlImpl) Dialect() dialect.Dialect { return s.dialect }
