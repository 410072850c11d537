package sql

import (
	"context"
	"database/sql"
	"strings"

	core "rowbatch/data/db"
	"rowbatch/data/db/dialect"
)

type insertBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table     string
	columns   []string
	rows      [][]any
	returning []string
}

func (b *insertBuilder) Columns(cols ...string) IInsertBuilder {
	b.columns = cols
	return b
}

func (b *insertBuilder) Values(vals ...any) IInsertBuilder {
	if len(vals) == 0 {
		return b
	}
	b.rows = append(b.rows, vals)
	return b
}

func (b *insertBuilder) Returning(cols ...string) IInsertBuilder {
	b.returning = append(b.returning, cols...)
	return b
}

// buildValues 生成 INSERT INTO t (...) VALUES (...), (...) 部分，供 upsert 复用。
func (b *insertBuilder) buildValues(who string) (string, []any) {
	if len(b.columns) == 0 {
		panic(who + ": Columns is required")
	}
	if len(b.rows) == 0 {
		panic(who + ": at least one row is required")
	}
	if !isSafeIdentifier(b.table) {
		panic(who + ": unsafe table name " + b.table)
	}

	var sb strings.Builder
	args := make([]any, 0, len(b.rows)*len(b.columns))

	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.dialect.QuoteIdentifier(b.table))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoteAll(b.dialect, who, b.columns), ", "))
	sb.WriteString(") VALUES ")

	rowPlaceholder := placeholders(len(b.columns))
	for i, row := range b.rows {
		if len(row) != len(b.columns) {
			panic(who + ": values length mismatch columns length")
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(rowPlaceholder)
		args = append(args, row...)
	}
	return sb.String(), args
}

func (b *insertBuilder) Build() (string, []any) {
	q, args := b.buildValues("insertBuilder")
	return q + returningClause(b.dialect, "insertBuilder", b.returning, nil), args
}

func (b *insertBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args := b.Build()
	return b.db.Exec(ctx, q, args...)
}

func (b *insertBuilder) Query(ctx context.Context) (core.IRows, error) {
	q, args := b.Build()
	return b.db.Query(ctx, q, args...)
}
