package sql

import (
	"context"
	"database/sql"
	"strings"

	core "rowbatch/data/db"
	"rowbatch/data/db/dialect"
)

type deleteBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table string
	where []string
	args  []any
	limit int
}

func (b *deleteBuilder) Where(cond string, args ...any) IDeleteBuilder {
	if cond != "" {
		b.where = append(b.where, cond)
		b.args = append(b.args, args...)
	}
	return b
}

func (b *deleteBuilder) WhereIn(col string, vals []any) IDeleteBuilder {
	tuples := make([][]any, len(vals))
	for i, v := range vals {
		tuples[i] = []any{v}
	}
	return b.WhereTupleIn([]string{col}, tuples)
}

func (b *deleteBuilder) WhereTupleIn(cols []string, tuples [][]any) IDeleteBuilder {
	cond, args := tupleIn(b.dialect, "deleteBuilder", cols, tuples)
	return b.Where(cond, args...)
}

func (b *deleteBuilder) Limit(n int) IDeleteBuilder {
	b.limit = n
	return b
}

func (b *deleteBuilder) Build() (string, []any) {
	if !isSafeIdentifier(b.table) {
		panic("deleteBuilder: unsafe table name " + b.table)
	}

	var sb strings.Builder
	args := make([]any, len(b.args))
	copy(args, b.args)

	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.dialect.QuoteIdentifier(b.table))

	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}

	if b.limit > 0 && b.dialect.SupportsDeleteLimit() {
		sb.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	}

	return sb.String(), args
}

func (b *deleteBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args := b.Build()
	return b.db.Exec(ctx, q, args...)
}
