package sql

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	core "rowbatch/data/db"
	"rowbatch/data/db/dialect"
)

type updateBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table     string
	setCols   []string
	setArgs   []any
	whereExpr []string
	whereArgs []any
	returning []string
}

func (b *updateBuilder) Set(col string, val any) IUpdateBuilder {
	if col == "" {
		return b
	}
	b.setCols = append(b.setCols, col)
	b.setArgs = append(b.setArgs, val)
	return b
}

func (b *updateBuilder) SetMap(values map[string]any) IUpdateBuilder {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.Set(k, values[k])
	}
	return b
}

func (b *updateBuilder) Where(cond string, args ...any) IUpdateBuilder {
	if cond != "" {
		b.whereExpr = append(b.whereExpr, cond)
		b.whereArgs = append(b.whereArgs, args...)
	}
	return b
}

func (b *updateBuilder) WhereEq(col string, val any) IUpdateBuilder {
	quoted := quoteAll(b.dialect, "updateBuilder", []string{col})[0]
	return b.Where(quoted+" = ?", val)
}

func (b *updateBuilder) Returning(cols ...string) IUpdateBuilder {
	b.returning = append(b.returning, cols...)
	return b
}

func (b *updateBuilder) Build() (string, []any) {
	if len(b.setCols) == 0 {
		panic("updateBuilder: no columns to set")
	}
	if !isSafeIdentifier(b.table) {
		panic("updateBuilder: unsafe table name " + b.table)
	}

	var sb strings.Builder
	args := make([]any, 0, len(b.setArgs)+len(b.whereArgs))

	sb.WriteString("UPDATE ")
	sb.WriteString(b.dialect.QuoteIdentifier(b.table))
	sb.WriteString(" SET ")

	sets := make([]string, 0, len(b.setCols))
	for _, col := range quoteAll(b.dialect, "updateBuilder", b.setCols) {
		sets = append(sets, col+" = ?")
	}
	args = append(args, b.setArgs...)
	sb.WriteString(strings.Join(sets, ", "))

	if len(b.whereExpr) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.whereExpr, " AND "))
		args = append(args, b.whereArgs...)
	}

	sb.WriteString(returningClause(b.dialect, "updateBuilder", b.returning, nil))
	return sb.String(), args
}

func (b *updateBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args := b.Build()
	return b.db.Exec(ctx, q, args...)
}

func (b *updateBuilder) Query(ctx context.Context) (core.IRows, error) {
	q, args := b.Build()
	return b.db.Query(ctx, q, args...)
}
