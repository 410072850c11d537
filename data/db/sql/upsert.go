package sql

import (
	"context"
	"database/sql"
	"strings"

	core "rowbatch/data/db"
)

// upsertBuilder 在多行 INSERT 之上追加 ON CONFLICT 子句。
//
// DO UPDATE 时每个列取 excluded（本次插入行）的值，而不是已存在行的值。
type upsertBuilder struct {
	insert insertBuilder

	targetCols    []string
	constraint    string
	doUpdate      []string
	returningExpr []string
}

func (b *upsertBuilder) Columns(cols ...string) IUpsertBuilder {
	b.insert.Columns(cols...)
	return b
}

func (b *upsertBuilder) Values(vals ...any) IUpsertBuilder {
	b.insert.Values(vals...)
	return b
}

func (b *upsertBuilder) OnConflictColumns(cols ...string) IUpsertBuilder {
	b.targetCols = cols
	b.constraint = ""
	return b
}

func (b *upsertBuilder) OnConflictConstraint(name string) IUpsertBuilder {
	b.constraint = name
	b.targetCols = nil
	return b
}

func (b *upsertBuilder) DoNothing() IUpsertBuilder {
	b.doUpdate = nil
	return b
}

func (b *upsertBuilder) DoUpdateExcluded(cols ...string) IUpsertBuilder {
	b.doUpdate = cols
	return b
}

func (b *upsertBuilder) Returning(cols ...string) IUpsertBuilder {
	b.insert.Returning(cols...)
	return b
}

func (b *upsertBuilder) ReturningExpr(expr string) IUpsertBuilder {
	if expr != "" {
		b.returningExpr = append(b.returningExpr, expr)
	}
	return b
}

func (b *upsertBuilder) Build() (string, []any) {
	const who = "upsertBuilder"
	q, args := b.insert.buildValues(who)
	d := b.insert.dialect

	var sb strings.Builder
	sb.WriteString(q)
	sb.WriteString(" ON CONFLICT")

	hasTarget := false
	switch {
	case b.constraint != "":
		if !isSafeIdentifier(b.constraint) {
			panic(who + ": unsafe constraint name " + b.constraint)
		}
		sb.WriteString(" ON CONSTRAINT ")
		sb.WriteString(d.QuoteIdentifier(b.constraint))
		hasTarget = true
	case len(b.targetCols) > 0:
		sb.WriteString(" (")
		sb.WriteString(strings.Join(quoteAll(d, who, b.targetCols), ", "))
		sb.WriteString(")")
		hasTarget = true
	}

	if len(b.doUpdate) == 0 {
		sb.WriteString(" DO NOTHING")
	} else {
		if !hasTarget {
			panic(who + ": DO UPDATE requires a conflict target")
		}
		quoted := quoteAll(d, who, b.doUpdate)
		sets := make([]string, len(quoted))
		for i, col := range quoted {
			sets[i] = col + " = excluded." + col
		}
		sb.WriteString(" DO UPDATE SET ")
		sb.WriteString(strings.Join(sets, ", "))
	}

	sb.WriteString(returningClause(d, who, b.insert.returning, b.returningExpr))
	return sb.String(), args
}

func (b *upsertBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args := b.Build()
	return b.insert.db.Exec(ctx, q, args...)
}

func (b *upsertBuilder) Query(ctx context.Context) (core.IRows, error) {
	q, args := b.Build()
	return b.insert.db.Query(ctx, q, args...)
}
