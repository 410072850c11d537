package sql

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	core "rowbatch/data/db"
)

// dialectDB 只用于推断方言的 IDatabase 桩
type dialectDB struct{ name string }

func (d dialectDB) Query(ctx context.Context, query string, args ...any) (core.IRows, error) {
	return nil, nil
}
func (d dialectDB) QueryRow(ctx context.Context, query string, args ...any) core.IRow { return nil }
func (d dialectDB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (d dialectDB) Begin(ctx context.Context) (core.ITransaction, error) { return nil, nil }
func (d dialectDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (core.ITransaction, error) {
	return nil, nil
}
func (d dialectDB) Ping(ctx context.Context) error { return nil }
func (d dialectDB) Close() error                   { return nil }
func (d dialectDB) Raw() any                       { return nil }
func (d dialectDB) GetDialectName() string         { return d.name }

func TestInsertBuilder_MultiRowReturning(t *testing.T) {
	q, args := New(dialectDB{"sqlite"}).InsertInto("simples").
		Columns("name", "labor_hours").
		Values("foo", 0).
		Values("bar", 3).
		Returning("*").
		Build()

	assert.Equal(t, `INSERT INTO "simples" ("name", "labor_hours") VALUES (?, ?), (?, ?) RETURNING *`, q)
	assert.Equal(t, []any{"foo", 0, "bar", 3}, args)
}

func TestInsertBuilder_PanicsOnUnsafeColumn(t *testing.T) {
	assert.Panics(t, func() {
		New(dialectDB{"sqlite"}).InsertInto("simples").Columns("name; DROP TABLE x").Values(1).Build()
	})
	assert.Panics(t, func() {
		New(dialectDB{"sqlite"}).InsertInto("simples").Columns("name").Build()
	})
}

func TestUpsertBuilder_DoNothingWithoutTarget(t *testing.T) {
	q, _ := New(dialectDB{"sqlite"}).UpsertInto("uniques").
		Columns("a", "b").
		Values(1, 2).
		DoNothing().
		Returning("*").
		Build()

	assert.Equal(t, `INSERT INTO "uniques" ("a", "b") VALUES (?, ?) ON CONFLICT DO NOTHING RETURNING *`, q)
}

func TestUpsertBuilder_DoUpdateExcludedOnColumns(t *testing.T) {
	q, args := New(dialectDB{"sqlite"}).UpsertInto("uniques").
		Columns("name", "a", "b").
		Values("barbar", 1, 1).
		OnConflictColumns("a", "b").
		DoUpdateExcluded("name").
		Returning("*").
		Build()

	assert.Equal(t,
		`INSERT INTO "uniques" ("name", "a", "b") VALUES (?, ?, ?) ON CONFLICT ("a", "b") DO UPDATE SET "name" = excluded."name" RETURNING *`,
		q)
	assert.Equal(t, []any{"barbar", 1, 1}, args)
}

func TestUpsertBuilder_ConstraintWithInsertedMarker(t *testing.T) {
	q, _ := New(dialectDB{"postgres"}).UpsertInto("uniques").
		Columns("name").
		Values("x").
		OnConflictConstraint("uniques_a_b_key").
		DoUpdateExcluded("name").
		Returning("*").
		ReturningExpr("(xmax = 0) AS inserted_flag").
		Build()

	assert.Equal(t,
		`INSERT INTO "uniques" ("name") VALUES (?) ON CONFLICT ON CONSTRAINT "uniques_a_b_key" DO UPDATE SET "name" = excluded."name" RETURNING *, (xmax = 0) AS inserted_flag`,
		q)
}

func TestUpsertBuilder_DoUpdateWithoutTargetPanics(t *testing.T) {
	assert.Panics(t, func() {
		New(dialectDB{"sqlite"}).UpsertInto("uniques").Columns("a").Values(1).DoUpdateExcluded("a").Build()
	})
}

func TestUpdateBuilder_SetMapIsSortedAndReturning(t *testing.T) {
	q, args := New(dialectDB{"sqlite"}).Update("simples").
		SetMap(map[string]any{"name": "bar", "labor_hours": 2}).
		WhereEq("id", int64(7)).
		Returning("*").
		Build()

	assert.Equal(t, `UPDATE "simples" SET "labor_hours" = ?, "name" = ? WHERE "id" = ? RETURNING *`, q)
	assert.Equal(t, []any{2, "bar", int64(7)}, args)
}

func TestUpdateBuilder_NoSetPanics(t *testing.T) {
	assert.Panics(t, func() { New(dialectDB{"sqlite"}).Update("simples").Build() })
}

func TestDeleteBuilder_WhereIn(t *testing.T) {
	q, args := New(dialectDB{"sqlite"}).DeleteFrom("simples").
		WhereIn("id", []any{1, 2, 3}).
		Build()

	assert.Equal(t, `DELETE FROM "simples" WHERE "id" IN (?, ?, ?)`, q)
	assert.Equal(t, []any{1, 2, 3}, args)
}

func TestDeleteBuilder_WhereTupleIn(t *testing.T) {
	q, args := New(dialectDB{"postgres"}).DeleteFrom("composite_pks").
		WhereTupleIn([]string{"a", "b"}, [][]any{{1, 1}, {2, 2}}).
		Limit(10).
		Build()

	assert.Equal(t, `DELETE FROM "composite_pks" WHERE ("a", "b") IN ((?, ?), (?, ?))`, q)
	assert.Equal(t, []any{1, 1, 2, 2}, args)
}

func TestDeleteBuilder_WhereTupleInSQLiteUsesValues(t *testing.T) {
	q, _ := New(dialectDB{"sqlite"}).DeleteFrom("composite_pks").
		WhereTupleIn([]string{"a", "b"}, [][]any{{1, 1}, {2, 2}}).
		Build()

	assert.Equal(t, `DELETE FROM "composite_pks" WHERE ("a", "b") IN (VALUES (?, ?), (?, ?))`, q)
}

func TestSelectBuilder_BuildIsRepeatable(t *testing.T) {
	b := New(dialectDB{"sqlite"}).Select("a", "COUNT(*)").
		From("uniques").
		WhereTupleIn([]string{"a"}, [][]any{{1}}).
		Limit(5)

	q1, args1 := b.Build()
	q2, args2 := b.Build()
	assert.Equal(t, q1, q2)
	assert.Equal(t, args1, args2)
	assert.Equal(t, `SELECT "a", COUNT(*) FROM "uniques" WHERE "a" IN (?) LIMIT ?`, q1)
}

func TestIsSafeIdentifier(t *testing.T) {
	assert.True(t, IsSafeIdentifier("labor_hours"))
	assert.True(t, IsSafeIdentifier("public.books"))
	assert.False(t, IsSafeIdentifier("1abc"))
	assert.False(t, IsSafeIdentifier("a b"))
	assert.False(t, IsSafeIdentifier("a..b"))
	assert.False(t, IsSafeIdentifier(""))
}
