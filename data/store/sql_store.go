package store

import (
	"context"
	"fmt"
	"strings"

	core "rowbatch/data/db"
	"rowbatch/data/db/dialect"
	sqlb "rowbatch/data/db/sql"
	"rowbatch/data/model"
	"rowbatch/errors"
)

// insertedFlag RETURNING 中标记新插入行的别名，返回前会被移除
const insertedFlag = "__rowbatch_inserted"

// SQLStore 基于 data/db 与 SQL builder 的 IStore 实现。
//
// db 可以是连接也可以是事务；ctx 中存在环境事务（ContextWithTx）时优先使用该事务。
type SQLStore struct {
	db core.IDatabase
}

var _ IStore = (*SQLStore)(nil)

// NewSQLStore 创建 SQLStore
func NewSQLStore(db core.IDatabase) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) handle(ctx context.Context) core.IDatabase {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return s.db
}

func (s *SQLStore) builder(ctx context.Context) sqlb.ISql {
	return sqlb.New(s.handle(ctx))
}

func (s *SQLStore) requireReturning(b sqlb.ISql, operation string) error {
	if b.Dialect().SupportsReturning() {
		return nil
	}
	return errors.NewError(errors.ErrCodeUnsupported,
		fmt.Sprintf("%s requires RETURNING support, dialect %s has none", operation, b.Dialect().Name())).
		WithContext("operation", operation)
}

// InsertMany 多行插入并返回全部列
func (s *SQLStore) InsertMany(ctx context.Context, table string, columns []string, rows [][]any) ([]model.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	b := s.builder(ctx)
	d := b.Dialect()
	if err := s.requireReturning(b, "insert_many"); err != nil {
		return nil, err
	}

	ins := b.InsertInto(table).Columns(columns...)
	for _, row := range rows {
		ins.Values(row...)
	}
	result, err := ins.Returning("*").Query(ctx)
	if err != nil {
		return nil, wrapStoreError(ctx, d, err, "insert_many")
	}
	out, err := collectRows(result)
	if err != nil {
		return nil, wrapStoreError(ctx, d, err, "insert_many")
	}
	return out, nil
}

// InsertManyOnConflict 带冲突策略的多行插入，只返回新插入的行。
//
// Ignore 时引擎本身只对插入成功的行执行 RETURNING。UpdateColumns 时被更新的行
// 同样出现在 RETURNING 中：有插入标记的方言（Postgres）按标记过滤，其余方言在同一
// 数据库句柄内先读出已存在的冲突键再过滤。
func (s *SQLStore) InsertManyOnConflict(ctx context.Context, table string, columns []string, rows [][]any, policy ConflictPolicy) ([]model.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	b := s.builder(ctx)
	d := b.Dialect()
	if err := s.requireReturning(b, "insert_many_on_conflict"); err != nil {
		return nil, err
	}
	if policy.Constraint != "" && !d.SupportsConstraintTarget() {
		return nil, errors.NewError(errors.ErrCodeUnsupported,
			fmt.Sprintf("dialect %s cannot target constraint %q, use conflict columns", d.Name(), policy.Constraint)).
			WithContext("constraint", policy.Constraint)
	}
	if policy.Resolution == UpdateColumns && (!policy.HasTarget() || len(policy.UpdateColumns) == 0) {
		return nil, errors.NewError(errors.ErrCodeMissingConfiguration,
			fmt.Sprintf("%s: conflict update needs a target and at least one column", table))
	}

	ups := b.UpsertInto(table).Columns(columns...)
	for _, row := range rows {
		ups.Values(row...)
	}
	switch {
	case policy.Constraint != "":
		ups.OnConflictConstraint(policy.Constraint)
	case len(policy.Columns) > 0:
		ups.OnConflictColumns(policy.Columns...)
	}
	ups.Returning("*")

	var existing map[string]struct{}
	marker, hasMarker := d.InsertedMarker()
	if policy.Resolution == UpdateColumns {
		ups.DoUpdateExcluded(policy.UpdateColumns...)
		if hasMarker {
			ups.ReturningExpr(marker + " AS " + d.QuoteIdentifier(insertedFlag))
		} else {
			var err error
			existing, err = s.existingKeys(ctx, b, table, columns, rows, policy.Columns)
			if err != nil {
				return nil, wrapStoreError(ctx, d, err, "insert_many_on_conflict")
			}
		}
	} else {
		ups.DoNothing()
	}

	result, err := ups.Query(ctx)
	if err != nil {
		return nil, wrapStoreError(ctx, d, err, "insert_many_on_conflict")
	}
	returned, err := collectRows(result)
	if err != nil {
		return nil, wrapStoreError(ctx, d, err, "insert_many_on_conflict")
	}
	if policy.Resolution != UpdateColumns {
		return returned, nil
	}

	inserted := make([]model.Row, 0, len(returned))
	for _, row := range returned {
		if hasMarker {
			flag := isTruthy(row[insertedFlag])
			delete(row, insertedFlag)
			if flag {
				inserted = append(inserted, row)
			}
			continue
		}
		key := keyOf(row, policy.Columns)
		if _, seen := existing[key]; seen {
			continue
		}
		// 同一批次中重复的冲突键只有第一行是插入
		existing[key] = struct{}{}
		inserted = append(inserted, row)
	}
	return inserted, nil
}

// existingKeys 读出本批次冲突目标列上已经存在的键
func (s *SQLStore) existingKeys(ctx context.Context, b sqlb.ISql, table string, columns []string, rows [][]any, target []string) (map[string]struct{}, error) {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}
	tuples := make([][]any, 0, len(rows))
	for _, row := range rows {
		tuple := make([]any, len(target))
		for i, col := range target {
			pos, ok := index[col]
			if !ok {
				return nil, errors.NewMissingConfigurationError(table,
					fmt.Sprintf("conflict column %s is not part of the insert", col))
			}
			tuple[i] = row[pos]
		}
		tuples = append(tuples, tuple)
	}

	result, err := b.Select(target...).From(table).WhereTupleIn(target, tuples).Query(ctx)
	if err != nil {
		return nil, err
	}
	found, err := collectRows(result)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(found))
	for _, row := range found {
		keys[keyOf(row, target)] = struct{}{}
	}
	return keys, nil
}

// UpdateOne 按键更新单行；values 为空时只读取该行
func (s *SQLStore) UpdateOne(ctx context.Context, table string, keys KeySpec, values map[string]any) (model.Row, error) {
	if len(keys.Columns) == 0 || len(keys.Columns) != len(keys.Values) {
		return nil, errors.NewError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s: key columns and values must pair up", table))
	}
	b := s.builder(ctx)
	d := b.Dialect()

	var (
		result core.IRows
		err    error
	)
	if len(values) == 0 {
		sel := b.Select("*").From(table)
		for i, col := range keys.Columns {
			sel.Where(d.QuoteIdentifier(col)+" = ?", keys.Values[i])
		}
		result, err = sel.Limit(1).Query(ctx)
	} else {
		if err := s.requireReturning(b, "update_one"); err != nil {
			return nil, err
		}
		upd := b.Update(table).SetMap(values)
		for i, col := range keys.Columns {
			upd.WhereEq(col, keys.Values[i])
		}
		result, err = upd.Returning("*").Query(ctx)
	}
	if err != nil {
		return nil, wrapStoreError(ctx, d, err, "update_one")
	}
	rows, err := collectRows(result)
	if err != nil {
		return nil, wrapStoreError(ctx, d, err, "update_one")
	}
	if len(rows) == 0 {
		return nil, errors.NewError(errors.ErrCodeNotFound,
			fmt.Sprintf("%s: no row matches %s", table, describeKeys(keys))).
			WithContext("table", table)
	}
	return rows[0], nil
}

// DeleteByKeys 单列键使用 IN，复合键使用行值 IN，方言不支持行值时展开为 OR
func (s *SQLStore) DeleteByKeys(ctx context.Context, table string, keyColumns []string, keyValues [][]any) (int64, error) {
	if len(keyValues) == 0 {
		return 0, nil
	}
	b := s.builder(ctx)
	d := b.Dialect()
	del := b.DeleteFrom(table)

	switch {
	case len(keyColumns) == 1:
		vals := make([]any, len(keyValues))
		for i, tuple := range keyValues {
			if len(tuple) != 1 {
				return 0, errors.NewError(errors.ErrCodeInvalidInput,
					fmt.Sprintf("%s: key tuple has %d values, want 1", table, len(tuple)))
			}
			vals[i] = tuple[0]
		}
		del.WhereIn(keyColumns[0], vals)
	case d.SupportsRowValues():
		for _, tuple := range keyValues {
			if len(tuple) != len(keyColumns) {
				return 0, errors.NewError(errors.ErrCodeInvalidInput,
					fmt.Sprintf("%s: key tuple has %d values, want %d", table, len(tuple), len(keyColumns)))
			}
		}
		del.WhereTupleIn(keyColumns, keyValues)
	default:
		cond, args := expandTuples(d, keyColumns, keyValues)
		del.Where(cond, args...)
	}

	res, err := del.Exec(ctx)
	if err != nil {
		return 0, wrapStoreError(ctx, d, err, "delete_by_keys")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapStoreError(ctx, d, err, "delete_by_keys")
	}
	return n, nil
}

// wrapStoreError 唯一键/主键冲突归入 CONSTRAINT_VIOLATION，其余归入 DATABASE_ERROR
func wrapStoreError(ctx context.Context, d dialect.Dialect, err error, operation string) error {
	if d.IsUniqueViolation(err) {
		return errors.WrapConstraintError(ctx, err, operation)
	}
	return errors.WrapDatabaseError(ctx, err, operation)
}

func expandTuples(d dialect.Dialect, cols []string, tuples [][]any) (string, []any) {
	groups := make([]string, 0, len(tuples))
	args := make([]any, 0, len(tuples)*len(cols))
	for _, tuple := range tuples {
		parts := make([]string, len(cols))
		for i, col := range cols {
			parts[i] = d.QuoteIdentifier(col) + " = ?"
		}
		groups = append(groups, "("+strings.Join(parts, " AND ")+")")
		args = append(args, tuple...)
	}
	return "(" + strings.Join(groups, " OR ") + ")", args
}

func describeKeys(keys KeySpec) string {
	parts := make([]string, len(keys.Columns))
	for i, col := range keys.Columns {
		parts[i] = fmt.Sprintf("%s=%v", col, keys.Values[i])
	}
	return strings.Join(parts, ", ")
}
