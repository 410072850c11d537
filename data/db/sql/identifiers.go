package sql

import (
	"strings"

	"rowbatch/data/db/dialect"
)

// isSafeIdentifier 判断标识符是否为“安全的数据库标识符”。
//
// 允许形式：
//   - 单一标识符：foo, bar_1
//   - 带点的限定名：schema.table, table.column
//
// 规则（按段）：首字符为 [A-Za-z_]，后续字符为 [A-Za-z0-9_]。
// 该函数只做简单的 ASCII 校验，足以防止常见的注入片段（空格、分号等）。
func isSafeIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return false
		}
		for i := 0; i < len(part); i++ {
			ch := part[i]
			letter := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
			digit := ch >= '0' && ch <= '9'
			if i == 0 && !letter {
				return false
			}
			if !letter && !digit {
				return false
			}
		}
	}
	return true
}

// IsSafeIdentifier 供上层（模型定义校验）复用同一套规则。
func IsSafeIdentifier(name string) bool {
	return isSafeIdentifier(name)
}

// quoteAll 校验并转义一组列名，who 用于 panic 信息。
func quoteAll(d dialect.Dialect, who string, cols []string) []string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		if !isSafeIdentifier(col) {
			panic(who + ": unsafe column name " + col)
		}
		quoted[i] = d.QuoteIdentifier(col)
	}
	return quoted
}

// returningClause 生成 RETURNING 子句；"*" 原样保留。
func returningClause(d dialect.Dialect, who string, cols []string, exprs []string) string {
	if len(cols) == 0 && len(exprs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(cols)+len(exprs))
	for _, col := range cols {
		if col == "*" {
			parts = append(parts, "*")
			continue
		}
		parts = append(parts, quoteAll(d, who, []string{col})[0])
	}
	parts = append(parts, exprs...)
	return " RETURNING " + strings.Join(parts, ", ")
}

// placeholders 生成 "(?, ?, ?)"。
func placeholders(n int) string {
	return "(" + strings.TrimRight(strings.Repeat("?, ", n), ", ") + ")"
}

// tupleIn 生成 "(a, b) IN ((?, ?), (?, ?))" 或单列 "a IN (?, ?)"。
// SQLite 的复合形式为 "(a, b) IN (VALUES (?, ?), (?, ?))"。
func tupleIn(d dialect.Dialect, who string, cols []string, tuples [][]any) (string, []any) {
	if len(cols) == 0 || len(tuples) == 0 {
		panic(who + ": IN requires at least one column and one tuple")
	}
	quoted := quoteAll(d, who, cols)
	args := make([]any, 0, len(tuples)*len(cols))
	groups := make([]string, 0, len(tuples))
	for _, tuple := range tuples {
		if len(tuple) != len(cols) {
			panic(who + ": tuple length mismatch columns length")
		}
		args = append(args, tuple...)
		if len(cols) == 1 {
			groups = append(groups, "?")
		} else {
			groups = append(groups, placeholders(len(cols)))
		}
	}
	if len(cols) == 1 {
		return quoted[0] + " IN (" + strings.Join(groups, ", ") + ")", args
	}
	lhs := "(" + strings.Join(quoted, ", ") + ")"
	if d.RowValuesNeedSubquery() {
		return lhs + " IN (VALUES " + strings.Join(groups, ", ") + ")", args
	}
	return lhs + " IN (" + strings.Join(groups, ", ") + ")", args
}
