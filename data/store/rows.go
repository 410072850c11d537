package store

import (
	"fmt"
	"strings"

	core "rowbatch/data/db"
	"rowbatch/data/model"
)

// collectRows 读取并关闭结果集，每行按列名组装为 model.Row
func collectRows(rows core.IRows) ([]model.Row, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []model.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(model.Row, len(cols))
		for i, col := range cols {
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// keyOf 把若干列的值拼成可比较的字符串键
func keyOf(row model.Row, cols []string) string {
	return KeyString(valuesOf(row, cols))
}

func valuesOf(row model.Row, cols []string) []any {
	out := make([]any, len(cols))
	for i, col := range cols {
		out[i] = row[col]
	}
	return out
}

// KeyString 把一组键值规整为字符串，整数类型之间、[]byte 与 string 之间视为相等
func KeyString(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case []byte:
			parts[i] = string(x)
		case nil:
			parts[i] = "\x00"
		default:
			parts[i] = fmt.Sprint(x)
		}
	}
	return strings.Join(parts, "\x1f")
}

func isTruthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case []byte:
		return string(x) == "t" || string(x) == "true" || string(x) == "1"
	case string:
		return x == "t" || x == "true" || x == "1"
	default:
		return false
	}
}
