package mutation

import (
	"fmt"
	"sort"

	"rowbatch/data/model"
	"rowbatch/data/store"
	"rowbatch/errors"
)

// alignToInput 把多行插入返回的行按输入顺序排列。
//
// 输入自带完整主键的行按主键匹配；其余返回行依次填入剩下的输入位置，
// 单列自增主键时先按主键升序（即插入顺序）排列，否则保持存储返回的顺序。
func alignToInput(desc *model.Descriptor, normalized []model.Payload, returned []model.Row) ([]model.Row, error) {
	if len(returned) != len(normalized) {
		return nil, errors.NewError(errors.ErrCodeInternal,
			fmt.Sprintf("%s: store returned %d rows for %d inserted", desc.Name(), len(returned), len(normalized)))
	}
	if len(returned) < 2 {
		return returned, nil
	}

	pk := desc.PrimaryKey()
	out := make([]model.Row, len(normalized))
	filled, used := matchByInputKeys(pk, normalized, returned, out)

	rest := make([]model.Row, 0, len(returned))
	for j, row := range returned {
		if !used[j] {
			rest = append(rest, row)
		}
	}
	if desc.AutoIncrement() {
		if sorted, ok := sortByIntKey(pk[0], rest); ok {
			rest = sorted
		}
	}

	next := 0
	for i := range out {
		if !filled[i] {
			out[i] = rest[next]
			next++
		}
	}
	return out, nil
}

// matchByInputKeys 为带完整主键的输入行找到对应的返回行并写入 out，
// 返回已填充的输入位置与已匹配的返回行
func matchByInputKeys(pk []string, normalized []model.Payload, returned []model.Row, out []model.Row) (filled, used []bool) {
	byKey := make(map[string][]int, len(returned))
	for j, row := range returned {
		vals := make([]any, len(pk))
		for i, col := range pk {
			vals[i] = row[col]
		}
		key := store.KeyString(vals)
		byKey[key] = append(byKey[key], j)
	}

	filled = make([]bool, len(normalized))
	used = make([]bool, len(returned))
	for i, p := range normalized {
		vals, ok := inputKey(pk, p)
		if !ok {
			continue
		}
		key := store.KeyString(vals)
		candidates := byKey[key]
		if len(candidates) == 0 {
			continue
		}
		j := candidates[0]
		byKey[key] = candidates[1:]
		used[j] = true
		filled[i] = true
		out[i] = returned[j]
	}
	return filled, used
}

func inputKey(pk []string, p model.Payload) ([]any, bool) {
	vals := make([]any, len(pk))
	for i, col := range pk {
		v, ok := p[col]
		if !ok || v == nil {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

func sortByIntKey(col string, returned []model.Row) ([]model.Row, bool) {
	keys := make([]int64, len(returned))
	for i, row := range returned {
		n, ok := asInt64(row[col])
		if !ok {
			return nil, false
		}
		keys[i] = n
	}
	idx := make([]int, len(returned))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })

	out := make([]model.Row, len(returned))
	for i, j := range idx {
		out[i] = returned[j]
	}
	return out, true
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func errNoColumns(desc *model.Descriptor) error {
	return errors.NewError(errors.ErrCodeInvalidInput,
		fmt.Sprintf("%s: batch supplies no columns and the model has no defaults", desc.Name())).
		WithContext("model", desc.Name())
}
