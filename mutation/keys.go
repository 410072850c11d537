package mutation

import (
	"sort"

	"rowbatch/data/model"
	"rowbatch/errors"
)

// ValidateKeys 检查 proposed 中的每个键都在 allowed 内。
//
// 键按字典序检查，报告第一个不允许的键，保证同一输入得到同一错误。
func ValidateKeys(desc *model.Descriptor, proposed []string, allowed map[string]struct{}) error {
	sorted := append([]string(nil), proposed...)
	sort.Strings(sorted)
	for _, key := range sorted {
		if _, ok := allowed[key]; !ok {
			return errors.NewInvalidKeyError(desc.Name(), key)
		}
	}
	return nil
}

// ValidateUpdateKeys 更新载荷不能包含主键列，其余键必须是模型列
func ValidateUpdateKeys(desc *model.Descriptor, proposed []string) error {
	for _, key := range proposed {
		if desc.IsPrimaryKey(key) {
			return errors.NewRestrictedKeyError(desc.Name(), desc.PrimaryKey())
		}
	}
	return ValidateKeys(desc, proposed, desc.ColumnSet())
}

// keyUnion 批次中出现过的全部键，按字典序
func keyUnion(batch []model.Payload) []string {
	seen := make(map[string]struct{})
	for _, p := range batch {
		for k := range p {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
