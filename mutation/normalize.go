package mutation

import (
	"rowbatch/data/model"
)

// Normalize 把异构批次补齐为同一组键。
//
// 模板行先把 allKeys 全部置为 nil，再叠加 defaults；每行在模板上叠加自身的值。
// 输入值优先于默认值，默认值优先于 nil。返回新的载荷，不修改输入。
func Normalize(batch []model.Payload, allKeys []string, defaults map[string]any) []model.Payload {
	template := make(model.Payload, len(allKeys)+len(defaults))
	for _, k := range allKeys {
		template[k] = nil
	}
	for k, v := range defaults {
		template[k] = v
	}

	out := make([]model.Payload, len(batch))
	for i, row := range batch {
		normalized := template.Clone()
		for k, v := range row {
			normalized[k] = v
		}
		out[i] = normalized
	}
	return out
}

// insertPlan 一次多行插入所需的列与值
type insertPlan struct {
	columns    []string
	rows       [][]any
	normalized []model.Payload
}

// planInsert 校验、补默认值并展开为矩形的列/值矩阵，列按模型定义顺序排列
func planInsert(desc *model.Descriptor, batch []model.Payload) (*insertPlan, error) {
	keys := keyUnion(batch)
	if err := ValidateKeys(desc, keys, desc.ColumnSet()); err != nil {
		return nil, err
	}

	normalized := Normalize(batch, keys, desc.DefaultValues())

	var columns []string
	for _, col := range desc.Columns() {
		if _, ok := normalized[0][col]; ok {
			columns = append(columns, col)
		}
	}
	if len(columns) == 0 {
		return nil, errNoColumns(desc)
	}

	rows := make([][]any, len(normalized))
	for i, p := range normalized {
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = p[col]
		}
		rows[i] = row
	}
	return &insertPlan{columns: columns, rows: rows, normalized: normalized}, nil
}
