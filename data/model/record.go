package model

import (
	"fmt"

	"rowbatch/errors"
)

// Payload 调用方提交的一行输入：列名（或一对多关联名）到值。
// 关联名对应的值是子载荷列表（[]Payload 或 []map[string]any）。
type Payload map[string]any

// Row 存储层返回的一行，列名到值
type Row map[string]any

// Clone 浅拷贝，执行器不修改调用方的载荷
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys 返回全部键（无序）
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	return keys
}

// AsPayloads 把嵌套的子载荷值转换为 []Payload
func AsPayloads(v any) ([]Payload, bool) {
	switch children := v.(type) {
	case nil:
		return nil, true
	case []Payload:
		return children, true
	case []map[string]any:
		out := make([]Payload, len(children))
		for i, c := range children {
			out[i] = Payload(c)
		}
		return out, true
	case []any:
		out := make([]Payload, 0, len(children))
		for _, c := range children {
			switch p := c.(type) {
			case Payload:
				out = append(out, p)
			case map[string]any:
				out = append(out, Payload(p))
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// Record 已持久化的一行，带模型描述
type Record struct {
	model  *Descriptor
	values Row
}

// NewRecord 用存储层返回的列值构建 Record（拷贝 values）
func NewRecord(m *Descriptor, values Row) *Record {
	cp := make(Row, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Record{model: m, values: cp}
}

func (r *Record) Model() *Descriptor { return r.model }

// Get 读取列值
func (r *Record) Get(col string) (any, bool) {
	v, ok := r.values[col]
	return v, ok
}

// Values 返回全部列值（副本）
func (r *Record) Values() Row {
	cp := make(Row, len(r.values))
	for k, v := range r.values {
		cp[k] = v
	}
	return cp
}

// PrimaryKeyValues 按主键列顺序返回主键值
func (r *Record) PrimaryKeyValues() ([]any, error) {
	return r.ValuesOf(r.model.primaryKey)
}

// ValuesOf 按给定列顺序返回列值，任一列缺失或为 NULL 时报错
func (r *Record) ValuesOf(cols []string) ([]any, error) {
	out := make([]any, len(cols))
	for i, col := range cols {
		v, ok := r.values[col]
		if !ok || v == nil {
			return nil, errors.NewError(errors.ErrCodeInvalidInput,
				fmt.Sprintf("%s record has no value for %s", r.model.name, col)).
				WithContext("model", r.model.name).
				WithContext("column", col)
		}
		out[i] = v
	}
	return out, nil
}

// Scan 把列值写入 dest（结构体指针），字段按 db/json 标签或 snake_case 名匹配
func (r *Record) Scan(dest any) error {
	return scanRow(r.values, dest)
}

func (r *Record) String() string {
	return fmt.Sprintf("%s%v", r.model.name, map[string]any(r.values))
}

// ScanAll 把一批 Record 扫描为结构体切片
func ScanAll[T any](records []*Record) ([]T, error) {
	out := make([]T, len(records))
	for i, rec := range records {
		if err := rec.Scan(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
