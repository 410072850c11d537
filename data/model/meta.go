// Package model 描述批量写入的目标表：列集合、主键形状、默认值与一对多关联。
//
// Descriptor 通过 New 在服务定义时构建一次，此后只读，可被多个执行器、
// 多个 goroutine 并发共享。
package model

import (
	"fmt"
	"sort"

	"rowbatch/data/db/sql"
	"rowbatch/errors"
)

// Association 一对多关联的反射信息。
//
// ForeignKeys 是子表列，PrimaryKeys 是父表列，两者按位置配对，
// 支持复合外键。
type Association struct {
	Name        string
	ForeignKeys []string
	PrimaryKeys []string
}

// Config 模型定义
type Config struct {
	// Name 模型名，用于错误信息与默认外键（book -> book_id），缺省为表名
	Name          string
	Table         string
	Columns       []string
	PrimaryKey    []string
	AutoIncrement bool
	Defaults      map[string]Default
	OneToMany     []Association
}

// Descriptor 只读的模型描述
type Descriptor struct {
	name          string
	table         string
	columns       []string
	columnSet     map[string]struct{}
	primaryKey    []string
	autoIncrement bool
	defaults      map[string]Default
	defaultKeys   []string
	associations  []Association
	assocIndex    map[string]int
}

// New 校验并构建 Descriptor
func New(cfg Config) (*Descriptor, error) {
	if !sql.IsSafeIdentifier(cfg.Table) {
		return nil, definitionError(cfg.Table, "unsafe or empty table name %q", cfg.Table)
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Table
	}
	if len(cfg.Columns) == 0 {
		return nil, definitionError(name, "at least one column is required")
	}

	d := &Descriptor{
		name:          name,
		table:         cfg.Table,
		columns:       append([]string(nil), cfg.Columns...),
		columnSet:     make(map[string]struct{}, len(cfg.Columns)),
		primaryKey:    append([]string(nil), cfg.PrimaryKey...),
		autoIncrement: cfg.AutoIncrement,
		defaults:      make(map[string]Default, len(cfg.Defaults)),
		assocIndex:    make(map[string]int, len(cfg.OneToMany)),
	}

	for _, col := range cfg.Columns {
		if !sql.IsSafeIdentifier(col) {
			return nil, definitionError(name, "unsafe column name %q", col)
		}
		if _, dup := d.columnSet[col]; dup {
			return nil, definitionError(name, "duplicate column %q", col)
		}
		d.columnSet[col] = struct{}{}
	}

	if len(d.primaryKey) == 0 {
		return nil, definitionError(name, "primary key is required")
	}
	for _, pk := range d.primaryKey {
		if !d.HasColumn(pk) {
			return nil, definitionError(name, "primary key column %q is not a column", pk)
		}
	}
	if d.autoIncrement && len(d.primaryKey) != 1 {
		return nil, definitionError(name, "auto increment requires a single-column primary key")
	}

	for col, def := range cfg.Defaults {
		if !d.HasColumn(col) {
			return nil, definitionError(name, "default for unknown column %q", col)
		}
		d.defaults[col] = def
		d.defaultKeys = append(d.defaultKeys, col)
	}
	sort.Strings(d.defaultKeys)

	for _, a := range cfg.OneToMany {
		assoc, err := d.resolveAssociation(a)
		if err != nil {
			return nil, err
		}
		d.assocIndex[assoc.Name] = len(d.associations)
		d.associations = append(d.associations, assoc)
	}

	return d, nil
}

// MustNew 同 New，定义错误时 panic，适用于包级变量
func MustNew(cfg Config) *Descriptor {
	d, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return d
}

// resolveAssociation 补全默认键：外键默认为 <name>_id，父键默认为主键
func (d *Descriptor) resolveAssociation(a Association) (Association, error) {
	if !sql.IsSafeIdentifier(a.Name) {
		return Association{}, definitionError(d.name, "unsafe association name %q", a.Name)
	}
	if d.HasColumn(a.Name) {
		return Association{}, definitionError(d.name, "association %q collides with a column", a.Name)
	}
	if _, dup := d.assocIndex[a.Name]; dup {
		return Association{}, definitionError(d.name, "duplicate association %q", a.Name)
	}

	resolved := Association{
		Name:        a.Name,
		ForeignKeys: append([]string(nil), a.ForeignKeys...),
		PrimaryKeys: append([]string(nil), a.PrimaryKeys...),
	}
	if len(resolved.PrimaryKeys) == 0 {
		resolved.PrimaryKeys = d.PrimaryKey()
	}
	if len(resolved.ForeignKeys) == 0 {
		if len(resolved.PrimaryKeys) != 1 {
			return Association{}, definitionError(d.name, "association %q needs explicit foreign keys for a composite key", a.Name)
		}
		resolved.ForeignKeys = []string{d.name + "_id"}
	}
	if len(resolved.ForeignKeys) != len(resolved.PrimaryKeys) {
		return Association{}, definitionError(d.name, "association %q pairs %d foreign keys with %d parent keys",
			a.Name, len(resolved.ForeignKeys), len(resolved.PrimaryKeys))
	}
	for _, pk := range resolved.PrimaryKeys {
		if !d.HasColumn(pk) {
			return Association{}, definitionError(d.name, "association %q references unknown parent column %q", a.Name, pk)
		}
	}
	for _, fk := range resolved.ForeignKeys {
		if !sql.IsSafeIdentifier(fk) {
			return Association{}, definitionError(d.name, "association %q has unsafe foreign key %q", a.Name, fk)
		}
	}
	return resolved, nil
}

func (d *Descriptor) Name() string        { return d.name }
func (d *Descriptor) Table() string       { return d.table }
func (d *Descriptor) AutoIncrement() bool { return d.autoIncrement }

// Columns 按定义顺序返回列（副本）
func (d *Descriptor) Columns() []string {
	return append([]string(nil), d.columns...)
}

// HasColumn 判断列是否存在
func (d *Descriptor) HasColumn(col string) bool {
	_, ok := d.columnSet[col]
	return ok
}

// ColumnSet 返回列集合（副本）
func (d *Descriptor) ColumnSet() map[string]struct{} {
	out := make(map[string]struct{}, len(d.columnSet))
	for col := range d.columnSet {
		out[col] = struct{}{}
	}
	return out
}

// PrimaryKey 返回主键列（副本）；单列主键长度为 1
func (d *Descriptor) PrimaryKey() []string {
	return append([]string(nil), d.primaryKey...)
}

// IsCompositeKey 是否为复合主键
func (d *Descriptor) IsCompositeKey() bool {
	return len(d.primaryKey) > 1
}

// IsPrimaryKey 判断列是否属于主键
func (d *Descriptor) IsPrimaryKey(col string) bool {
	for _, pk := range d.primaryKey {
		if pk == col {
			return true
		}
	}
	return false
}

// DefaultValues 在调用时求值全部默认值。
//
// 计算型默认值每次调用求值一次：同一批次内共享同一个结果，
// 不同批次之间各自独立。
func (d *Descriptor) DefaultValues() map[string]any {
	out := make(map[string]any, len(d.defaults))
	for _, col := range d.defaultKeys {
		out[col] = d.defaults[col].Resolve()
	}
	return out
}

// OneToMany 返回声明的一对多关联（副本）
func (d *Descriptor) OneToMany() []Association {
	out := make([]Association, len(d.associations))
	for i, a := range d.associations {
		out[i] = Association{
			Name:        a.Name,
			ForeignKeys: append([]string(nil), a.ForeignKeys...),
			PrimaryKeys: append([]string(nil), a.PrimaryKeys...),
		}
	}
	return out
}

// Association 按名称查找一对多关联
func (d *Descriptor) Association(name string) (Association, bool) {
	i, ok := d.assocIndex[name]
	if !ok {
		return Association{}, false
	}
	return d.OneToMany()[i], true
}

func (d *Descriptor) String() string {
	return d.name
}

func definitionError(model, format string, args ...any) error {
	return errors.NewError(errors.ErrCodeInvalidInput,
		fmt.Sprintf("invalid model definition %s: %s", model, fmt.Sprintf(format, args...))).
		WithContext("model", model)
}
