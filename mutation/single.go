package mutation

import (
	"context"
	"fmt"
	"time"

	"rowbatch/data/model"
	"rowbatch/data/store"
	"rowbatch/errors"
	"rowbatch/notify"
)

// Create 单行创建：校验键、补默认值、插入并返回记录
type Create struct {
	Base
}

// NewCreate 创建单行创建执行器
func NewCreate(desc *model.Descriptor, st store.IStore, opts ...Option) (*Create, error) {
	base, err := NewBase(KindCreate, desc, st, opts...)
	if err != nil {
		return nil, err
	}
	return &Create{Base: base}, nil
}

func (c *Create) Call(ctx context.Context, payload model.Payload) (rec *model.Record, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, start, boolCount(rec != nil), err) }()

	plan, err := planInsert(c.model, []model.Payload{payload})
	if err != nil {
		return nil, err
	}
	rows, err := c.store.InsertMany(ctx, c.model.Table(), plan.columns, plan.rows)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, errors.NewError(errors.ErrCodeInternal,
			fmt.Sprintf("%s: store returned %d rows for a single insert", c.model.Name(), len(rows)))
	}
	rec = model.NewRecord(c.model, rows[0])
	c.publish(ctx, notify.ActionCreated, 1, recordKeys([]*model.Record{rec}))
	return rec, nil
}

// Update 单行更新：主键列不可更新
type Update struct {
	Base
}

// NewUpdate 创建单行更新执行器
func NewUpdate(desc *model.Descriptor, st store.IStore, opts ...Option) (*Update, error) {
	base, err := NewBase(KindUpdate, desc, st, opts...)
	if err != nil {
		return nil, err
	}
	return &Update{Base: base}, nil
}

func (u *Update) Call(ctx context.Context, rec *model.Record, values model.Payload) (updated *model.Record, err error) {
	start := time.Now()
	defer func() { u.observe(ctx, start, boolCount(updated != nil), err) }()

	if err := ValidateUpdateKeys(u.model, values.Keys()); err != nil {
		return nil, err
	}
	keys, err := keySpecOf(u.model, rec)
	if err != nil {
		return nil, err
	}
	row, err := u.store.UpdateOne(ctx, u.model.Table(), keys, values)
	if err != nil {
		return nil, err
	}
	updated = model.NewRecord(u.model, row)
	u.publish(ctx, notify.ActionUpdated, 1, [][]any{keys.Values})
	return updated, nil
}

// Delete 单行删除
type Delete struct {
	Base
}

// NewDelete 创建单行删除执行器
func NewDelete(desc *model.Descriptor, st store.IStore, opts ...Option) (*Delete, error) {
	base, err := NewBase(KindDelete, desc, st, opts...)
	if err != nil {
		return nil, err
	}
	return &Delete{Base: base}, nil
}

// Call 删除记录对应的行；行已不存在时不报错
func (d *Delete) Call(ctx context.Context, rec *model.Record) (err error) {
	start := time.Now()
	var n int64
	defer func() { d.observe(ctx, start, int(n), err) }()

	keys, err := keySpecOf(d.model, rec)
	if err != nil {
		return err
	}
	n, err = d.store.DeleteByKeys(ctx, d.model.Table(), keys.Columns, [][]any{keys.Values})
	if err != nil {
		return err
	}
	if n > 0 {
		d.publish(ctx, notify.ActionDeleted, int(n), [][]any{keys.Values})
	}
	return nil
}

// keySpecOf 从记录中取出主键，记录必须属于同一模型
func keySpecOf(desc *model.Descriptor, rec *model.Record) (store.KeySpec, error) {
	if rec == nil {
		return store.KeySpec{}, errors.NewError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s: record is nil", desc.Name()))
	}
	if rec.Model() != desc {
		return store.KeySpec{}, errors.NewError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s: record belongs to %s", desc.Name(), rec.Model().Name()))
	}
	vals, err := rec.PrimaryKeyValues()
	if err != nil {
		return store.KeySpec{}, err
	}
	return store.KeySpec{Columns: desc.PrimaryKey(), Values: vals}, nil
}

func boolCount(ok bool) int {
	if ok {
		return 1
	}
	return 0
}
