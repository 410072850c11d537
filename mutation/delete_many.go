package mutation

import (
	"context"
	"time"

	"rowbatch/data/model"
	"rowbatch/data/store"
	"rowbatch/notify"
)

// DeleteMany 批量删除：单条 DELETE，按主键（或复合主键）成员判断
type DeleteMany struct {
	Base
}

// NewDeleteMany 创建批量删除执行器
func NewDeleteMany(desc *model.Descriptor, st store.IStore, opts ...Option) (*DeleteMany, error) {
	base, err := NewBase(KindDeleteMany, desc, st, opts...)
	if err != nil {
		return nil, err
	}
	return &DeleteMany{Base: base}, nil
}

// Call 返回删除的行数，空批次返回 0
func (d *DeleteMany) Call(ctx context.Context, records []*model.Record) (n int64, err error) {
	if len(records) == 0 {
		return 0, nil
	}
	start := time.Now()
	defer func() { d.observe(ctx, start, int(n), err) }()

	keys := make([][]any, len(records))
	for i, rec := range records {
		spec, err := keySpecOf(d.model, rec)
		if err != nil {
			return 0, err
		}
		keys[i] = spec.Values
	}

	n, err = d.store.DeleteByKeys(ctx, d.model.Table(), d.model.PrimaryKey(), keys)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		d.publish(ctx, notify.ActionDeleted, int(n), keys)
	}
	return n, nil
}
