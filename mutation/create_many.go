package mutation

import (
	"context"
	"time"

	"rowbatch/data/model"
	"rowbatch/data/store"
	"rowbatch/notify"
)

// ICreateMany 批量创建能力，一对多协调器的子服务需要实现它
type ICreateMany interface {
	IService
	Call(ctx context.Context, batch []model.Payload) ([]*model.Record, error)
}

// CreateMany 批量创建：一次多行插入，按输入顺序返回记录
type CreateMany struct {
	Base
}

var _ ICreateMany = (*CreateMany)(nil)

// NewCreateMany 创建批量创建执行器
func NewCreateMany(desc *model.Descriptor, st store.IStore, opts ...Option) (*CreateMany, error) {
	base, err := NewBase(KindCreateMany, desc, st, opts...)
	if err != nil {
		return nil, err
	}
	return &CreateMany{Base: base}, nil
}

// Call 空批次直接返回空结果，不访问存储
func (c *CreateMany) Call(ctx context.Context, batch []model.Payload) (records []*model.Record, err error) {
	if len(batch) == 0 {
		return []*model.Record{}, nil
	}
	start := time.Now()
	defer func() { c.observe(ctx, start, len(records), err) }()

	records, err = c.insertBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	c.publish(ctx, notify.ActionCreated, len(records), recordKeys(records))
	return records, nil
}

// insertBatch 校验、补齐并插入非空批次，返回按输入顺序排列的记录
func (b *Base) insertBatch(ctx context.Context, batch []model.Payload) ([]*model.Record, error) {
	plan, err := planInsert(b.model, batch)
	if err != nil {
		return nil, err
	}
	returned, err := b.store.InsertMany(ctx, b.model.Table(), plan.columns, plan.rows)
	if err != nil {
		return nil, err
	}
	aligned, err := alignToInput(b.model, plan.normalized, returned)
	if err != nil {
		return nil, err
	}
	return toRecords(b.model, aligned), nil
}
