package mutation

import (
	"context"
	"time"

	"rowbatch/data/model"
	"rowbatch/data/store"
	"rowbatch/notify"
)

// UpdatePair 待更新的记录与部分载荷
type UpdatePair struct {
	Record *model.Record
	Values model.Payload
}

// UpdateMany 批量更新：逐对发出一条 UPDATE，按输入顺序返回更新后的记录
type UpdateMany struct {
	Base
}

// NewUpdateMany 创建批量更新执行器
func NewUpdateMany(desc *model.Descriptor, st store.IStore, opts ...Option) (*UpdateMany, error) {
	base, err := NewBase(KindUpdateMany, desc, st, opts...)
	if err != nil {
		return nil, err
	}
	return &UpdateMany{Base: base}, nil
}

// Call 任一更新失败即返回错误且不返回部分结果；已执行的语句由环境事务负责回滚
func (u *UpdateMany) Call(ctx context.Context, pairs []UpdatePair) (records []*model.Record, err error) {
	if len(pairs) == 0 {
		return []*model.Record{}, nil
	}
	start := time.Now()
	defer func() { u.observe(ctx, start, len(records), err) }()

	payloads := make([]model.Payload, len(pairs))
	for i, p := range pairs {
		payloads[i] = p.Values
	}
	if err := ValidateUpdateKeys(u.model, keyUnion(payloads)); err != nil {
		return nil, err
	}

	specs := make([]store.KeySpec, len(pairs))
	for i, p := range pairs {
		spec, err := keySpecOf(u.model, p.Record)
		if err != nil {
			return nil, err
		}
		specs[i] = spec
	}

	out := make([]*model.Record, len(pairs))
	keys := make([][]any, len(pairs))
	for i, p := range pairs {
		row, err := u.store.UpdateOne(ctx, u.model.Table(), specs[i], p.Values)
		if err != nil {
			return nil, err
		}
		out[i] = model.NewRecord(u.model, row)
		keys[i] = specs[i].Values
	}
	u.publish(ctx, notify.ActionUpdated, len(out), keys)
	return out, nil
}
