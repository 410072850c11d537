package mutation

import (
	"context"
	"fmt"
	"time"

	sqlb "rowbatch/data/db/sql"
	"rowbatch/data/model"
	"rowbatch/data/store"
	"rowbatch/errors"
	"rowbatch/notify"
)

// Upsert 带冲突策略的批量插入，只返回新插入的行。
//
// 冲突策略在定义时通过 Constraint/Target/DoNothing/Update 设置，之后只读。
// 返回行的顺序是引擎的插入顺序，与输入不保证逐位对应。
type Upsert struct {
	Base
	policy store.ConflictPolicy
}

// NewUpsert 创建 upsert 执行器，默认策略为忽略冲突
func NewUpsert(desc *model.Descriptor, st store.IStore, opts ...Option) (*Upsert, error) {
	base, err := NewBase(KindUpsert, desc, st, opts...)
	if err != nil {
		return nil, err
	}
	return &Upsert{Base: base, policy: store.ConflictPolicy{Resolution: store.Ignore}}, nil
}

// Constraint 以具名约束作为冲突目标
func (u *Upsert) Constraint(name string) *Upsert {
	u.policy.Constraint = name
	u.policy.Columns = nil
	return u
}

// Target 以列集合作为冲突目标
func (u *Upsert) Target(cols ...string) *Upsert {
	u.policy.Columns = append([]string(nil), cols...)
	u.policy.Constraint = ""
	return u
}

// DoNothing 冲突行被忽略
func (u *Upsert) DoNothing() *Upsert {
	u.policy.Resolution = store.Ignore
	u.policy.UpdateColumns = nil
	return u
}

// Update 冲突时把这些列设置为本次输入行的值
func (u *Upsert) Update(cols ...string) *Upsert {
	u.policy.Resolution = store.UpdateColumns
	u.policy.UpdateColumns = append([]string(nil), cols...)
	return u
}

// Policy 返回当前冲突策略（副本）
func (u *Upsert) Policy() store.ConflictPolicy {
	p := u.policy
	p.Columns = append([]string(nil), p.Columns...)
	p.UpdateColumns = append([]string(nil), p.UpdateColumns...)
	return p
}

func (u *Upsert) checkPolicy() error {
	if u.policy.Constraint != "" && !sqlb.IsSafeIdentifier(u.policy.Constraint) {
		return errors.NewMissingConfigurationError(u.model.Name(),
			fmt.Sprintf("constraint name %q is not a valid identifier", u.policy.Constraint))
	}
	if u.policy.Resolution == store.UpdateColumns {
		if !u.policy.HasTarget() {
			return errors.NewMissingConfigurationError(u.model.Name(), "upsert with update requires a conflict target")
		}
		if len(u.policy.UpdateColumns) == 0 {
			return errors.NewMissingConfigurationError(u.model.Name(), "upsert with update requires at least one column")
		}
	}
	columns := u.model.ColumnSet()
	if err := ValidateKeys(u.model, u.policy.Columns, columns); err != nil {
		return err
	}
	return ValidateKeys(u.model, u.policy.UpdateColumns, columns)
}

// checkTargetColumns 冲突更新需要在插入列中找到冲突目标的值
func (u *Upsert) checkTargetColumns(columns []string) error {
	if u.policy.Resolution != store.UpdateColumns {
		return nil
	}
	inserted := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		inserted[col] = struct{}{}
	}
	for _, col := range u.policy.Columns {
		if _, ok := inserted[col]; !ok {
			return errors.NewMissingConfigurationError(u.model.Name(),
				fmt.Sprintf("conflict column %s is not supplied by the batch", col))
		}
	}
	return nil
}

// Call 策略校验先于空批次判断，配置错误在第一次调用时暴露
func (u *Upsert) Call(ctx context.Context, batch []model.Payload) (records []*model.Record, err error) {
	start := time.Now()
	defer func() {
		if len(batch) > 0 || err != nil {
			u.observe(ctx, start, len(records), err)
		}
	}()

	if err := u.checkPolicy(); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return []*model.Record{}, nil
	}

	plan, err := planInsert(u.model, batch)
	if err != nil {
		return nil, err
	}
	if err := u.checkTargetColumns(plan.columns); err != nil {
		return nil, err
	}
	rows, err := u.store.InsertManyOnConflict(ctx, u.model.Table(), plan.columns, plan.rows, u.Policy())
	if err != nil {
		return nil, err
	}
	records = toRecords(u.model, rows)
	if len(records) > 0 {
		u.publish(ctx, notify.ActionUpserted, len(records), recordKeys(records))
	}
	return records, nil
}
