package mutation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rowbatch/data/model"
	"rowbatch/data/store"
	"rowbatch/errors"
	"rowbatch/logging"
	"rowbatch/notify"
)

// FanOutResult 一对多创建的结果。
//
// Children 按关联名分组，组内顺序与父记录顺序一致（同一父记录的子载荷保持输入顺序）。
type FanOutResult struct {
	Parents  []*model.Record
	Children map[string][]*model.Record
}

// OneToManyCreate 批量创建父记录，并把嵌套的子载荷分发给已注册的子服务。
//
// 顺序：校验 → 拆分 → 插入父记录 → 解析外键 → 按关联分组分发。
// 子服务失败时后续关联不再分发，已插入的父记录由环境事务负责回滚。
type OneToManyCreate struct {
	Base

	mu        sync.RWMutex
	delegates map[string]ICreateMany
}

var _ ICreateMany = (*OneToManyCreate)(nil)

// NewOneToManyCreate 创建一对多批量创建协调器
func NewOneToManyCreate(desc *model.Descriptor, st store.IStore, opts ...Option) (*OneToManyCreate, error) {
	base, err := NewBase(KindOneToManyCreate, desc, st, opts...)
	if err != nil {
		return nil, err
	}
	return &OneToManyCreate{Base: base, delegates: make(map[string]ICreateMany)}, nil
}

// RegisterAssociation 为模型声明的一对多关联注册子服务。
//
// 关联必须已在模型中声明，子服务的模型必须包含该关联的全部外键列。
// 重复注册同一关联会替换之前的子服务。
func (c *OneToManyCreate) RegisterAssociation(name string, delegate ICreateMany) error {
	assoc, ok := c.model.Association(name)
	if !ok {
		return errors.NewInvalidKeyError(c.model.Name(), name)
	}
	if delegate == nil || delegate.serviceBase() == nil || delegate.Model() == nil {
		return errors.NewAssociationServiceMissingError(c.model.Name(), name)
	}
	child := delegate.Model()
	for _, fk := range assoc.ForeignKeys {
		if !child.HasColumn(fk) {
			return errors.NewMissingConfigurationError(c.model.Name(),
				fmt.Sprintf("association %s: %s has no foreign key column %s", name, child.Name(), fk))
		}
	}

	c.mu.Lock()
	c.delegates[name] = delegate
	c.mu.Unlock()
	c.logger.Debug(context.Background(), "关联子服务已注册",
		logging.String("association", name),
		logging.String("child", child.Name()),
		logging.String("child_kind", string(delegate.Kind())))
	return nil
}

// Associations 已注册子服务的关联名，按模型声明顺序
func (c *OneToManyCreate) Associations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var names []string
	for _, a := range c.model.OneToMany() {
		if _, ok := c.delegates[a.Name]; ok {
			names = append(names, a.Name)
		}
	}
	return names
}

// Call 返回创建的父记录
func (c *OneToManyCreate) Call(ctx context.Context, batch []model.Payload) ([]*model.Record, error) {
	res, err := c.CallDetailed(ctx, batch)
	if err != nil {
		return nil, err
	}
	return res.Parents, nil
}

// CallDetailed 返回父记录以及各关联创建的子记录
func (c *OneToManyCreate) CallDetailed(ctx context.Context, batch []model.Payload) (res *FanOutResult, err error) {
	if len(batch) == 0 {
		return &FanOutResult{Parents: []*model.Record{}, Children: map[string][]*model.Record{}}, nil
	}
	start := time.Now()
	defer func() {
		n := 0
		if res != nil {
			n = len(res.Parents)
		}
		c.observe(ctx, start, n, err)
	}()

	delegates, err := c.resolveDelegates(batch)
	if err != nil {
		return nil, err
	}
	own, nested, err := c.split(batch, delegates)
	if err != nil {
		return nil, err
	}

	parents, err := c.insertBatch(ctx, own)
	if err != nil {
		return nil, err
	}
	c.publish(ctx, notify.ActionCreated, len(parents), recordKeys(parents))

	groups, err := c.resolveForeignKeys(parents, nested)
	if err != nil {
		return nil, err
	}

	res = &FanOutResult{Parents: parents, Children: make(map[string][]*model.Record, len(groups))}
	for _, assoc := range c.model.OneToMany() {
		children, ok := groups[assoc.Name]
		if !ok {
			continue
		}
		created, err := delegates[assoc.Name].Call(ctx, children)
		if err != nil {
			c.logger.Warn(ctx, "关联子记录创建失败",
				logging.String("association", assoc.Name),
				logging.Int("children", len(children)),
				logging.Error(err))
			return nil, err
		}
		res.Children[assoc.Name] = created
	}
	return res, nil
}

// acceptedKeys 模型列加上声明的一对多关联名
func (c *OneToManyCreate) acceptedKeys() map[string]struct{} {
	allowed := c.model.ColumnSet()
	for _, a := range c.model.OneToMany() {
		allowed[a.Name] = struct{}{}
	}
	return allowed
}

// resolveDelegates 校验顶层键并取出批次引用到的子服务，缺失子服务在插入前报错
func (c *OneToManyCreate) resolveDelegates(batch []model.Payload) (map[string]ICreateMany, error) {
	keys := keyUnion(batch)
	if err := ValidateKeys(c.model, keys, c.acceptedKeys()); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	delegates := make(map[string]ICreateMany)
	for _, key := range keys {
		if c.model.HasColumn(key) {
			continue
		}
		d, ok := c.delegates[key]
		if !ok {
			return nil, errors.NewAssociationServiceMissingError(c.model.Name(), key)
		}
		delegates[key] = d
	}
	return delegates, nil
}

// split 把每行拆成自身列与嵌套子载荷，nested[i][assoc] 为第 i 行的子载荷。
// 子载荷的键按子服务的模型校验，同样在任何插入之前完成。
func (c *OneToManyCreate) split(batch []model.Payload, delegates map[string]ICreateMany) ([]model.Payload, []map[string][]model.Payload, error) {
	own := make([]model.Payload, len(batch))
	nested := make([]map[string][]model.Payload, len(batch))
	childBatches := make(map[string][]model.Payload, len(delegates))
	for i, p := range batch {
		row := make(model.Payload, len(p))
		for k, v := range p {
			if _, isAssoc := delegates[k]; !isAssoc {
				row[k] = v
				continue
			}
			children, ok := model.AsPayloads(v)
			if !ok {
				return nil, nil, errors.NewError(errors.ErrCodeInvalidInput,
					fmt.Sprintf("%s: %s must be a list of payloads, got %T", c.model.Name(), k, v)).
					WithContext("association", k)
			}
			if nested[i] == nil {
				nested[i] = make(map[string][]model.Payload)
			}
			nested[i][k] = children
			childBatches[k] = append(childBatches[k], children...)
		}
		own[i] = row
	}

	for name, children := range childBatches {
		delegate := delegates[name]
		if err := ValidateKeys(delegate.Model(), keyUnion(children), delegate.acceptedKeys()); err != nil {
			return nil, nil, err
		}
	}
	return own, nested, nil
}

// resolveForeignKeys 用父记录的键填充子载荷的外键，并按关联名汇总整个批次
func (c *OneToManyCreate) resolveForeignKeys(parents []*model.Record, nested []map[string][]model.Payload) (map[string][]model.Payload, error) {
	groups := make(map[string][]model.Payload)
	for i, byAssoc := range nested {
		for name, children := range byAssoc {
			assoc, _ := c.model.Association(name)
			parentVals, err := parents[i].ValuesOf(assoc.PrimaryKeys)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				linked := child.Clone()
				for j, fk := range assoc.ForeignKeys {
					linked[fk] = parentVals[j]
				}
				groups[name] = append(groups[name], linked)
			}
		}
	}
	return groups, nil
}
