// Package mutation 提供面向单表的批量写入执行器。
//
// 每个执行器在定义时绑定一个只读的 model.Descriptor 与一个 store.IStore，
// 之后可被多个 goroutine 并发调用。所有公开操作返回 (结果, error)，
// error 一律为 *errors.AppError：校验与配置错误在任何存储调用之前返回，
// 存储错误包装为 DATABASE_ERROR。
//
// 多语句操作（批量更新、一对多创建）不自行开启事务，需要原子性时由调用方
// 通过 store.RunInTx 或 store.ContextWithTx 提供环境事务。
package mutation

import (
	"context"
	"time"

	"rowbatch/data/model"
	"rowbatch/data/store"
	"rowbatch/errors"
	"rowbatch/logging"
	"rowbatch/metrics"
	"rowbatch/notify"
)

// Kind 执行器种类
type Kind string

const (
	KindCreate          Kind = "create"
	KindUpdate          Kind = "update"
	KindDelete          Kind = "delete"
	KindCreateMany      Kind = "create_many"
	KindUpsert          Kind = "upsert"
	KindUpdateMany      Kind = "update_many"
	KindDeleteMany      Kind = "delete_many"
	KindOneToManyCreate Kind = "one_to_many_create"
)

// IService 执行器族。
//
// 只有嵌入 Base 的类型才能实现该接口，一对多协调器据此在注册时确认子服务属于同一族。
type IService interface {
	Kind() Kind
	Model() *model.Descriptor
	serviceBase() *Base
	acceptedKeys() map[string]struct{}
}

// Option 执行器选项
type Option func(*options)

type options struct {
	logger    logging.Logger
	publisher notify.IPublisher
	recorder  metrics.IRecorder
}

// WithLogger 指定日志记录器
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPublisher 指定变更事件发布者
func WithPublisher(p notify.IPublisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithMetrics 指定指标记录器
func WithMetrics(r metrics.IRecorder) Option {
	return func(o *options) { o.recorder = r }
}

// Base 执行器公共部分：模型、存储端口与环境依赖
type Base struct {
	kind      Kind
	model     *model.Descriptor
	store     store.IStore
	logger    logging.Logger
	publisher notify.IPublisher
	recorder  metrics.IRecorder
}

// NewBase 构建 Base，供自定义执行器嵌入
func NewBase(kind Kind, desc *model.Descriptor, st store.IStore, opts ...Option) (Base, error) {
	if desc == nil {
		return Base{}, errors.NewMissingConfigurationError(string(kind), "model descriptor is required")
	}
	if st == nil {
		return Base{}, errors.NewMissingConfigurationError(desc.Name(), "store is required")
	}

	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = logging.GetLogger()
	}
	if o.publisher == nil {
		o.publisher = notify.Noop{}
	}
	if o.recorder == nil {
		o.recorder = metrics.Noop{}
	}

	return Base{
		kind:  kind,
		model: desc,
		store: st,
		logger: o.logger.WithFields(
			logging.Component("mutation."+string(kind)),
			logging.String("table", desc.Table()),
		),
		publisher: o.publisher,
		recorder:  o.recorder,
	}, nil
}

func (b *Base) Kind() Kind               { return b.kind }
func (b *Base) Model() *model.Descriptor { return b.model }
func (b *Base) Store() store.IStore      { return b.store }
func (b *Base) Logger() logging.Logger   { return b.logger }
func (b *Base) serviceBase() *Base       { return b }

// acceptedKeys 载荷顶层允许出现的键
func (b *Base) acceptedKeys() map[string]struct{} { return b.model.ColumnSet() }

// observe 记录指标与结果日志
func (b *Base) observe(ctx context.Context, start time.Time, rows int, err error) {
	elapsed := time.Since(start)
	status := metrics.StatusOK
	switch {
	case err == nil:
		b.logger.Debug(ctx, "写入完成", logging.Int("rows", rows), logging.Duration("elapsed", elapsed))
	case errors.IsValidation(err):
		status = metrics.StatusInvalid
		b.logger.Debug(ctx, "输入校验失败", logging.Error(err))
	default:
		status = metrics.StatusError
		b.logger.Warn(ctx, "写入失败", logging.Error(err), logging.Duration("elapsed", elapsed))
	}
	b.recorder.Observe(string(b.kind), b.model.Table(), status, rows, elapsed)
}

// publish 发布变更事件，失败只记录日志
func (b *Base) publish(ctx context.Context, action notify.Action, count int, keys [][]any) {
	event := notify.NewEvent(b.model.Table(), action, count, keys)
	if err := b.publisher.Publish(ctx, event); err != nil {
		b.logger.Warn(ctx, "变更事件发布失败",
			logging.String("event_type", event.Type),
			logging.String("event_id", event.ID),
			logging.Error(err))
	}
}

// recordKeys 收集记录的主键值，缺失主键的记录跳过
func recordKeys(records []*model.Record) [][]any {
	keys := make([][]any, 0, len(records))
	for _, rec := range records {
		if pk, err := rec.PrimaryKeyValues(); err == nil {
			keys = append(keys, pk)
		}
	}
	return keys
}

// toRecords 把存储层返回的行绑定到模型
func toRecords(desc *model.Descriptor, rows []model.Row) []*model.Record {
	out := make([]*model.Record, len(rows))
	for i, row := range rows {
		out[i] = model.NewRecord(desc, row)
	}
	return out
}
