package notify

import (
	"context"
	stdErrors "errors"

	"rowbatch/logging"
)

// Noop 丢弃所有事件
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// LogPublisher 把事件写入日志
type LogPublisher struct {
	logger logging.Logger
}

// NewLogPublisher logger 为 nil 时使用全局 logger
func NewLogPublisher(logger logging.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.GetLogger().WithFields(logging.Component("notify.log"))
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.Info(ctx, "变更事件",
		logging.String("event_id", event.ID),
		logging.String("type", event.Type),
		logging.Int("count", event.Count),
	)
	return nil
}

// Multi 依次发布到全部发布者，汇总错误
type Multi []IPublisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return stdErrors.Join(errs...)
}
