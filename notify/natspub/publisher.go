// Package natspub 把变更事件以 JSON 发布到 NATS 主题 <prefix><table>.<action>
package natspub

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"

	"rowbatch/logging"
	"rowbatch/notify"
)

// conn 是依赖的 nats.Conn 子集，便于测试
type conn interface {
	Publish(subject string, data []byte) error
}

// Config 发布者配置
type Config struct {
	URL           string
	SubjectPrefix string
	Conn          *nats.Conn
	Logger        logging.Logger
}

// Publisher 基于 core NATS 的发布者
type Publisher struct {
	cfg      Config
	conn     conn
	raw      *nats.Conn
	ownsConn bool
	logger   logging.Logger
}

var _ notify.IPublisher = (*Publisher)(nil)

// New 连接 NATS（或复用 cfg.Conn）
func New(cfg Config) (*Publisher, error) {
	applyDefaults(&cfg)
	p := &Publisher{cfg: cfg, logger: cfg.Logger}
	if cfg.Conn != nil {
		p.raw = cfg.Conn
	} else {
		url := cfg.URL
		if url == "" {
			url = nats.DefaultURL
		}
		nc, err := nats.Connect(url, nats.Name("rowbatch-notify"))
		if err != nil {
			return nil, err
		}
		p.raw = nc
		p.ownsConn = true
	}
	p.conn = p.raw
	return p, nil
}

func newWithConn(cfg Config, c conn) *Publisher {
	applyDefaults(&cfg)
	return &Publisher{cfg: cfg, conn: c, logger: cfg.Logger}
}

func applyDefaults(cfg *Config) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "rowbatch."
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.Component("notify.nats"))
	}
}

// Publish 发布单个事件
func (p *Publisher) Publish(ctx context.Context, event notify.Event) error {
	if p.conn == nil {
		return errors.New("nats publisher not connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	subject := p.subjectName(event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}
	p.logger.Debug(ctx, "事件已发布", logging.String("subject", subject), logging.String("event_id", event.ID))
	return nil
}

// Close 仅关闭自己创建的连接
func (p *Publisher) Close() error {
	if p.ownsConn && p.raw != nil {
		p.raw.Close()
	}
	return nil
}

func (p *Publisher) subjectName(eventType string) string {
	return p.cfg.SubjectPrefix + eventType
}
