// Package redispub 把变更事件 XADD 到 Redis Stream <prefix><table>
package redispub

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"rowbatch/logging"
	"rowbatch/notify"
)

// client 依赖的 go-redis 命令子集
type client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Config 发布者配置
type Config struct {
	Client       redis.UniversalClient
	Addr         string
	Username     string
	Password     string
	DB           int
	StreamPrefix string
	// MaxLen 近似裁剪流长度，0 表示不裁剪
	MaxLen int64
	Logger logging.Logger
}

// Publisher Redis Streams 发布者
type Publisher struct {
	cfg       Config
	client    client
	ownClient bool
	logger    logging.Logger
}

var _ notify.IPublisher = (*Publisher)(nil)

// New 创建发布者；未提供 Client 时按 Addr 新建连接
func New(cfg Config) (*Publisher, error) {
	var cl client
	var own bool
	if cfg.Client != nil {
		cl = cfg.Client
	} else {
		if cfg.Addr == "" {
			return nil, errors.New("redis client not configured")
		}
		cl = redis.NewClient(&redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB})
		own = true
	}
	p := newWithClient(cfg, cl)
	p.ownClient = own
	return p, nil
}

func newWithClient(cfg Config, cl client) *Publisher {
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = "rowbatch:"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.Component("notify.redis"))
	}
	return &Publisher{cfg: cfg, client: cl, logger: cfg.Logger}
}

// Publish 写入一条流记录
func (p *Publisher) Publish(ctx context.Context, event notify.Event) error {
	values, err := encodeEvent(event)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{Stream: p.streamName(event.Table), Values: values}
	if p.cfg.MaxLen > 0 {
		args.MaxLen = p.cfg.MaxLen
		args.Approx = true
	}
	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return err
	}
	p.logger.Debug(ctx, "事件已写入流", logging.String("stream", args.Stream), logging.String("entry_id", id))
	return nil
}

// Close 仅关闭自己创建的客户端
func (p *Publisher) Close() error {
	if p.ownClient {
		return p.client.Close()
	}
	return nil
}

func (p *Publisher) streamName(table string) string {
	return p.cfg.StreamPrefix + table
}

func encodeEvent(event notify.Event) (map[string]interface{}, error) {
	keys, err := json.Marshal(event.Keys)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"id":        event.ID,
		"type":      event.Type,
		"table":     event.Table,
		"action":    string(event.Action),
		"count":     event.Count,
		"keys":      string(keys),
		"timestamp": event.Timestamp.UnixNano(),
	}, nil
}
