// Package notify 在批量写入成功后发布变更事件。
//
// 发布发生在写入之后，失败只记录日志，不会把成功的写入变成失败。
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action 写入动作
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpserted Action = "upserted"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
)

// Event 一次写入调用对应一个事件
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Table     string    `json:"table"`
	Action    Action    `json:"action"`
	Count     int       `json:"count"`
	Keys      [][]any   `json:"keys,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent 创建事件，类型为 "<table>.<action>"
func NewEvent(table string, action Action, count int, keys [][]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      table + "." + string(action),
		Table:     table,
		Action:    action,
		Count:     count,
		Keys:      keys,
		Timestamp: time.Now().UTC(),
	}
}

// IPublisher 事件发布者
type IPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc 函数适配器
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error { return f(ctx, event) }
