package model

import (
	"time"

	"github.com/google/uuid"
)

// Default 列默认值：静态值或在调用时计算的函数
type Default struct {
	value any
	fn    func() any
}

// Value 静态默认值
func Value(v any) Default {
	return Default{value: v}
}

// Func 计算型默认值，每次 DefaultValues 调用求值一次
func Func(fn func() any) Default {
	return Default{fn: fn}
}

// Now 当前 UTC 时间
func Now() Default {
	return Func(func() any { return time.Now().UTC() })
}

// UUIDDefault 随机 UUID 字符串
func UUIDDefault() Default {
	return Func(func() any { return uuid.NewString() })
}

// IsComputed 是否为计算型默认值
func (d Default) IsComputed() bool {
	return d.fn != nil
}

// Resolve 求值
func (d Default) Resolve() any {
	if d.fn != nil {
		return d.fn()
	}
	return d.value
}
