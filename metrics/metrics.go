// Package metrics 记录批量写入执行器的调用次数、行数与耗时
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 调用结果
const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
	StatusError   = "error"
)

// IRecorder 执行器指标记录器
type IRecorder interface {
	Observe(op, table, status string, rows int, d time.Duration)
}

// Noop 不记录
type Noop struct{}

func (Noop) Observe(string, string, string, int, time.Duration) {}

// Prometheus 基于 client_golang 的记录器
type Prometheus struct {
	operations *prometheus.CounterVec
	rows       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var _ IRecorder = (*Prometheus)(nil)

// NewPrometheus 创建并向 reg 注册指标；reg 为 nil 时使用默认注册表
func NewPrometheus(namespace string, reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutation_operations_total",
			Help:      "Mutation executor calls by operation, table and status.",
		}, []string{"op", "table", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutation_rows_total",
			Help:      "Rows written by successful mutation calls.",
		}, []string{"op", "table"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutation_duration_seconds",
			Help:      "Mutation executor call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "table"}),
	}
	for _, c := range []prometheus.Collector{p.operations, p.rows, p.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Observe(op, table, status string, rows int, d time.Duration) {
	p.operations.WithLabelValues(op, table, status).Inc()
	if status == StatusOK && rows > 0 {
		p.rows.WithLabelValues(op, table).Add(float64(rows))
	}
	p.duration.WithLabelValues(op, table).Observe(d.Seconds())
}
