// Package db 提供通用的数据库抽象接口
//
// 设计目标：
//  1. 隔离具体驱动（modernc sqlite、pgx 等）
//  2. 事务与连接实现同一个 IDatabase 接口，调用方可以把自己开启的事务
//     作为“环境事务”直接交给存储适配器
//  3. 便于单元测试（Mock）
package db

import (
	"context"
	"database/sql"
)

// IDatabase 通用数据库接口
type IDatabase interface {
	Query(ctx context.Context, query string, args ...any) (IRows, error)
	QueryRow(ctx context.Context, query string, args ...any) IRow
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	Begin(ctx context.Context) (ITransaction, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (ITransaction, error)

	Ping(ctx context.Context) error
	Close() error

	// Raw 返回底层连接（*sql.DB 或 *sql.Tx）
	Raw() any
}

// IDialectNameProvider 可选接口：提供底层数据库方言名称
//
// 实现方应返回诸如 "sqlite"、"postgres"、"pgx" 等 driver/dialect 名，
// 供 dialect 包推断 RETURNING、ON CONFLICT 等能力。
type IDialectNameProvider interface {
	GetDialectName() string
}

// ITransaction 事务接口
type ITransaction interface {
	IDatabase

	Commit() error
	Rollback() error
}

// IRows 查询结果集接口
type IRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error

	Columns() ([]string, error)
}

// IRow 单行结果接口
type IRow interface {
	Scan(dest ...any) error
	Err() error
}

// DBConfig 数据库配置
type DBConfig struct {
	Driver   string // sqlite, pgx, postgres
	Database string // DSN 或 sqlite 文件路径（":memory:" 表示内存库）

	// 连接池配置
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}
