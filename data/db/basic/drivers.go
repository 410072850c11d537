package basic

import (
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // 注册 "pgx" database/sql 驱动
	_ "modernc.org/sqlite"             // 注册 "sqlite" database/sql 驱动
)

const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

// normalizeDriver 将配置中的驱动别名映射为已注册的 database/sql 驱动名
func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite
	case "pgx", "postgres", "postgresql":
		return DriverPgx
	default:
		return driver
	}
}
