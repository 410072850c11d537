package dialect

import (
	"strconv"
	"strings"

	core "rowbatch/data/db"
)

// Name 标准化的数据库方言名称
type Name string

const (
	NameMySQL    Name = "mysql"
	NameSQLite   Name = "sqlite"
	NamePostgres Name = "postgres"
	NameUnknown  Name = ""
)

// Dialect 表示当前数据库的方言能力
//
// 只抽象批量写入实际用到的能力：
//   - RETURNING：批量插入/更新后回读生成列
//   - ON CONFLICT 目标：列集合或具名约束
//   - 行值比较：复合主键的 (a, b) IN ((?, ?), ...)
//   - 唯一键冲突错误识别
type Dialect struct {
	name Name
}

// New 根据字符串构造方言（大小写不敏感）
func New(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql":
		return Dialect{name: NameMySQL}
	case "sqlite", "sqlite3":
		return Dialect{name: NameSQLite}
	case "postgres", "postgresql", "pgx":
		return Dialect{name: NamePostgres}
	default:
		return Dialect{name: NameUnknown}
	}
}

// FromDatabase 从 IDatabase 实例推断方言
//
// 需要 IDatabase 可选实现 IDialectNameProvider 接口；否则返回 Unknown。
func FromDatabase(db core.IDatabase) Dialect {
	if db == nil {
		return Dialect{name: NameUnknown}
	}
	if p, ok := db.(core.IDialectNameProvider); ok {
		return New(p.GetDialectName())
	}
	return Dialect{name: NameUnknown}
}

// Name 返回标准化方言名
func (d Dialect) Name() Name {
	return d.name
}

// QuoteIdentifier 根据方言对标识符进行转义（如表名/列名）。
//
// 约定：
//   - 支持 schema.table、table.column 等带点形式，会对每一段分别加引号；
//   - MySQL 使用反引号，Postgres/SQLite 使用双引号；
//   - Unknown 方言返回原始字符串。
func (d Dialect) QuoteIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "" {
			continue
		}
		switch d.name {
		case NameMySQL:
			parts[i] = "`" + p + "`"
		case NameSQLite, NamePostgres:
			parts[i] = `"` + p + `"`
		}
	}
	return strings.Join(parts, ".")
}

// Rebind 将通用占位符 ? 转换为方言特定形式。
//
// 仅对 Postgres 做替换（? -> $1, $2 ...）。扫描时跳过单引号字符串字面量，
// 以免把 'what?' 中的问号当成占位符。
func (d Dialect) Rebind(query string) string {
	if query == "" || d.name != NamePostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	argIndex := 1
	inString := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inString = !inString
			sb.WriteByte(ch)
		case ch == '?' && !inString:
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(argIndex))
			argIndex++
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// SupportsReturning INSERT/UPDATE ... RETURNING（SQLite 3.35+、Postgres）
func (d Dialect) SupportsReturning() bool {
	return d.name == NameSQLite || d.name == NamePostgres
}

// SupportsConstraintTarget 是否支持 ON CONFLICT ON CONSTRAINT name
func (d Dialect) SupportsConstraintTarget() bool {
	return d.name == NamePostgres
}

// InsertedMarker 返回一个可放入 RETURNING 的布尔表达式，
// 对 ON CONFLICT DO UPDATE 命中的行为 false、新插入的行为 true。
//
// Postgres 中新插入行的 xmax 为 0；SQLite 没有等价手段，调用方需自行区分。
func (d Dialect) InsertedMarker() (string, bool) {
	if d.name == NamePostgres {
		return "(xmax = 0)", true
	}
	return "", false
}

// SupportsRowValues 是否支持 (a, b) IN ((?, ?), ...) 行值比较
func (d Dialect) SupportsRowValues() bool {
	return d.name == NameSQLite || d.name == NamePostgres || d.name == NameMySQL
}

// RowValuesNeedSubquery 行值 IN 的右侧是否必须是子查询（SQLite），
// 此时使用 (a, b) IN (VALUES (?, ?), ...) 形式
func (d Dialect) RowValuesNeedSubquery() bool {
	return d.name == NameSQLite
}

// SupportsDeleteLimit 当前方言是否支持 DELETE ... LIMIT 语法
func (d Dialect) SupportsDeleteLimit() bool {
	return d.name == NameMySQL
}

// IsUniqueViolation 判断错误是否为唯一键/主键冲突（按错误消息关键字匹配）
//
//   - MySQL: "Duplicate entry"
//   - SQLite: "UNIQUE constraint failed"
//   - Postgres: "duplicate key value" (SQLSTATE 23505)
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch d.name {
	case NameMySQL:
		return strings.Contains(msg, "duplicate entry") ||
			strings.Contains(msg, "duplicate key")
	case NameSQLite:
		return strings.Contains(msg, "unique constraint failed")
	case NamePostgres:
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "sqlstate 23505")
	default:
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "unique constraint")
	}
}
