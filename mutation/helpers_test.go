package mutation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	core "rowbatch/data/db"
	"rowbatch/data/db/basic"
	"rowbatch/data/model"
	"rowbatch/data/store"
	"rowbatch/notify"
)

type fixture struct {
	db      *basic.DB
	store   *recordingStore
	book    *model.Descriptor
	chapter *model.Descriptor
	unique  *model.Descriptor
	tag     *model.Descriptor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := basic.New(core.DBConfig{Driver: "sqlite", Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.ExecDDL(context.Background(),
		`CREATE TABLE books (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, labor_hours INTEGER NOT NULL)`,
		`CREATE TABLE chapters (id INTEGER PRIMARY KEY AUTOINCREMENT, book_id INTEGER NOT NULL, title TEXT NOT NULL)`,
		`CREATE TABLE uniques (a INTEGER NOT NULL, b INTEGER NOT NULL, name TEXT, PRIMARY KEY (a, b))`,
		`CREATE TABLE unique_tags (id INTEGER PRIMARY KEY AUTOINCREMENT, unique_a INTEGER NOT NULL, unique_b INTEGER NOT NULL, label TEXT)`,
	))

	return &fixture{
		db:    db,
		store: &recordingStore{inner: store.NewSQLStore(db)},
		book: model.MustNew(model.Config{
			Name:          "book",
			Table:         "books",
			Columns:       []string{"id", "name", "labor_hours"},
			PrimaryKey:    []string{"id"},
			AutoIncrement: true,
			Defaults:      map[string]model.Default{"labor_hours": model.Value(0)},
			OneToMany:     []model.Association{{Name: "chapters"}, {Name: "reviews"}},
		}),
		chapter: model.MustNew(model.Config{
			Name:          "chapter",
			Table:         "chapters",
			Columns:       []string{"id", "book_id", "title"},
			PrimaryKey:    []string{"id"},
			AutoIncrement: true,
		}),
		unique: model.MustNew(model.Config{
			Name:       "unique",
			Table:      "uniques",
			Columns:    []string{"a", "b", "name"},
			PrimaryKey: []string{"a", "b"},
			OneToMany: []model.Association{{
				Name:        "tags",
				ForeignKeys: []string{"unique_a", "unique_b"},
			}},
		}),
		tag: model.MustNew(model.Config{
			Name:          "unique_tag",
			Table:         "unique_tags",
			Columns:       []string{"id", "unique_a", "unique_b", "label"},
			PrimaryKey:    []string{"id"},
			AutoIncrement: true,
		}),
	}
}

func (f *fixture) count(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.QueryRow(context.Background(), `SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

// recordingStore 记录调用并转发给 inner；inner 为 nil 时返回空结果
type recordingStore struct {
	inner store.IStore
	calls []string

	// insertRows 非 nil 时替代 InsertMany 的返回
	insertRows []model.Row
}

func (s *recordingStore) InsertMany(ctx context.Context, table string, columns []string, rows [][]any) ([]model.Row, error) {
	s.calls = append(s.calls, "insert_many:"+table)
	if s.insertRows != nil || s.inner == nil {
		return s.insertRows, nil
	}
	return s.inner.InsertMany(ctx, table, columns, rows)
}

func (s *recordingStore) InsertManyOnConflict(ctx context.Context, table string, columns []string, rows [][]any, policy store.ConflictPolicy) ([]model.Row, error) {
	s.calls = append(s.calls, "insert_many_on_conflict:"+table)
	if s.inner == nil {
		return nil, nil
	}
	return s.inner.InsertManyOnConflict(ctx, table, columns, rows, policy)
}

func (s *recordingStore) UpdateOne(ctx context.Context, table string, keys store.KeySpec, values map[string]any) (model.Row, error) {
	s.calls = append(s.calls, "update_one:"+table)
	if s.inner == nil {
		return model.Row{}, nil
	}
	return s.inner.UpdateOne(ctx, table, keys, values)
}

func (s *recordingStore) DeleteByKeys(ctx context.Context, table string, keyColumns []string, keyValues [][]any) (int64, error) {
	s.calls = append(s.calls, "delete_by_keys:"+table)
	if s.inner == nil {
		return 0, nil
	}
	return s.inner.DeleteByKeys(ctx, table, keyColumns, keyValues)
}

type recordingPublisher struct {
	events []notify.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e notify.Event) error {
	p.events = append(p.events, e)
	return p.err
}

type observation struct {
	op, table, status string
	rows              int
}

type recordingMetrics struct {
	observed []observation
}

func (m *recordingMetrics) Observe(op, table, status string, rows int, _ time.Duration) {
	m.observed = append(m.observed, observation{op: op, table: table, status: status, rows: rows})
}

type Book struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	LaborHours int    `db:"labor_hours"`
}

type Chapter struct {
	ID     int64  `db:"id"`
	BookID int64  `db:"book_id"`
	Title  string `db:"title"`
}
