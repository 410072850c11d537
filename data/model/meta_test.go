package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowbatch/errors"
)

func bookConfig() Config {
	return Config{
		Name:          "book",
		Table:         "books",
		Columns:       []string{"id", "name", "labor_hours", "created_at"},
		PrimaryKey:    []string{"id"},
		AutoIncrement: true,
		Defaults: map[string]Default{
			"labor_hours": Value(0),
			"created_at":  Now(),
		},
		OneToMany: []Association{{Name: "chapters"}},
	}
}

func TestNew_ResolvesAssociationDefaults(t *testing.T) {
	d, err := New(bookConfig())
	require.NoError(t, err)

	assert.Equal(t, "book", d.Name())
	assert.Equal(t, "books", d.Table())
	assert.True(t, d.AutoIncrement())
	assert.False(t, d.IsCompositeKey())

	assoc, ok := d.Association("chapters")
	require.True(t, ok)
	assert.Equal(t, []string{"book_id"}, assoc.ForeignKeys)
	assert.Equal(t, []string{"id"}, assoc.PrimaryKeys)

	_, ok = d.Association("pages")
	assert.False(t, ok)
}

func TestNew_NameDefaultsToTable(t *testing.T) {
	d, err := New(Config{Table: "uniques", Columns: []string{"a", "b"}, PrimaryKey: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "uniques", d.Name())
	assert.True(t, d.IsCompositeKey())
	assert.True(t, d.IsPrimaryKey("b"))
	assert.False(t, d.IsPrimaryKey("name"))
}

func TestNew_RejectsBadDefinitions(t *testing.T) {
	cases := map[string]func(*Config){
		"unsafe table":          func(c *Config) { c.Table = "books;drop" },
		"no columns":            func(c *Config) { c.Columns = nil },
		"duplicate column":      func(c *Config) { c.Columns = append(c.Columns, "name") },
		"missing primary key":   func(c *Config) { c.PrimaryKey = nil },
		"unknown primary key":   func(c *Config) { c.PrimaryKey = []string{"isbn"} },
		"default unknown":       func(c *Config) { c.Defaults["isbn"] = Value("x") },
		"assoc collides column": func(c *Config) { c.OneToMany = []Association{{Name: "name"}} },
		"assoc key mismatch": func(c *Config) {
			c.OneToMany = []Association{{Name: "chapters", ForeignKeys: []string{"a", "b"}}}
		},
		"auto increment composite": func(c *Config) {
			c.PrimaryKey = []string{"id", "name"}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := bookConfig()
			mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))
		})
	}
}

func TestNew_CompositeAssociationNeedsExplicitKeys(t *testing.T) {
	cfg := Config{
		Name:       "unique",
		Table:      "uniques",
		Columns:    []string{"a", "b", "name"},
		PrimaryKey: []string{"a", "b"},
		OneToMany:  []Association{{Name: "tags"}},
	}
	_, err := New(cfg)
	require.Error(t, err)

	cfg.OneToMany = []Association{{Name: "tags", ForeignKeys: []string{"unique_a", "unique_b"}}}
	d, err := New(cfg)
	require.NoError(t, err)
	assoc, _ := d.Association("tags")
	assert.Equal(t, []string{"a", "b"}, assoc.PrimaryKeys)
}

func TestDefaultValues_ComputedOncePerCall(t *testing.T) {
	calls := 0
	d := MustNew(Config{
		Table:      "events",
		Columns:    []string{"id", "seq", "kind"},
		PrimaryKey: []string{"id"},
		Defaults: map[string]Default{
			"seq":  Func(func() any { calls++; return calls }),
			"kind": Value("plain"),
		},
	})

	first := d.DefaultValues()
	second := d.DefaultValues()
	assert.Equal(t, 1, first["seq"])
	assert.Equal(t, 2, second["seq"])
	assert.Equal(t, "plain", first["kind"])
	assert.Equal(t, 2, calls)
}

func TestUUIDDefault_ProducesDistinctValues(t *testing.T) {
	d := UUIDDefault()
	assert.True(t, d.IsComputed())
	a, b := d.Resolve().(string), d.Resolve().(string)
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestNow_IsUTC(t *testing.T) {
	v, ok := Now().Resolve().(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.UTC, v.Location())
}

func TestDescriptor_AccessorsReturnCopies(t *testing.T) {
	d := MustNew(bookConfig())
	cols := d.Columns()
	cols[0] = "mutated"
	assert.True(t, d.HasColumn("id"))
	assert.False(t, d.HasColumn("mutated"))

	assocs := d.OneToMany()
	assocs[0].ForeignKeys[0] = "mutated"
	assoc, _ := d.Association("chapters")
	assert.Equal(t, []string{"book_id"}, assoc.ForeignKeys)
}
