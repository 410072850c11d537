package mutation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowbatch/data/model"
	"rowbatch/data/store"
	"rowbatch/errors"
	"rowbatch/mutation"
)

var (
	authorModel = model.MustNew(model.Config{
		Name:          "author",
		Table:         "authors",
		Columns:       []string{"id", "name"},
		PrimaryKey:    []string{"id"},
		AutoIncrement: true,
		OneToMany:     []model.Association{{Name: "posts"}},
	})
	postModel = model.MustNew(model.Config{
		Name:       "post",
		Table:      "posts",
		Columns:    []string{"id", "author_id", "title"},
		PrimaryKey: []string{"id"},
	})
)

// stubStore 为父表插入返回递增主键
type stubStore struct {
	next int64
}

func (s *stubStore) InsertMany(_ context.Context, _ string, columns []string, rows [][]any) ([]model.Row, error) {
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		s.next++
		row := model.Row{"id": s.next}
		for j, col := range columns {
			row[col] = r[j]
		}
		out[i] = row
	}
	return out, nil
}

func (s *stubStore) InsertManyOnConflict(context.Context, string, []string, [][]any, store.ConflictPolicy) ([]model.Row, error) {
	return nil, nil
}

func (s *stubStore) UpdateOne(context.Context, string, store.KeySpec, map[string]any) (model.Row, error) {
	return model.Row{}, nil
}

func (s *stubStore) DeleteByKeys(context.Context, string, []string, [][]any) (int64, error) {
	return 0, nil
}

// collectingPosts 是外部定义的子服务：嵌入 Base 即属于执行器族
type collectingPosts struct {
	mutation.Base
	received []model.Payload
}

func (c *collectingPosts) Call(_ context.Context, batch []model.Payload) ([]*model.Record, error) {
	c.received = append(c.received, batch...)
	out := make([]*model.Record, len(batch))
	for i, p := range batch {
		out[i] = model.NewRecord(c.Model(), model.Row(p))
	}
	return out, nil
}

func TestMake_BuildsEveryKind(t *testing.T) {
	kinds := []mutation.Kind{
		mutation.KindCreate, mutation.KindUpdate, mutation.KindDelete,
		mutation.KindCreateMany, mutation.KindUpsert, mutation.KindUpdateMany,
		mutation.KindDeleteMany, mutation.KindOneToManyCreate,
	}
	for _, kind := range kinds {
		svc, err := mutation.Make(kind, authorModel, &stubStore{})
		require.NoError(t, err, kind)
		assert.Equal(t, kind, svc.Kind())
		assert.Same(t, authorModel, svc.Model())
	}
}

func TestMake_Errors(t *testing.T) {
	_, err := mutation.Make("merge", authorModel, &stubStore{})
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeUnsupported))

	svc, err := mutation.Make(mutation.KindCreateMany, nil, &stubStore{})
	assert.Nil(t, svc)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeMissingConfiguration))

	_, err = mutation.Make(mutation.KindCreateMany, authorModel, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeMissingConfiguration))
}

func TestMakeAs(t *testing.T) {
	upsert, err := mutation.MakeAs[*mutation.Upsert](mutation.KindUpsert, authorModel, &stubStore{})
	require.NoError(t, err)
	assert.NotNil(t, upsert)

	_, err = mutation.MakeAs[*mutation.Upsert](mutation.KindCreate, authorModel, &stubStore{})
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))
}

func TestExternalDelegateJoinsFamilyByEmbedding(t *testing.T) {
	st := &stubStore{}
	base, err := mutation.NewBase(mutation.KindCreateMany, postModel, st)
	require.NoError(t, err)
	posts := &collectingPosts{Base: base}

	authors, err := mutation.NewOneToManyCreate(authorModel, st)
	require.NoError(t, err)
	require.NoError(t, authors.RegisterAssociation("posts", posts))

	parents, err := authors.Call(context.Background(), []model.Payload{
		{"name": "ann", "posts": []model.Payload{{"title": "p1"}, {"title": "p2"}}},
		{"name": "bob", "posts": []model.Payload{{"title": "p3"}}},
	})
	require.NoError(t, err)
	require.Len(t, parents, 2)

	require.Len(t, posts.received, 3)
	assert.Equal(t, int64(1), posts.received[0]["author_id"])
	assert.Equal(t, int64(1), posts.received[1]["author_id"])
	assert.Equal(t, int64(2), posts.received[2]["author_id"])
}

func TestValidateKeys_ReportsFirstSortedKey(t *testing.T) {
	err := mutation.ValidateKeys(postModel, []string{"zeta", "alpha", "title"}, postModel.ColumnSet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"alpha"`)
	assert.NoError(t, mutation.ValidateKeys(postModel, []string{"title"}, postModel.ColumnSet()))
}

func TestValidateUpdateKeys(t *testing.T) {
	err := mutation.ValidateUpdateKeys(postModel, []string{"title", "id"})
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeRestrictedKey))
	err = mutation.ValidateUpdateKeys(postModel, []string{"body"})
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidKey))
}
