package mutation

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"rowbatch/data/model"
)

func sortedKeys(p model.Payload) []string {
	keys := p.Keys()
	sort.Strings(keys)
	return keys
}

func TestNormalize_PadsWithDefaultsThenNil(t *testing.T) {
	batch := []model.Payload{
		{"name": "foo"},
		{"name": "bar", "labor_hours": 3},
	}
	out := Normalize(batch, keyUnion(batch), map[string]any{"labor_hours": 0, "status": "draft"})

	assert.Equal(t, model.Payload{"name": "foo", "labor_hours": 0, "status": "draft"}, out[0])
	assert.Equal(t, model.Payload{"name": "bar", "labor_hours": 3, "status": "draft"}, out[1])
	// 输入未被修改
	assert.Equal(t, model.Payload{"name": "foo"}, batch[0])
}

func TestNormalize_MissingKeyWithoutDefaultIsNil(t *testing.T) {
	batch := []model.Payload{{"a": 1}, {"b": 2}}
	out := Normalize(batch, keyUnion(batch), nil)

	assert.Equal(t, model.Payload{"a": 1, "b": nil}, out[0])
	assert.Equal(t, model.Payload{"a": nil, "b": 2}, out[1])
}

func TestNormalize_InputNilBeatsDefault(t *testing.T) {
	out := Normalize([]model.Payload{{"labor_hours": nil}}, []string{"labor_hours"}, map[string]any{"labor_hours": 0})
	assert.Nil(t, out[0]["labor_hours"])
}

func TestNormalize_CompletenessAndPrecedence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	universe := []string{"a", "b", "c", "d", "e", "f"}

	for iter := 0; iter < 200; iter++ {
		batch := make([]model.Payload, 1+rng.Intn(5))
		for i := range batch {
			batch[i] = model.Payload{}
			for _, k := range universe {
				if rng.Intn(2) == 0 {
					batch[i][k] = fmt.Sprintf("row%d-%s", i, k)
				}
			}
		}
		defaults := map[string]any{}
		for _, k := range universe {
			if rng.Intn(3) == 0 {
				defaults[k] = "default-" + k
			}
		}

		keys := keyUnion(batch)
		out := Normalize(batch, keys, defaults)

		want := map[string]struct{}{}
		for _, k := range keys {
			want[k] = struct{}{}
		}
		for k := range defaults {
			want[k] = struct{}{}
		}
		wantKeys := make([]string, 0, len(want))
		for k := range want {
			wantKeys = append(wantKeys, k)
		}
		sort.Strings(wantKeys)

		for i, row := range out {
			assert.Equal(t, wantKeys, sortedKeys(row))
			for k, dv := range defaults {
				if v, ok := batch[i][k]; ok {
					assert.Equal(t, v, row[k])
				} else {
					assert.Equal(t, dv, row[k])
				}
			}
		}
	}
}

func TestPlanInsert_ColumnsFollowModelOrder(t *testing.T) {
	f := newFixture(t)
	plan, err := planInsert(f.book, []model.Payload{{"name": "foo"}, {"labor_hours": 2, "name": "bar"}})
	assert.NoError(t, err)
	assert.Equal(t, []string{"name", "labor_hours"}, plan.columns)
	assert.Equal(t, [][]any{{"foo", 0}, {"bar", 2}}, plan.rows)
}
