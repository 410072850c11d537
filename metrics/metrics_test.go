package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus("rowbatch", reg)
	require.NoError(t, err)

	p.Observe("create_many", "books", StatusOK, 2, 5*time.Millisecond)
	p.Observe("create_many", "books", StatusInvalid, 0, time.Millisecond)
	p.Observe("create_many", "books", StatusError, 3, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(p.operations.WithLabelValues("create_many", "books", StatusOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.operations.WithLabelValues("create_many", "books", StatusInvalid)))
	assert.Equal(t, float64(2), testutil.ToFloat64(p.rows.WithLabelValues("create_many", "books")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.duration))
}

func TestNewPrometheus_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus("rowbatch", reg)
	require.NoError(t, err)
	_, err = NewPrometheus("rowbatch", reg)
	assert.Error(t, err)
}
