package timing

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	require.NoError(t, s.Set(ctx, "/a", FieldLocalStart, 1))
	require.NoError(t, s.Set(ctx, "/b", FieldLocalStart, 2))
	_, _, _ = s.Get(ctx, "/a")
	require.NoError(t, s.Set(ctx, "/c", FieldLocalStart, 3))

	assert.Equal(t, 2, s.Len())
	_, ok, _ := s.Get(ctx, "/b")
	assert.False(t, ok, "/b should have been evicted")
	_, ok, _ = s.Get(ctx, "/a")
	assert.True(t, ok)
}

func TestMemoryStore_GetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	require.NoError(t, s.Set(ctx, "/a", FieldLocalStart, 1))
	snap, ok, err := s.Get(ctx, "/a")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Set(ctx, "/a", FieldLocalStart, 99))
	assert.Equal(t, int64(1), *snap.LocalStart)
	assert.False(t, snap.Complete())
}

func TestHeaderNanos(t *testing.T) {
	h := http.Header{}
	n, err := HeaderNanos(h, HeaderTimeStart)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	h.Set(HeaderTimeStart, " 123456789 ")
	n, err = HeaderNanos(h, HeaderTimeStart)
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), n)

	h.Set(HeaderTimeEnd, "")
	_, err = HeaderNanos(h, HeaderTimeEnd)
	assert.Error(t, err)
}

func TestPrometheusSink_ObservesMilliseconds(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)

	sink.Observe("https://dummyjson.com/products/category-list", StatusLabel, 8_999_999)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 1)
	assert.Equal(t, "http_client_requests", mfs[0].GetName())

	m := mfs[0].GetMetric()
	require.Len(t, m, 1)
	assert.Equal(t, uint64(1), m[0].GetSummary().GetSampleCount())
	assert.Equal(t, float64(8), m[0].GetSummary().GetSampleSum())
	assert.Len(t, m[0].GetSummary().GetQuantile(), 3)

	labels := map[string]string{}
	for _, lp := range m[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	assert.Equal(t, "200", labels["status"])
	assert.Equal(t, "https://dummyjson.com/products/category-list", labels["uri"])
}
