package timing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type observation struct {
	uri    string
	status string
	total  int64
}

type recordingSink struct {
	mu  sync.Mutex
	obs []observation
}

func (s *recordingSink) Observe(uri, status string, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs = append(s.obs, observation{uri, status, total})
}

func (s *recordingSink) all() []observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]observation(nil), s.obs...)
}

// dropStore loses every write of one field.
type dropStore struct {
	Store
	drop Field
}

func (s dropStore) Set(ctx context.Context, uri string, f Field, v int64) error {
	if f == s.drop {
		return nil
	}
	return s.Store.Set(ctx, uri, f, v)
}

func sequenceClock(ts ...int64) Clock {
	var mu sync.Mutex
	i := 0
	return func() int64 {
		mu.Lock()
		defer mu.Unlock()
		v := ts[i]
		i++
		return v
	}
}

func timedUpstream(t *testing.T, start, end string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if start != "" {
			w.Header().Set(HeaderTimeStart, start)
		}
		if end != "" {
			w.Header().Set(HeaderTimeEnd, end)
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDurations(t *testing.T) {
	ls, le, rs, re := int64(2000), int64(9000), int64(1000), int64(5000)
	local, remote, total := Durations(Record{LocalStart: &ls, LocalEnd: &le, RemoteStart: &rs, RemoteEnd: &re})
	assert.Equal(t, int64(7000), local)
	assert.Equal(t, int64(4000), remote)
	assert.Equal(t, int64(8000), total)
}

func TestCollector_PublishesTotalLatency(t *testing.T) {
	up := timedUpstream(t, "1000", "5000")
	store := NewMemoryStore(16)
	sink := &recordingSink{}
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	c := NewCollector(nil, store, sink, log, WithClock(sequenceClock(2000, 9000)))
	client := &http.Client{Transport: c}

	resp, err := client.Get(up.URL + "/products/category-list")
	require.NoError(t, err)
	_ = resp.Body.Close()

	uri := up.URL + "/products/category-list"
	require.Equal(t, []observation{{uri: uri, status: StatusLabel, total: 8000}}, sink.all())
	assert.Contains(t, logs.String(), "client_timing")
	assert.Contains(t, logs.String(), "local_duration_ns=7000")
	assert.Contains(t, logs.String(), "remote_duration_ns=4000")

	rec, ok, err := store.Get(context.Background(), uri)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.Complete())
	assert.Equal(t, int64(2000), *rec.LocalStart)
	assert.Equal(t, int64(5000), *rec.RemoteEnd)
}

func TestCollector_MissingHeadersCountAsZero(t *testing.T) {
	up := timedUpstream(t, "", "")
	sink := &recordingSink{}
	c := NewCollector(nil, NewMemoryStore(16), sink, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(sequenceClock(2000, 9000)))

	resp, err := (&http.Client{Transport: c}).Get(up.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	obs := sink.all()
	require.Len(t, obs, 1)
	assert.Equal(t, int64(9000), obs[0].total)
}

func TestCollector_IncompleteRecordPublishesNothing(t *testing.T) {
	for _, f := range fields {
		t.Run(string(f), func(t *testing.T) {
			up := timedUpstream(t, "1000", "5000")
			sink := &recordingSink{}
			var logs bytes.Buffer
			store := dropStore{Store: NewMemoryStore(16), drop: f}
			c := NewCollector(nil, store, sink, slog.New(slog.NewTextHandler(&logs, nil)),
				WithClock(sequenceClock(2000, 9000)))

			resp, err := (&http.Client{Transport: c}).Get(up.URL)
			require.NoError(t, err)
			_ = resp.Body.Close()

			assert.Empty(t, sink.all())
			assert.NotContains(t, logs.String(), "client_timing")
		})
	}
}

func TestCollector_BadHeaderFailsRequest(t *testing.T) {
	up := timedUpstream(t, "soon", "5000")
	sink := &recordingSink{}
	c := NewCollector(nil, NewMemoryStore(16), sink, nil, WithClock(sequenceClock(2000, 9000)))

	_, err := (&http.Client{Transport: c}).Get(up.URL)
	require.Error(t, err)

	var he *HeaderError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, HeaderTimeStart, he.Header)
	assert.Equal(t, "soon", he.Value)
	assert.Empty(t, sink.all())
}

func TestCollector_TransportErrorUnmodified(t *testing.T) {
	boom := errors.New("connection refused")
	base := roundTripperFunc(func(*http.Request) (*http.Response, error) { return nil, boom })
	sink := &recordingSink{}
	store := NewMemoryStore(16)
	c := NewCollector(base, store, sink, nil, WithClock(sequenceClock(2000, 9000)))

	req, err := http.NewRequest(http.MethodGet, "http://upstream.invalid/products/category-list", nil)
	require.NoError(t, err)

	resp, err := c.RoundTrip(req)
	assert.Nil(t, resp)
	assert.Same(t, boom, err)
	assert.Empty(t, sink.all())

	rec, ok, _ := store.Get(context.Background(), req.URL.String())
	require.True(t, ok)
	assert.NotNil(t, rec.LocalStart)
	assert.Nil(t, rec.LocalEnd)
}

func TestCollector_ConcurrentURIsStayIsolated(t *testing.T) {
	remote := map[string][2]string{
		"/a": {"100", "200"},
		"/b": {"300", "600"},
	}
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts := remote[r.URL.Path]
		w.Header().Set(HeaderTimeStart, ts[0])
		w.Header().Set(HeaderTimeEnd, ts[1])
	}))
	defer up.Close()

	store := NewMemoryStore(16)
	sink := &recordingSink{}
	c := NewCollector(nil, store, sink, slog.New(slog.NewTextHandler(io.Discard, nil)))
	client := &http.Client{Transport: c}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		path := "/a"
		if i%2 == 1 {
			path = "/b"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(up.URL + path)
			if err != nil {
				t.Error(err)
				return
			}
			_ = resp.Body.Close()
		}()
	}
	wg.Wait()

	for path, ts := range remote {
		rec, ok, err := store.Get(context.Background(), up.URL+path)
		require.NoError(t, err)
		require.True(t, ok, path)
		require.True(t, rec.Complete(), path)
		assert.Equal(t, ts[0], fmt.Sprint(*rec.RemoteStart), path)
		assert.Equal(t, ts[1], fmt.Sprint(*rec.RemoteEnd), path)
		assert.LessOrEqual(t, *rec.LocalStart, *rec.LocalEnd, path)
	}
	assert.Len(t, sink.all(), 40)
}
