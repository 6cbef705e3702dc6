package timing

import (
	"context"
	"log/slog"
	"net/http"
)

// Collector is an http.RoundTripper that times every call it executes and
// publishes the attributed latency once all four timestamps for the URI are
// known. Transport errors are returned unmodified.
type Collector struct {
	// Base executes the request. If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	store Store
	sink  Sink
	log   *slog.Logger
	now   Clock
}

type Option func(*Collector)

func WithClock(c Clock) Option {
	return func(col *Collector) { col.now = c }
}

func NewCollector(base http.RoundTripper, store Store, sink Sink, log *slog.Logger, opts ...Option) *Collector {
	c := &Collector{
		Base:  base,
		store: store,
		sink:  sink,
		log:   log,
		now:   Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

func (c *Collector) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	uri := req.URL.String()

	c.put(ctx, uri, FieldLocalStart, c.now())

	base := c.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	c.put(ctx, uri, FieldLocalEnd, c.now())

	remoteStart, err := HeaderNanos(resp.Header, HeaderTimeStart)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	remoteEnd, err := HeaderNanos(resp.Header, HeaderTimeEnd)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	c.put(ctx, uri, FieldRemoteStart, remoteStart)
	c.put(ctx, uri, FieldRemoteEnd, remoteEnd)

	c.publish(ctx, uri)
	return resp, nil
}

// put never fails the call: a lost timestamp only suppresses the metric.
func (c *Collector) put(ctx context.Context, uri string, f Field, v int64) {
	if err := c.store.Set(ctx, uri, f, v); err != nil {
		c.log.Warn("timing store write failed",
			slog.String("uri", uri),
			slog.String("field", string(f)),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Collector) publish(ctx context.Context, uri string) {
	rec, ok, err := c.store.Get(ctx, uri)
	if err != nil {
		c.log.Warn("timing store read failed", slog.String("uri", uri), slog.String("error", err.Error()))
		return
	}
	if !ok || !rec.Complete() {
		return
	}

	local, remote, total := Durations(rec)
	c.log.Info("client_timing",
		slog.String("uri", uri),
		slog.Int64("local_duration_ns", local),
		slog.Int64("remote_duration_ns", remote),
		slog.Int64("total_latency_ns", total),
	)
	if c.sink != nil {
		c.sink.Observe(uri, StatusLabel, total)
	}
}
