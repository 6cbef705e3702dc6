// Package ratelimit throttles inbound requests per client key.
package ratelimit

import "context"

type Decision struct {
	Allowed           bool
	RetryAfterSeconds int
	Remaining         int
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Close() error
}
