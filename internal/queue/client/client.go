package client

import (
	"context"
	"sync"

	"github.com/hibiken/asynq"
)

type ctxKey int

const (
	_ ctxKey = iota
	asyncQCtxKey
)

// Enqueuer is the subset of *asynq.Client used to hand tasks off.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

var (
	globalClient Enqueuer
	globalMu     sync.RWMutex
)

// WithClient returns a copy of ctx whose GetClient lookups resolve to client.
func WithClient(ctx context.Context, client Enqueuer) context.Context {
	return context.WithValue(ctx, asyncQCtxKey, client)
}

// GetClient returns the Client bound to ctx, falling back to the global one,
// which can be reconfigured with SetClient. It's safe for concurrent use.
func GetClient(ctx context.Context) Enqueuer {
	c := ctx.Value(asyncQCtxKey)
	if c != nil {
		client, ok := c.(Enqueuer)
		if !ok {
			return nil
		}

		return client
	}

	globalMu.RLock()
	client := globalClient
	globalMu.RUnlock()

	return client
}

// SetClient replaces the global Client, and returns a
// function to restore the original value. It's safe for concurrent use.
func SetClient(client Enqueuer) func() {
	globalMu.Lock()
	prev := globalClient
	globalClient = client
	globalMu.Unlock()
	return func() { SetClient(prev) }
}
