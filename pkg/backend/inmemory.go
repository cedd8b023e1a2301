package backend

import (
	"context"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/result"
)

const defaultShardCount = 8

// InMemory is a backend that keeps results in process memory. Results are sharded by
// test type so that concurrent writers on different games rarely share a lock.
type InMemory struct {
	shards     []*inMemoryShard
	shardCount int
}

type inMemoryShard struct {
	sync.RWMutex

	items map[string]*result.Result
}

// NewInMemory creates a new in-memory backend with the given options.
func NewInMemory(opts ...Option[InMemory]) (IBackend[InMemory], error) {
	backendInstance := &InMemory{shardCount: defaultShardCount}
	// Apply the backend options
	ApplyOptions(backendInstance, opts...)

	if backendInstance.shardCount <= 0 {
		return nil, ewrap.Newf("invalid shard count: %d", backendInstance.shardCount)
	}

	backendInstance.shards = make([]*inMemoryShard, backendInstance.shardCount)
	for i := range backendInstance.shards {
		backendInstance.shards[i] = &inMemoryShard{items: make(map[string]*result.Result)}
	}

	return backendInstance, nil
}

func (store *InMemory) shard(testType string) *inMemoryShard {
	return store.shards[xxhash.Sum64String(testType)%uint64(len(store.shards))]
}

// Create stores a copy of res.
func (store *InMemory) Create(ctx context.Context, res *result.Result) error {
	err := res.Valid()
	if err != nil {
		return err
	}

	if ctx.Err() != nil {
		return ewrap.Wrap(ctx.Err(), "creating result")
	}

	shard := store.shard(res.TestType)

	shard.Lock()
	defer shard.Unlock()

	shard.items[res.ID] = res.Clone()

	return nil
}

// List returns copies of the matching results.
func (store *InMemory) List(ctx context.Context, filters ...IFilter) ([]*result.Result, error) {
	if ctx.Err() != nil {
		return nil, ewrap.Wrap(ctx.Err(), "listing results")
	}

	q := NewQuery(filters...)

	items := make([]*result.Result, 0)

	for _, shard := range store.shardsFor(q) {
		shard.RLock()

		for _, res := range shard.items {
			if q.Match(res) {
				items = append(items, res.Clone())
			}
		}

		shard.RUnlock()
	}

	return q.Finish(items), nil
}

// DeleteByUser removes the results of userID.
func (store *InMemory) DeleteByUser(ctx context.Context, userID string, testTypes ...string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, sentinel.ErrUserIDRequired
	}

	if ctx.Err() != nil {
		return 0, ewrap.Wrap(ctx.Err(), "deleting results")
	}

	types := make(map[string]struct{}, len(testTypes))
	for _, testType := range testTypes {
		types[testType] = struct{}{}
	}

	deleted := 0

	for _, shard := range store.shards {
		shard.Lock()

		for id, res := range shard.items {
			if res.UserID != userID {
				continue
			}

			if _, ok := types[res.TestType]; len(types) > 0 && !ok {
				continue
			}

			delete(shard.items, id)

			deleted++
		}

		shard.Unlock()
	}

	return deleted, nil
}

// Count returns how many results match the filters.
func (store *InMemory) Count(ctx context.Context, filters ...IFilter) (int, error) {
	if ctx.Err() != nil {
		return 0, ewrap.Wrap(ctx.Err(), "counting results")
	}

	q := NewQuery(filters...)
	count := 0

	for _, shard := range store.shardsFor(q) {
		shard.RLock()

		for _, res := range shard.items {
			if q.Match(res) {
				count++
			}
		}

		shard.RUnlock()
	}

	return count, nil
}

// Close is a no-op.
func (*InMemory) Close() error { return nil }

// shardsFor returns the only shard that can hold the test type of q, or all of them.
func (store *InMemory) shardsFor(q Query) []*inMemoryShard {
	if q.TestType != "" {
		return []*inMemoryShard{store.shard(q.TestType)}
	}

	return store.shards
}
