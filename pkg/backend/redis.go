package backend

import (
	"context"
	"errors"

	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/mindscore/internal/constants"
	"github.com/hyp3rd/mindscore/internal/libs/serializer"
	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/catalog"
	"github.com/hyp3rd/mindscore/pkg/result"
)

// Redis is a backend that stores each result in a hash and keeps set indexes per
// test type and per user:
//
//	<prefix>:result:<id>   hash, field "data" holds the serialized result
//	<prefix>:all           every result id
//	<prefix>:anon          ids of anonymous results
//	<prefix>:type:<type>   ids per test type
//	<prefix>:user:<id>     ids per user
//
// The client may be a single node or a cluster client. On a cluster the prefix must be
// a hash tag such as "{mindscore}" so that the set operations stay on one slot.
type Redis struct {
	rdb        redis.UniversalClient  // redis client to interact with the redis server
	prefix     string                 // prefix namespaces every key written by the backend
	Serializer serializer.ISerializer // Serializer is the serializer used to serialize the results before storing them
}

// NewRedis creates a new redis backend with the given options.
func NewRedis(redisOptions ...Option[Redis]) (IBackend[Redis], error) {
	rb := &Redis{}
	// Apply the backend options
	ApplyOptions(rb, redisOptions...)

	// Check if the client is nil
	if rb.rdb == nil {
		return nil, sentinel.ErrNilClient
	}

	if rb.prefix == "" {
		rb.prefix = constants.RedisKeyPrefix
	}

	// Check if the serializer is nil
	if rb.Serializer == nil {
		var err error
		// Set a the serializer to default to `msgpack`
		rb.Serializer, err = serializer.New(constants.DefaultSerializer)
		if err != nil {
			return nil, err
		}
	}

	return rb, nil
}

func (rb *Redis) resultKey(id string) string { return rb.prefix + ":result:" + id }

func (rb *Redis) allKey() string { return rb.prefix + ":all" }

func (rb *Redis) anonKey() string { return rb.prefix + ":anon" }

func (rb *Redis) typeKey(testType string) string {
	return rb.prefix + ":type:" + testType
}

func (rb *Redis) userKey(userID string) string {
	return rb.prefix + ":user:" + userID
}

// Create stores res and indexes it.
func (rb *Redis) Create(ctx context.Context, res *result.Result) error {
	// Validate result
	err := res.Valid()
	if err != nil {
		return err
	}

	data, err := rb.Serializer.Marshal(res)
	if err != nil {
		return ewrap.Wrap(err, "serializing result")
	}

	pipe := rb.rdb.TxPipeline()

	pipe.HSet(ctx, rb.resultKey(res.ID), "data", data)
	pipe.SAdd(ctx, rb.allKey(), res.ID)
	pipe.SAdd(ctx, rb.typeKey(res.TestType), res.ID)

	if res.Anonymous() {
		pipe.SAdd(ctx, rb.anonKey(), res.ID)
	} else {
		pipe.SAdd(ctx, rb.userKey(res.UserID), res.ID)
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return ewrap.Wrap(err, "failed to execute redis pipeline")
	}

	return nil
}

// List resolves the candidate ids from the index sets, fetches them in one pipeline
// and finishes the listing in process.
func (rb *Redis) List(ctx context.Context, filters ...IFilter) ([]*result.Result, error) {
	q := NewQuery(filters...)

	ids, err := rb.candidates(ctx, q)
	if err != nil {
		return nil, err
	}

	items, err := rb.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	return q.selectIn(items), nil
}

// DeleteByUser removes the results of userID, optionally only for testTypes.
func (rb *Redis) DeleteByUser(ctx context.Context, userID string, testTypes ...string) (int, error) {
	if userID == "" {
		return 0, sentinel.ErrUserIDRequired
	}

	var ids []string

	if len(testTypes) == 0 {
		members, err := rb.rdb.SMembers(ctx, rb.userKey(userID)).Result()
		if err != nil {
			return 0, ewrap.Wrap(err, "failed to get user results from redis")
		}

		ids = members
		testTypes = catalog.Names()
	} else {
		for _, testType := range testTypes {
			members, err := rb.rdb.SInter(ctx, rb.userKey(userID), rb.typeKey(testType)).Result()
			if err != nil {
				return 0, ewrap.Wrap(err, "failed to get user results from redis")
			}

			ids = append(ids, members...)
		}
	}

	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	members := make([]any, 0, len(ids))

	for _, id := range ids {
		keys = append(keys, rb.resultKey(id))
		members = append(members, id)
	}

	pipe := rb.rdb.TxPipeline()

	deleted := pipe.Del(ctx, keys...)
	pipe.SRem(ctx, rb.allKey(), members...)
	pipe.SRem(ctx, rb.userKey(userID), members...)

	for _, testType := range testTypes {
		pipe.SRem(ctx, rb.typeKey(testType), members...)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return 0, ewrap.Wrap(err, "executing pipeline")
	}

	return int(deleted.Val()), nil
}

// Count returns how many results match the filters. The limit is ignored.
func (rb *Redis) Count(ctx context.Context, filters ...IFilter) (int, error) {
	items, err := rb.List(ctx, append(filters, WithLimit(0))...)
	if err != nil {
		return 0, err
	}

	return len(items), nil
}

// Close closes the redis client.
func (rb *Redis) Close() error {
	err := rb.rdb.Close()
	if err != nil {
		return ewrap.Wrap(err, "closing redis client")
	}

	return nil
}

func (rb *Redis) candidates(ctx context.Context, q Query) ([]string, error) {
	base := rb.allKey()
	if q.TestType != "" {
		base = rb.typeKey(q.TestType)
	}

	var cmd *redis.StringSliceCmd

	switch {
	case q.UserID != "":
		cmd = rb.rdb.SInter(ctx, base, rb.userKey(q.UserID))
	case q.UserOnly:
		cmd = rb.rdb.SDiff(ctx, base, rb.anonKey())
	default:
		cmd = rb.rdb.SMembers(ctx, base)
	}

	ids, err := cmd.Result()
	if err != nil {
		return nil, ewrap.Wrap(err, "failed to get keys from redis")
	}

	return ids, nil
}

func (rb *Redis) fetch(ctx context.Context, ids []string) ([]*result.Result, error) {
	if len(ids) == 0 {
		return []*result.Result{}, nil
	}

	// Pipeline fetches
	cmds, err := rb.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.HGet(ctx, rb.resultKey(id), "data")
		}

		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, ewrap.Wrap(err, "failed to execute redis pipeline while listing")
	}

	items := make([]*result.Result, 0, len(ids))

	for _, cmd := range cmds {
		command, ok := cmd.(*redis.StringCmd)
		if !ok {
			continue
		}

		data, err := command.Bytes()
		if err != nil {
			// index entry left behind by a concurrent delete
			if errors.Is(err, redis.Nil) {
				continue
			}

			return nil, ewrap.Wrap(err, "failed to get result data from redis")
		}

		var res result.Result

		err = rb.Serializer.Unmarshal(data, &res)
		if err == nil {
			items = append(items, &res)
		}
	}

	return items, nil
}
