package backend

import (
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/mindscore/internal/libs/serializer"
)

// Option is a function type that can be used to configure a backend.
type Option[T IBackendConstrain] func(*T)

// ApplyOptions applies the given options to the given backend.
func ApplyOptions[T IBackendConstrain](backend *T, options ...Option[T]) {
	for _, option := range options {
		option(backend)
	}
}

// WithShardCount sets the number of shards of the in-memory backend.
func WithShardCount(count int) Option[InMemory] {
	return func(backend *InMemory) {
		backend.shardCount = count
	}
}

// WithDatabasePath sets the SQLite file of the sql backend.
func WithDatabasePath(path string) Option[SQL] {
	return func(backend *SQL) {
		backend.path = path
	}
}

// WithSkipMigrations disables running the embedded migrations on open.
func WithSkipMigrations() Option[SQL] {
	return func(backend *SQL) {
		backend.skipMigrations = true
	}
}

// WithRedisClient is an option that sets the redis client to use, single node or cluster.
func WithRedisClient(client redis.UniversalClient) Option[Redis] {
	return func(backend *Redis) {
		backend.rdb = client
	}
}

// WithKeyPrefix namespaces the keys written by the redis backend.
func WithKeyPrefix(prefix string) Option[Redis] {
	return func(backend *Redis) {
		backend.prefix = prefix
	}
}

// WithSerializer is an option that sets the serializer used to store results in redis.
//   - The default serializer is `serializer.MsgpackSerializer`.
//   - `serializer.JSONSerializer` and `serializer.CBORSerializer` are also registered.
//   - The interface `serializer.ISerializer` can be implemented to use a custom serializer.
func WithSerializer(ser serializer.ISerializer) Option[Redis] {
	return func(backend *Redis) {
		backend.Serializer = ser
	}
}

// WithDataDir sets the directory of the json-file backend.
func WithDataDir(dir string) Option[JSONFile] {
	return func(backend *JSONFile) {
		backend.dir = dir
	}
}
