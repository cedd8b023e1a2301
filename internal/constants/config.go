// Package constants defines default configuration values and backend types
// for mindscore. It provides the supported backend names and the defaults used
// when the configuration does not set a value.
package constants

import "time"

const (
	// InMemoryBackend is the in-memory backend type.
	// Results live in process memory and are lost on restart.
	InMemoryBackend = "in-memory"
	// SQLBackend is the relational backend type (SQLite through upper/db).
	SQLBackend = "sql"
	// RedisBackend is the name of the Redis backend.
	RedisBackend = "redis"
	// JSONFileBackend is the flat JSON files backend, one file per test type.
	JSONFileBackend = "json-file"

	// DefaultBackend is used when the configuration does not name one.
	DefaultBackend = SQLBackend
	// DefaultDatabasePath is the SQLite file used by the sql backend.
	DefaultDatabasePath = "data/mindscore.db"
	// DefaultDataDir is the directory of the json-file backend.
	DefaultDataDir = "data"
	// DefaultAPIAddr is the listen address of the HTTP API.
	DefaultAPIAddr = "127.0.0.1:3000"
	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP API.
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultSerializer is the serializer of the redis backend.
	DefaultSerializer = "msgpack"
)

const (
	// RedisKeyPrefix namespaces every key written by the redis backend.
	RedisKeyPrefix = "mindscore"
	// RedisDialTimeout is the timeout for the Redis dialer.
	RedisDialTimeout = 10 * time.Second
	// RedisClientMaxRetries is the maximum number of retries for the Redis client.
	RedisClientMaxRetries = 10
	// RedisClientReadTimeout is the read timeout for the Redis client.
	RedisClientReadTimeout = 30 * time.Second
	// RedisClientWriteTimeout is the write timeout for the Redis client.
	RedisClientWriteTimeout = 30 * time.Second
	// RedisClientPoolSize is the pool size for the Redis client.
	RedisClientPoolSize = 20
	// RedisClientMinIdleConns is the minimum number of idle connections for the Redis client.
	RedisClientMinIdleConns = 2
	// RedisClientPoolTimeout is the pool timeout for the Redis client.
	RedisClientPoolTimeout = 30 * time.Second
)
