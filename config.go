package mindscore

import (
	"time"

	"github.com/hyp3rd/mindscore/pkg/backend"
	"github.com/hyp3rd/mindscore/pkg/statscache"
)

// Config is a struct that wraps all the configuration options to setup `ScoreBoard` and its backend.
type Config[T backend.IBackendConstrain] struct {
	// BackendType is the name the backend constructor is registered under in the `BackendManager`.
	BackendType string
	// InMemoryOptions is a slice of options that can be used to configure the `InMemory`.
	InMemoryOptions []backend.Option[backend.InMemory]
	// SQLOptions is a slice of options that can be used to configure the `SQL` backend.
	SQLOptions []backend.Option[backend.SQL]
	// RedisOptions is a slice of options that can be used to configure the `Redis`.
	RedisOptions []backend.Option[backend.Redis]
	// JSONFileOptions is a slice of options that can be used to configure the `JSONFile`.
	JSONFileOptions []backend.Option[backend.JSONFile]
	// ScoreBoardOptions is a slice of options that can be used to configure `ScoreBoard`.
	ScoreBoardOptions []Option[T]
}

// NewConfig returns a new `Config` for the backend registered as backendType, with empty
// backend options. ScoreBoard defaults to uuid ids and the UTC wall clock.
func NewConfig[T backend.IBackendConstrain](backendType string) *Config[T] {
	return &Config[T]{
		BackendType:       backendType,
		InMemoryOptions:   []backend.Option[backend.InMemory]{},
		SQLOptions:        []backend.Option[backend.SQL]{},
		RedisOptions:      []backend.Option[backend.Redis]{},
		JSONFileOptions:   []backend.Option[backend.JSONFile]{},
		ScoreBoardOptions: []Option[T]{},
	}
}

// Option is a function type that can be used to configure the `ScoreBoard` struct.
type Option[T backend.IBackendConstrain] func(*ScoreBoard[T])

// ApplyScoreBoardOptions applies the given options to the given scoreboard.
func ApplyScoreBoardOptions[T backend.IBackendConstrain](sb *ScoreBoard[T], options ...Option[T]) {
	for _, option := range options {
		option(sb)
	}
}

// WithClock replaces the clock stamping recorded results.
func WithClock[T backend.IBackendConstrain](now func() time.Time) Option[T] {
	return func(sb *ScoreBoard[T]) {
		if now != nil {
			sb.now = now
		}
	}
}

// WithIDGenerator replaces the generator of result ids.
func WithIDGenerator[T backend.IBackendConstrain](newID func() string) Option[T] {
	return func(sb *ScoreBoard[T]) {
		if newID != nil {
			sb.newID = newID
		}
	}
}

// WithAPIHTTP enables the HTTP API on addr; New starts it and Stop shuts it down.
func WithAPIHTTP[T backend.IBackendConstrain](addr string, opts ...APIHTTPOption) Option[T] {
	return func(sb *ScoreBoard[T]) {
		sb.apiHTTP = NewAPIHTTPServer(addr, opts...)
	}
}

// WithStatsCache serves Stats and the global side of Overview from cache. Writes through
// the ScoreBoard invalidate the test types they touch; writes by other processes show up
// once the cache entries expire.
func WithStatsCache[T backend.IBackendConstrain](cache *statscache.Cache) Option[T] {
	return func(sb *ScoreBoard[T]) {
		sb.cache = cache
	}
}
