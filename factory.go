package mindscore

import (
	"context"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/mindscore/internal/constants"
	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/backend"
)

// IBackendConstructor is an interface for backend constructors with type safety.
// It returns a typed backend.IBackend[T] instead of any.
type IBackendConstructor[T backend.IBackendConstrain] interface {
	Create(ctx context.Context, cfg *Config[T]) (backend.IBackend[T], error)
}

// InMemoryBackendConstructor constructs InMemory backends.
type InMemoryBackendConstructor struct{}

// Create creates a new InMemory backend.
func (InMemoryBackendConstructor) Create(_ context.Context, cfg *Config[backend.InMemory]) (backend.IBackend[backend.InMemory], error) {
	return backend.NewInMemory(cfg.InMemoryOptions...)
}

// SQLBackendConstructor constructs SQL backends.
type SQLBackendConstructor struct{}

// Create opens the database and runs the pending migrations.
func (SQLBackendConstructor) Create(_ context.Context, cfg *Config[backend.SQL]) (backend.IBackend[backend.SQL], error) {
	return backend.NewSQL(cfg.SQLOptions...)
}

// RedisBackendConstructor constructs Redis backends.
type RedisBackendConstructor struct{}

// Create creates a new Redis backend.
func (RedisBackendConstructor) Create(_ context.Context, cfg *Config[backend.Redis]) (backend.IBackend[backend.Redis], error) {
	return backend.NewRedis(cfg.RedisOptions...)
}

// JSONFileBackendConstructor constructs JSONFile backends.
type JSONFileBackendConstructor struct{}

// Create creates a new JSONFile backend.
func (JSONFileBackendConstructor) Create(_ context.Context, cfg *Config[backend.JSONFile]) (backend.IBackend[backend.JSONFile], error) {
	return backend.NewJSONFile(cfg.JSONFileOptions...)
}

// BackendManager is a factory for creating ScoreBoard backend instances.
// It maintains a registry of backend constructors. We store them as any internally,
// and cast to the typed constructor at use site based on T.
type BackendManager struct {
	backendRegistry map[string]any
}

// getDefaultBackends returns the default set of backend constructors.
func getDefaultBackends() map[string]any {
	return map[string]any{
		constants.InMemoryBackend: InMemoryBackendConstructor{},
		constants.SQLBackend:      SQLBackendConstructor{},
		constants.RedisBackend:    RedisBackendConstructor{},
		constants.JSONFileBackend: JSONFileBackendConstructor{},
	}
}

// NewBackendManager creates a new BackendManager with default backends pre-registered.
func NewBackendManager() *BackendManager {
	manager := &BackendManager{
		backendRegistry: make(map[string]any),
	}
	// Register the default backends
	for name, constructor := range getDefaultBackends() {
		manager.RegisterBackend(name, constructor)
	}

	return manager
}

// NewEmptyBackendManager creates a new BackendManager without default backends.
// This is useful for testing or when you want to register only specific backends.
func NewEmptyBackendManager() *BackendManager {
	return &BackendManager{
		backendRegistry: make(map[string]any),
	}
}

// RegisterBackend registers a new backend constructor. The constructor should be
// a value implementing IBackendConstructor[T] for some T; stored as any.
func (bm *BackendManager) RegisterBackend(name string, constructor any) {
	bm.backendRegistry[name] = constructor
}

// GetDefaultManager returns a new BackendManager with default backends pre-registered.
func GetDefaultManager() *BackendManager { return NewBackendManager() }

// resolveBackend looks up the constructor registered for cfg.BackendType and checks
// that it builds a backend of type T.
func resolveBackend[T backend.IBackendConstrain](ctx context.Context, bm *BackendManager, cfg *Config[T]) (backend.IBackend[T], error) {
	if bm == nil {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "backend manager")
	}

	constructor, ok := bm.backendRegistry[cfg.BackendType]
	if !ok {
		return nil, ewrap.Wrap(sentinel.ErrBackendNotFound, cfg.BackendType)
	}

	typed, ok := constructor.(IBackendConstructor[T])
	if !ok {
		return nil, ewrap.Wrap(sentinel.ErrInvalidBackendType, cfg.BackendType)
	}

	return typed.Create(ctx, cfg)
}
