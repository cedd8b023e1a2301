// Package backend provides the storage contract for recorded results and its
// implementations: in-memory, relational (SQLite through upper/db), Redis and the
// legacy flat JSON files.
//
// The main interface IBackend provides methods for:
//   - Creating a result
//   - Listing results narrowed by test type and user, newest first
//   - Deleting every result of a user, optionally limited to some test types
//   - Counting results
//
// Backend implementations must satisfy the IBackendConstrain type constraint.
package backend

import (
	"context"

	"github.com/hyp3rd/mindscore/pkg/result"
)

// IBackendConstrain defines the type constraint for result backend implementations.
// It restricts the generic type parameter to supported backend types, ensuring
// type safety and proper implementation at compile time.
type IBackendConstrain interface {
	InMemory | SQL | Redis | JSONFile
}

// IBackend defines the contract that all result backends must implement.
//
// All methods accept a context.Context parameter for cancellation and timeout
// control. Implementations must be safe for concurrent use.
type IBackend[T IBackendConstrain] interface {
	// Create stores a validated result.
	Create(ctx context.Context, res *result.Result) error
	// List returns the results matching the filters, newest first unless a filter says otherwise.
	List(ctx context.Context, filters ...IFilter) ([]*result.Result, error)
	// DeleteByUser removes the results of userID for the given test types, or for every
	// test type when none is given. It returns how many results were removed.
	DeleteByUser(ctx context.Context, userID string, testTypes ...string) (int, error)
	// Count returns how many results match the filters.
	Count(ctx context.Context, filters ...IFilter) (int, error)
	// Close releases the resources held by the backend.
	Close() error
}
