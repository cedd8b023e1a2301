// Package sentinel provides the standardized error values shared by the mindscore
// components. Callers compare against them with errors.Is; the HTTP layer maps them
// to status codes.
//
// All errors are created using the ewrap package to provide enhanced error
// wrapping and context capabilities.
package sentinel

import (
	"github.com/hyp3rd/ewrap"
)

var (
	// ErrUnknownTestType is returned when a test type is not part of the catalog.
	ErrUnknownTestType = ewrap.New("unknown test type")

	// ErrInvalidScore is returned when the value field of a result is missing, NaN or infinite.
	ErrInvalidScore = ewrap.New("invalid score")

	// ErrInvalidAccuracy is returned when an accuracy is outside [0, 100].
	ErrInvalidAccuracy = ewrap.New("accuracy must be between 0 and 100")

	// ErrInvalidResult is returned when a result misses its id or timestamp.
	ErrInvalidResult = ewrap.New("invalid result")

	// ErrUserIDRequired is returned by operations scoped to a user when no id is given.
	ErrUserIDRequired = ewrap.New("user id required")

	// ErrNilClient is returned when a nil client is passed to a backend.
	ErrNilClient = ewrap.New("nil client")

	// ErrInvalidBackendType is returned when a registered constructor does not match the requested backend.
	ErrInvalidBackendType = ewrap.New("invalid backend type")

	// ErrBackendNotFound is returned when a backend is not registered.
	ErrBackendNotFound = ewrap.New("backend not found")

	// ErrParamCannotBeEmpty is returned when a parameter cannot be empty.
	ErrParamCannotBeEmpty = ewrap.New("param cannot be empty")

	// ErrSerializerNotFound is returned when a serializer is not found.
	ErrSerializerNotFound = ewrap.New("serializer not found")

	// ErrInvalidLimit is returned when a negative limit is passed to a listing.
	ErrInvalidLimit = ewrap.New("limit cannot be negative")

	// ErrInvalidCapacity is returned when a cache is sized below one entry.
	ErrInvalidCapacity = ewrap.New("capacity must be positive")

	// ErrAPIHTTPShutdownTimeout is returned when the API HTTP server fails to shutdown before context deadline.
	ErrAPIHTTPShutdownTimeout = ewrap.New("api http shutdown timeout")
)
