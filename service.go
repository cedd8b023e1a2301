package mindscore

import (
	"context"

	"github.com/hyp3rd/mindscore/pkg/result"
	"github.com/hyp3rd/mindscore/pkg/stats"
)

// Service is the service interface for the ScoreBoard.
// It enables middleware to be added to the service.
type Service interface {
	// Record validates and stores one completed round, returning the stored result
	Record(ctx context.Context, req RecordRequest) (*result.Result, error)
	// List returns the results of a test, newest first, for one user or for everybody
	List(ctx context.Context, testType, userID string, scope Scope) ([]*result.Result, error)
	// DeleteResults removes the results of a user for one test
	DeleteResults(ctx context.Context, testType, userID string) (int, error)
	// ResetUser removes every result of a user across all tests
	ResetUser(ctx context.Context, userID string) (int, error)
	// AllGameData returns the results of a user grouped by test type
	AllGameData(ctx context.Context, userID string) (map[string][]*result.Result, error)
	// Overview compares the user against the population on every test
	Overview(ctx context.Context, userID string) ([]TestOverview, error)
	// Stats summarizes the values of one test, for one user or for everybody when userID is empty
	Stats(ctx context.Context, testType, userID string) (stats.Computed, error)
	// Count returns how many results are stored, optionally for one test and only those tied to a user
	Count(ctx context.Context, testType string, userOnly bool) (int, error)
	// Stop releases the backend
	Stop(ctx context.Context) error
}

// Middleware describes a service middleware.
type Middleware func(Service) Service

// ApplyMiddleware applies middlewares to a service.
func ApplyMiddleware(svc Service, mw ...Middleware) Service {
	// Apply each middleware in the chain
	for _, m := range mw {
		svc = m(svc)
	}
	// Return the decorated service
	return svc
}
