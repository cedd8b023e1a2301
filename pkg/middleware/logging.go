// Package middleware provides decorators for the mindscore service: logging, OpenTelemetry
// tracing and metrics, and Prometheus instrumentation. Each one wraps a mindscore.Service
// and can be chained with mindscore.ApplyMiddleware.
package middleware

import (
	"context"
	"time"

	"github.com/hyp3rd/mindscore"
	"github.com/hyp3rd/mindscore/pkg/result"
	"github.com/hyp3rd/mindscore/pkg/stats"
)

// Logger describes a logging interface allowing to implement different external, or custom logger.
// apex/log's log.Interface satisfies it.
type Logger interface {
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

// LoggingMiddleware is a middleware that logs the time it takes to execute the next middleware.
// Must implement the mindscore.Service interface.
type LoggingMiddleware struct {
	next   mindscore.Service
	logger Logger
}

// NewLoggingMiddleware returns a new LoggingMiddleware.
func NewLoggingMiddleware(next mindscore.Service, logger Logger) mindscore.Service {
	return &LoggingMiddleware{next: next, logger: logger}
}

// done logs the duration of method and its error, if any.
func (mw LoggingMiddleware) done(method string, begin time.Time, err error) {
	if err != nil {
		mw.logger.Errorf("method %s failed after %s: %v", method, time.Since(begin), err)

		return
	}

	mw.logger.Infof("method %s took: %s", method, time.Since(begin))
}

// Record logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Record(ctx context.Context, req mindscore.RecordRequest) (res *result.Result, err error) {
	defer func(begin time.Time) { mw.done("Record", begin, err) }(time.Now())

	mw.logger.Infof("Record method called with test type: %s", req.TestType)

	return mw.next.Record(ctx, req)
}

// List logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) List(ctx context.Context, testType, userID string, scope mindscore.Scope) (items []*result.Result, err error) {
	defer func(begin time.Time) { mw.done("List", begin, err) }(time.Now())

	mw.logger.Infof("List method called with test type: %s scope: %s", testType, scope)

	return mw.next.List(ctx, testType, userID, scope)
}

// DeleteResults logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) DeleteResults(ctx context.Context, testType, userID string) (deleted int, err error) {
	defer func(begin time.Time) { mw.done("DeleteResults", begin, err) }(time.Now())

	mw.logger.Infof("DeleteResults method called with test type: %s", testType)

	return mw.next.DeleteResults(ctx, testType, userID)
}

// ResetUser logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) ResetUser(ctx context.Context, userID string) (deleted int, err error) {
	defer func(begin time.Time) { mw.done("ResetUser", begin, err) }(time.Now())

	return mw.next.ResetUser(ctx, userID)
}

// AllGameData logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) AllGameData(ctx context.Context, userID string) (grouped map[string][]*result.Result, err error) {
	defer func(begin time.Time) { mw.done("AllGameData", begin, err) }(time.Now())

	return mw.next.AllGameData(ctx, userID)
}

// Overview logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Overview(ctx context.Context, userID string) (cards []mindscore.TestOverview, err error) {
	defer func(begin time.Time) { mw.done("Overview", begin, err) }(time.Now())

	return mw.next.Overview(ctx, userID)
}

// Stats logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Stats(ctx context.Context, testType, userID string) (computed stats.Computed, err error) {
	defer func(begin time.Time) { mw.done("Stats", begin, err) }(time.Now())

	mw.logger.Infof("Stats method called with test type: %s", testType)

	return mw.next.Stats(ctx, testType, userID)
}

// Count logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Count(ctx context.Context, testType string, userOnly bool) (n int, err error) {
	defer func(begin time.Time) { mw.done("Count", begin, err) }(time.Now())

	return mw.next.Count(ctx, testType, userOnly)
}

// Stop logs the time it takes to execute the next middleware.
func (mw LoggingMiddleware) Stop(ctx context.Context) (err error) {
	defer func(begin time.Time) { mw.done("Stop", begin, err) }(time.Now())

	return mw.next.Stop(ctx)
}
