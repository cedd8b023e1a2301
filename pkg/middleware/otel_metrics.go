package middleware

import (
	"context"
	"time"

	"github.com/hyp3rd/ewrap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hyp3rd/mindscore"
	"github.com/hyp3rd/mindscore/internal/telemetry/attrs"
	"github.com/hyp3rd/mindscore/pkg/result"
	"github.com/hyp3rd/mindscore/pkg/stats"
)

// OTelMetricsMiddleware emits OpenTelemetry metrics for service methods.
type OTelMetricsMiddleware struct {
	next  mindscore.Service
	meter metric.Meter

	// instruments
	calls     metric.Int64Counter
	durations metric.Float64Histogram
}

// NewOTelMetricsMiddleware constructs a metrics middleware using the provided meter.
func NewOTelMetricsMiddleware(next mindscore.Service, meter metric.Meter) (mindscore.Service, error) {
	calls, err := meter.Int64Counter("mindscore.calls")
	if err != nil {
		return nil, ewrap.Wrap(err, "create counter")
	}

	durations, err := meter.Float64Histogram("mindscore.duration.ms")
	if err != nil {
		return nil, ewrap.Wrap(err, "create histogram")
	}

	return &OTelMetricsMiddleware{next: next, meter: meter, calls: calls, durations: durations}, nil
}

// Record implements Service.Record with metrics.
func (mw *OTelMetricsMiddleware) Record(ctx context.Context, req mindscore.RecordRequest) (*result.Result, error) {
	start := time.Now()
	res, err := mw.next.Record(ctx, req)
	mw.rec(ctx, "Record", start, err, attribute.String(attrs.AttrTestType, req.TestType))

	return res, err
}

// List implements Service.List with metrics.
func (mw *OTelMetricsMiddleware) List(ctx context.Context, testType, userID string, scope mindscore.Scope) ([]*result.Result, error) {
	start := time.Now()
	items, err := mw.next.List(ctx, testType, userID, scope)
	mw.rec(ctx, "List", start, err,
		attribute.String(attrs.AttrTestType, testType),
		attribute.String(attrs.AttrScope, string(scope)),
		attribute.Int(attrs.AttrResultCount, len(items)))

	return items, err
}

// DeleteResults implements Service.DeleteResults with metrics.
func (mw *OTelMetricsMiddleware) DeleteResults(ctx context.Context, testType, userID string) (int, error) {
	start := time.Now()
	deleted, err := mw.next.DeleteResults(ctx, testType, userID)
	mw.rec(ctx, "DeleteResults", start, err, attribute.String(attrs.AttrTestType, testType))

	return deleted, err
}

// ResetUser implements Service.ResetUser with metrics.
func (mw *OTelMetricsMiddleware) ResetUser(ctx context.Context, userID string) (int, error) {
	start := time.Now()
	deleted, err := mw.next.ResetUser(ctx, userID)
	mw.rec(ctx, "ResetUser", start, err)

	return deleted, err
}

// AllGameData implements Service.AllGameData with metrics.
func (mw *OTelMetricsMiddleware) AllGameData(ctx context.Context, userID string) (map[string][]*result.Result, error) {
	start := time.Now()
	grouped, err := mw.next.AllGameData(ctx, userID)
	mw.rec(ctx, "AllGameData", start, err)

	return grouped, err
}

// Overview implements Service.Overview with metrics.
func (mw *OTelMetricsMiddleware) Overview(ctx context.Context, userID string) ([]mindscore.TestOverview, error) {
	start := time.Now()
	cards, err := mw.next.Overview(ctx, userID)
	mw.rec(ctx, "Overview", start, err, attribute.Int(attrs.AttrTestsCount, len(cards)))

	return cards, err
}

// Stats implements Service.Stats with metrics.
func (mw *OTelMetricsMiddleware) Stats(ctx context.Context, testType, userID string) (stats.Computed, error) {
	start := time.Now()
	computed, err := mw.next.Stats(ctx, testType, userID)
	mw.rec(ctx, "Stats", start, err, attribute.String(attrs.AttrTestType, testType))

	return computed, err
}

// Count implements Service.Count with metrics.
func (mw *OTelMetricsMiddleware) Count(ctx context.Context, testType string, userOnly bool) (int, error) {
	start := time.Now()
	n, err := mw.next.Count(ctx, testType, userOnly)
	mw.rec(ctx, "Count", start, err, attribute.String(attrs.AttrTestType, testType))

	return n, err
}

// Stop implements Service.Stop with metrics.
func (mw *OTelMetricsMiddleware) Stop(ctx context.Context) error {
	start := time.Now()
	err := mw.next.Stop(ctx)
	mw.rec(ctx, "Stop", start, err)

	return err
}

func (mw *OTelMetricsMiddleware) rec(ctx context.Context, method string, start time.Time, err error, attributes ...attribute.KeyValue) {
	base := []attribute.KeyValue{attribute.String("method", method), attribute.Bool("error", err != nil)}
	if len(attributes) > 0 {
		base = append(base, attributes...)
	}

	mw.calls.Add(ctx, 1, metric.WithAttributes(base...))
	mw.durations.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(base...))
}
