package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyp3rd/mindscore"
	"github.com/hyp3rd/mindscore/internal/telemetry/attrs"
	"github.com/hyp3rd/mindscore/pkg/result"
	"github.com/hyp3rd/mindscore/pkg/stats"
)

// OTelTracingMiddleware wraps mindscore.Service methods with OpenTelemetry spans.
// User ids never end up in span attributes.
type OTelTracingMiddleware struct {
	next   mindscore.Service
	tracer trace.Tracer
	// static attributes applied to all spans
	commonAttrs []attribute.KeyValue
}

// OTelTracingOption allows configuring the tracing middleware.
type OTelTracingOption func(*OTelTracingMiddleware)

// WithCommonAttributes sets attributes applied to all spans.
func WithCommonAttributes(attributes ...attribute.KeyValue) OTelTracingOption {
	return func(m *OTelTracingMiddleware) { m.commonAttrs = append(m.commonAttrs, attributes...) }
}

// NewOTelTracingMiddleware creates a tracing middleware.
func NewOTelTracingMiddleware(next mindscore.Service, tracer trace.Tracer, opts ...OTelTracingOption) mindscore.Service {
	mw := &OTelTracingMiddleware{next: next, tracer: tracer}
	for _, o := range opts {
		o(mw)
	}

	return mw
}

// Record implements Service.Record with tracing.
func (mw OTelTracingMiddleware) Record(ctx context.Context, req mindscore.RecordRequest) (*result.Result, error) {
	ctx, span := mw.startSpan(ctx, "mindscore.Record",
		attribute.String(attrs.AttrTestType, req.TestType),
		attribute.Bool(attrs.AttrHasUser, req.UserID != ""))
	defer span.End()

	res, err := mw.next.Record(ctx, req)
	fail(span, err)

	return res, err
}

// List implements Service.List with tracing.
func (mw OTelTracingMiddleware) List(ctx context.Context, testType, userID string, scope mindscore.Scope) ([]*result.Result, error) {
	ctx, span := mw.startSpan(ctx, "mindscore.List",
		attribute.String(attrs.AttrTestType, testType),
		attribute.String(attrs.AttrScope, string(scope)),
		attribute.Bool(attrs.AttrHasUser, userID != ""))
	defer span.End()

	items, err := mw.next.List(ctx, testType, userID, scope)
	fail(span, err)

	span.SetAttributes(attribute.Int(attrs.AttrResultCount, len(items)))

	return items, err
}

// DeleteResults implements Service.DeleteResults with tracing.
func (mw OTelTracingMiddleware) DeleteResults(ctx context.Context, testType, userID string) (int, error) {
	ctx, span := mw.startSpan(ctx, "mindscore.DeleteResults", attribute.String(attrs.AttrTestType, testType))
	defer span.End()

	deleted, err := mw.next.DeleteResults(ctx, testType, userID)
	fail(span, err)

	span.SetAttributes(attribute.Int(attrs.AttrDeletedCount, deleted))

	return deleted, err
}

// ResetUser implements Service.ResetUser with tracing.
func (mw OTelTracingMiddleware) ResetUser(ctx context.Context, userID string) (int, error) {
	ctx, span := mw.startSpan(ctx, "mindscore.ResetUser")
	defer span.End()

	deleted, err := mw.next.ResetUser(ctx, userID)
	fail(span, err)

	span.SetAttributes(attribute.Int(attrs.AttrDeletedCount, deleted))

	return deleted, err
}

// AllGameData implements Service.AllGameData with tracing.
func (mw OTelTracingMiddleware) AllGameData(ctx context.Context, userID string) (map[string][]*result.Result, error) {
	ctx, span := mw.startSpan(ctx, "mindscore.AllGameData")
	defer span.End()

	grouped, err := mw.next.AllGameData(ctx, userID)
	fail(span, err)

	n := 0
	for _, items := range grouped {
		n += len(items)
	}

	span.SetAttributes(attribute.Int(attrs.AttrResultCount, n))

	return grouped, err
}

// Overview implements Service.Overview with tracing.
func (mw OTelTracingMiddleware) Overview(ctx context.Context, userID string) ([]mindscore.TestOverview, error) {
	ctx, span := mw.startSpan(ctx, "mindscore.Overview")
	defer span.End()

	cards, err := mw.next.Overview(ctx, userID)
	fail(span, err)

	span.SetAttributes(attribute.Int(attrs.AttrTestsCount, len(cards)))

	return cards, err
}

// Stats implements Service.Stats with tracing.
func (mw OTelTracingMiddleware) Stats(ctx context.Context, testType, userID string) (stats.Computed, error) {
	ctx, span := mw.startSpan(ctx, "mindscore.Stats",
		attribute.String(attrs.AttrTestType, testType),
		attribute.Bool(attrs.AttrHasUser, userID != ""))
	defer span.End()

	computed, err := mw.next.Stats(ctx, testType, userID)
	fail(span, err)

	span.SetAttributes(
		attribute.Int("stats.total", computed.TotalCount),
		attribute.Int("stats.removed", computed.RemovedOutliers))

	return computed, err
}

// Count implements Service.Count with tracing.
func (mw OTelTracingMiddleware) Count(ctx context.Context, testType string, userOnly bool) (int, error) {
	ctx, span := mw.startSpan(ctx, "mindscore.Count", attribute.String(attrs.AttrTestType, testType))
	defer span.End()

	n, err := mw.next.Count(ctx, testType, userOnly)
	fail(span, err)

	span.SetAttributes(attribute.Int(attrs.AttrResultCount, n))

	return n, err
}

// Stop implements Service.Stop with tracing.
func (mw OTelTracingMiddleware) Stop(ctx context.Context) error {
	ctx, span := mw.startSpan(ctx, "mindscore.Stop")
	defer span.End()

	err := mw.next.Stop(ctx)
	fail(span, err)

	return err
}

func (mw OTelTracingMiddleware) startSpan(ctx context.Context, name string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := mw.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	if len(mw.commonAttrs) > 0 {
		span.SetAttributes(mw.commonAttrs...)
	}

	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}

	return ctx, span
}

func fail(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
