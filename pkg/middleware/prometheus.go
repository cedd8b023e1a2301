package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hyp3rd/mindscore"
	"github.com/hyp3rd/mindscore/pkg/result"
	"github.com/hyp3rd/mindscore/pkg/stats"
)

const metricsNamespace = "mindscore"

// PrometheusMiddleware counts calls, failures, durations, recorded and deleted results.
type PrometheusMiddleware struct {
	next mindscore.Service

	calls     *prometheus.CounterVec
	durations *prometheus.HistogramVec
	recorded  *prometheus.CounterVec
	deleted   prometheus.Counter
}

// NewPrometheusMiddleware registers the collectors on reg and wraps next. It panics if
// the collectors are already registered on reg, like promauto does.
func NewPrometheusMiddleware(next mindscore.Service, reg prometheus.Registerer) mindscore.Service {
	factory := promauto.With(reg)

	return &PrometheusMiddleware{
		next: next,
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "calls_total",
			Help:      "Service calls by method and outcome.",
		}, []string{"method", "outcome"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "call_duration_seconds",
			Help:      "Service call latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		recorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "results_recorded_total",
			Help:      "Results stored, by test type.",
		}, []string{"test_type"}),
		deleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "results_deleted_total",
			Help:      "Results removed by user deletes.",
		}),
	}
}

func (mw *PrometheusMiddleware) observe(method string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	mw.calls.WithLabelValues(method, outcome).Inc()
	mw.durations.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// Record implements Service.Record with Prometheus metrics.
func (mw *PrometheusMiddleware) Record(ctx context.Context, req mindscore.RecordRequest) (*result.Result, error) {
	start := time.Now()
	res, err := mw.next.Record(ctx, req)
	mw.observe("Record", start, err)

	if err == nil {
		mw.recorded.WithLabelValues(res.TestType).Inc()
	}

	return res, err
}

// List implements Service.List with Prometheus metrics.
func (mw *PrometheusMiddleware) List(ctx context.Context, testType, userID string, scope mindscore.Scope) ([]*result.Result, error) {
	start := time.Now()
	items, err := mw.next.List(ctx, testType, userID, scope)
	mw.observe("List", start, err)

	return items, err
}

// DeleteResults implements Service.DeleteResults with Prometheus metrics.
func (mw *PrometheusMiddleware) DeleteResults(ctx context.Context, testType, userID string) (int, error) {
	start := time.Now()
	deleted, err := mw.next.DeleteResults(ctx, testType, userID)
	mw.observe("DeleteResults", start, err)
	mw.deleted.Add(float64(deleted))

	return deleted, err
}

// ResetUser implements Service.ResetUser with Prometheus metrics.
func (mw *PrometheusMiddleware) ResetUser(ctx context.Context, userID string) (int, error) {
	start := time.Now()
	deleted, err := mw.next.ResetUser(ctx, userID)
	mw.observe("ResetUser", start, err)
	mw.deleted.Add(float64(deleted))

	return deleted, err
}

// AllGameData implements Service.AllGameData with Prometheus metrics.
func (mw *PrometheusMiddleware) AllGameData(ctx context.Context, userID string) (map[string][]*result.Result, error) {
	start := time.Now()
	grouped, err := mw.next.AllGameData(ctx, userID)
	mw.observe("AllGameData", start, err)

	return grouped, err
}

// Overview implements Service.Overview with Prometheus metrics.
func (mw *PrometheusMiddleware) Overview(ctx context.Context, userID string) ([]mindscore.TestOverview, error) {
	start := time.Now()
	cards, err := mw.next.Overview(ctx, userID)
	mw.observe("Overview", start, err)

	return cards, err
}

// Stats implements Service.Stats with Prometheus metrics.
func (mw *PrometheusMiddleware) Stats(ctx context.Context, testType, userID string) (stats.Computed, error) {
	start := time.Now()
	computed, err := mw.next.Stats(ctx, testType, userID)
	mw.observe("Stats", start, err)

	return computed, err
}

// Count implements Service.Count with Prometheus metrics.
func (mw *PrometheusMiddleware) Count(ctx context.Context, testType string, userOnly bool) (int, error) {
	start := time.Now()
	n, err := mw.next.Count(ctx, testType, userOnly)
	mw.observe("Count", start, err)

	return n, err
}

// Stop implements Service.Stop with Prometheus metrics.
func (mw *PrometheusMiddleware) Stop(ctx context.Context) error {
	start := time.Now()
	err := mw.next.Stop(ctx)
	mw.observe("Stop", start, err)

	return err
}
