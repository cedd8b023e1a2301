package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/longbridgeapp/assert"
	"github.com/prometheus/client_golang/prometheus"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hyp3rd/mindscore"
	"github.com/hyp3rd/mindscore/internal/constants"
	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/backend"
	"github.com/hyp3rd/mindscore/pkg/catalog"
	"github.com/hyp3rd/mindscore/pkg/result"
)

func newService(t *testing.T) mindscore.Service {
	t.Helper()

	sb, err := mindscore.New(context.Background(), mindscore.GetDefaultManager(),
		mindscore.NewConfig[backend.InMemory](constants.InMemoryBackend))
	assert.NoError(t, err)

	return sb
}

// exercise calls every method once, with one failing Record.
func exercise(t *testing.T, svc mindscore.Service) {
	t.Helper()

	ctx := context.Background()

	_, err := svc.Record(ctx, mindscore.RecordRequest{TestType: catalog.Reflex, UserID: "u1", ReactionTime: result.Float(231)})
	assert.NoError(t, err)

	_, err = svc.Record(ctx, mindscore.RecordRequest{TestType: "tetris"})
	assert.True(t, errors.Is(err, sentinel.ErrUnknownTestType))

	items, err := svc.List(ctx, catalog.Reflex, "u1", mindscore.ScopeUser)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(items))

	_, err = svc.AllGameData(ctx, "u1")
	assert.NoError(t, err)

	cards, err := svc.Overview(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 8, len(cards))

	computed, err := svc.Stats(ctx, catalog.Reflex, "")
	assert.NoError(t, err)
	assert.Equal(t, 231.0, computed.Best)

	n, err := svc.Count(ctx, catalog.Reflex, true)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := svc.DeleteResults(ctx, catalog.Reflex, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = svc.ResetUser(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 0, deleted)

	assert.NoError(t, svc.Stop(ctx))
}

type recordingLogger struct {
	mu    sync.Mutex
	infos []string
	errs  []string
}

func (l *recordingLogger) Infof(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.infos = append(l.infos, fmt.Sprintf(format, v...))
}

func (l *recordingLogger) Errorf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.errs = append(l.errs, fmt.Sprintf(format, v...))
}

func TestLoggingMiddleware(t *testing.T) {
	logger := &recordingLogger{}
	svc := mindscore.ApplyMiddleware(newService(t), func(next mindscore.Service) mindscore.Service {
		return NewLoggingMiddleware(next, logger)
	})

	exercise(t, svc)

	assert.Equal(t, 1, len(logger.errs))
	assert.True(t, strings.HasPrefix(logger.errs[0], "method Record failed"))
	assert.True(t, len(logger.infos) > 9)

	for _, line := range append(logger.infos, logger.errs...) {
		assert.False(t, strings.Contains(line, "u1"))
	}
}

func TestLoggingMiddleware_ApexLogger(t *testing.T) {
	handler := memory.New()
	logger := &log.Logger{Handler: handler, Level: log.InfoLevel}

	svc := NewLoggingMiddleware(newService(t), logger)

	_, err := svc.Count(context.Background(), "", false)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(handler.Entries))
	assert.True(t, strings.HasPrefix(handler.Entries[0].Message, "method Count took"))
}

func TestOTelMiddlewares(t *testing.T) {
	svc := NewOTelTracingMiddleware(newService(t), noop.NewTracerProvider().Tracer("test"))

	svc, err := NewOTelMetricsMiddleware(svc, metricnoop.NewMeterProvider().Meter("test"))
	assert.NoError(t, err)

	exercise(t, svc)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	assert.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, m := range family.GetMetric() {
			matched := 0

			for _, pair := range m.GetLabel() {
				if labels[pair.GetName()] == pair.GetValue() {
					matched++
				}
			}

			if matched == len(labels) {
				return m.GetCounter().GetValue()
			}
		}
	}

	return 0
}

func TestPrometheusMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := NewPrometheusMiddleware(newService(t), reg)

	exercise(t, svc)

	assert.Equal(t, 1.0, counterValue(t, reg, "mindscore_calls_total", map[string]string{"method": "Record", "outcome": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "mindscore_calls_total", map[string]string{"method": "Record", "outcome": "error"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "mindscore_results_recorded_total", map[string]string{"test_type": catalog.Reflex}))
	assert.Equal(t, 1.0, counterValue(t, reg, "mindscore_results_deleted_total", nil))
}
