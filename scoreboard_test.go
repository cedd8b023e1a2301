package mindscore

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/mindscore/internal/constants"
	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/backend"
	"github.com/hyp3rd/mindscore/pkg/catalog"
	"github.com/hyp3rd/mindscore/pkg/result"
	"github.com/hyp3rd/mindscore/pkg/stats"
	"github.com/hyp3rd/mindscore/pkg/statscache"
)

var epoch = time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)

// tickingClock advances one second per call so that recording order is listing order.
func tickingClock() func() time.Time {
	var mu sync.Mutex

	now := epoch

	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		now = now.Add(time.Second)

		return now
	}
}

func newScoreBoard(t *testing.T, opts ...Option[backend.InMemory]) *ScoreBoard[backend.InMemory] {
	t.Helper()

	cfg := NewConfig[backend.InMemory](constants.InMemoryBackend)
	cfg.ScoreBoardOptions = append(cfg.ScoreBoardOptions, WithClock[backend.InMemory](tickingClock()))
	cfg.ScoreBoardOptions = append(cfg.ScoreBoardOptions, opts...)

	sb, err := New(context.Background(), GetDefaultManager(), cfg)
	assert.NoError(t, err)

	t.Cleanup(func() { _ = sb.Stop(context.Background()) })

	return sb
}

func record(t *testing.T, sb Service, req RecordRequest) *result.Result {
	t.Helper()

	res, err := sb.Record(context.Background(), req)
	assert.NoError(t, err)

	return res
}

func TestNew_BackendResolution(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, NewEmptyBackendManager(), NewConfig[backend.InMemory](constants.InMemoryBackend))
	assert.True(t, errors.Is(err, sentinel.ErrBackendNotFound))

	_, err = New(ctx, GetDefaultManager(), NewConfig[backend.InMemory](constants.SQLBackend))
	assert.True(t, errors.Is(err, sentinel.ErrInvalidBackendType))

	_, err = New[backend.InMemory](ctx, GetDefaultManager(), nil)
	assert.True(t, errors.Is(err, sentinel.ErrParamCannotBeEmpty))

	bm := NewEmptyBackendManager()
	bm.RegisterBackend("memory", InMemoryBackendConstructor{})

	sb, err := New(ctx, bm, NewConfig[backend.InMemory]("memory"))
	assert.NoError(t, err)
	assert.NoError(t, sb.Stop(ctx))
}

func TestScoreBoard_Record(t *testing.T) {
	ctx := context.Background()
	sb := newScoreBoard(t, WithIDGenerator[backend.InMemory](func() string { return "fixed" }))

	res := record(t, sb, RecordRequest{TestType: catalog.Reflex, UserID: " u1 ", ReactionTime: result.Float(231)})
	assert.Equal(t, "fixed", res.ID)
	assert.Equal(t, "u1", res.UserID)
	assert.True(t, res.Timestamp.Equal(epoch.Add(time.Second)))

	_, err := sb.Record(ctx, RecordRequest{TestType: "tetris", Score: result.Float(1)})
	assert.True(t, errors.Is(err, sentinel.ErrUnknownTestType))

	_, err = sb.Record(ctx, RecordRequest{TestType: catalog.Reflex, Score: result.Float(231)})
	assert.True(t, errors.Is(err, sentinel.ErrInvalidScore))

	_, err = sb.Record(ctx, RecordRequest{TestType: catalog.ChimpTest, Score: result.Float(math.Inf(1))})
	assert.True(t, errors.Is(err, sentinel.ErrInvalidScore))

	_, err = sb.Record(ctx, RecordRequest{TestType: catalog.TypingSpeed, WPM: result.Float(60), Accuracy: result.Float(-1)})
	assert.True(t, errors.Is(err, sentinel.ErrInvalidAccuracy))

	n, err := sb.Count(ctx, "", false)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScoreBoard_RecordTypingScoreFallback(t *testing.T) {
	sb := newScoreBoard(t)

	res := record(t, sb, RecordRequest{TestType: catalog.TypingSpeed, Score: result.Float(64), Accuracy: result.Float(95)})
	assert.Equal(t, 64.0, *res.WPM)
	assert.True(t, res.Score == nil)

	computed, err := sb.Stats(context.Background(), catalog.TypingSpeed, "")
	assert.NoError(t, err)
	assert.Equal(t, 1, computed.TotalCount)
	assert.Equal(t, 64.0, computed.Best)
}

func TestScoreBoard_List(t *testing.T) {
	ctx := context.Background()
	sb := newScoreBoard(t)

	first := record(t, sb, RecordRequest{TestType: catalog.ChimpTest, UserID: "u1", Score: result.Float(5)})
	second := record(t, sb, RecordRequest{TestType: catalog.ChimpTest, UserID: "u2", Score: result.Float(6)})
	third := record(t, sb, RecordRequest{TestType: catalog.ChimpTest, Score: result.Float(7)})

	items, err := sb.List(ctx, catalog.ChimpTest, "u1", ScopeUser)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(items))
	assert.Equal(t, first.ID, items[0].ID)

	// a user scope without a user lists everybody
	items, err = sb.List(ctx, catalog.ChimpTest, "", ScopeUser)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(items))

	items, err = sb.List(ctx, catalog.ChimpTest, "u1", ScopeGlobal)
	assert.NoError(t, err)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{items[0].ID, items[1].ID, items[2].ID})

	_, err = sb.List(ctx, "tetris", "", ScopeGlobal)
	assert.True(t, errors.Is(err, sentinel.ErrUnknownTestType))

	n, err := sb.Count(ctx, catalog.ChimpTest, true)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestParseScope(t *testing.T) {
	assert.Equal(t, ScopeGlobal, ParseScope("global"))
	assert.Equal(t, ScopeGlobal, ParseScope(" Global "))
	assert.Equal(t, ScopeUser, ParseScope(""))
	assert.Equal(t, ScopeUser, ParseScope("whatever"))
}

func TestScoreBoard_Deletes(t *testing.T) {
	ctx := context.Background()
	sb := newScoreBoard(t)

	record(t, sb, RecordRequest{TestType: catalog.ChimpTest, UserID: "u1", Score: result.Float(5)})
	record(t, sb, RecordRequest{TestType: catalog.Reflex, UserID: "u1", ReactionTime: result.Float(250)})
	record(t, sb, RecordRequest{TestType: catalog.Reflex, UserID: "u1", ReactionTime: result.Float(240)})
	record(t, sb, RecordRequest{TestType: catalog.Reflex, UserID: "u2", ReactionTime: result.Float(260)})

	_, err := sb.DeleteResults(ctx, catalog.Reflex, "  ")
	assert.True(t, errors.Is(err, sentinel.ErrUserIDRequired))

	_, err = sb.DeleteResults(ctx, "tetris", "u1")
	assert.True(t, errors.Is(err, sentinel.ErrUnknownTestType))

	deleted, err := sb.DeleteResults(ctx, catalog.Reflex, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = sb.ResetUser(ctx, "")
	assert.True(t, errors.Is(err, sentinel.ErrUserIDRequired))

	deleted, err = sb.ResetUser(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 1, deleted)

	n, err := sb.Count(ctx, "", false)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScoreBoard_AllGameData(t *testing.T) {
	ctx := context.Background()
	sb := newScoreBoard(t)

	older := record(t, sb, RecordRequest{TestType: catalog.Reflex, UserID: "u1", ReactionTime: result.Float(250)})
	newer := record(t, sb, RecordRequest{TestType: catalog.Reflex, UserID: "u1", ReactionTime: result.Float(240)})
	record(t, sb, RecordRequest{TestType: catalog.Reflex, UserID: "u2", ReactionTime: result.Float(260)})

	_, err := sb.AllGameData(ctx, "")
	assert.True(t, errors.Is(err, sentinel.ErrUserIDRequired))

	grouped, err := sb.AllGameData(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, len(catalog.Names()), len(grouped))
	assert.Equal(t, 0, len(grouped[catalog.ChimpTest]))
	assert.True(t, grouped[catalog.ChimpTest] != nil)
	assert.Equal(t, 2, len(grouped[catalog.Reflex]))
	assert.Equal(t, newer.ID, grouped[catalog.Reflex][0].ID)
	assert.Equal(t, older.ID, grouped[catalog.Reflex][1].ID)
}

func TestScoreBoard_Overview(t *testing.T) {
	ctx := context.Background()
	sb := newScoreBoard(t)

	reactionTimes := []float64{210, 220, 215, 225, 230, 218, 222, 600, 219, 221, 217, 223}
	for i, rt := range reactionTimes {
		record(t, sb, RecordRequest{TestType: catalog.Reflex, UserID: "player-" + strconv.Itoa(i), ReactionTime: result.Float(rt)})
	}

	record(t, sb, RecordRequest{TestType: catalog.ChimpTest, UserID: "me", Score: result.Float(7)})
	record(t, sb, RecordRequest{TestType: catalog.ChimpTest, UserID: "me", Score: result.Float(9)})

	_, err := sb.Overview(ctx, "")
	assert.True(t, errors.Is(err, sentinel.ErrUserIDRequired))

	cards, err := sb.Overview(ctx, "me")
	assert.NoError(t, err)
	assert.Equal(t, len(catalog.Names()), len(cards))

	for i, name := range catalog.Names() {
		assert.Equal(t, name, cards[i].TestType)
	}

	reflex := cards[len(cards)-1]
	assert.True(t, reflex.LowerIsBetter)
	assert.True(t, reflex.User.Empty())
	assert.True(t, reflex.Trend == nil)
	assert.Equal(t, 12, reflex.Global.TotalCount)
	assert.Equal(t, 11, reflex.Global.FilteredCount)
	assert.Equal(t, 1, reflex.Global.RemovedOutliers)
	assert.Equal(t, 210.0, reflex.Global.Best)
	assert.Equal(t, 230.0, reflex.Global.Worst)

	chimp := cards[0]
	assert.Equal(t, 2, chimp.User.TotalCount)
	assert.Equal(t, 9.0, chimp.User.Best)
	assert.Equal(t, 7.0, chimp.User.Worst)
	assert.Equal(t, 8.0, chimp.User.Median)
	assert.True(t, chimp.Trend != nil)
	assert.Equal(t, 9.0, chimp.Trend.Latest)
	assert.Equal(t, 7.0, chimp.Trend.Previous)
	assert.True(t, chimp.Trend.Improved())

	assert.True(t, cards[1].Global.Empty())
}

func TestScoreBoard_OverviewCanceled(t *testing.T) {
	sb := newScoreBoard(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sb.Overview(ctx, "me")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestApplyMiddleware_Order(t *testing.T) {
	var calls []string

	tag := func(name string) Middleware {
		return func(next Service) Service {
			calls = append(calls, name)

			return next
		}
	}

	sb := newScoreBoard(t)
	svc := ApplyMiddleware(sb, tag("first"), tag("second"))

	assert.Equal(t, []string{"first", "second"}, calls)
	assert.True(t, svc == Service(sb))
}

func TestScoreBoard_StatsCache(t *testing.T) {
	ctx := context.Background()

	cache, err := statscache.New(16, time.Minute)
	assert.NoError(t, err)

	sb := newScoreBoard(t, WithStatsCache[backend.InMemory](cache))

	record(t, sb, RecordRequest{TestType: catalog.Reflex, UserID: "u1", ReactionTime: result.Float(200)})

	computed, err := sb.Stats(ctx, catalog.Reflex, "")
	assert.NoError(t, err)
	assert.Equal(t, 1, computed.TotalCount)
	assert.Equal(t, 1, cache.Len())

	// a cached summary is served as is
	planted := stats.Computed{TotalCount: 42}
	cache.Set(statscache.Key{TestType: catalog.Reflex}, planted)

	computed, err = sb.Stats(ctx, catalog.Reflex, "")
	assert.NoError(t, err)
	assert.Equal(t, planted, computed)

	// recording invalidates the test type
	record(t, sb, RecordRequest{TestType: catalog.Reflex, UserID: "u2", ReactionTime: result.Float(260)})

	computed, err = sb.Stats(ctx, catalog.Reflex, "")
	assert.NoError(t, err)
	assert.Equal(t, 2, computed.TotalCount)
	assert.Equal(t, 230.0, computed.Average)

	cards, err := sb.Overview(ctx, "u1")
	assert.NoError(t, err)

	for _, card := range cards {
		if card.TestType == catalog.Reflex {
			assert.Equal(t, 2, card.Global.TotalCount)
			assert.Equal(t, 1, card.User.TotalCount)
		}
	}

	deleted, err := sb.ResetUser(ctx, "u2")
	assert.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 0, cache.Len())

	computed, err = sb.Stats(ctx, catalog.Reflex, "")
	assert.NoError(t, err)
	assert.Equal(t, 1, computed.TotalCount)
}
