package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/catalog"
	"github.com/hyp3rd/mindscore/pkg/result"
)

type store interface {
	Create(ctx context.Context, res *result.Result) error
	List(ctx context.Context, filters ...IFilter) ([]*result.Result, error)
	DeleteByUser(ctx context.Context, userID string, testTypes ...string) (int, error)
	Count(ctx context.Context, filters ...IFilter) (int, error)
	Close() error
}

var base = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

func seed(t *testing.T, s store) {
	t.Helper()

	ctx := context.Background()
	fixtures := []*result.Result{
		{ID: "r1", UserID: "u1", TestType: catalog.Reflex, ReactionTime: result.Float(200), Timestamp: base.Add(1 * time.Second)},
		{ID: "r2", UserID: "u2", TestType: catalog.Reflex, ReactionTime: result.Float(250), Timestamp: base.Add(2 * time.Second)},
		{ID: "r3", TestType: catalog.Reflex, ReactionTime: result.Float(300), Timestamp: base.Add(3 * time.Second)},
		{ID: "c1", UserID: "u1", TestType: catalog.ChimpTest, Score: result.Float(7), Timestamp: base.Add(4 * time.Second)},
	}

	for _, res := range fixtures {
		assert.NoError(t, s.Create(ctx, res))
	}
}

func ids(items []*result.Result) []string {
	out := make([]string, 0, len(items))
	for _, res := range items {
		out = append(out, res.ID)
	}

	return out
}

func listIDs(t *testing.T, s store, filters ...IFilter) []string {
	t.Helper()

	items, err := s.List(context.Background(), filters...)
	assert.NoError(t, err)

	return ids(items)
}

func count(t *testing.T, s store, filters ...IFilter) int {
	t.Helper()

	n, err := s.Count(context.Background(), filters...)
	assert.NoError(t, err)

	return n
}

// exerciseBackend runs the behaviour every backend must share.
func exerciseBackend(t *testing.T, s store) {
	t.Helper()

	ctx := context.Background()

	seed(t, s)

	assert.Equal(t, []string{"r3", "r2", "r1"}, listIDs(t, s, WithTestType(catalog.Reflex)))
	assert.Equal(t, []string{"r1", "r2", "r3"}, listIDs(t, s, WithTestType(catalog.Reflex), WithSortOrderAsc(true)))
	assert.Equal(t, []string{"r3", "r2"}, listIDs(t, s, WithTestType(catalog.Reflex), WithLimit(2)))
	assert.Equal(t, []string{"c1", "r1"}, listIDs(t, s, WithUserID("u1")))
	assert.Equal(t, []string{"r2", "r1"}, listIDs(t, s, WithTestType(catalog.Reflex), WithUserOnly()))
	assert.Equal(t, []string{}, listIDs(t, s, WithTestType(catalog.SymbolMemory)))

	assert.Equal(t, 3, count(t, s, WithTestType(catalog.Reflex), WithLimit(1)))
	assert.Equal(t, 4, count(t, s))

	items, err := s.List(ctx, WithTestType(catalog.Reflex), WithLimit(1))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(items))
	assert.True(t, items[0].Anonymous())
	assert.Equal(t, 300.0, *items[0].ReactionTime)
	assert.True(t, items[0].Score == nil)
	assert.True(t, items[0].Timestamp.Equal(base.Add(3*time.Second)))

	err = s.Create(ctx, &result.Result{ID: "x", TestType: "tetris", Score: result.Float(1), Timestamp: base})
	assert.True(t, errors.Is(err, sentinel.ErrUnknownTestType))

	err = s.Create(ctx, &result.Result{ID: "x", TestType: catalog.Reflex, Timestamp: base})
	assert.True(t, errors.Is(err, sentinel.ErrInvalidScore))

	_, err = s.DeleteByUser(ctx, "")
	assert.True(t, errors.Is(err, sentinel.ErrUserIDRequired))

	deleted, err := s.DeleteByUser(ctx, "u1", catalog.Reflex)
	assert.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, []string{"c1"}, listIDs(t, s, WithUserID("u1")))

	deleted, err = s.DeleteByUser(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 0, count(t, s, WithUserID("u1")))

	deleted, err = s.DeleteByUser(ctx, "nobody")
	assert.NoError(t, err)
	assert.Equal(t, 0, deleted)

	assert.Equal(t, []string{"r3", "r2"}, listIDs(t, s))
	assert.NoError(t, s.Close())
}

func TestInMemory(t *testing.T) {
	s, err := NewInMemory(WithShardCount(3))
	assert.NoError(t, err)

	exerciseBackend(t, s)
}

func TestInMemory_InvalidShardCount(t *testing.T) {
	_, err := NewInMemory(WithShardCount(0))
	assert.True(t, err != nil)
}

func TestInMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()

	s, err := NewInMemory()
	assert.NoError(t, err)

	res := &result.Result{ID: "a", TestType: catalog.ChimpTest, Score: result.Float(5), Timestamp: base}
	assert.NoError(t, s.Create(ctx, res))

	res.UserID = "changed"
	*res.Score = 99

	items, err := s.List(ctx)
	assert.NoError(t, err)
	assert.True(t, items[0].Anonymous())
	assert.Equal(t, 5.0, *items[0].Score)

	items[0].UserID = "changed again"
	*items[0].Score = 42

	again, err := s.List(ctx)
	assert.NoError(t, err)
	assert.True(t, again[0].Anonymous())
	assert.Equal(t, 5.0, *again[0].Score)
}

func TestInMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := NewInMemory()
	assert.NoError(t, err)

	_, err = s.List(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

// the success paths must hand back an untyped nil, not a nil *ewrap.Error
func TestPersistentBackends_SuccessReturnsNil(t *testing.T) {
	stores := map[string]func(t *testing.T) store{
		"sql": func(t *testing.T) store { return newSQL(t) },
		"json-file": func(t *testing.T) store {
			s, err := NewJSONFile(WithDataDir(t.TempDir()))
			assert.NoError(t, err)

			return s
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			err := s.Create(ctx, &result.Result{ID: "n1", UserID: "u1", TestType: catalog.Reflex, ReactionTime: result.Float(210), Timestamp: base})
			assert.True(t, err == nil)

			items, err := s.List(ctx, WithUserID("u1"))
			assert.True(t, err == nil)
			assert.Equal(t, 1, len(items))

			deleted, err := s.DeleteByUser(ctx, "u1", catalog.Reflex)
			assert.True(t, err == nil)
			assert.Equal(t, 1, deleted)

			assert.True(t, s.Close() == nil)
		})
	}
}
