package backend

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/mindscore/pkg/catalog"
	"github.com/hyp3rd/mindscore/pkg/result"
)

func newSQL(t *testing.T, opts ...Option[SQL]) IBackend[SQL] {
	t.Helper()

	opts = append([]Option[SQL]{WithDatabasePath(filepath.Join(t.TempDir(), "db", "test.db"))}, opts...)

	s, err := NewSQL(opts...)
	assert.NoError(t, err)

	return s
}

func TestSQL(t *testing.T) {
	exerciseBackend(t, newSQL(t))
}

func TestSQL_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	first, err := NewSQL(WithDatabasePath(path))
	assert.NoError(t, err)

	seed(t, first)
	assert.NoError(t, first.Close())

	second, err := NewSQL(WithDatabasePath(path))
	assert.NoError(t, err)

	defer second.Close()

	sqlStore, ok := second.(*SQL)
	assert.True(t, ok)

	n, err := RunMigrations(sqlStore.sess)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 4, count(t, second))
}

func TestSQL_KeepsOptionalFields(t *testing.T) {
	ctx := context.Background()
	s := newSQL(t)

	defer s.Close()

	res := &result.Result{
		ID:        "t1",
		UserID:    "u1",
		TestType:  catalog.TypingSpeed,
		WPM:       result.Float(72.5),
		Accuracy:  result.Float(96),
		Timestamp: time.UnixMilli(1700000000123),
	}
	assert.NoError(t, s.Create(ctx, res))

	items, err := s.List(ctx, WithTestType(catalog.TypingSpeed))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(items))
	assert.Equal(t, 72.5, *items[0].WPM)
	assert.Equal(t, 96.0, *items[0].Accuracy)
	assert.True(t, items[0].Score == nil)
	assert.True(t, items[0].ReactionTime == nil)
	assert.True(t, items[0].Timestamp.Equal(res.Timestamp))
}

func TestSQL_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := newSQL(t)

	defer s.Close()

	const writers = 8

	var wg sync.WaitGroup

	errs := make(chan error, writers)

	for i := range writers {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			errs <- s.Create(ctx, &result.Result{
				ID:        "w" + string(rune('a'+i)),
				TestType:  catalog.VisualMemory,
				Score:     result.Float(float64(i)),
				Timestamp: base.Add(time.Duration(i) * time.Second),
			})
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	assert.Equal(t, writers, count(t, s, WithTestType(catalog.VisualMemory)))
}
