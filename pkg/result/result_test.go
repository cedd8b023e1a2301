package result

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/catalog"
)

func newReflex(rt float64) *Result {
	return &Result{
		ID:           "r1",
		TestType:     catalog.Reflex,
		ReactionTime: Float(rt),
		Timestamp:    time.Now(),
	}
}

func TestResult_Valid(t *testing.T) {
	assert.NoError(t, newReflex(231).Valid())

	unknown := newReflex(231)
	unknown.TestType = "tetris"
	assert.True(t, errors.Is(unknown.Valid(), sentinel.ErrUnknownTestType))

	noID := newReflex(231)
	noID.ID = " "
	assert.True(t, errors.Is(noID.Valid(), sentinel.ErrInvalidResult))

	// a reflex result carries its value in reactionTime, not score
	wrongField := &Result{ID: "x", TestType: catalog.Reflex, Score: Float(3), Timestamp: time.Now()}
	assert.True(t, errors.Is(wrongField.Valid(), sentinel.ErrInvalidScore))

	nan := newReflex(math.NaN())
	assert.True(t, errors.Is(nan.Valid(), sentinel.ErrInvalidScore))

	typing := &Result{ID: "t", TestType: catalog.TypingSpeed, WPM: Float(72), Accuracy: Float(101), Timestamp: time.Now()}
	assert.True(t, errors.Is(typing.Valid(), sentinel.ErrInvalidAccuracy))

	typing.Accuracy = Float(97.5)
	assert.NoError(t, typing.Valid())
}

func TestValues_SkipsUnusable(t *testing.T) {
	results := []*Result{
		{Score: Float(3)},
		{Score: nil},
		{Score: Float(math.Inf(1))},
		{Score: Float(7)},
		{WPM: Float(80)},
	}

	assert.Equal(t, []float64{3, 7}, Values(results, catalog.FieldScore))
	assert.Equal(t, []float64{80}, Values(results, catalog.FieldWPM))
	assert.Equal(t, []float64{}, Values(nil, catalog.FieldReactionTime))
}

func TestResult_Anonymous(t *testing.T) {
	assert.True(t, (&Result{}).Anonymous())
	assert.False(t, (&Result{UserID: "u-1"}).Anonymous())
}

func TestResult_Clone(t *testing.T) {
	orig := &Result{ID: "t", TestType: catalog.TypingSpeed, WPM: Float(72), Accuracy: Float(97), Timestamp: time.Now()}

	cloned := orig.Clone()
	*cloned.WPM = 10
	*cloned.Accuracy = 20

	assert.Equal(t, 72.0, *orig.WPM)
	assert.Equal(t, 97.0, *orig.Accuracy)
	assert.True(t, cloned.Score == nil)
	assert.True(t, cloned.ReactionTime == nil)
}
