// Package result defines the record produced by one completed round of one test.
//
// Results are immutable: backends create them, list them and delete them in bulk, but
// never update one in place.
package result

import (
	"math"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/catalog"
)

const maxAccuracy = 100

// Result is a single recorded round. Only the field named by the test's catalog
// definition is required; the other measurement fields are optional.
type Result struct {
	ID           string    `json:"id"                     msgpack:"id"           codec:"id"`
	UserID       string    `json:"userId,omitempty"       msgpack:"userId"       codec:"userId"` // empty for anonymous players
	TestType     string    `json:"testType"               msgpack:"testType"     codec:"testType"`
	Score        *float64  `json:"score,omitempty"        msgpack:"score"        codec:"score"`
	WPM          *float64  `json:"wpm,omitempty"          msgpack:"wpm"          codec:"wpm"`
	Accuracy     *float64  `json:"accuracy,omitempty"     msgpack:"accuracy"     codec:"accuracy"`
	ReactionTime *float64  `json:"reactionTime,omitempty" msgpack:"reactionTime" codec:"reactionTime"`
	Timestamp    time.Time `json:"timestamp"              msgpack:"timestamp"    codec:"timestamp"`
}

// Float returns a pointer to v, handy to fill the optional fields.
func Float(v float64) *float64 { return &v }

// Clone returns a deep copy of r; the optional fields do not alias.
func (r *Result) Clone() *Result {
	cloned := *r
	cloned.Score = clonePtr(r.Score)
	cloned.WPM = clonePtr(r.WPM)
	cloned.Accuracy = clonePtr(r.Accuracy)
	cloned.ReactionTime = clonePtr(r.ReactionTime)

	return &cloned
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}

	return Float(*v)
}

// Anonymous reports whether the result is not tied to a user.
func (r *Result) Anonymous() bool { return strings.TrimSpace(r.UserID) == "" }

// Field returns the raw pointer stored for field, nil when unset.
func (r *Result) Field(field catalog.ValueField) *float64 {
	switch field {
	case catalog.FieldScore:
		return r.Score
	case catalog.FieldWPM:
		return r.WPM
	case catalog.FieldReactionTime:
		return r.ReactionTime
	default:
		return nil
	}
}

// Value reads field and reports whether it holds a usable number (set and finite).
func (r *Result) Value(field catalog.ValueField) (float64, bool) {
	p := r.Field(field)
	if p == nil || !finite(*p) {
		return 0, false
	}

	return *p, true
}

// Valid returns an error if the result cannot be stored, nil otherwise.
func (r *Result) Valid() error {
	def, ok := catalog.Lookup(r.TestType)
	if !ok {
		return ewrap.Wrap(sentinel.ErrUnknownTestType, r.TestType)
	}

	if strings.TrimSpace(r.ID) == "" || r.Timestamp.IsZero() {
		return sentinel.ErrInvalidResult
	}

	if _, ok := r.Value(def.ValueField); !ok {
		return ewrap.Wrap(sentinel.ErrInvalidScore, string(def.ValueField))
	}

	if r.Accuracy != nil && (!finite(*r.Accuracy) || *r.Accuracy < 0 || *r.Accuracy > maxAccuracy) {
		return sentinel.ErrInvalidAccuracy
	}

	return nil
}

// Values extracts field from every result, dropping the ones without a usable value.
// The order of results is kept.
func Values(results []*Result, field catalog.ValueField) []float64 {
	values := make([]float64, 0, len(results))

	for _, r := range results {
		if v, ok := r.Value(field); ok {
			values = append(values, v)
		}
	}

	return values
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
