package backend

import (
	"slices"

	"github.com/hyp3rd/mindscore/pkg/result"
)

// IFilter is a backend agnostic narrowing of a listing. Filters only describe the
// query; each backend decides whether to push it down (SQL, Redis index sets) or
// evaluate it in process.
type IFilter interface {
	ApplyFilter(q *Query)
}

// Query is the resolved form of a set of filters.
type Query struct {
	TestType  string // empty: every test type
	UserID    string // empty: every user
	UserOnly  bool   // only results tied to a user
	Ascending bool   // oldest first
	Limit     int    // 0: no limit
}

type filterFunc func(q *Query)

func (f filterFunc) ApplyFilter(q *Query) { f(q) }

// WithTestType narrows the listing to one test type.
func WithTestType(testType string) IFilter {
	return filterFunc(func(q *Query) { q.TestType = testType })
}

// WithUserID narrows the listing to one user. An empty id leaves the listing global.
func WithUserID(userID string) IFilter {
	return filterFunc(func(q *Query) { q.UserID = userID })
}

// WithUserOnly keeps only results tied to some user.
func WithUserOnly() IFilter {
	return filterFunc(func(q *Query) { q.UserOnly = true })
}

// WithSortOrderAsc returns a filter that determines whether to sort ascending (oldest first) or not.
func WithSortOrderAsc(ascending bool) IFilter {
	return filterFunc(func(q *Query) { q.Ascending = ascending })
}

// WithLimit caps the number of returned results. Negative limits are ignored.
func WithLimit(limit int) IFilter {
	return filterFunc(func(q *Query) {
		if limit >= 0 {
			q.Limit = limit
		}
	})
}

// NewQuery resolves filters into a Query.
func NewQuery(filters ...IFilter) Query {
	var q Query

	for _, filter := range filters {
		if filter != nil {
			filter.ApplyFilter(&q)
		}
	}

	return q
}

// Match reports whether res satisfies the query predicates.
func (q Query) Match(res *result.Result) bool {
	if q.TestType != "" && res.TestType != q.TestType {
		return false
	}

	if q.UserID != "" && res.UserID != q.UserID {
		return false
	}

	if q.UserOnly && res.Anonymous() {
		return false
	}

	return true
}

// Finish orders items by timestamp and applies the limit. items is sorted in place.
func (q Query) Finish(items []*result.Result) []*result.Result {
	slices.SortStableFunc(items, func(a, b *result.Result) int {
		if q.Ascending {
			return a.Timestamp.Compare(b.Timestamp)
		}

		return b.Timestamp.Compare(a.Timestamp)
	})

	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}

	return items
}

// selectIn filters items with the query predicates and finishes the listing.
func (q Query) selectIn(items []*result.Result) []*result.Result {
	out := make([]*result.Result, 0, len(items))

	for _, res := range items {
		if q.Match(res) {
			out = append(out, res)
		}
	}

	return q.Finish(out)
}
