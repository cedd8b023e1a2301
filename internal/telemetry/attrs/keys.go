// Package attrs defines the telemetry attribute keys shared by the tracing and
// metrics middlewares, so spans and instruments use the same names.
package attrs

const (
	// AttrTestType is the catalog test type an operation works on.
	AttrTestType = "test.type"
	// AttrScope tells whether a listing is scoped to one user or global.
	AttrScope = "scope"
	// AttrHasUser records whether the operation carried a user id. The id itself is
	// never attached to telemetry.
	AttrHasUser = "user.present"
	// AttrResultCount is the number of results returned by a listing.
	AttrResultCount = "result.count"
	// AttrDeletedCount is the number of results removed by a delete.
	AttrDeletedCount = "deleted.count"
	// AttrTestsCount is the number of test cards in an overview.
	AttrTestsCount = "tests.count"
)
