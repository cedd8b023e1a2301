// Package mindscore records the scores of cognitive mini-games and compares each
// player against the population with outlier-filtered statistics.
//
// A ScoreBoard is generic over its storage backend, built through a BackendManager
// registry from a Config:
//
//	sb, err := mindscore.New(ctx, mindscore.GetDefaultManager(), mindscore.NewConfig[backend.SQL](constants.SQLBackend))
//
// It implements Service, so it can be decorated with the middlewares of
// pkg/middleware and served over HTTP by APIHTTPServer.
package mindscore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyp3rd/ewrap"
	"golang.org/x/sync/errgroup"

	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/backend"
	"github.com/hyp3rd/mindscore/pkg/catalog"
	"github.com/hyp3rd/mindscore/pkg/result"
	"github.com/hyp3rd/mindscore/pkg/stats"
	"github.com/hyp3rd/mindscore/pkg/statscache"
)

// Scope selects whose results a listing returns.
type Scope string

const (
	// ScopeUser lists the results of one user. Without a user id it lists everybody.
	ScopeUser Scope = "user"
	// ScopeGlobal lists the results of everybody.
	ScopeGlobal Scope = "global"
)

// ParseScope maps the `type` query value to a Scope; anything but "global" is ScopeUser.
func ParseScope(s string) Scope {
	if strings.EqualFold(strings.TrimSpace(s), string(ScopeGlobal)) {
		return ScopeGlobal
	}

	return ScopeUser
}

// RecordRequest carries one completed round. Only the field the test is scored on is
// required; the typing test also accepts its speed in Score.
type RecordRequest struct {
	TestType     string   `json:"testType"`
	UserID       string   `json:"userId,omitempty"`
	Score        *float64 `json:"score,omitempty"`
	WPM          *float64 `json:"wpm,omitempty"`
	Accuracy     *float64 `json:"accuracy,omitempty"`
	ReactionTime *float64 `json:"reactionTime,omitempty"`
}

// TestOverview is one card of the dashboard: the user and the population side by side.
type TestOverview struct {
	catalog.Definition

	User   stats.Computed `json:"user"`
	Global stats.Computed `json:"global"`
	// Trend compares the user's two latest rounds, nil when not worth showing.
	Trend *stats.Trend `json:"trend,omitempty"`
}

var _ Service = (*ScoreBoard[backend.InMemory])(nil)

// ScoreBoard is the Service implementation over a storage backend.
type ScoreBoard[T backend.IBackendConstrain] struct {
	backend backend.IBackend[T]
	now     func() time.Time
	newID   func() string
	apiHTTP *APIHTTPServer
	cache   *statscache.Cache
}

// New builds the backend registered as config.BackendType and returns a ScoreBoard on it.
func New[T backend.IBackendConstrain](ctx context.Context, bm *BackendManager, config *Config[T]) (*ScoreBoard[T], error) {
	if config == nil {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "config")
	}

	be, err := resolveBackend(ctx, bm, config)
	if err != nil {
		return nil, err
	}

	sb := &ScoreBoard[T]{
		backend: be,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}

	ApplyScoreBoardOptions(sb, config.ScoreBoardOptions...)

	if sb.apiHTTP != nil {
		err = sb.apiHTTP.Start(ctx, sb)
		if err != nil {
			_ = be.Close()

			return nil, err
		}
	}

	return sb, nil
}

// APIHTTPAddress returns the bound address of the HTTP API, empty when not enabled.
func (sb *ScoreBoard[T]) APIHTTPAddress() string {
	if sb.apiHTTP == nil {
		return ""
	}

	return sb.apiHTTP.Address()
}

// Record validates req and stores it with a fresh id and timestamp.
func (sb *ScoreBoard[T]) Record(ctx context.Context, req RecordRequest) (*result.Result, error) {
	def, err := definition(req.TestType)
	if err != nil {
		return nil, err
	}

	res := &result.Result{
		ID:           sb.newID(),
		UserID:       strings.TrimSpace(req.UserID),
		TestType:     def.TestType,
		Score:        req.Score,
		WPM:          req.WPM,
		Accuracy:     req.Accuracy,
		ReactionTime: req.ReactionTime,
		Timestamp:    sb.now(),
	}

	if def.ValueField == catalog.FieldWPM && res.WPM == nil {
		res.WPM, res.Score = res.Score, nil
	}

	err = res.Valid()
	if err != nil {
		return nil, err
	}

	err = sb.backend.Create(ctx, res)
	if err != nil {
		return nil, ewrap.Wrapf(err, "recording %s result", def.TestType)
	}

	sb.invalidate(def.TestType)

	return res, nil
}

// List returns the results of testType, newest first.
func (sb *ScoreBoard[T]) List(ctx context.Context, testType, userID string, scope Scope) ([]*result.Result, error) {
	def, err := definition(testType)
	if err != nil {
		return nil, err
	}

	filters := []backend.IFilter{backend.WithTestType(def.TestType)}
	if scope != ScopeGlobal {
		filters = append(filters, backend.WithUserID(strings.TrimSpace(userID)))
	}

	return sb.backend.List(ctx, filters...)
}

// DeleteResults removes the results of userID for testType and returns how many went.
func (sb *ScoreBoard[T]) DeleteResults(ctx context.Context, testType, userID string) (int, error) {
	def, err := definition(testType)
	if err != nil {
		return 0, err
	}

	userID, err = requireUser(userID)
	if err != nil {
		return 0, err
	}

	deleted, err := sb.backend.DeleteByUser(ctx, userID, def.TestType)
	if deleted > 0 {
		sb.invalidate(def.TestType)
	}

	return deleted, err
}

// ResetUser removes every result of userID.
func (sb *ScoreBoard[T]) ResetUser(ctx context.Context, userID string) (int, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return 0, err
	}

	deleted, err := sb.backend.DeleteByUser(ctx, userID)
	if deleted > 0 && sb.cache != nil {
		sb.cache.Purge()
	}

	return deleted, err
}

// AllGameData groups the results of userID by test type, newest first. Every known test
// has an entry, empty when the user never played it.
func (sb *ScoreBoard[T]) AllGameData(ctx context.Context, userID string) (map[string][]*result.Result, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}

	items, err := sb.backend.List(ctx, backend.WithUserID(userID))
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]*result.Result, len(catalog.Names()))
	for _, testType := range catalog.Names() {
		grouped[testType] = []*result.Result{}
	}

	for _, res := range items {
		if _, ok := grouped[res.TestType]; ok {
			grouped[res.TestType] = append(grouped[res.TestType], res)
		}
	}

	return grouped, nil
}

// Overview computes the user and global statistics of every test. Tests are fetched in
// parallel, and for each test the user and global listings are fetched in parallel too.
func (sb *ScoreBoard[T]) Overview(ctx context.Context, userID string) ([]TestOverview, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}

	defs := catalog.All()
	out := make([]TestOverview, len(defs))

	group, gctx := errgroup.WithContext(ctx)

	for i, def := range defs {
		group.Go(func() error {
			card, err := sb.overview(gctx, def, userID)
			if err != nil {
				return ewrap.Wrapf(err, "overview of %s", def.TestType)
			}

			out[i] = card

			return nil
		})
	}

	err = group.Wait()
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (sb *ScoreBoard[T]) overview(ctx context.Context, def catalog.Definition, userID string) (TestOverview, error) {
	var (
		userRows []*result.Result
		global   stats.Computed
	)

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		var err error

		userRows, err = sb.backend.List(gctx, backend.WithTestType(def.TestType), backend.WithUserID(userID))

		return err
	})

	group.Go(func() error {
		var err error

		global, err = sb.computed(gctx, def, "")

		return err
	})

	err := group.Wait()
	if err != nil {
		return TestOverview{}, err
	}

	userValues := result.Values(userRows, def.ValueField)

	card := TestOverview{
		Definition: def,
		User:       stats.Compute(userValues, def.LowerIsBetter),
		Global:     global,
	}

	if trend, ok := stats.ComputeTrend(userValues, def.LowerIsBetter); ok {
		card.Trend = &trend
	}

	return card, nil
}

// Stats summarizes the values of testType for userID, or for everybody when userID is empty.
func (sb *ScoreBoard[T]) Stats(ctx context.Context, testType, userID string) (stats.Computed, error) {
	def, err := definition(testType)
	if err != nil {
		return stats.Computed{}, err
	}

	return sb.computed(ctx, def, strings.TrimSpace(userID))
}

// computed summarizes the values of def for userID, through the stats cache when enabled.
func (sb *ScoreBoard[T]) computed(ctx context.Context, def catalog.Definition, userID string) (stats.Computed, error) {
	key := statscache.Key{TestType: def.TestType, UserID: userID}

	if sb.cache != nil {
		if cached, ok := sb.cache.Get(key); ok {
			return cached, nil
		}
	}

	items, err := sb.backend.List(ctx, backend.WithTestType(def.TestType), backend.WithUserID(userID))
	if err != nil {
		return stats.Computed{}, err
	}

	out := stats.Compute(result.Values(items, def.ValueField), def.LowerIsBetter)

	if sb.cache != nil {
		sb.cache.Set(key, out)
	}

	return out, nil
}

func (sb *ScoreBoard[T]) invalidate(testType string) {
	if sb.cache != nil {
		sb.cache.InvalidateTest(testType)
	}
}

// Count returns how many results are stored for testType (every test when empty),
// only counting the ones tied to a user when userOnly is set.
func (sb *ScoreBoard[T]) Count(ctx context.Context, testType string, userOnly bool) (int, error) {
	var filters []backend.IFilter

	if testType != "" {
		def, err := definition(testType)
		if err != nil {
			return 0, err
		}

		filters = append(filters, backend.WithTestType(def.TestType))
	}

	if userOnly {
		filters = append(filters, backend.WithUserOnly())
	}

	return sb.backend.Count(ctx, filters...)
}

// Stop shuts the HTTP API down, if enabled, and closes the backend.
func (sb *ScoreBoard[T]) Stop(ctx context.Context) error {
	if sb.apiHTTP != nil {
		err := sb.apiHTTP.Shutdown(ctx)
		if err != nil {
			return err
		}
	}

	return sb.backend.Close()
}

func definition(testType string) (catalog.Definition, error) {
	def, ok := catalog.Lookup(testType)
	if !ok {
		return catalog.Definition{}, ewrap.Wrap(sentinel.ErrUnknownTestType, testType)
	}

	return def, nil
}

func requireUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", sentinel.ErrUserIDRequired
	}

	return userID, nil
}
