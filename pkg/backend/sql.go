package backend

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/hyp3rd/ewrap"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/upper/db/v4"
	"github.com/upper/db/v4/adapter/sqlite"

	"github.com/hyp3rd/mindscore/internal/constants"
	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/result"
)

const (
	resultsTable      = "test_results"
	sqliteBusyTimeout = "5000" // milliseconds
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQL is a backend that stores results in a SQLite database.
type SQL struct {
	path           string
	skipMigrations bool
	sess           db.Session
}

// resultRow is the storage form of a result. Timestamps are unix milliseconds.
type resultRow struct {
	ID           string          `db:"id"`
	UserID       sql.NullString  `db:"user_id"`
	TestType     string          `db:"test_type"`
	Score        sql.NullFloat64 `db:"score"`
	WPM          sql.NullFloat64 `db:"wpm"`
	Accuracy     sql.NullFloat64 `db:"accuracy"`
	ReactionTime sql.NullFloat64 `db:"reaction_time"`
	Timestamp    int64           `db:"timestamp"`
}

// NewSQL opens the database and brings its schema up to date.
func NewSQL(opts ...Option[SQL]) (IBackend[SQL], error) {
	store := &SQL{path: constants.DefaultDatabasePath}
	ApplyOptions(store, opts...)

	if strings.TrimSpace(store.path) == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "database path")
	}

	err := os.MkdirAll(filepath.Dir(store.path), 0o750)
	if err != nil {
		return nil, ewrap.Wrapf(err, "creating directory of %s", store.path)
	}

	store.sess, err = sqlite.Open(sqlite.ConnectionURL{
		Database: store.path,
		Options: map[string]string{
			"_busy_timeout": sqliteBusyTimeout,
			"_journal_mode": "WAL",
		},
	})
	if err != nil {
		return nil, ewrap.Wrapf(err, "opening %s", store.path)
	}

	if !store.skipMigrations {
		_, err = RunMigrations(store.sess)
		if err != nil {
			_ = store.sess.Close()

			return nil, err
		}
	}

	return store, nil
}

// RunMigrations applies the pending embedded migrations and returns how many ran.
func RunMigrations(sess db.Session) (int, error) {
	sqlDB, ok := sess.Driver().(*sql.DB)
	if !ok {
		return 0, ewrap.New("session driver is not a *sql.DB")
	}

	migrations := migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}

	n, err := migrate.Exec(sqlDB, "sqlite3", migrations, migrate.Up)
	if err != nil {
		return 0, ewrap.Wrap(err, "running migrations")
	}

	log.WithField("count", n).Debug("performed migrations")

	return n, nil
}

// Create inserts res.
func (store *SQL) Create(ctx context.Context, res *result.Result) error {
	err := res.Valid()
	if err != nil {
		return err
	}

	_, err = store.sess.WithContext(ctx).Collection(resultsTable).Insert(toRow(res))
	if err != nil {
		return ewrap.Wrapf(err, "inserting result %s", res.ID)
	}

	return nil
}

// List returns the matching results, pushing the filters down to the query.
func (store *SQL) List(ctx context.Context, filters ...IFilter) ([]*result.Result, error) {
	q := NewQuery(filters...)

	order := "-timestamp"
	if q.Ascending {
		order = "timestamp"
	}

	res := store.find(ctx, q).OrderBy(order)
	if q.Limit > 0 {
		res = res.Limit(q.Limit)
	}

	var rows []resultRow

	err := res.All(&rows)
	if err != nil {
		return nil, ewrap.Wrap(err, "listing results")
	}

	items := make([]*result.Result, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toResult())
	}

	return items, nil
}

// DeleteByUser removes the results of userID, optionally only for testTypes.
func (store *SQL) DeleteByUser(ctx context.Context, userID string, testTypes ...string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, sentinel.ErrUserIDRequired
	}

	conds := []db.Cond{{"user_id": userID}}
	if len(testTypes) > 0 {
		conds = conds[:0]
		for _, testType := range testTypes {
			conds = append(conds, db.Cond{"user_id": userID, "test_type": testType})
		}
	}

	deleted := 0

	err := store.sess.WithContext(ctx).Tx(func(tx db.Session) error {
		for _, cond := range conds {
			out, err := tx.SQL().DeleteFrom(resultsTable).Where(cond).Exec()
			if err != nil {
				return err
			}

			affected, err := out.RowsAffected()
			if err != nil {
				return err
			}

			deleted += int(affected)
		}

		return nil
	})
	if err != nil {
		return 0, ewrap.Wrapf(err, "deleting results of %s", userID)
	}

	return deleted, nil
}

// Count returns how many results match the filters. The limit is ignored.
func (store *SQL) Count(ctx context.Context, filters ...IFilter) (int, error) {
	q := NewQuery(filters...)

	n, err := store.find(ctx, q).Count()
	if err != nil {
		return 0, ewrap.Wrap(err, "counting results")
	}

	return int(n), nil
}

// Close closes the database session.
func (store *SQL) Close() error {
	err := store.sess.Close()
	if err != nil {
		return ewrap.Wrap(err, "closing database")
	}

	return nil
}

func (store *SQL) find(ctx context.Context, q Query) db.Result {
	coll := store.sess.WithContext(ctx).Collection(resultsTable)

	cond := db.Cond{}
	if q.TestType != "" {
		cond["test_type"] = q.TestType
	}

	if q.UserID != "" {
		cond["user_id"] = q.UserID
	} else if q.UserOnly {
		cond["user_id"] = db.IsNotNull()
	}

	if len(cond) == 0 {
		return coll.Find()
	}

	return coll.Find(cond)
}

func toRow(res *result.Result) resultRow {
	return resultRow{
		ID:           res.ID,
		UserID:       sql.NullString{String: res.UserID, Valid: !res.Anonymous()},
		TestType:     res.TestType,
		Score:        nullFloat(res.Score),
		WPM:          nullFloat(res.WPM),
		Accuracy:     nullFloat(res.Accuracy),
		ReactionTime: nullFloat(res.ReactionTime),
		Timestamp:    res.Timestamp.UnixMilli(),
	}
}

func (row *resultRow) toResult() *result.Result {
	return &result.Result{
		ID:           row.ID,
		UserID:       row.UserID.String,
		TestType:     row.TestType,
		Score:        floatPtr(row.Score),
		WPM:          floatPtr(row.WPM),
		Accuracy:     floatPtr(row.Accuracy),
		ReactionTime: floatPtr(row.ReactionTime),
		Timestamp:    time.UnixMilli(row.Timestamp).UTC(),
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}

	return result.Float(v.Float64)
}
