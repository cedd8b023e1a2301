package backend

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/mindscore/internal/constants"
	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/catalog"
	"github.com/hyp3rd/mindscore/pkg/result"
)

// JSONFile is a backend that keeps one JSON file per test type in a directory, the
// layout used before the database. Every write rewrites the whole file.
type JSONFile struct {
	dir string
	mu  sync.Mutex
}

// NewJSONFile creates the data directory if needed.
func NewJSONFile(opts ...Option[JSONFile]) (IBackend[JSONFile], error) {
	store := &JSONFile{dir: constants.DefaultDataDir}
	ApplyOptions(store, opts...)

	if strings.TrimSpace(store.dir) == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "data dir")
	}

	err := os.MkdirAll(store.dir, 0o750)
	if err != nil {
		return nil, ewrap.Wrapf(err, "creating %s", store.dir)
	}

	return store, nil
}

// Create appends res to the file of its test type.
func (store *JSONFile) Create(_ context.Context, res *result.Result) error {
	err := res.Valid()
	if err != nil {
		return err
	}

	def, _ := catalog.Lookup(res.TestType)

	store.mu.Lock()
	defer store.mu.Unlock()

	items, err := LoadLegacyFile(store.dir, def)
	if err != nil {
		return err
	}

	stored := *res

	return store.write(def, append(items, &stored))
}

// List reads the files of the queried test types.
func (store *JSONFile) List(ctx context.Context, filters ...IFilter) ([]*result.Result, error) {
	q := NewQuery(filters...)

	store.mu.Lock()
	defer store.mu.Unlock()

	items := make([]*result.Result, 0)

	for _, def := range definitionsFor(q.TestType) {
		if ctx.Err() != nil {
			return nil, ewrap.Wrap(ctx.Err(), "listing results")
		}

		loaded, err := LoadLegacyFile(store.dir, def)
		if err != nil {
			return nil, err
		}

		items = append(items, loaded...)
	}

	return q.selectIn(items), nil
}

// DeleteByUser rewrites the files that held results of userID.
func (store *JSONFile) DeleteByUser(_ context.Context, userID string, testTypes ...string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, sentinel.ErrUserIDRequired
	}

	defs := catalog.All()
	if len(testTypes) > 0 {
		defs = defs[:0]

		for _, testType := range testTypes {
			def, ok := catalog.Lookup(testType)
			if !ok {
				return 0, ewrap.Wrap(sentinel.ErrUnknownTestType, testType)
			}

			defs = append(defs, def)
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	deleted := 0

	for _, def := range defs {
		items, err := LoadLegacyFile(store.dir, def)
		if err != nil {
			return deleted, err
		}

		kept := items[:0]
		for _, res := range items {
			if res.UserID != userID {
				kept = append(kept, res)
			}
		}

		if len(kept) == len(items) {
			continue
		}

		err = store.write(def, kept)
		if err != nil {
			return deleted, err
		}

		deleted += len(items) - len(kept)
	}

	return deleted, nil
}

// Count returns how many results match the filters. The limit is ignored.
func (store *JSONFile) Count(ctx context.Context, filters ...IFilter) (int, error) {
	items, err := store.List(ctx, append(filters, WithLimit(0))...)
	if err != nil {
		return 0, err
	}

	return len(items), nil
}

// Close is a no-op.
func (*JSONFile) Close() error { return nil }

func (store *JSONFile) write(def catalog.Definition, items []*result.Result) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return ewrap.Wrap(err, "encoding results")
	}

	path := filepath.Join(store.dir, def.LegacyFile)
	tmp := path + ".tmp"

	err = os.WriteFile(tmp, data, 0o600)
	if err != nil {
		return ewrap.Wrapf(err, "writing %s", tmp)
	}

	err = os.Rename(tmp, path)
	if err != nil {
		return ewrap.Wrapf(err, "replacing %s", path)
	}

	return nil
}

func definitionsFor(testType string) []catalog.Definition {
	if testType == "" {
		return catalog.All()
	}

	def, ok := catalog.Lookup(testType)
	if !ok {
		return nil
	}

	return []catalog.Definition{def}
}

// legacyRecord is one entry of a flat file. Files written by older versions carry
// no id nor test type and store timestamps as unix milliseconds.
type legacyRecord struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Score        *float64   `json:"score"`
	WPM          *float64   `json:"wpm"`
	Accuracy     *float64   `json:"accuracy"`
	ReactionTime *float64   `json:"reactionTime"`
	Timestamp    legacyTime `json:"timestamp"`
}

type legacyTime struct{ time.Time }

func (lt *legacyTime) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return ewrap.Wrap(err, "timestamp")
		}

		if ms, err := strconv.ParseInt(unquoted, 10, 64); err == nil {
			lt.Time = time.UnixMilli(ms).UTC()

			return nil
		}

		parsed, err := time.Parse(time.RFC3339Nano, unquoted)
		if err != nil {
			return ewrap.Wrap(err, "timestamp")
		}

		lt.Time = parsed

		return nil
	}

	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return ewrap.Wrap(err, "timestamp")
	}

	lt.Time = time.UnixMilli(int64(ms)).UTC()

	return nil
}

type legacyEnvelope struct {
	Results []json.RawMessage `json:"results"`
	Global  []json.RawMessage `json:"global"`
}

// LoadLegacyFile reads the file of def in dir. A missing file holds no results.
// Entries that cannot be decoded are skipped; entries without an id get one derived
// from their content and position so that repeated reads agree.
func LoadLegacyFile(dir string, def catalog.Definition) ([]*result.Result, error) {
	data, err := os.ReadFile(filepath.Join(dir, def.LegacyFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*result.Result{}, nil
		}

		return nil, ewrap.Wrapf(err, "reading %s", def.LegacyFile)
	}

	entries, err := legacyEntries(data)
	if err != nil {
		return nil, ewrap.Wrapf(err, "decoding %s", def.LegacyFile)
	}

	items := make([]*result.Result, 0, len(entries))

	for i, raw := range entries {
		var rec legacyRecord

		if json.Unmarshal(raw, &rec) != nil {
			continue
		}

		items = append(items, rec.toResult(def, i, raw))
	}

	return items, nil
}

func legacyEntries(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var entries []json.RawMessage

		err := json.Unmarshal(data, &entries)

		return entries, err
	}

	var env legacyEnvelope

	err := json.Unmarshal(data, &env)
	if err != nil {
		return nil, err
	}

	if env.Global != nil {
		return env.Global, nil
	}

	return env.Results, nil
}

func (rec *legacyRecord) toResult(def catalog.Definition, index int, raw []byte) *result.Result {
	res := &result.Result{
		ID:           rec.ID,
		UserID:       rec.UserID,
		TestType:     def.TestType,
		Score:        rec.Score,
		WPM:          rec.WPM,
		Accuracy:     rec.Accuracy,
		ReactionTime: rec.ReactionTime,
		Timestamp:    rec.Timestamp.Time,
	}

	// older typing entries sometimes stored the speed as score
	if res.Field(def.ValueField) == nil && def.ValueField == catalog.FieldWPM {
		res.WPM = rec.Score
	}

	if res.ID == "" {
		digest := xxhash.New()
		_, _ = digest.WriteString(def.TestType + ":" + strconv.Itoa(index) + ":")
		_, _ = digest.Write(raw)

		res.ID = def.TestType + "-" + strconv.FormatUint(digest.Sum64(), 16)
	}

	return res
}
