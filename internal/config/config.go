// Package config loads the settings of the mindscore command from a HuJSON file
// (JSON with comments and trailing commas). Missing keys keep their defaults.
package config

import (
	"os"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hyp3rd/ewrap"
	"github.com/tailscale/hujson"

	"github.com/hyp3rd/mindscore/internal/constants"
	"github.com/hyp3rd/mindscore/internal/sentinel"
)

// Duration is a time.Duration written as a Go duration string, e.g. "10s".
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return ewrap.Wrapf(err, "parsing duration %q", v)
		}

		*d = Duration(parsed)
	default:
		return ewrap.Newf("invalid duration %s", string(data))
	}

	return nil
}

// MarshalJSON writes the duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Redis holds the connection settings of the redis backend. ClusterAddrs wins over URL,
// which wins over Addr.
type Redis struct {
	Addr         string   `json:"addr"`
	URL          string   `json:"url"`
	ClusterAddrs []string `json:"clusterAddrs"`
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	DB           int      `json:"db"`
	Prefix       string   `json:"prefix"`
	Serializer   string   `json:"serializer"`
}

// API holds the settings of the HTTP API.
type API struct {
	Addr            string   `json:"addr"`
	ReadTimeout     Duration `json:"readTimeout"`
	WriteTimeout    Duration `json:"writeTimeout"`
	ShutdownTimeout Duration `json:"shutdownTimeout"`
	// UserHeader, when set, names the request header carrying the user id.
	UserHeader string `json:"userHeader"`
}

// Telemetry toggles the instrumentation middlewares.
type Telemetry struct {
	Prometheus bool `json:"prometheus"`
	Tracing    bool `json:"tracing"`
}

// StatsCache sizes the cache of computed statistics. A zero capacity disables it.
type StatsCache struct {
	Capacity int      `json:"capacity"`
	TTL      Duration `json:"ttl"`
}

// Settings is the whole configuration file.
type Settings struct {
	Backend      string     `json:"backend"`
	DatabasePath string     `json:"databasePath"`
	DataDir      string     `json:"dataDir"`
	LogLevel     string     `json:"logLevel"`
	Redis        Redis      `json:"redis"`
	API          API        `json:"api"`
	Telemetry    Telemetry  `json:"telemetry"`
	StatsCache   StatsCache `json:"statsCache"`
}

// Default returns the settings used without a configuration file.
func Default() *Settings {
	return &Settings{
		Backend:      constants.DefaultBackend,
		DatabasePath: constants.DefaultDatabasePath,
		DataDir:      constants.DefaultDataDir,
		LogLevel:     "info",
		Redis: Redis{
			Prefix:     constants.RedisKeyPrefix,
			Serializer: constants.DefaultSerializer,
		},
		API: API{
			Addr:            constants.DefaultAPIAddr,
			ShutdownTimeout: Duration(constants.DefaultShutdownTimeout),
		},
		Telemetry: Telemetry{Prometheus: true},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Settings, error) {
	settings := Default()

	if strings.TrimSpace(path) == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ewrap.Wrapf(err, "reading %s", path)
	}

	err = Parse(data, settings)
	if err != nil {
		return nil, ewrap.Wrapf(err, "loading %s", path)
	}

	return settings, nil
}

// Parse decodes HuJSON data into settings and validates the result.
func Parse(data []byte, settings *Settings) error {
	standard, err := hujson.Standardize(data)
	if err != nil {
		return ewrap.Wrap(err, "standardizing")
	}

	err = json.Unmarshal(standard, settings)
	if err != nil {
		return ewrap.Wrap(err, "decoding")
	}

	return settings.Validate()
}

// Validate checks the backend name and the values it depends on.
func (s *Settings) Validate() error {
	backends := []string{constants.InMemoryBackend, constants.SQLBackend, constants.RedisBackend, constants.JSONFileBackend}
	if !slices.Contains(backends, s.Backend) {
		return ewrap.Wrapf(sentinel.ErrInvalidBackendType, "backend %q", s.Backend)
	}

	switch s.Backend {
	case constants.SQLBackend:
		if strings.TrimSpace(s.DatabasePath) == "" {
			return ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "databasePath")
		}
	case constants.JSONFileBackend:
		if strings.TrimSpace(s.DataDir) == "" {
			return ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "dataDir")
		}
	case constants.RedisBackend:
		if s.Redis.Addr == "" && s.Redis.URL == "" && len(s.Redis.ClusterAddrs) == 0 {
			return ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "redis.addr, redis.url or redis.clusterAddrs")
		}
	}

	if s.StatsCache.Capacity < 0 || s.StatsCache.TTL < 0 {
		return ewrap.Wrap(sentinel.ErrInvalidCapacity, "statsCache")
	}

	if s.API.ShutdownTimeout <= 0 {
		return ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "api.shutdownTimeout")
	}

	return nil
}
