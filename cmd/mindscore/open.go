package main

import (
	"context"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/mindscore"
	"github.com/hyp3rd/mindscore/internal/config"
	"github.com/hyp3rd/mindscore/internal/constants"
	"github.com/hyp3rd/mindscore/internal/libs/serializer"
	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/backend"
	redisstore "github.com/hyp3rd/mindscore/pkg/backend/redis"
	"github.com/hyp3rd/mindscore/pkg/backend/rediscluster"
	"github.com/hyp3rd/mindscore/pkg/result"
	"github.com/hyp3rd/mindscore/pkg/statscache"
)

// store is the part of a backend the maintenance commands need.
type store interface {
	Create(ctx context.Context, res *result.Result) error
	List(ctx context.Context, filters ...backend.IFilter) ([]*result.Result, error)
	Count(ctx context.Context, filters ...backend.IFilter) (int, error)
	Close() error
}

// openService builds the ScoreBoard on the configured backend.
func openService(ctx context.Context, settings *config.Settings) (mindscore.Service, error) {
	switch settings.Backend {
	case constants.InMemoryBackend:
		return newService(ctx, settings, mindscore.NewConfig[backend.InMemory](constants.InMemoryBackend))

	case constants.SQLBackend:
		cfg := mindscore.NewConfig[backend.SQL](constants.SQLBackend)
		cfg.SQLOptions = append(cfg.SQLOptions, backend.WithDatabasePath(settings.DatabasePath))

		return newService(ctx, settings, cfg)

	case constants.RedisBackend:
		opts, err := redisOptions(ctx, settings.Redis)
		if err != nil {
			return nil, err
		}

		cfg := mindscore.NewConfig[backend.Redis](constants.RedisBackend)
		cfg.RedisOptions = append(cfg.RedisOptions, opts...)

		return newService(ctx, settings, cfg)

	case constants.JSONFileBackend:
		cfg := mindscore.NewConfig[backend.JSONFile](constants.JSONFileBackend)
		cfg.JSONFileOptions = append(cfg.JSONFileOptions, backend.WithDataDir(settings.DataDir))

		return newService(ctx, settings, cfg)
	}

	return nil, ewrap.Wrap(sentinel.ErrInvalidBackendType, settings.Backend)
}

func newService[T backend.IBackendConstrain](ctx context.Context, settings *config.Settings, cfg *mindscore.Config[T]) (mindscore.Service, error) {
	if settings.StatsCache.Capacity > 0 {
		cache, err := statscache.New(settings.StatsCache.Capacity, time.Duration(settings.StatsCache.TTL))
		if err != nil {
			return nil, err
		}

		cfg.ScoreBoardOptions = append(cfg.ScoreBoardOptions, mindscore.WithStatsCache[T](cache))
	}

	sb, err := mindscore.New(ctx, mindscore.GetDefaultManager(), cfg)
	if err != nil {
		return nil, err
	}

	return sb, nil
}

// openStore opens the configured backend directly, keeping ids and timestamps as given.
func openStore(ctx context.Context, settings *config.Settings) (store, error) {
	switch settings.Backend {
	case constants.InMemoryBackend:
		return backend.NewInMemory()
	case constants.SQLBackend:
		return backend.NewSQL(backend.WithDatabasePath(settings.DatabasePath))
	case constants.RedisBackend:
		opts, err := redisOptions(ctx, settings.Redis)
		if err != nil {
			return nil, err
		}

		return backend.NewRedis(opts...)
	case constants.JSONFileBackend:
		return backend.NewJSONFile(backend.WithDataDir(settings.DataDir))
	}

	return nil, ewrap.Wrap(sentinel.ErrInvalidBackendType, settings.Backend)
}

// redisOptions connects to the server, or the cluster, and returns the backend options using it.
func redisOptions(ctx context.Context, settings config.Redis) ([]backend.Option[backend.Redis], error) {
	ser, err := serializer.New(settings.Serializer)
	if err != nil {
		return nil, err
	}

	if len(settings.ClusterAddrs) > 0 {
		return redisClusterOptions(ctx, settings, ser)
	}

	clientOpts := []redisstore.Option{
		redisstore.WithCredentials(settings.Username, settings.Password),
		redisstore.WithDB(settings.DB),
	}

	if settings.URL != "" {
		clientOpts = []redisstore.Option{redisstore.WithURL(settings.URL)}
	} else {
		clientOpts = append(clientOpts, redisstore.WithAddr(settings.Addr))
	}

	client, err := redisstore.New(clientOpts...)
	if err != nil {
		return nil, err
	}

	err = client.Ping(ctx)
	if err != nil {
		_ = client.Client.Close()

		return nil, err
	}

	return []backend.Option[backend.Redis]{
		backend.WithRedisClient(client.Client),
		backend.WithKeyPrefix(settings.Prefix),
		backend.WithSerializer(ser),
	}, nil
}

func redisClusterOptions(ctx context.Context, settings config.Redis, ser serializer.ISerializer) ([]backend.Option[backend.Redis], error) {
	cluster, err := rediscluster.New(
		rediscluster.WithAddrs(settings.ClusterAddrs...),
		rediscluster.WithCredentials(settings.Username, settings.Password),
	)
	if err != nil {
		return nil, err
	}

	err = cluster.Ping(ctx)
	if err != nil {
		_ = cluster.Client.Close()

		return nil, err
	}

	return []backend.Option[backend.Redis]{
		backend.WithRedisClient(cluster.Client),
		backend.WithKeyPrefix(rediscluster.HashTag(settings.Prefix)),
		backend.WithSerializer(ser),
	}, nil
}
