// Package rediscluster builds the go-redis cluster client the redis backend can run on.
package rediscluster

import (
	"context"
	"net"
	"strings"

	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/mindscore/internal/constants"
)

// Store is a redis cluster store instance with a ClusterClient.
type Store struct {
	Client *redis.ClusterClient
}

// Option is a function type that can be used to configure the redis ClusterClient Options.
type Option func(*redis.ClusterOptions)

// WithAddrs sets the seed nodes of the cluster.
func WithAddrs(addrs ...string) Option {
	return func(opt *redis.ClusterOptions) {
		opt.Addrs = addrs
	}
}

// WithCredentials sets Username and Password.
func WithCredentials(username, password string) Option {
	return func(opt *redis.ClusterOptions) {
		opt.Username = username
		opt.Password = password
	}
}

// WithReadOnly routes reads to replicas.
func WithReadOnly() Option {
	return func(opt *redis.ClusterOptions) {
		opt.ReadOnly = true
	}
}

// New creates a redis cluster store instance with given options. It does not contact the nodes.
func New(opts ...Option) (*Store, error) {
	opt := &redis.ClusterOptions{
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: constants.RedisDialTimeout}

			return dialer.DialContext(ctx, network, addr)
		},
		MaxRetries:   constants.RedisClientMaxRetries,
		ReadTimeout:  constants.RedisClientReadTimeout,
		WriteTimeout: constants.RedisClientWriteTimeout,
		PoolSize:     constants.RedisClientPoolSize,
		MinIdleConns: constants.RedisClientMinIdleConns,
		PoolTimeout:  constants.RedisClientPoolTimeout,
	}

	for _, apply := range opts {
		apply(opt)
	}

	if len(opt.Addrs) == 0 {
		return nil, ewrap.New("redis cluster addrs are empty")
	}

	for _, addr := range opt.Addrs {
		if strings.TrimSpace(addr) == "" {
			return nil, ewrap.New("redis cluster address is empty")
		}
	}

	return &Store{Client: redis.NewClusterClient(opt)}, nil
}

// Ping checks that the cluster answers.
func (s *Store) Ping(ctx context.Context) error {
	err := s.Client.Ping(ctx).Err()
	if err != nil {
		return ewrap.Wrap(err, "pinging redis cluster")
	}

	return nil
}

// HashTag wraps prefix in braces, unless it already holds a hash tag, so that every
// key built on it maps to the same slot.
func HashTag(prefix string) string {
	if strings.Contains(prefix, "{") && strings.Contains(prefix, "}") {
		return prefix
	}

	return "{" + prefix + "}"
}
