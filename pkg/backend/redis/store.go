// Package redis builds the go-redis client used by the redis backend from the
// mindscore defaults and a set of functional options.
package redis

import (
	"context"
	"net"
	"strings"

	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/mindscore/internal/constants"
)

// Store is a redis store instance with redis client.
type Store struct {
	Client *redis.Client
}

// Option is a function type that can be used to configure the client options.
type Option func(*redis.Options) error

// WithAddr sets the host:port of the server.
func WithAddr(addr string) Option {
	return func(opt *redis.Options) error {
		opt.Addr = addr

		return nil
	}
}

// WithCredentials sets the ACL username and the password.
func WithCredentials(username, password string) Option {
	return func(opt *redis.Options) error {
		opt.Username = username
		opt.Password = password

		return nil
	}
}

// WithDB selects the logical database.
func WithDB(db int) Option {
	return func(opt *redis.Options) error {
		opt.DB = db

		return nil
	}
}

// WithURL reads address, credentials, database and TLS settings from a
// redis:// or rediss:// URL.
func WithURL(url string) Option {
	return func(opt *redis.Options) error {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return ewrap.Wrap(err, "parsing redis url")
		}

		opt.Addr = parsed.Addr
		opt.Username = parsed.Username
		opt.Password = parsed.Password
		opt.DB = parsed.DB
		opt.TLSConfig = parsed.TLSConfig

		return nil
	}
}

// New creates a client with the given options. It does not contact the server.
func New(opts ...Option) (*Store, error) {
	// Setup redis client
	opt := &redis.Options{
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{
				Timeout: constants.RedisDialTimeout,
			}

			return dialer.DialContext(ctx, network, addr)
		},
		MaxRetries:   constants.RedisClientMaxRetries,
		DialTimeout:  constants.RedisDialTimeout,
		ReadTimeout:  constants.RedisClientReadTimeout,
		WriteTimeout: constants.RedisClientWriteTimeout,
		PoolSize:     constants.RedisClientPoolSize,
		MinIdleConns: constants.RedisClientMinIdleConns,
		PoolTimeout:  constants.RedisClientPoolTimeout,
	}

	for _, apply := range opts {
		err := apply(opt)
		if err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(opt.Addr) == "" {
		return nil, ewrap.New("redis address is empty")
	}

	return &Store{Client: redis.NewClient(opt)}, nil
}

// Ping checks that the server answers.
func (s *Store) Ping(ctx context.Context) error {
	err := s.Client.Ping(ctx).Err()
	if err != nil {
		return ewrap.Wrap(err, "pinging redis")
	}

	return nil
}
