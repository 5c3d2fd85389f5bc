package store

import (
	"context"
	"errors"
	"time"

	applogger "MarketPulse/pkg/logger"
)

// ErrNotFound is returned when a key has no value in the store.
var ErrNotFound = errors.New("store: key not found")

// Store is the persisted key/value capability. Values are JSON documents;
// the engine keeps exactly two logical keys, "config" and "state".
type Store interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}) error
	Close() error
}

// Options selects and configures the backing implementation.
type Options struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
	DialTimeout   time.Duration
}

// Open selects a backend once at startup. When Redis is configured but
// unreachable it degrades to the in-memory store: state is then lost on
// restart, which callers accept silently.
func Open(opts Options, log *applogger.Logger) Store {
	if opts.RedisAddr == "" {
		log.Info("store: using in-memory backend")
		return NewMemoryStore()
	}
	rs, err := NewRedisStore(opts)
	if err != nil {
		log.Warn("store: redis unreachable, falling back to memory",
			applogger.String("addr", opts.RedisAddr),
			applogger.Error(err),
		)
		return NewMemoryStore()
	}
	log.Info("store: using redis backend", applogger.String("addr", opts.RedisAddr))
	return rs
}
