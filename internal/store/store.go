// Package store provides durable key/value persistence for widget state that must
// survive across sessions (the device identity slot).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownDriver is returned by New for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown store driver")

// KV defines a small key/value store scoped to one origin.
type KV interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}

// Driver names accepted by New.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a KV driver.
type Options struct {
	Driver    string
	Path      string // sqlite database file
	RedisAddr string
	RedisDB   int
	KeyPrefix string        // redis key namespace
	TTL       time.Duration // redis expiry; zero keeps keys forever
}

// New creates the KV selected by opts.Driver.
func New(opts Options) (KV, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite:
		s, err := NewSQLite(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverRedis:
		s, err := NewRedis(opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
