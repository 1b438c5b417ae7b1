// Package kv provides the persistent key-value slots backing local state.
//
// Every backend stores opaque string values under string keys. Callers own
// the serialization of what they store.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown storage backend")

// Storage is a string-keyed persistent slot store
type Storage interface {
	// Get returns the value for key. found is false when the key was never set.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error
	// Close releases the backend
	Close() error
}

// Backend names accepted by Open
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend
type Options struct {
	Backend string
	Path    string // file backend
	DSN     string // sqlite path, redis URL or postgres connection string
}

// Open builds the backend named by opts.Backend
func Open(ctx context.Context, opts Options) (Storage, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile, "":
		return NewFile(opts.Path)
	case BackendSQLite:
		return OpenSQLite(ctx, opts.DSN)
	case BackendRedis:
		return OpenRedis(ctx, opts.DSN)
	case BackendPostgres:
		return OpenPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// Backends lists the accepted backend names
func Backends() []string {
	return []string{BackendMemory, BackendFile, BackendSQLite, BackendRedis, BackendPostgres}
}
