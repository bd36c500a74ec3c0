package repository

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Options selects and configures a storage backend.
type Options struct {
	Backend  string
	Dir      string // Dir is the directory of the file backend.
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Open builds the configured store. The returned close function releases the
// underlying resources and is never nil.
func Open(ctx context.Context, opts Options, log *slog.Logger) (Interface, func(), error) {
	switch opts.Backend {
	case BackendFile, "":
		store, err := NewFileStore(opts.Dir, log)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() {}, nil
	case BackendPostgres:
		pool, err := NewDatabase(ctx, opts.Host, opts.Port, opts.User, opts.Password, opts.Name)
		if err != nil {
			return nil, func() {}, err
		}
		store := NewPostgresStore(pool, log)
		if err = store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		return store, pool.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("unsupported storage backend: %s", opts.Backend)
	}
}
