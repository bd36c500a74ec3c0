package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/UnknownOlympus/mapa/internal/models"
)

// FileStore keeps every storage key as <dir>/<key>.json. Writes from this
// process are serialized; a write replaces the file atomically.
type FileStore struct {
	dir string
	log *slog.Logger
	mu  sync.Mutex
}

var _ Interface = (*FileStore)(nil)

// NewFileStore creates the directory if needed and returns a store rooted at it.
func NewFileStore(dir string, log *slog.Logger) (*FileStore, error) {
	const dirPerm = 0o750
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

// ListCustomers returns the stored customers in stored order.
func (st *FileStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	raw, err := st.read(KeyCustomers)
	if err != nil {
		return nil, err
	}
	customers, ok := decodeCustomers(raw)
	if !ok {
		st.log.DebugContext(ctx, "Stored customers could not be parsed, treating as empty", "dir", st.dir)
	}
	return customers, nil
}

// ListOrders returns the stored orders in stored order.
func (st *FileStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	raw, err := st.read(KeyOrders)
	if err != nil {
		return nil, err
	}
	orders, ok := decodeList[models.Order](raw)
	if !ok {
		st.log.DebugContext(ctx, "Stored orders could not be parsed, treating as empty", "dir", st.dir)
	}
	return orders, nil
}

// UpdateCustomerCoordinates writes the coordinates of a single customer.
func (st *FileStore) UpdateCustomerCoordinates(
	_ context.Context,
	customer models.Customer,
	coords models.Coordinates,
) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	raw, err := st.read(KeyCustomers)
	if err != nil {
		return err
	}

	out, err := patchCoordinates(raw, customer, coords)
	if err != nil {
		return err
	}

	return st.write(KeyCustomers, out)
}

// ResetCoordinates zeroes the coordinates of every stored customer.
func (st *FileStore) ResetCoordinates(ctx context.Context) (int, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	raw, err := st.read(KeyCustomers)
	if err != nil {
		return 0, err
	}

	out, touched, err := resetCoordinates(raw)
	if err != nil || out == nil {
		return 0, err
	}

	if err = st.write(KeyCustomers, out); err != nil {
		return 0, err
	}

	st.log.InfoContext(ctx, "Customer coordinates reset", "customers", touched)
	return touched, nil
}

// Put replaces a whole collection with data supplied by the host application.
func (st *FileStore) Put(_ context.Context, key string, raw []byte) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err := validateCollection(raw); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	return st.write(key, raw)
}

// Ping checks that the storage directory is still reachable.
func (st *FileStore) Ping(_ context.Context) error {
	info, err := os.Stat(st.dir)
	if err != nil {
		return fmt.Errorf("storage directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage path %s is not a directory", st.dir)
	}
	return nil
}

func (st *FileStore) path(key string) string {
	return filepath.Join(st.dir, key+".json")
}

func (st *FileStore) read(key string) ([]byte, error) {
	raw, err := os.ReadFile(st.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return raw, nil
}

func (st *FileStore) write(key string, raw []byte) error {
	const filePerm = 0o600
	tmp, err := os.CreateTemp(st.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err = tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", key, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err = os.Rename(tmp.Name(), st.path(key)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}
