package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/mapa/internal/models"
	"github.com/jackc/pgx/v5"
)

// PostgresStore keeps the clients and orders collections as JSONB documents,
// one row per storage key.
type PostgresStore struct {
	db  Database
	log *slog.Logger
}

var _ Interface = (*PostgresStore)(nil)

const (
	createTableQuery = `
		CREATE TABLE IF NOT EXISTS mapa_storage (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL
		);
	`
	selectValueQuery = `
		SELECT value
		FROM mapa_storage
		WHERE key = $1;
	`
	selectValueForUpdateQuery = `
		SELECT value
		FROM mapa_storage
		WHERE key = $1
		FOR UPDATE;
	`
	updateValueQuery = `
		UPDATE mapa_storage
		SET value = $1
		WHERE key = $2;
	`
	upsertValueQuery = `
		INSERT INTO mapa_storage (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value;
	`
)

// NewPostgresStore creates a new instance of PostgresStore with the provided Database.
func NewPostgresStore(db Database, log *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

// Migrate creates the storage table when it does not exist yet.
func (r *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createTableQuery); err != nil {
		return fmt.Errorf("failed to create storage table: %w", err)
	}
	return nil
}

// ListCustomers returns the stored customers in stored order.
func (r *PostgresStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	raw, err := r.get(ctx, KeyCustomers)
	if err != nil {
		return nil, err
	}
	customers, ok := decodeCustomers(raw)
	if !ok {
		r.log.DebugContext(ctx, "Stored customers could not be parsed, treating as empty")
	}
	return customers, nil
}

// ListOrders returns the stored orders in stored order.
func (r *PostgresStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	raw, err := r.get(ctx, KeyOrders)
	if err != nil {
		return nil, err
	}
	orders, ok := decodeList[models.Order](raw)
	if !ok {
		r.log.DebugContext(ctx, "Stored orders could not be parsed, treating as empty")
	}
	return orders, nil
}

// UpdateCustomerCoordinates writes the coordinates of a single customer.
// The row is locked for the duration of the read-modify-write.
func (r *PostgresStore) UpdateCustomerCoordinates(
	ctx context.Context,
	customer models.Customer,
	coords models.Coordinates,
) error {
	return r.modify(ctx, func(raw []byte) ([]byte, error) {
		return patchCoordinates(raw, customer, coords)
	})
}

// ResetCoordinates zeroes the coordinates of every stored customer.
func (r *PostgresStore) ResetCoordinates(ctx context.Context) (int, error) {
	var touched int
	err := r.modify(ctx, func(raw []byte) ([]byte, error) {
		out, n, err := resetCoordinates(raw)
		touched = n
		return out, err
	})
	if errors.Is(err, ErrCustomerNotFound) {
		return 0, nil
	}
	return touched, err
}

// Put replaces a whole collection with data supplied by the host application.
func (r *PostgresStore) Put(ctx context.Context, key string, raw []byte) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err := validateCollection(raw); err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, upsertValueQuery, key, raw); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// Ping checks the database connection.
func (r *PostgresStore) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

func (r *PostgresStore) get(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, selectValueQuery, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return raw, nil
}

// modify runs fn against the locked customers document and stores its result.
// A nil result leaves the row untouched.
func (r *PostgresStore) modify(ctx context.Context, fn func(raw []byte) ([]byte, error)) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte
	err = tx.QueryRow(ctx, selectValueForUpdateQuery, KeyCustomers).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCustomerNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock customers: %w", err)
	}

	out, err := fn(raw)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	if _, err = tx.Exec(ctx, updateValueQuery, out, KeyCustomers); err != nil {
		return fmt.Errorf("failed to update customers: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit customers update: %w", err)
	}

	r.log.DebugContext(ctx, "Customers document updated", "bytes", len(out))
	return nil
}
