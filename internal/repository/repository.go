package repository

import (
	"context"
	"errors"

	"github.com/UnknownOlympus/mapa/internal/models"
)

// Storage keys shared with the host application.
const (
	KeyCustomers = "clients"
	KeyOrders    = "orders"
)

var (
	// ErrCustomerNotFound is returned when the stored record of a customer is gone or moved.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrUnknownKey is returned when a write targets a key other than clients or orders.
	ErrUnknownKey = errors.New("unknown storage key")
	// ErrNotAnArray is returned when a collection written by the host is not a JSON array.
	ErrNotAnArray = errors.New("collection must be a JSON array")
)

// Interface is the typed view over the key-value store holding customers and orders.
// Reads never fail on missing or malformed data: such collections are empty.
type Interface interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	UpdateCustomerCoordinates(ctx context.Context, customer models.Customer, coords models.Coordinates) error
	ResetCoordinates(ctx context.Context) (int, error)
	Put(ctx context.Context, key string, raw []byte) error
	Ping(ctx context.Context) error
}

func validKey(key string) bool {
	return key == KeyCustomers || key == KeyOrders
}
