//go:build integration

package repository_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/UnknownOlympus/mapa/internal/models"
	"github.com/UnknownOlympus/mapa/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestPostgresStore_Integration(t *testing.T) {
	ctx := t.Context()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("mapa"),
		postgres.WithUsername("mapa"),
		postgres.WithPassword("mapa"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	pool, err := repository.NewDatabase(ctx, host, port.Port(), "mapa", "mapa", "mapa")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := repository.NewPostgresStore(pool, slog.Default())
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migration is idempotent")

	customers, err := store.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Empty(t, customers)

	require.NoError(t, store.Put(ctx, repository.KeyCustomers, []byte(`[
		{"id":1,"name":"Ana","address":"Calle Mayor 1","phone":"600"},
		{"id":"2","name":"Bruno","address":"Gran Via 2","lat":41.38,"lon":2.17}
	]`)))
	require.NoError(t, store.Put(ctx, repository.KeyOrders, []byte(`[{"id":9,"cliente_id":1,"fecha":"2026-10-01"}]`)))

	coords := models.Coordinates{Latitude: 40.41, Longitude: -3.70}
	customers, err = store.ListCustomers(ctx)
	require.NoError(t, err)
	require.NoError(t, store.UpdateCustomerCoordinates(ctx, customers[0], coords))
	require.ErrorIs(t,
		store.UpdateCustomerCoordinates(ctx, models.Customer{ID: "404"}, coords), repository.ErrCustomerNotFound)
	require.ErrorIs(t,
		store.UpdateCustomerCoordinates(ctx, models.Customer{ID: "1", Position: 1}, coords), repository.ErrCustomerNotFound)

	customers, err = store.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.True(t, customers[0].Located())
	assert.InDelta(t, 40.41, float64(customers[0].Lat), 1e-9)

	orders, err := store.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	when, ok := orders[0].When()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC), when)

	touched, err := store.ResetCoordinates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, touched)

	customers, err = store.ListCustomers(ctx)
	require.NoError(t, err)
	assert.True(t, customers[0].Pending())
	assert.True(t, customers[1].Pending())

	require.NoError(t, store.Ping(ctx))
}
