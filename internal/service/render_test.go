package service_test

import (
	"testing"
	"time"

	"github.com/UnknownOlympus/mapa/internal/models"
	"github.com/UnknownOlympus/mapa/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var renderNow = time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)

func ts(t time.Time) models.Timestamp {
	return models.Timestamp{Time: t}
}

func TestRender_Counts(t *testing.T) {
	customers := []models.Customer{
		{ID: "1", Name: "Acme", Address: "Calle Mayor 1", Lat: 40.41, Lon: -3.70},
		{ID: "2", Name: "Beta", Address: "Gran Via 2"},
		{ID: "3", Name: "Gamma", Address: "Nowhere 99", Lat: models.SentinelCoordinate, Lon: models.SentinelCoordinate},
		{ID: "4", Name: "Delta", Address: "abc"},
		{ID: "5"},
		{ID: "6", Name: "Zeta", Address: "Calle Luna 3", Lat: 40.0},
	}

	result := service.Render(customers, nil, renderNow, 0)

	assert.Equal(t, 5, result.Status.Total, "customers without name and address are skipped")
	assert.Equal(t, 1, result.Status.Located)
	assert.Equal(t, 2, result.Status.Pending, "half-located customers are pending again")
	assert.Equal(t, 1, result.Status.Unresolvable)
	assert.Equal(t, "1 / 5", result.Status.Counter)
	assert.InDelta(t, 60.0, result.Status.Progress, 0.001)
	require.Len(t, result.Markers, 1)
	assert.Equal(t, models.ID("1"), result.Markers[0].ID)
	assert.InDelta(t, 40.41, result.Markers[0].Lat, 0)
	assert.InDelta(t, -3.70, result.Markers[0].Lon, 0)
}

func TestRender_Empty(t *testing.T) {
	result := service.Render(nil, nil, renderNow, 0)

	assert.Zero(t, result.Status.Total)
	assert.Zero(t, result.Status.Progress)
	assert.Equal(t, "0 / 0", result.Status.Counter)
	assert.NotNil(t, result.Markers)
	assert.Empty(t, result.Markers)
}

func TestRender_OneMarkerPerID(t *testing.T) {
	customers := []models.Customer{
		{ID: "1", Name: "Acme", Address: "Calle Mayor 1", Lat: 40.41, Lon: -3.70},
		{ID: "1", Name: "Acme copy", Address: "Calle Mayor 1", Lat: 41.0, Lon: -3.0},
	}

	result := service.Render(customers, nil, renderNow, 0)

	require.Len(t, result.Markers, 1)
	assert.Equal(t, "Acme", result.Markers[0].Name)
	assert.Equal(t, 2, result.Status.Located)
}

func TestRender_MarkerColor(t *testing.T) {
	acme := models.Customer{ID: "1", Name: "Acme", Address: "Calle Mayor 1", Lat: 40.41, Lon: -3.70}

	tests := []struct {
		name     string
		orders   []models.Order
		color    models.MarkerColor
		saleText string
	}{
		{
			name:     "no orders",
			color:    models.MarkerRed,
			saleText: service.NoSalesText,
		},
		{
			name:     "recent order by id",
			orders:   []models.Order{{CustomerID: "1", Date: ts(renderNow.AddDate(0, 0, -3))}},
			color:    models.MarkerGreen,
			saleText: "11/10/2026",
		},
		{
			name:     "old order by id",
			orders:   []models.Order{{CustomerID: "1", Date: ts(renderNow.AddDate(0, 0, -31))}},
			color:    models.MarkerRed,
			saleText: "13/09/2026",
		},
		{
			name:     "exactly thirty days ago is recent",
			orders:   []models.Order{{CustomerID: "1", Timestamp: ts(renderNow.Add(-service.DefaultRecentWindow))}},
			color:    models.MarkerGreen,
			saleText: "14/09/2026",
		},
		{
			name:     "order matched by embedded name",
			orders:   []models.Order{{Customer: "Acme S.L. (Madrid)", Date: ts(renderNow.AddDate(0, 0, -1))}},
			color:    models.MarkerGreen,
			saleText: "13/10/2026",
		},
		{
			name: "most recent order decides",
			orders: []models.Order{
				{CustomerID: "1", Date: ts(renderNow.AddDate(0, -3, 0))},
				{CustomerID: "1", Date: ts(renderNow.AddDate(0, 0, -2))},
				{CustomerID: "1", Date: ts(renderNow.AddDate(-1, 0, 0))},
			},
			color:    models.MarkerGreen,
			saleText: "12/10/2026",
		},
		{
			name:     "orders of other customers are ignored",
			orders:   []models.Order{{CustomerID: "2", Customer: "Beta", Date: ts(renderNow)}},
			color:    models.MarkerRed,
			saleText: service.NoSalesText,
		},
		{
			name:     "matching order without date",
			orders:   []models.Order{{CustomerID: "1"}},
			color:    models.MarkerRed,
			saleText: service.UnknownDateText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := service.Render([]models.Customer{acme}, tt.orders, renderNow, 0)

			require.Len(t, result.Markers, 1)
			assert.Equal(t, tt.color, result.Markers[0].Color)
			assert.Equal(t, tt.saleText, result.Markers[0].SaleText)
		})
	}
}

func TestRender_CustomWindow(t *testing.T) {
	acme := models.Customer{ID: "1", Name: "Acme", Address: "Calle Mayor 1", Lat: 40.41, Lon: -3.70}
	orders := []models.Order{{CustomerID: "1", Date: ts(renderNow.AddDate(0, 0, -10))}}

	result := service.Render([]models.Customer{acme}, orders, renderNow, 7*24*time.Hour)

	require.Len(t, result.Markers, 1)
	assert.Equal(t, models.MarkerRed, result.Markers[0].Color)
}

func TestMatchingOrders_Order(t *testing.T) {
	acme := models.Customer{ID: "1", Name: "Acme"}
	orders := []models.Order{
		{ID: "undated", CustomerID: "1"},
		{ID: "old", CustomerID: "1", Date: ts(renderNow.AddDate(0, -1, 0))},
		{ID: "new", CustomerID: "1", Date: ts(renderNow)},
		{ID: "other", CustomerID: "9"},
	}

	matching := service.MatchingOrders(acme, orders)

	require.Len(t, matching, 3)
	assert.Equal(t, models.ID("new"), matching[0].ID)
	assert.Equal(t, models.ID("old"), matching[1].ID)
	assert.Equal(t, models.ID("undated"), matching[2].ID)
}
