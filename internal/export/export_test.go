package export_test

import (
	"bytes"
	"testing"

	"github.com/UnknownOlympus/mapa/internal/export"
	"github.com/UnknownOlympus/mapa/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBuildRows(t *testing.T) {
	customers := []models.Customer{
		{ID: "1", Name: "Ana", Address: "Calle Mayor 1", Lat: 40.41, Lon: -3.70},
		{ID: "2", Name: "Bruno", Address: "Nowhere 99", Lat: models.SentinelCoordinate, Lon: models.SentinelCoordinate},
		{ID: "3", Name: "Carla", Address: "Gran Via 2"},
		{ID: "4", Name: "Dani"},
		{ID: "5"},
	}
	markers := []models.Marker{{ID: "1", SaleText: "10/10/2026"}}

	rows := export.BuildRows(customers, markers)

	require.Len(t, rows, 4, "customers without name and address are skipped")
	assert.Equal(t, "located", rows[0].State)
	assert.Equal(t, "10/10/2026", rows[0].LastSale)
	assert.InDelta(t, 40.41, rows[0].Lat, 1e-9)
	assert.Equal(t, "unresolvable", rows[1].State)
	assert.Zero(t, rows[1].Lat, "sentinel coordinates are not exported")
	assert.Equal(t, "pending", rows[2].State)
	assert.Equal(t, export.StateNoAddress, rows[3].State)
}

func TestWriteCustomers(t *testing.T) {
	rows := []export.Row{
		{ID: "1", Name: "Ana", Address: "Calle Mayor 1", City: "Madrid", State: "located", Lat: 40.41, Lon: -3.7, LastSale: "Sin ventas"},
		{ID: "2", Name: "Bruno", State: "pending"},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteCustomers(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{export.SheetName}, f.GetSheetList())

	got, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Nombre", got[0][1])
	assert.Equal(t, []string{"1", "Ana", "Calle Mayor 1", "Madrid", "", "located", "40.41", "-3.7", "Sin ventas"}, got[1])
	assert.Equal(t, "Bruno", got[2][1])
}

func TestWriteCustomers_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCustomers(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, got, 1, "header only")
}
