// Package export writes the customer map as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/UnknownOlympus/mapa/internal/metrics"
	"github.com/UnknownOlympus/mapa/internal/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the only sheet in the workbook.
const SheetName = "Clientes"

// StateNoAddress marks customers that are never queued.
const StateNoAddress = "no_address"

// Row is one customer line of the workbook.
type Row struct {
	ID       string
	Name     string
	Address  string
	City     string
	Province string
	State    string
	Lat      float64
	Lon      float64
	LastSale string
}

// BuildRows joins stored customers with the rendered markers.
// Customers that have neither a name nor an address are left out.
func BuildRows(customers []models.Customer, markers []models.Marker) []Row {
	sales := make(map[models.ID]string, len(markers))
	for _, marker := range markers {
		sales[marker.ID] = marker.SaleText
	}

	rows := make([]Row, 0, len(customers))
	for _, customer := range customers {
		if !customer.Listed() {
			continue
		}
		row := Row{
			ID:       string(customer.ID),
			Name:     customer.Name,
			Address:  customer.Address,
			City:     customer.City,
			Province: customer.Province,
			State:    state(customer),
		}
		if customer.Located() {
			row.Lat = float64(customer.Lat)
			row.Lon = float64(customer.Lon)
			row.LastSale = sales[customer.ID]
		}
		rows = append(rows, row)
	}
	return rows
}

func state(customer models.Customer) string {
	switch {
	case customer.Located():
		return metrics.StateLocated
	case customer.Unresolvable():
		return metrics.StateUnresolvable
	case customer.Pending():
		return metrics.StatePending
	default:
		return StateNoAddress
	}
}

// WriteCustomers streams the rows into an XLSX workbook written to w.
func WriteCustomers(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	headers := []any{"ID", "Nombre", "Dirección", "Ciudad", "Provincia", "Estado", "Lat", "Lon", "Última venta"}
	if err = sw.SetRow("A1", headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{r.ID, r.Name, r.Address, r.City, r.Province, r.State, r.Lat, r.Lon, r.LastSale}
		if err = sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err = sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	if _, err = f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
