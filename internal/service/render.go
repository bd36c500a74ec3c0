package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/UnknownOlympus/mapa/internal/models"
)

// DefaultRecentWindow is how far back a sale still colors a marker green.
const DefaultRecentWindow = 30 * 24 * time.Hour

// Popup texts for customers whose last sale date cannot be shown.
const (
	NoSalesText     = "Sin ventas"
	UnknownDateText = "Fecha desconocida"
)

// saleDateLayout is the date format of the popup.
const saleDateLayout = "02/01/2006"

// RenderResult is the outcome of one render pass.
type RenderResult struct {
	Markers []models.Marker
	Status  models.Status
}

// Render computes the markers and counters for the current data set.
// Markers are rebuilt from scratch on every pass; a customer id appearing
// twice in storage yields a single marker for its first record.
func Render(customers []models.Customer, orders []models.Order, now time.Time, window time.Duration) RenderResult {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	cutoff := now.Add(-window)

	result := RenderResult{Markers: []models.Marker{}}
	seen := make(map[models.ID]struct{}, len(customers))

	for _, customer := range customers {
		if !customer.Listed() {
			continue
		}
		result.Status.Total++

		switch {
		case customer.Located():
			result.Status.Located++
			if _, dup := seen[customer.ID]; dup && customer.ID != "" {
				continue
			}
			seen[customer.ID] = struct{}{}
			result.Markers = append(result.Markers, buildMarker(customer, orders, cutoff))
		case customer.Unresolvable():
			result.Status.Unresolvable++
		case customer.Pending():
			result.Status.Pending++
		}
	}

	result.Status.Counter = fmt.Sprintf("%d / %d", result.Status.Located, result.Status.Total)
	result.Status.Progress = progress(result.Status.Total, result.Status.Pending)

	return result
}

// MatchingOrders returns the orders of the customer, most recent first.
// Orders without a readable date sort last.
func MatchingOrders(customer models.Customer, orders []models.Order) []models.Order {
	matching := make([]models.Order, 0)
	for _, order := range orders {
		if order.BelongsTo(customer) {
			matching = append(matching, order)
		}
	}

	sort.SliceStable(matching, func(i, j int) bool {
		left, leftOK := matching[i].When()
		right, rightOK := matching[j].When()
		if leftOK != rightOK {
			return leftOK
		}
		return left.After(right)
	})
	return matching
}

func buildMarker(customer models.Customer, orders []models.Order, cutoff time.Time) models.Marker {
	marker := models.Marker{
		ID:       customer.ID,
		Name:     strings.TrimSpace(customer.Name),
		Address:  strings.TrimSpace(customer.Address),
		Lat:      float64(customer.Lat),
		Lon:      float64(customer.Lon),
		Color:    models.MarkerRed,
		SaleText: NoSalesText,
	}

	matching := MatchingOrders(customer, orders)
	if len(matching) == 0 {
		return marker
	}

	last, ok := matching[0].When()
	if !ok {
		marker.SaleText = UnknownDateText
		return marker
	}

	marker.LastSale = &last
	marker.SaleText = last.Format(saleDateLayout)
	if !last.Before(cutoff) {
		marker.Color = models.MarkerGreen
	}
	return marker
}

func progress(total, pending int) float64 {
	if total == 0 {
		return 0
	}
	const percent = 100
	value := float64(total-pending) / float64(total) * percent
	return math.Round(value*10) / 10
}
