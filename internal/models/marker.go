package models

import "time"

// MarkerColor is the pin color of a located customer.
type MarkerColor string

const (
	// MarkerGreen marks a customer with a sale inside the recent window.
	MarkerGreen MarkerColor = "green"
	// MarkerRed marks a customer without a recent sale.
	MarkerRed MarkerColor = "red"
)

// Marker is the render-only representation of a located customer.
type Marker struct {
	ID       ID          `json:"id"`
	Name     string      `json:"name"`
	Address  string      `json:"address"`
	Lat      float64     `json:"lat"`
	Lon      float64     `json:"lon"`
	Color    MarkerColor `json:"color"`
	LastSale *time.Time  `json:"last_sale,omitempty"`
	SaleText string      `json:"sale_text"`
}

// Status is the state shown in the progress panel.
type Status struct {
	Text         string  `json:"text"`
	Counter      string  `json:"counter"`
	Total        int     `json:"total"`
	Located      int     `json:"located"`
	Pending      int     `json:"pending"`
	Unresolvable int     `json:"unresolvable"`
	Progress     float64 `json:"progress"`
	Searching    bool    `json:"searching"`
}

// MapView is the initial center and zoom of the map.
type MapView struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Zoom      int     `json:"zoom"`
	TileURL   string  `json:"tile_url"`
}

// Snapshot is everything the widget script needs to draw one frame.
type Snapshot struct {
	Visible    bool     `json:"visible"`
	MapReady   bool     `json:"map_ready"`
	Generation int      `json:"generation"`
	View       MapView  `json:"view"`
	Markers    []Marker `json:"markers"`
	Status     Status   `json:"status"`
	RenderedAt string   `json:"rendered_at"`
}
