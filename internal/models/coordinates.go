package models

// SentinelCoordinate is stored on both axes when a lookup returned no results.
// It marks the address as unresolvable so the queue never selects it again.
const SentinelCoordinate = 0.0001

// Coordinates represents a geographical point defined by its longitude and latitude.
type Coordinates struct {
	Longitude float64 `json:"lon"` // Longitude of the geographical point.
	Latitude  float64 `json:"lat"` // Latitude of the geographical point.
}

// Unresolvable returns the coordinates written for an address the provider could not find.
func Unresolvable() Coordinates {
	return Coordinates{Latitude: SentinelCoordinate, Longitude: SentinelCoordinate}
}
