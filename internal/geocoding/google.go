package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/UnknownOlympus/mapa/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps geocoding services.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	region string          // region biases results towards a ccTLD, e.g. "es"
	log    *slog.Logger    // log is the logger for logging operations
}

// GoogleAPIClient is the part of *maps.Client the provider uses.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider wraps an already configured Google Maps client.
func NewGoogleProvider(client GoogleAPIClient, region string, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, region: region, log: log}
}

// googleStatuses maps retryable Geocoding API statuses to the HTTP code they
// are reported with. The maps client returns them as plain errors.
var googleStatuses = map[string]int{
	"OVER_QUERY_LIMIT": http.StatusTooManyRequests,
	"OVER_DAILY_LIMIT": http.StatusTooManyRequests,
	"UNKNOWN_ERROR":    http.StatusServiceUnavailable,
}

// Geocode returns the coordinates of the first match of query using the Google
// Maps Geocoding API. An empty result set is reported as ErrNoResults and quota
// or server statuses as a *StatusError.
func (gp *GoogleProvider) Geocode(ctx context.Context, query string) (*models.Coordinates, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "query", query)

	req := maps.GeocodingRequest{Address: query, Region: gp.region}
	geocodeResponse, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		for status, code := range googleStatuses {
			if strings.Contains(err.Error(), status) {
				return nil, &StatusError{Provider: "google", Code: code, Body: err.Error()}
			}
		}
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrNoResults
	}
	coords := geocodeResponse[0].Geometry.Location

	return &models.Coordinates{Longitude: coords.Lng, Latitude: coords.Lat}, nil
}
