package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/mapa/internal/models"
)

const (
	// NominatimBaseURL is the public Nominatim search endpoint.
	NominatimBaseURL = "https://nominatim.openstreetmap.org/search"
	// DefaultUserAgent identifies the service to Nominatim, as its usage policy requires.
	DefaultUserAgent = "Mapa-Customer-Map/1.0 (https://github.com/UnknownOlympus/mapa)"
)

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client   HTTPClient   // HTTP client for making requests
	baseURL  string       // Base URL for the Nominatim API
	log      *slog.Logger // Logger for logging operations
	language string       // Preferred result language
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// nominatimResponse represents the JSON response from Nominatim API.
type nominatimResponse struct {
	Lat string `json:"lat"` // Latitude as string
	Lon string `json:"lon"` // Longitude as string
}

// NominatimOption customizes a NominatimProvider.
type NominatimOption func(*NominatimProvider)

// WithNominatimBaseURL points the provider to another Nominatim instance.
func WithNominatimBaseURL(baseURL string) NominatimOption {
	return func(np *NominatimProvider) {
		if baseURL != "" {
			np.baseURL = baseURL
		}
	}
}

// WithNominatimLanguage sets the accept-language of the lookups.
func WithNominatimLanguage(language string) NominatimOption {
	return func(np *NominatimProvider) {
		np.language = language
	}
}

// WithNominatimUserAgent overrides the User-Agent sent with every lookup.
func WithNominatimUserAgent(userAgent string) NominatimOption {
	return func(np *NominatimProvider) {
		if userAgent != "" {
			np.userAgent = userAgent
		}
	}
}

// NewNominatimProvider creates a new Nominatim geocoding provider.
// Uses the public Nominatim API endpoint by default.
func NewNominatimProvider(log *slog.Logger, opts ...NominatimOption) *NominatimProvider {
	const timeout = 10
	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout * time.Second}, log, opts...)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(client HTTPClient, log *slog.Logger, opts ...NominatimOption) *NominatimProvider {
	np := &NominatimProvider{
		client:    client,
		baseURL:   NominatimBaseURL,
		log:       log,
		language:  "es",
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(np)
	}
	return np
}

// Geocode performs exactly one search request limited to one result.
func (np *NominatimProvider) Geocode(ctx context.Context, query string) (*models.Coordinates, error) {
	np.log.DebugContext(ctx, "Geocoding using Nominatim", "query", query)

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	params := reqURL.Query()
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1") // Only need the top result
	if np.language != "" {
		params.Set("accept-language", np.language)
	}
	reqURL.RawQuery = params.Encode()

	np.log.DebugContext(ctx, "Nominatim request URL", "url", reqURL.String())

	// User-Agent is required by the Nominatim usage policy
	header := http.Header{}
	header.Set("User-Agent", np.userAgent)

	var results []nominatimResponse
	if err = getJSON(ctx, np.client, "nominatim", reqURL, header, &results); err != nil {
		np.log.WarnContext(ctx, "Nominatim lookup failed", "error", err)
		return nil, err
	}

	if len(results) == 0 {
		return nil, ErrNoResults
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(results[0].Lat), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrInvalidCoords, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(results[0].Lon), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrInvalidCoords, results[0].Lon)
	}

	np.log.DebugContext(ctx, "Nominatim found result", "lat", lat, "lon", lon)

	return &models.Coordinates{
		Latitude:  lat,
		Longitude: lon,
	}, nil
}
