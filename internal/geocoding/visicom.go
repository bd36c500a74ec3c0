package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/mapa/internal/models"
)

// VisicomBaseURL is the Visicom Data API endpoint; %s is the result language.
const VisicomBaseURL = "https://api.visicom.ua/data-api/5.0/%s/geocode.json"

// VisicomProvider implements geocoding using the Visicom Data API.
type VisicomProvider struct {
	client   HTTPClient   // HTTP client for making requests
	baseURL  string       // Endpoint template, see VisicomBaseURL
	language string       // Result language: uk, en or ru
	apiKey   string       // API key with geocoding access
	log      *slog.Logger // Logger for logging operations
}

// Errors specific to the Visicom provider.
var (
	ErrVisicomEmptyAddress = errors.New("visicom provider got empty address")
	ErrVisicomUnauthorized = errors.New("visicom API unauthorized (invalid API key)")
)

// visicomResponse is the Visicom answer, reduced to what geocoding needs.
type visicomResponse struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geo_centroid"`
}

// VisicomOption customizes a VisicomProvider.
type VisicomOption func(*VisicomProvider)

// WithVisicomBaseURL replaces the endpoint template.
func WithVisicomBaseURL(baseURL string) VisicomOption {
	return func(vp *VisicomProvider) {
		if baseURL != "" {
			vp.baseURL = baseURL
		}
	}
}

// WithVisicomLanguage sets the language of the results. Languages the API
// does not serve are ignored.
func WithVisicomLanguage(language string) VisicomOption {
	return func(vp *VisicomProvider) {
		switch language {
		case "uk", "en", "ru":
			vp.language = language
		}
	}
}

// NewVisicomProvider creates a new Visicom geocoding provider.
func NewVisicomProvider(apiKey string, log *slog.Logger, opts ...VisicomOption) *VisicomProvider {
	const timeout = 10
	return NewVisicomProviderWithClient(&http.Client{Timeout: timeout * time.Second}, apiKey, log, opts...)
}

// NewVisicomProviderWithClient allows injecting custom HTTP client.
func NewVisicomProviderWithClient(
	client HTTPClient,
	apiKey string,
	log *slog.Logger,
	opts ...VisicomOption,
) *VisicomProvider {
	vp := &VisicomProvider{
		client:   client,
		baseURL:  VisicomBaseURL,
		language: "uk",
		apiKey:   apiKey,
		log:      log,
	}
	for _, opt := range opts {
		opt(vp)
	}
	return vp
}

func (vp *VisicomProvider) endpoint() string {
	if strings.Contains(vp.baseURL, "%s") {
		return fmt.Sprintf(vp.baseURL, vp.language)
	}
	return vp.baseURL
}

// Geocode converts a query into geographic coordinates using the Visicom API.
func (vp *VisicomProvider) Geocode(ctx context.Context, query string) (*models.Coordinates, error) {
	const coordsListLength = 2

	if query == "" {
		return nil, ErrVisicomEmptyAddress
	}

	vp.log.DebugContext(ctx, "Geocoding using Visicom", "query", query)

	reqURL, err := url.Parse(vp.endpoint())
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	params := reqURL.Query()
	params.Set("text", query)
	params.Set("limit", "1")
	params.Set("key", vp.apiKey)
	reqURL.RawQuery = params.Encode()

	var result visicomResponse
	err = getJSON(ctx, vp.client, "visicom", reqURL, nil, &result)

	var statusErr *StatusError
	if errors.As(err, &statusErr) &&
		(statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden) {
		return nil, fmt.Errorf("%w: %w", ErrVisicomUnauthorized, statusErr)
	}
	if err != nil {
		vp.log.WarnContext(ctx, "Visicom lookup failed", "error", err)
		return nil, err
	}

	coords := result.Geometry.Coordinates
	if len(coords) == 0 {
		return nil, ErrNoResults
	}
	if len(coords) != coordsListLength {
		return nil, fmt.Errorf("%w: expected [lon, lat], got %v", ErrInvalidCoords, coords)
	}

	vp.log.DebugContext(ctx, "Visicom found result", "query", query, "lat", coords[1], "lon", coords[0])

	return &models.Coordinates{Latitude: coords[1], Longitude: coords[0]}, nil
}
