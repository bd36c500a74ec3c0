package geocoding

import (
	"errors"
	"fmt"
	"log/slog"

	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
	// ProviderTypeVisicom represents Visicom Maps geocoding provider.
	ProviderTypeVisicom ProviderType = "visicom"
)

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType // Type of provider to create
	APIKey    string       // API key (Google and Visicom)
	RateLimit int          // Requests per second
	Language  string       // Preferred result language (Nominatim, Visicom)
	BaseURL   string       // Alternative endpoint (Nominatim, Visicom)
	Region    string       // Region bias (Google)
	UserAgent string       // User-Agent for the lookups (Nominatim)
	Logger    *slog.Logger // Logger for the provider
}

// NewProvider creates a geocoding provider based on the provided configuration.
//
// Supported provider types:
// - "nominatim": OpenStreetMap Nominatim API (free, no API key required)
// - "google": Google Maps Geocoding API (requires API key)
// - "visicom": Visicom Data API (requires API key)
//
// Nominatim and Visicom lookups are wrapped in a RateLimitedProvider; the Google
// client applies its own limit.
//
// Returns an error if the provider type is unsupported or if provider creation fails.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	case ProviderTypeNominatim:
		return newNominatimProvider(config)
	case ProviderTypeVisicom:
		return newVisicomProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

// newGoogleProvider creates a Google Maps geocoding provider.
func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
	}

	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Region, config.Logger), nil
}

// newNominatimProvider creates a Nominatim geocoding provider.
// The public instance allows one request per second, which is also the default.
func newNominatimProvider(config ProviderConfig) (Provider, error) {
	opts := []NominatimOption{
		WithNominatimBaseURL(config.BaseURL),
		WithNominatimUserAgent(config.UserAgent),
	}
	if config.Language != "" {
		opts = append(opts, WithNominatimLanguage(config.Language))
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}

	return RateLimited(NewNominatimProvider(config.Logger, opts...), NewLimiter(config.RateLimit)), nil
}

// newVisicomProvider creates a Visicom geocoding provider.
func newVisicomProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Visicom provider")
	}

	if config.RateLimit == 0 {
		config.RateLimit = 5
		config.Logger.Warn("Rate limit for Visicom API not set, set a default value", "value", config.RateLimit)
	}

	provider := NewVisicomProvider(config.APIKey, config.Logger,
		WithVisicomBaseURL(config.BaseURL),
		WithVisicomLanguage(config.Language),
	)
	return RateLimited(provider, NewLimiter(config.RateLimit)), nil
}
