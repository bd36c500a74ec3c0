package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/UnknownOlympus/mapa/internal/models"
)

// Provider is an interface that defines a method for geocoding an address.
// The Geocode method takes a context and a free-text query as input,
// and returns the coordinates of the best match.
//
// Errors fall in three classes the caller can tell apart:
// ErrNoResults (the address will never resolve), *StatusError (the service
// answered with a non-success status and may succeed later) and anything else.
type Provider interface {
	Geocode(ctx context.Context, query string) (*models.Coordinates, error)
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

var (
	// ErrNoResults is returned when the provider answered successfully with zero matches.
	ErrNoResults = errors.New("geocoding returned no results")
	// ErrInvalidCoords is returned when the provider answered with coordinates that cannot be parsed.
	ErrInvalidCoords = errors.New("geocoding returned invalid coordinates")
)

// StatusError is returned when the provider answered with a non-success HTTP status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.Code, e.Body)
}

// IsTransient reports whether err is a non-success answer worth retrying soon.
func IsTransient(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}
