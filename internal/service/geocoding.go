package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/UnknownOlympus/mapa/internal/geocoding"
	"github.com/UnknownOlympus/mapa/internal/metrics"
	"github.com/UnknownOlympus/mapa/internal/models"
	"github.com/UnknownOlympus/mapa/internal/repository"
)

// DefaultCountry is appended to every query.
const DefaultCountry = "España"

// Delays between queue cycles.
type Delays struct {
	Courtesy time.Duration // after a stored result, keeps the provider's rate limit
	Retry    time.Duration // after a non-success status from the provider
	Failure  time.Duration // after any other error
}

// DefaultDelays returns the delays used when nothing is configured.
func DefaultDelays() Delays {
	const courtesyMillis = 1200
	return Delays{
		Courtesy: courtesyMillis * time.Millisecond,
		Retry:    3 * time.Second,
		Failure:  5 * time.Second,
	}
}

// Outcome classifies one geocoding cycle.
type Outcome string

const (
	OutcomeLocated      Outcome = "located"      // coordinates stored
	OutcomeUnresolvable Outcome = "unresolvable" // sentinel stored
	OutcomeTransient    Outcome = "transient"    // bad status, nothing stored
	OutcomeFailed       Outcome = "failed"       // unexpected error, nothing stored
)

// StepResult describes what a single cycle did and when the next one is due.
type StepResult struct {
	Customer    models.Customer
	Outcome     Outcome
	Coordinates models.Coordinates
	Next        time.Duration
	Err         error
}

// Updated reports whether the cycle wrote to storage.
func (r StepResult) Updated() bool {
	return r.Outcome == OutcomeLocated || r.Outcome == OutcomeUnresolvable
}

// GeocodingService resolves pending customers one at a time.
type GeocodingService struct {
	log          *slog.Logger         // Logger for logging service activities
	repo         repository.Interface // Interface for data repository access
	provider     geocoding.Provider   // Geocoding provider for external geocoding services
	providerName string               // Name of the provider for metrics labeling
	metrics      *metrics.Metrics     // Metrics for tracking service performance
	country      string               // Country appended to every query
	delays       Delays               // Delays between cycles
}

// NewGeocodingService creates a new instance of GeocodingService.
// Zero delays fall back to DefaultDelays and an empty country to DefaultCountry.
func NewGeocodingService(
	log *slog.Logger,
	repo repository.Interface,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	country string,
	delays Delays,
) *GeocodingService {
	defaults := DefaultDelays()
	if delays.Courtesy <= 0 {
		delays.Courtesy = defaults.Courtesy
	}
	if delays.Retry <= 0 {
		delays.Retry = defaults.Retry
	}
	if delays.Failure <= 0 {
		delays.Failure = defaults.Failure
	}
	if country == "" {
		country = DefaultCountry
	}

	return &GeocodingService{
		log:          log,
		repo:         repo,
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
		country:      country,
		delays:       delays,
	}
}

// Delays returns the configured delays.
func (gs *GeocodingService) Delays() Delays {
	return gs.delays
}

// NextPending returns the first pending customer in stored order.
func NextPending(customers []models.Customer) (models.Customer, bool) {
	for _, customer := range customers {
		if customer.Pending() {
			return customer, true
		}
	}
	return models.Customer{}, false
}

// BuildQuery joins address, city, province and country with ", ".
func BuildQuery(customer models.Customer, country string) string {
	parts := make([]string, 0, 4)
	for _, part := range []string{customer.Address, customer.City, customer.Province, country} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// Next reads the stored customers and returns the first pending one.
func (gs *GeocodingService) Next(ctx context.Context) (models.Customer, bool, error) {
	customers, err := gs.repo.ListCustomers(ctx)
	if err != nil {
		return models.Customer{}, false, err
	}
	customer, ok := NextPending(customers)
	return customer, ok, nil
}

// Geocode performs exactly one lookup for the customer and stores the outcome.
func (gs *GeocodingService) Geocode(ctx context.Context, customer models.Customer) StepResult {
	query := BuildQuery(customer, gs.country)
	result := StepResult{Customer: customer}

	gs.log.DebugContext(ctx, "Processing customer",
		"customer", customer.ID, "position", customer.Position, "query", query)

	startTime := time.Now()
	coords, err := gs.provider.Geocode(ctx, query)
	gs.metrics.RequestSeconds.WithLabelValues(gs.providerName).Observe(time.Since(startTime).Seconds())
	if err == nil && coords == nil {
		err = geocoding.ErrNoResults
	}

	switch {
	case err == nil:
		result.Outcome = OutcomeLocated
		result.Coordinates = *coords
	case errors.Is(err, geocoding.ErrNoResults):
		gs.log.InfoContext(ctx, "Address could not be resolved, marking it", "customer", customer.ID, "query", query)
		result.Outcome = OutcomeUnresolvable
		result.Coordinates = models.Unresolvable()
	case geocoding.IsTransient(err):
		gs.metrics.APIErrors.Inc()
		gs.log.WarnContext(ctx, "Geocoding provider refused the request, retrying later",
			"customer", customer.ID, "error", err)
		return gs.finish(result, OutcomeTransient, gs.delays.Retry, err)
	default:
		if ctx.Err() == nil {
			gs.metrics.APIErrors.Inc()
		}
		return gs.fail(ctx, result, err)
	}

	if err = gs.repo.UpdateCustomerCoordinates(ctx, customer, result.Coordinates); err != nil {
		return gs.fail(ctx, result, err)
	}

	gs.log.DebugContext(ctx, "Customer geocoded", "customer", customer.ID, "outcome", result.Outcome,
		"lat", result.Coordinates.Latitude, "lon", result.Coordinates.Longitude)

	return gs.finish(result, result.Outcome, gs.delays.Courtesy, nil)
}

func (gs *GeocodingService) fail(ctx context.Context, result StepResult, err error) StepResult {
	if ctx.Err() != nil {
		gs.log.DebugContext(ctx, "Geocoding cycle cancelled", "customer", result.Customer.ID)
	} else {
		gs.log.ErrorContext(ctx, "Failed to geocode", "customer", result.Customer.ID, "error", err)
	}
	return gs.finish(result, OutcomeFailed, gs.delays.Failure, err)
}

func (gs *GeocodingService) finish(result StepResult, outcome Outcome, next time.Duration, err error) StepResult {
	result.Outcome = outcome
	result.Next = next
	result.Err = err
	if !result.Updated() {
		result.Coordinates = models.Coordinates{}
	}
	gs.metrics.CustomersProcessed.WithLabelValues(string(outcome)).Inc()
	return result
}
