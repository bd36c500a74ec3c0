package geocoding_test

import (
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/UnknownOlympus/mapa/internal/geocoding"
	"github.com/UnknownOlympus/mapa/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGoogleProvider_Geocode(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, "es", slog.Default())
	ctx := t.Context()

	t.Run("api returns error", func(t *testing.T) {
		query := "some invalid place"
		req := &maps.GeocodingRequest{Address: query, Region: "es"}

		mockClient.On("Geocode", ctx, req).Return(nil, assert.AnError).Once()

		_, err := provider.Geocode(ctx, query)

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
		assert.False(t, geocoding.IsTransient(err))
		mockClient.AssertExpectations(t)
	})

	t.Run("quota errors are transient", func(t *testing.T) {
		query := "Calle Mayor 1, Madrid, España"
		req := &maps.GeocodingRequest{Address: query, Region: "es"}

		mockClient.On("Geocode", ctx, req).
			Return(nil, errors.New("maps: OVER_QUERY_LIMIT - You have exceeded your rate-limit")).Once()

		coords, err := provider.Geocode(ctx, query)

		require.Nil(t, coords)
		var statusErr *geocoding.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
		assert.True(t, geocoding.IsTransient(err))
	})

	t.Run("api return empty response", func(t *testing.T) {
		query := "some invalid place"
		req := &maps.GeocodingRequest{Address: query, Region: "es"}

		mockClient.On("Geocode", ctx, req).Return(nil, nil).Once()

		coords, err := provider.Geocode(ctx, query)

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNoResults)
		mockClient.AssertExpectations(t)
	})

	t.Run("successful geocoding", func(t *testing.T) {
		query := "Calle Mayor 1, Madrid, España"
		req := &maps.GeocodingRequest{Address: query, Region: "es"}
		mockResponse := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 40.41, Lng: -3.70}}},
		}

		mockClient.On("Geocode", ctx, req).Return(mockResponse, nil).Once()

		coords, err := provider.Geocode(ctx, query)

		require.NoError(t, err)
		require.NotNil(t, coords)
		require.InEpsilon(t, 40.41, coords.Latitude, 0.01)
		require.InEpsilon(t, -3.70, coords.Longitude, 0.01)
		mockClient.AssertExpectations(t)
	})
}
