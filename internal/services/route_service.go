package services

import (
	"context"
	"errors"
	"time"

	"github.com/creativedesignseo/taxi-bcn/internal/config"
	"github.com/creativedesignseo/taxi-bcn/internal/models"
	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
	"github.com/creativedesignseo/taxi-bcn/pkg/maps"
	"github.com/creativedesignseo/taxi-bcn/pkg/metrics"
)

type RouteService interface {
	// GetRoute returns the driving route between two places, or nil when
	// there is none or the provider failed.
	GetRoute(ctx context.Context, origin, destination models.Place) *models.RouteEstimate
}

type routeService struct {
	provider maps.MapsProvider
	timeout  time.Duration
	language string
	logger   *logger.Logger
}

func NewRouteService(cfg *config.Config, provider maps.MapsProvider, log *logger.Logger) RouteService {
	return &routeService{
		provider: provider,
		timeout:  cfg.Booking.RouteTimeout,
		language: cfg.App.DefaultLanguage,
		logger:   log.WithField("service", "route"),
	}
}

func (s *routeService) GetRoute(ctx context.Context, origin, destination models.Place) *models.RouteEstimate {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	response, err := s.provider.GetDirections(ctx, &maps.DirectionsRequest{
		Origin:      toLocation(origin.Coordinates),
		Destination: toLocation(destination.Coordinates),
		Mode:        "driving",
		Language:    s.language,
	})
	duration := time.Since(start)
	metrics.RecordProviderCall(s.provider.Name(), "directions", duration, err)
	s.logger.LogProviderCall(s.provider.Name(), "directions", duration, err)

	if err != nil {
		if errors.Is(err, maps.ErrNoRoute) {
			s.logger.WithFields(map[string]interface{}{
				"origin":      origin.Label,
				"destination": destination.Label,
			}).Info("No driving route between places")
		}
		return nil
	}
	if len(response.Routes) == 0 {
		return nil
	}

	route := response.Routes[0]
	if route.Distance <= 0 || route.Duration <= 0 {
		s.logger.WithFields(map[string]interface{}{
			"distance": route.Distance,
			"duration": route.Duration,
		}).Warn("Discarding route with non-positive distance or duration")
		return nil
	}

	geometry := make([]models.Coordinates, 0, len(route.Geometry))
	for _, point := range route.Geometry {
		geometry = append(geometry, models.Coordinates{Longitude: point.Longitude, Latitude: point.Latitude})
	}

	return &models.RouteEstimate{
		DistanceMeters:  route.Distance,
		DurationSeconds: route.Duration,
		Geometry:        geometry,
	}
}

func toLocation(c models.Coordinates) maps.Location {
	return maps.Location{Latitude: c.Latitude, Longitude: c.Longitude}
}
