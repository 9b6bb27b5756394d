package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creativedesignseo/taxi-bcn/internal/config"
	"github.com/creativedesignseo/taxi-bcn/internal/models"
	"github.com/creativedesignseo/taxi-bcn/internal/utils"
	"github.com/creativedesignseo/taxi-bcn/pkg/cache"
	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
	"github.com/creativedesignseo/taxi-bcn/pkg/maps"
	"github.com/creativedesignseo/taxi-bcn/pkg/metrics"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("location request timed out")
)

// PositionErrorKind follows the W3C geolocation error codes.
type PositionErrorKind int

const (
	PermissionDenied    PositionErrorKind = 1
	PositionUnavailable PositionErrorKind = 2
	Timeout             PositionErrorKind = 3
)

func (k PositionErrorKind) String() string {
	switch k {
	case PermissionDenied:
		return "permission_denied"
	case PositionUnavailable:
		return "position_unavailable"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

func (k PositionErrorKind) sentinel() error {
	switch k {
	case PermissionDenied:
		return ErrPermissionDenied
	case Timeout:
		return ErrTimeout
	default:
		return ErrPositionUnavailable
	}
}

// ParsePositionErrorKind accepts a W3C code ("1".."3") or a kind name.
func ParsePositionErrorKind(value string) (PositionErrorKind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "permission_denied":
		return PermissionDenied, true
	case "2", "position_unavailable":
		return PositionUnavailable, true
	case "3", "timeout":
		return Timeout, true
	default:
		return 0, false
	}
}

// PositionError is a geolocation failure. Match it with errors.Is against
// ErrPermissionDenied, ErrPositionUnavailable or ErrTimeout.
type PositionError struct {
	Kind PositionErrorKind
	Err  error
}

func (e *PositionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
	}
	return e.Kind.sentinel().Error()
}

func (e *PositionError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *PositionError) Unwrap() error {
	return e.Err
}

// Locator obtains the device position.
type Locator interface {
	Locate(ctx context.Context) (models.Coordinates, error)
}

// ReportedLocator replays the position a browser reported: either the
// coordinates or the geolocation error it got.
type ReportedLocator struct {
	Coordinates *models.Coordinates
	ErrorKind   PositionErrorKind
}

func (r ReportedLocator) Locate(ctx context.Context) (models.Coordinates, error) {
	if r.ErrorKind != 0 {
		return models.Coordinates{}, &PositionError{Kind: r.ErrorKind}
	}
	if r.Coordinates == nil {
		return models.Coordinates{}, &PositionError{Kind: PositionUnavailable, Err: errors.New("no position reported")}
	}
	return *r.Coordinates, nil
}

type LocationService interface {
	GetCurrentPosition(ctx context.Context, locator Locator) (models.Coordinates, error)
	ReverseGeocode(ctx context.Context, coords models.Coordinates, language string) *models.Place
	ResolveCurrentPlace(ctx context.Context, locator Locator, language string) (models.Place, error)
}

type locationService struct {
	provider        maps.MapsProvider
	cache           cache.Store
	cacheTTL        time.Duration
	timeout         time.Duration
	providerTimeout time.Duration
	defaultLanguage string
	logger          *logger.Logger
}

func NewLocationService(cfg *config.Config, provider maps.MapsProvider, store cache.Store, log *logger.Logger) LocationService {
	return &locationService{
		provider:        provider,
		cache:           store,
		cacheTTL:        cfg.Maps.Search.ReverseCacheTTL,
		timeout:         cfg.Booking.LocationTimeout,
		providerTimeout: cfg.Maps.Timeout,
		defaultLanguage: cfg.App.DefaultLanguage,
		logger:          log.WithField("service", "location"),
	}
}

type locateResult struct {
	coords models.Coordinates
	err    error
}

func (s *locationService) GetCurrentPosition(ctx context.Context, locator Locator) (models.Coordinates, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	results := make(chan locateResult, 1)
	go func() {
		coords, err := locator.Locate(ctx)
		results <- locateResult{coords: coords, err: err}
	}()

	select {
	case <-ctx.Done():
		return models.Coordinates{}, &PositionError{Kind: Timeout, Err: ctx.Err()}
	case result := <-results:
		if result.err != nil {
			return models.Coordinates{}, asPositionError(result.err)
		}
		if !result.coords.Valid() {
			return models.Coordinates{}, &PositionError{Kind: PositionUnavailable, Err: models.ErrInvalidCoordinates}
		}
		return result.coords, nil
	}
}

func asPositionError(err error) error {
	var positionErr *PositionError
	if errors.As(err, &positionErr) {
		return positionErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &PositionError{Kind: Timeout, Err: err}
	}
	return &PositionError{Kind: PositionUnavailable, Err: err}
}

type cachedLabel struct {
	Label string `json:"label"`
}

func (s *locationService) ReverseGeocode(ctx context.Context, coords models.Coordinates, language string) *models.Place {
	if language == "" {
		language = s.defaultLanguage
	}
	key := utils.CoordinateKey("reverse:"+language, coords.Latitude, coords.Longitude)

	var cached cachedLabel
	err := s.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		if place, err := models.NewPlace(cached.Label, coords); err == nil {
			return &place
		}
	case !errors.Is(err, cache.ErrCacheMiss):
		s.logger.WithError(err).Warn("Reverse geocode cache read failed")
	}

	providerCtx, cancel := withTimeout(ctx, s.providerTimeout)
	defer cancel()

	start := time.Now()
	feature, err := s.provider.ReverseGeocode(providerCtx, &maps.ReverseGeocodeRequest{
		Location: maps.Location{Latitude: coords.Latitude, Longitude: coords.Longitude},
		Language: language,
	})
	duration := time.Since(start)
	metrics.RecordProviderCall(s.provider.Name(), "reverse_geocode", duration, err)
	s.logger.LogProviderCall(s.provider.Name(), "reverse_geocode", duration, err)
	if err != nil {
		return nil
	}

	// The place keeps the device position, not the matched feature's.
	place, err := models.NewPlace(feature.Label(), coords)
	if err != nil {
		return nil
	}

	if err := s.cache.Set(ctx, key, cachedLabel{Label: place.Label}, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Reverse geocode cache write failed")
	}
	return &place
}

func (s *locationService) ResolveCurrentPlace(ctx context.Context, locator Locator, language string) (models.Place, error) {
	coords, err := s.GetCurrentPosition(ctx, locator)
	if err != nil {
		return models.Place{}, err
	}

	if place := s.ReverseGeocode(ctx, coords, language); place != nil {
		return *place, nil
	}

	return models.Place{
		Label:       utils.CoordinateLabel(coords.Latitude, coords.Longitude),
		Coordinates: coords,
	}, nil
}
