package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/creativedesignseo/taxi-bcn/internal/config"
	"github.com/creativedesignseo/taxi-bcn/internal/models"
	"github.com/creativedesignseo/taxi-bcn/internal/utils"
	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
	"github.com/creativedesignseo/taxi-bcn/pkg/maps"
	"github.com/creativedesignseo/taxi-bcn/pkg/metrics"
)

type GeoSuggestService interface {
	// Suggest returns autocomplete candidates for query. It never fails:
	// short queries and provider errors both yield an empty list.
	Suggest(ctx context.Context, query string, session models.SearchSession, language string) []models.SuggestionCandidate

	// RetrieveDetails resolves an unresolved candidate. nil on any failure.
	RetrieveDetails(ctx context.Context, candidateID string, session models.SearchSession, language string) *models.Place

	MinQueryLength() int
}

type geoSuggestService struct {
	provider        maps.MapsProvider
	search          *config.SearchConfig
	proximity       maps.Location
	bbox            *maps.BoundingBox
	defaultLanguage string
	timeout         time.Duration
	logger          *logger.Logger
}

func NewGeoSuggestService(cfg *config.Config, provider maps.MapsProvider, log *logger.Logger) (GeoSuggestService, error) {
	search := cfg.Maps.Search

	var bbox *maps.BoundingBox
	if len(search.BBox) == 4 {
		values, err := utils.ParseFloats(search.BBox)
		if err != nil {
			return nil, fmt.Errorf("failed to parse search bbox: %w", err)
		}
		bbox = &maps.BoundingBox{
			MinLongitude: values[0],
			MinLatitude:  values[1],
			MaxLongitude: values[2],
			MaxLatitude:  values[3],
		}
	}

	return &geoSuggestService{
		provider: provider,
		search:   search,
		proximity: maps.Location{
			Longitude: search.ProximityLongitude,
			Latitude:  search.ProximityLatitude,
		},
		bbox:            bbox,
		defaultLanguage: cfg.App.DefaultLanguage,
		timeout:         cfg.Maps.Timeout,
		logger:          log.WithField("service", "geo_suggest"),
	}, nil
}

func (s *geoSuggestService) MinQueryLength() int {
	return s.search.MinQueryLength
}

func (s *geoSuggestService) Suggest(ctx context.Context, query string, session models.SearchSession, language string) []models.SuggestionCandidate {
	candidates := []models.SuggestionCandidate{}
	if utf8.RuneCountInString(query) < s.search.MinQueryLength {
		metrics.SuggestSkippedTotal.Inc()
		return candidates
	}

	request := &maps.SuggestRequest{
		Query:        query,
		SessionToken: session.String(),
		Proximity:    &s.proximity,
		BBox:         s.bbox,
		Country:      s.search.Country,
		Language:     s.language(language),
		Types:        s.search.Types,
		Limit:        s.search.Limit,
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	suggestions, err := s.provider.Suggest(ctx, request)
	s.record("suggest", start, err)
	if err != nil {
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"session_token": session.String(),
			"query_length":  utf8.RuneCountInString(query),
		}).WithError(err).Warn("Suggest failed, returning no candidates")
		return candidates
	}

	for i, suggestion := range suggestions {
		candidate := models.SuggestionCandidate{
			ID:          suggestion.ID,
			DisplayText: suggestion.DisplayText(),
		}
		if candidate.ID == "" {
			candidate.ID = fmt.Sprintf("candidate-%d", i)
		}
		if suggestion.Location != nil {
			if place, ok := placeFromLocation(candidate.DisplayText, *suggestion.Location); ok {
				candidate.Resolved = true
				candidate.Place = &place
			}
		}
		if !candidate.Resolved && suggestion.ID == "" {
			// Nothing to retrieve it by.
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates
}

func (s *geoSuggestService) RetrieveDetails(ctx context.Context, candidateID string, session models.SearchSession, language string) *models.Place {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	feature, err := s.provider.Retrieve(ctx, &maps.RetrieveRequest{
		ID:           candidateID,
		SessionToken: session.String(),
		Language:     s.language(language),
	})
	s.record("retrieve", start, err)
	if err != nil {
		s.logger.WithContext(ctx).WithField("candidate_id", candidateID).WithError(err).Warn("Retrieve failed")
		return nil
	}

	place, ok := placeFromLocation(feature.Label(), feature.Location)
	if !ok {
		s.logger.WithField("candidate_id", candidateID).Warn("Retrieve returned no usable place")
		return nil
	}
	return &place
}

func (s *geoSuggestService) language(language string) string {
	if language == "" {
		return s.defaultLanguage
	}
	return language
}

// withTimeout bounds ctx by d. A non-positive d leaves ctx unbounded
// instead of expiring it at once.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (s *geoSuggestService) record(operation string, start time.Time, err error) {
	duration := time.Since(start)
	metrics.RecordProviderCall(s.provider.Name(), operation, duration, err)
	s.logger.LogProviderCall(s.provider.Name(), operation, duration, err)
}

func placeFromLocation(label string, location maps.Location) (models.Place, bool) {
	coords, err := models.NewCoordinates(location.Longitude, location.Latitude)
	if err != nil {
		return models.Place{}, false
	}
	place, err := models.NewPlace(label, coords)
	if err != nil {
		return models.Place{}, false
	}
	return place, true
}
