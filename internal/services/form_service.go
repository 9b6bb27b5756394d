package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/creativedesignseo/taxi-bcn/internal/config"
	"github.com/creativedesignseo/taxi-bcn/internal/models"
	"github.com/creativedesignseo/taxi-bcn/internal/validators"
	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
	"github.com/creativedesignseo/taxi-bcn/pkg/metrics"
	"github.com/google/uuid"
)

type FormService interface {
	Create(ctx context.Context, language string) (*BookingForm, error)
	Get(id string) (*BookingForm, error)
	Close(id string) error

	// Handoff validates contact and builds the messaging link for a
	// submittable form.
	Handoff(ctx context.Context, id string, contact models.ContactInfo) (string, error)
	QuickContactLink(origin, destination, pickupTime string) string

	// ReapIdle closes forms idle for longer than the form TTL.
	ReapIdle(now time.Time) int
	RunJanitor(ctx context.Context)
	Shutdown()
	Count() int
}

type formService struct {
	config   *config.Config
	suggest  GeoSuggestService
	location LocationService
	routes   RouteService
	composer HandoffComposer
	slots    SlotPolicy

	scheduler Scheduler
	clock     func() time.Time
	observer  FormObserver
	logger    *logger.Logger

	mu    sync.RWMutex
	forms map[string]*BookingForm
}

type FormServiceOption func(*formService)

func WithScheduler(scheduler Scheduler) FormServiceOption {
	return func(s *formService) { s.scheduler = scheduler }
}

func WithClock(clock func() time.Time) FormServiceOption {
	return func(s *formService) { s.clock = clock }
}

func WithObserver(observer FormObserver) FormServiceOption {
	return func(s *formService) { s.observer = observer }
}

func NewFormService(
	cfg *config.Config,
	suggest GeoSuggestService,
	location LocationService,
	routes RouteService,
	composer HandoffComposer,
	log *logger.Logger,
	opts ...FormServiceOption,
) FormService {
	s := &formService{
		config:    cfg,
		suggest:   suggest,
		location:  location,
		routes:    routes,
		composer:  composer,
		slots:     NewSlotPolicy(cfg.Booking, cfg.App.Location()),
		scheduler: NewSystemScheduler(),
		clock:     time.Now,
		observer:  noopObserver{},
		logger:    log.WithField("service", "forms"),
		forms:     make(map[string]*BookingForm),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *formService) Create(ctx context.Context, language string) (*BookingForm, error) {
	if language == "" {
		language = s.config.App.DefaultLanguage
	}
	if !s.config.App.Supports(language) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	id := uuid.NewString()
	form := NewBookingForm(id, language, FormDependencies{
		Suggest:   s.suggest,
		Location:  s.location,
		Routes:    s.routes,
		Policy:    s.config.Booking,
		Slots:     s.slots,
		Scheduler: s.scheduler,
		Clock:     s.clock,
		Observer:  s.observer,
		Logger:    s.logger,
	})

	s.mu.Lock()
	s.forms[id] = form
	s.mu.Unlock()
	metrics.ActiveFormsGauge.Inc()

	s.logger.WithContext(ctx).LogFormEvent(id, "form_created", map[string]interface{}{
		"language":      language,
		"session_token": form.Session().String(),
	})
	return form, nil
}

func (s *formService) Get(id string) (*BookingForm, error) {
	s.mu.RLock()
	form, ok := s.forms[id]
	s.mu.RUnlock()

	if !ok || form.Closed() {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, id)
	}
	return form, nil
}

func (s *formService) Close(id string) error {
	s.mu.Lock()
	form, ok := s.forms[id]
	delete(s.forms, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrFormNotFound, id)
	}
	form.Close()
	metrics.ActiveFormsGauge.Dec()
	return nil
}

func (s *formService) Handoff(ctx context.Context, id string, contact models.ContactInfo) (string, error) {
	form, err := s.Get(id)
	if err != nil {
		return "", err
	}

	booking, err := form.Booking()
	if err != nil {
		return "", err
	}
	if err := validators.ValidateContact(&contact); err != nil {
		return "", err
	}

	link, err := s.composer.Compose(booking, contact, s.clock())
	if err != nil {
		return "", err
	}

	metrics.HandoffsTotal.Inc()
	s.logger.WithContext(ctx).LogFormEvent(id, "handoff_composed", map[string]interface{}{
		"passengers": booking.PassengerCount,
		"luggage":    booking.LuggageCount,
		"scheduled":  !booking.Schedule.IsImmediate(),
	})
	return link, nil
}

func (s *formService) QuickContactLink(origin, destination, pickupTime string) string {
	return s.composer.QuickContactLink(origin, destination, pickupTime)
}

func (s *formService) ReapIdle(now time.Time) int {
	ttl := s.config.Booking.FormTTL

	s.mu.Lock()
	var idle []*BookingForm
	for id, form := range s.forms {
		if now.Sub(form.LastActive()) > ttl || form.Closed() {
			idle = append(idle, form)
			delete(s.forms, id)
		}
	}
	s.mu.Unlock()

	for _, form := range idle {
		form.Close()
		metrics.ActiveFormsGauge.Dec()
	}
	if len(idle) > 0 {
		s.logger.Infof("Reaped %d idle booking forms", len(idle))
	}
	return len(idle)
}

// RunJanitor reaps idle forms until ctx is done.
func (s *formService) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(s.config.Booking.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ReapIdle(s.clock())
		}
	}
}

// Shutdown closes every open form.
func (s *formService) Shutdown() {
	s.mu.Lock()
	forms := s.forms
	s.forms = make(map[string]*BookingForm)
	s.mu.Unlock()

	for _, form := range forms {
		form.Close()
		metrics.ActiveFormsGauge.Dec()
	}
}

func (s *formService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.forms)
}
