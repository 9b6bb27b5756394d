package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/creativedesignseo/taxi-bcn/internal/config"
	"github.com/creativedesignseo/taxi-bcn/internal/models"
	"github.com/creativedesignseo/taxi-bcn/pkg/cache"
	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
	"github.com/creativedesignseo/taxi-bcn/pkg/maps"
	"github.com/stretchr/testify/require"
)

var errProviderDown = errors.New("provider down")

func testConfig() *config.Config {
	return &config.Config{
		App: &config.AppConfig{
			Name:               "TaxiBCN",
			Environment:        "test",
			Timezone:           "Europe/Madrid",
			DefaultLanguage:    "es",
			SupportedLanguages: []string{"es", "en"},
		},
		Log: &config.LogConfig{Level: "debug", Format: "text"},
		Maps: &config.MapsConfig{
			Provider:   "mapbox",
			Mapbox:     &config.MapboxConfig{AccessToken: "pk.test", SearchAPI: "searchbox"},
			GoogleMaps: &config.GoogleMapsConfig{},
			Search: &config.SearchConfig{
				ProximityLongitude: 2.1734,
				ProximityLatitude:  41.3851,
				BBox:               []string{"1.9", "41.1", "2.3", "41.5"},
				Country:            "es",
				Types:              []string{"address", "poi", "place"},
				Limit:              5,
				MinQueryLength:     3,
				ReverseCacheTTL:    time.Hour,
			},
			Timeout: time.Second,
		},
		Booking: &config.BookingConfig{
			DebounceInterval: 400 * time.Millisecond,
			SlotInterval:     30 * time.Minute,
			SlotBuffer:       30 * time.Minute,
			MinPassengers:    1,
			MaxPassengers:    15,
			MinLuggage:       0,
			MaxLuggage:       10,
			LocationTimeout:  200 * time.Millisecond,
			RouteTimeout:     time.Second,
			FormTTL:          30 * time.Minute,
			JanitorInterval:  time.Minute,
		},
		Handoff: &config.HandoffConfig{
			MessagingHost:   "wa.me",
			BusinessNumber:  "34625030000",
			MapLinkBaseURL:  "https://www.google.com/maps",
			DefaultDialCode: "+34",
		},
		Security: &config.SecurityConfig{RateLimitPerMinute: 120},
	}
}

func madrid(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	return loc
}

// fakeProvider answers from canned functions and counts calls.
type fakeProvider struct {
	mu    sync.Mutex
	calls map[string]int

	lastSuggest  *maps.SuggestRequest
	lastRetrieve *maps.RetrieveRequest

	suggestFn    func(req *maps.SuggestRequest) ([]maps.Suggestion, error)
	retrieveFn   func(req *maps.RetrieveRequest) (*maps.Feature, error)
	reverseFn    func(req *maps.ReverseGeocodeRequest) (*maps.Feature, error)
	directionsFn func(ctx context.Context, req *maps.DirectionsRequest) (*maps.DirectionsResponse, error)
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		calls: make(map[string]int),
		suggestFn: func(req *maps.SuggestRequest) ([]maps.Suggestion, error) {
			return []maps.Suggestion{
				{ID: "sb." + req.Query, Name: req.Query, Address: req.Query + ", Barcelona"},
			}, nil
		},
		retrieveFn: func(req *maps.RetrieveRequest) (*maps.Feature, error) {
			name := strings.TrimPrefix(req.ID, "sb.")
			return &maps.Feature{
				ID:       req.ID,
				Address:  name + ", Barcelona",
				Location: maps.Location{Longitude: 2.10 + float64(len(name))*0.01, Latitude: 41.3870},
			}, nil
		},
		reverseFn: func(req *maps.ReverseGeocodeRequest) (*maps.Feature, error) {
			return &maps.Feature{Address: "Carrer de Pelai 1, Barcelona", Location: req.Location}, nil
		},
		directionsFn: func(ctx context.Context, req *maps.DirectionsRequest) (*maps.DirectionsResponse, error) {
			return &maps.DirectionsResponse{Routes: []maps.Route{{
				Distance: 5400,
				Duration: 899,
				Geometry: []maps.Location{req.Origin, req.Destination},
			}}}, nil
		},
	}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) record(op string) {
	p.mu.Lock()
	p.calls[op]++
	p.mu.Unlock()
}

func (p *fakeProvider) count(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

func (p *fakeProvider) Suggest(ctx context.Context, req *maps.SuggestRequest) ([]maps.Suggestion, error) {
	p.record("suggest")
	p.mu.Lock()
	p.lastSuggest = req
	fn := p.suggestFn
	p.mu.Unlock()
	return fn(req)
}

func (p *fakeProvider) Retrieve(ctx context.Context, req *maps.RetrieveRequest) (*maps.Feature, error) {
	p.record("retrieve")
	p.mu.Lock()
	p.lastRetrieve = req
	fn := p.retrieveFn
	p.mu.Unlock()
	return fn(req)
}

func (p *fakeProvider) ReverseGeocode(ctx context.Context, req *maps.ReverseGeocodeRequest) (*maps.Feature, error) {
	p.record("reverse")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.reverseFn(req)
}

func (p *fakeProvider) GetDirections(ctx context.Context, req *maps.DirectionsRequest) (*maps.DirectionsResponse, error) {
	p.record("directions")
	return p.directionsFn(ctx, req)
}

// fakeScheduler holds timers until the test fires them.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	scheduler *fakeScheduler
	delay     time.Duration
	f         func()
	done      bool
}

func (t *fakeTimer) Stop() bool {
	t.scheduler.mu.Lock()
	defer t.scheduler.mu.Unlock()
	active := !t.done
	t.done = true
	return active
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &fakeTimer{scheduler: s, delay: d, f: f}
	s.timers = append(s.timers, timer)
	return timer
}

// Fire runs every pending timer and returns how many ran.
func (s *fakeScheduler) Fire() int {
	s.mu.Lock()
	var due []*fakeTimer
	for _, timer := range s.timers {
		if !timer.done {
			timer.done = true
			due = append(due, timer)
		}
	}
	s.mu.Unlock()

	for _, timer := range due {
		timer.f()
	}
	return len(due)
}

func (s *fakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, timer := range s.timers {
		if !timer.done {
			n++
		}
	}
	return n
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recordingObserver struct {
	mu        sync.Mutex
	snapshots []models.FormSnapshot
	closed    []string
}

func (o *recordingObserver) FormClosed(formID string) {
	o.mu.Lock()
	o.closed = append(o.closed, formID)
	o.mu.Unlock()
}

func (o *recordingObserver) Closed() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.closed...)
}

func (o *recordingObserver) FormChanged(snapshot models.FormSnapshot) {
	o.mu.Lock()
	o.snapshots = append(o.snapshots, snapshot)
	o.mu.Unlock()
}

func (o *recordingObserver) Last() models.FormSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshots[len(o.snapshots)-1]
}

type formHarness struct {
	config    *config.Config
	provider  *fakeProvider
	scheduler *fakeScheduler
	clock     *fixedClock
	observer  *recordingObserver
	form      *BookingForm
}

func newFormHarness(t *testing.T, provider *fakeProvider) *formHarness {
	t.Helper()

	cfg := testConfig()
	log := logger.NewNop()
	suggest, err := NewGeoSuggestService(cfg, provider, log)
	require.NoError(t, err)

	h := &formHarness{
		config:    cfg,
		provider:  provider,
		scheduler: &fakeScheduler{},
		clock:     &fixedClock{now: time.Date(2026, 10, 15, 10, 10, 0, 0, madrid(t))},
		observer:  &recordingObserver{},
	}
	h.form = NewBookingForm("form-1", "es", FormDependencies{
		Suggest:   suggest,
		Location:  NewLocationService(cfg, provider, cache.NewMemoryCache(), log),
		Routes:    NewRouteService(cfg, provider, log),
		Policy:    cfg.Booking,
		Slots:     NewSlotPolicy(cfg.Booking, cfg.App.Location()),
		Scheduler: h.scheduler,
		Clock:     h.clock.Now,
		Observer:  h.observer,
		Logger:    log,
	})
	t.Cleanup(h.form.Close)
	return h
}

// resolve types query into field, fires the debounce and selects the
// first candidate.
func (h *formHarness) resolve(t *testing.T, field models.FieldName, query string) {
	t.Helper()
	require.NoError(t, h.form.Type(field, query))
	require.Equal(t, 1, h.scheduler.Fire())

	snapshot := h.form.Snapshot()
	require.NotEmpty(t, snapshot.Suggestions)
	require.NoError(t, h.form.Select(context.Background(), snapshot.Suggestions[0].ID))
}
