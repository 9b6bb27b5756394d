package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/creativedesignseo/taxi-bcn/internal/config"
	"github.com/creativedesignseo/taxi-bcn/internal/models"
	"github.com/creativedesignseo/taxi-bcn/internal/utils"
	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
	"github.com/creativedesignseo/taxi-bcn/pkg/metrics"
)

// FormObserver receives a snapshot after every state change of a form.
// It is called with the form locked and must neither block nor call back
// into the form.
type FormObserver interface {
	FormChanged(snapshot models.FormSnapshot)
}

// FormCloseObserver is an optional FormObserver extension notified once
// when a form is closed, reaped or shut down.
type FormCloseObserver interface {
	FormClosed(formID string)
}

type FormObserverFunc func(snapshot models.FormSnapshot)

func (f FormObserverFunc) FormChanged(snapshot models.FormSnapshot) {
	f(snapshot)
}

type noopObserver struct{}

func (noopObserver) FormChanged(models.FormSnapshot) {}

// FormDependencies carries what a BookingForm needs from the rest of the
// service. Scheduler, Clock, Observer and Logger default when nil.
type FormDependencies struct {
	Suggest   GeoSuggestService
	Location  LocationService
	Routes    RouteService
	Policy    *config.BookingConfig
	Slots     SlotPolicy
	Scheduler Scheduler
	Clock     func() time.Time
	Observer  FormObserver
	Logger    *logger.Logger
}

type fieldState struct {
	query string
	place *models.Place
}

func (f *fieldState) status() models.FieldStatus {
	switch {
	case f.place != nil:
		return models.FieldResolved
	case f.query != "":
		return models.FieldPending
	default:
		return models.FieldEmpty
	}
}

// BookingForm owns the BookingRequest of one mounted booking form. Every
// mutation runs under mu; provider calls run outside it and their results
// are applied only while their generation is still current.
type BookingForm struct {
	id       string
	session  models.SearchSession
	language string

	suggest   GeoSuggestService
	location  LocationService
	routes    RouteService
	policy    *config.BookingConfig
	slots     SlotPolicy
	debouncer *Debouncer
	observer  FormObserver
	logger    *logger.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	origin        fieldState
	destination   fieldState
	active        models.FieldName
	suggestions   []models.SuggestionCandidate
	suggestGen    uint64
	route         *models.RouteEstimate
	routeGen      uint64
	routing       bool
	schedule      models.Schedule
	passengers    int
	luggage       int
	locationError string
	closed        bool
	lastActive    time.Time
}

func NewBookingForm(id, language string, deps FormDependencies) *BookingForm {
	if deps.Scheduler == nil {
		deps.Scheduler = NewSystemScheduler()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Observer == nil {
		deps.Observer = noopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &BookingForm{
		id:         id,
		session:    models.NewSearchSession(),
		language:   language,
		suggest:    deps.Suggest,
		location:   deps.Location,
		routes:     deps.Routes,
		policy:     deps.Policy,
		slots:      deps.Slots,
		debouncer:  NewDebouncer(deps.Scheduler, deps.Policy.DebounceInterval),
		observer:   deps.Observer,
		logger:     deps.Logger.WithFormID(id),
		now:        deps.Clock,
		ctx:        ctx,
		cancel:     cancel,
		schedule:   models.Immediate(),
		passengers: deps.Policy.MinPassengers,
		luggage:    deps.Policy.MinLuggage,
		lastActive: deps.Clock(),
	}
}

func (f *BookingForm) ID() string {
	return f.id
}

func (f *BookingForm) Session() models.SearchSession {
	return f.session
}

func (f *BookingForm) Language() string {
	return f.language
}

// LastActive is the time of the last mutation.
func (f *BookingForm) LastActive() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActive
}

func (f *BookingForm) field(name models.FieldName) (*fieldState, error) {
	switch name {
	case models.FieldOrigin:
		return &f.origin, nil
	case models.FieldDestination:
		return &f.destination, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, name)
	}
}

// lock takes the form lock unless the form is closed.
func (f *BookingForm) lock() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFormClosed
	}
	return nil
}

// Focus makes name the active field. Suggestions belonging to the
// previously active field are dropped along with its pending fetch.
func (f *BookingForm) Focus(name models.FieldName) error {
	if err := f.lock(); err != nil {
		return err
	}
	defer f.mu.Unlock()

	if _, err := f.field(name); err != nil {
		return err
	}
	if f.active == name {
		return nil
	}

	f.dropSuggestionsLocked()
	f.active = name
	f.publishLocked()
	return nil
}

// Type records a keystroke in field name. The field's resolved place and
// any route are discarded, and a suggest fetch is debounced.
func (f *BookingForm) Type(name models.FieldName, text string) error {
	if err := f.lock(); err != nil {
		return err
	}
	defer f.mu.Unlock()

	field, err := f.field(name)
	if err != nil {
		return err
	}

	if f.active != name {
		f.dropSuggestionsLocked()
		f.active = name
	}
	field.query = text
	field.place = nil
	f.invalidateRouteLocked()

	f.suggestGen++
	if utf8.RuneCountInString(text) < f.suggest.MinQueryLength() {
		f.suggestions = nil
		f.debouncer.Cancel()
	} else {
		gen := f.suggestGen
		f.debouncer.Trigger(func() {
			f.runSuggest(name, text, gen)
		})
	}

	f.publishLocked()
	return nil
}

func (f *BookingForm) runSuggest(name models.FieldName, query string, gen uint64) {
	candidates := f.suggest.Suggest(f.ctx, query, f.session, f.language)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || gen != f.suggestGen || f.active != name {
		metrics.StaleResponsesTotal.WithLabelValues("suggest").Inc()
		return
	}
	f.suggestions = candidates
	f.publishLocked()
}

// Select resolves candidateID from the current suggestion list into the
// active field. Unresolved candidates are looked up first; if that fails
// the form is left unchanged and ErrPlaceUnavailable is returned.
func (f *BookingForm) Select(ctx context.Context, candidateID string) error {
	if err := f.lock(); err != nil {
		return err
	}
	var candidate *models.SuggestionCandidate
	for i := range f.suggestions {
		if f.suggestions[i].ID == candidateID {
			c := f.suggestions[i]
			candidate = &c
			break
		}
	}
	name, gen := f.active, f.suggestGen
	f.mu.Unlock()

	if candidate == nil || name == "" {
		return fmt.Errorf("%w: %q", ErrUnknownCandidate, candidateID)
	}

	place := candidate.Place
	if !candidate.Resolved || place == nil {
		place = f.suggest.RetrieveDetails(ctx, candidateID, f.session, f.language)
		if place == nil {
			return ErrPlaceUnavailable
		}
	}

	if err := f.lock(); err != nil {
		return err
	}
	defer f.mu.Unlock()

	if gen != f.suggestGen || f.active != name {
		metrics.StaleResponsesTotal.WithLabelValues("retrieve").Inc()
		return fmt.Errorf("%w: selection superseded", ErrUnknownCandidate)
	}

	field, _ := f.field(name)
	resolved := *place
	field.place = &resolved
	field.query = resolved.Label
	f.dropSuggestionsLocked()
	f.active = ""

	f.logger.LogFormEvent(f.id, "place_selected", map[string]interface{}{"field": string(name)})
	f.refreshRouteLocked()
	f.publishLocked()
	return nil
}

// UseCurrentLocation fills the origin from the device position. A
// geolocation failure is returned and kept as the form's location notice;
// the form stays usable.
func (f *BookingForm) UseCurrentLocation(ctx context.Context, locator Locator) (models.Place, error) {
	if err := f.lock(); err != nil {
		return models.Place{}, err
	}
	f.mu.Unlock()

	place, err := f.location.ResolveCurrentPlace(ctx, locator, f.language)

	if lockErr := f.lock(); lockErr != nil {
		return models.Place{}, lockErr
	}
	defer f.mu.Unlock()

	if err != nil {
		f.locationError = positionErrorNotice(err)
		f.logger.WithError(err).Info("Current location unavailable")
		f.publishLocked()
		return models.Place{}, err
	}

	f.locationError = ""
	f.origin.place = &place
	f.origin.query = place.Label
	if f.active == models.FieldOrigin {
		f.dropSuggestionsLocked()
		f.active = ""
	}
	f.refreshRouteLocked()
	f.publishLocked()
	return place, nil
}

func positionErrorNotice(err error) string {
	var positionErr *PositionError
	if errors.As(err, &positionErr) {
		return positionErr.Kind.String()
	}
	return PositionUnavailable.String()
}

// Clear empties field name and drops any route, including one in flight.
func (f *BookingForm) Clear(name models.FieldName) error {
	if err := f.lock(); err != nil {
		return err
	}
	defer f.mu.Unlock()

	field, err := f.field(name)
	if err != nil {
		return err
	}

	field.query = ""
	field.place = nil
	if f.active == name {
		f.dropSuggestionsLocked()
	}
	f.invalidateRouteLocked()
	f.publishLocked()
	return nil
}

func (f *BookingForm) dropSuggestionsLocked() {
	f.suggestions = nil
	f.suggestGen++
	f.debouncer.Cancel()
}

func (f *BookingForm) invalidateRouteLocked() {
	f.routeGen++
	f.route = nil
	f.routing = false
}

// refreshRouteLocked starts a route computation when both ends are
// resolved. Any earlier computation is superseded.
func (f *BookingForm) refreshRouteLocked() {
	f.invalidateRouteLocked()
	if f.origin.place == nil || f.destination.place == nil {
		return
	}

	f.routing = true
	gen := f.routeGen
	origin, destination := *f.origin.place, *f.destination.place
	go f.computeRoute(gen, origin, destination)
}

func (f *BookingForm) computeRoute(gen uint64, origin, destination models.Place) {
	estimate := f.routes.GetRoute(f.ctx, origin, destination)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || gen != f.routeGen {
		metrics.StaleResponsesTotal.WithLabelValues("directions").Inc()
		return
	}
	f.routing = false
	f.route = estimate
	if estimate == nil {
		f.logger.Info("No route estimate, submission blocked until an endpoint changes")
	}
	f.publishLocked()
}

func (f *BookingForm) SetImmediate() error {
	if err := f.lock(); err != nil {
		return err
	}
	defer f.mu.Unlock()

	f.schedule = models.Immediate()
	f.publishLocked()
	return nil
}

// SetScheduleDate switches to a scheduled pickup on date. The selected time
// is moved to the first available slot if it is no longer selectable.
func (f *BookingForm) SetScheduleDate(date string) error {
	if err := f.lock(); err != nil {
		return err
	}
	defer f.mu.Unlock()

	if err := f.setDateLocked(date); err != nil {
		return err
	}
	f.publishLocked()
	return nil
}

func (f *BookingForm) setDateLocked(date string) error {
	if _, ok := utils.ParseDate(date); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	now := f.now()
	if f.slots.IsPastDate(date, now) {
		return fmt.Errorf("%w: %s", ErrPastDate, date)
	}

	f.schedule.Mode = models.ScheduleAt
	f.schedule.Date = date
	f.reconcileTimeLocked(now)
	return nil
}

// SetScheduleTime picks a slot for the scheduled pickup.
func (f *BookingForm) SetScheduleTime(slot string) error {
	if err := f.lock(); err != nil {
		return err
	}
	defer f.mu.Unlock()

	if err := f.setTimeLocked(slot); err != nil {
		return err
	}
	f.publishLocked()
	return nil
}

func (f *BookingForm) setTimeLocked(slot string) error {
	if !f.slots.IsValidSlot(f.schedule.Date, slot, f.now()) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	f.schedule.Mode = models.ScheduleAt
	f.schedule.Time = slot
	return nil
}

// SetSchedule applies a whole schedule at once. Nothing changes if any part
// is rejected.
func (f *BookingForm) SetSchedule(schedule models.Schedule) error {
	if err := f.lock(); err != nil {
		return err
	}
	defer f.mu.Unlock()

	if schedule.IsImmediate() {
		f.schedule = models.Immediate()
		f.publishLocked()
		return nil
	}

	previous := f.schedule
	if schedule.Date != "" {
		if err := f.setDateLocked(schedule.Date); err != nil {
			f.schedule = previous
			return err
		}
	}
	f.schedule.Mode = models.ScheduleAt
	if schedule.Time != "" {
		if err := f.setTimeLocked(schedule.Time); err != nil {
			f.schedule = previous
			return err
		}
	}
	f.publishLocked()
	return nil
}

// TimeSlots lists the slots selectable for the currently selected date.
func (f *BookingForm) TimeSlots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slots.Slots(f.schedule.Date, f.now())
}

// reconcileTimeLocked runs after a date change: a selected time that is
// no longer selectable, or an unset one, becomes the first available
// slot. It is cleared when none is left.
func (f *BookingForm) reconcileTimeLocked(now time.Time) {
	if f.schedule.IsImmediate() {
		return
	}
	slots := f.slots.Slots(f.schedule.Date, now)
	if utils.Contains(slots, f.schedule.Time) {
		return
	}
	if len(slots) == 0 {
		f.schedule.Time = ""
	} else {
		f.schedule.Time = slots[0]
	}
}

func (f *BookingForm) SetPassengers(n int) (int, error) {
	if err := f.lock(); err != nil {
		return 0, err
	}
	defer f.mu.Unlock()

	f.passengers = utils.Clamp(n, f.policy.MinPassengers, f.policy.MaxPassengers)
	f.publishLocked()
	return f.passengers, nil
}

func (f *BookingForm) IncrementPassengers() (int, error) {
	return f.adjustPassengers(1)
}

func (f *BookingForm) DecrementPassengers() (int, error) {
	return f.adjustPassengers(-1)
}

func (f *BookingForm) adjustPassengers(delta int) (int, error) {
	if err := f.lock(); err != nil {
		return 0, err
	}
	defer f.mu.Unlock()

	f.passengers = utils.Clamp(f.passengers+delta, f.policy.MinPassengers, f.policy.MaxPassengers)
	f.publishLocked()
	return f.passengers, nil
}

func (f *BookingForm) SetLuggage(n int) (int, error) {
	if err := f.lock(); err != nil {
		return 0, err
	}
	defer f.mu.Unlock()

	f.luggage = utils.Clamp(n, f.policy.MinLuggage, f.policy.MaxLuggage)
	f.publishLocked()
	return f.luggage, nil
}

func (f *BookingForm) IncrementLuggage() (int, error) {
	return f.adjustLuggage(1)
}

func (f *BookingForm) DecrementLuggage() (int, error) {
	return f.adjustLuggage(-1)
}

func (f *BookingForm) adjustLuggage(delta int) (int, error) {
	if err := f.lock(); err != nil {
		return 0, err
	}
	defer f.mu.Unlock()

	f.luggage = utils.Clamp(f.luggage+delta, f.policy.MinLuggage, f.policy.MaxLuggage)
	f.publishLocked()
	return f.luggage, nil
}

// Submittable reports whether both places and a route are present and the
// schedule is immediate or names a selectable slot.
func (f *BookingForm) Submittable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submittableLocked(f.now())
}

func (f *BookingForm) submittableLocked(now time.Time) bool {
	if f.origin.place == nil || f.destination.place == nil || f.route == nil {
		return false
	}
	if f.schedule.IsImmediate() {
		return true
	}
	if f.schedule.Date == "" || f.schedule.Time == "" {
		return false
	}
	return f.slots.IsValidSlot(f.schedule.Date, f.schedule.Time, now)
}

// Booking returns a copy of the request, or ErrBookingIncomplete when the
// form is not submittable.
func (f *BookingForm) Booking() (models.BookingRequest, error) {
	if err := f.lock(); err != nil {
		return models.BookingRequest{}, err
	}
	defer f.mu.Unlock()

	if !f.submittableLocked(f.now()) {
		return models.BookingRequest{}, ErrBookingIncomplete
	}
	return f.bookingLocked(), nil
}

func (f *BookingForm) bookingLocked() models.BookingRequest {
	request := models.BookingRequest{
		Origin:         copyPlace(f.origin.place),
		Destination:    copyPlace(f.destination.place),
		Schedule:       f.schedule,
		PassengerCount: f.passengers,
		LuggageCount:   f.luggage,
	}
	if f.route != nil {
		route := *f.route
		route.Geometry = append([]models.Coordinates(nil), f.route.Geometry...)
		request.RouteEstimate = &route
	}
	return request
}

func (f *BookingForm) stateLocked(submittable bool) models.FormState {
	if f.origin.place != nil && f.destination.place != nil {
		switch {
		case f.routing:
			return models.StateRouteComputing
		case f.route != nil && submittable:
			return models.StateSubmittable
		case f.route != nil:
			return models.StateRouteReady
		default:
			return models.StateDestinationResolved
		}
	}
	if f.origin.place != nil {
		if f.destination.query != "" {
			return models.StateDestinationPending
		}
		return models.StateOriginResolved
	}
	if f.origin.query != "" || f.destination.query != "" || f.destination.place != nil {
		return models.StateOriginPending
	}
	return models.StateEmpty
}

// Snapshot returns an immutable copy of the form state.
func (f *BookingForm) Snapshot() models.FormSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// WithSnapshot calls fn with the current snapshot while holding the form
// lock. No change is published until fn returns, so a stream that joins
// its room first and then sends this snapshot never misses an update. fn
// must not call back into the form.
func (f *BookingForm) WithSnapshot(fn func(models.FormSnapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.snapshotLocked())
}

func (f *BookingForm) snapshotLocked() models.FormSnapshot {
	now := f.now()
	var slots []string
	if !f.schedule.IsImmediate() {
		slots = f.slots.Slots(f.schedule.Date, now)
	}
	submittable := f.submittableLocked(now)
	booking := f.bookingLocked()

	suggestions := make([]models.SuggestionCandidate, len(f.suggestions))
	copy(suggestions, f.suggestions)

	return models.FormSnapshot{
		FormID:       f.id,
		SessionToken: f.session.String(),
		Language:     f.language,
		State:        f.stateLocked(submittable),
		Origin: models.FieldSnapshot{
			Query:  f.origin.query,
			Status: f.origin.status(),
			Place:  booking.Origin,
		},
		Destination: models.FieldSnapshot{
			Query:  f.destination.query,
			Status: f.destination.status(),
			Place:  booking.Destination,
		},
		ActiveField:    f.active,
		Suggestions:    suggestions,
		RouteEstimate:  booking.RouteEstimate,
		Schedule:       f.schedule,
		TimeSlots:      slots,
		PassengerCount: f.passengers,
		LuggageCount:   f.luggage,
		Submittable:    submittable,
		LocationError:  f.locationError,
		UpdatedAt:      f.lastActive,
	}
}

func (f *BookingForm) publishLocked() {
	f.lastActive = f.now()
	f.observer.FormChanged(f.snapshotLocked())
}

// Close tears the form down. Pending and in-flight work is abandoned and
// later calls fail with ErrFormClosed. Close is idempotent.
func (f *BookingForm) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.debouncer.Cancel()
	f.cancel()
	if observer, ok := f.observer.(FormCloseObserver); ok {
		observer.FormClosed(f.id)
	}
	f.logger.LogFormEvent(f.id, "form_closed", nil)
}

// Closed reports whether Close has been called.
func (f *BookingForm) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func copyPlace(p *models.Place) *models.Place {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
