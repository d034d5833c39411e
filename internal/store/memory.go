package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// Memory is an in-process implementation of every store interface. Transactions are
// serialised and their writes are applied only when the callback succeeds.
type Memory struct {
	txMu sync.Mutex

	mu          sync.RWMutex
	bookings    map[uuid.UUID]models.Booking
	events      []models.DomainEvent
	checks      []models.WeatherCheck
	options     map[uuid.UUID]models.RescheduleOption
	students    map[uuid.UUID]models.Student
	instructors map[uuid.UUID]models.Instructor
	aircraft    map[uuid.UUID]models.Aircraft
	locations   map[uuid.UUID]models.Location
}

func NewMemory() *Memory {
	return &Memory{
		bookings:    make(map[uuid.UUID]models.Booking),
		options:     make(map[uuid.UUID]models.RescheduleOption),
		students:    make(map[uuid.UUID]models.Student),
		instructors: make(map[uuid.UUID]models.Instructor),
		aircraft:    make(map[uuid.UUID]models.Aircraft),
		locations:   make(map[uuid.UUID]models.Location),
	}
}

// Seed methods load reference data

func (m *Memory) AddStudent(s models.Student) {
	m.mu.Lock()
	m.students[s.ID] = s
	m.mu.Unlock()
}

func (m *Memory) AddInstructor(i models.Instructor) {
	m.mu.Lock()
	m.instructors[i.ID] = i
	m.mu.Unlock()
}

func (m *Memory) AddAircraft(a models.Aircraft) {
	m.mu.Lock()
	m.aircraft[a.ID] = a
	m.mu.Unlock()
}

func (m *Memory) AddLocation(l models.Location) {
	m.mu.Lock()
	m.locations[l.ID] = l
	m.mu.Unlock()
}

// --- BookingStore ---

func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memTx{
		store:    m,
		bookings: make(map[uuid.UUID]models.Booking),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	m.mu.Lock()
	for id, b := range tx.bookings {
		m.bookings[id] = b
	}
	m.events = append(m.events, tx.events...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *Memory) ListBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Booking, 0)
	for _, b := range m.bookings {
		if matchesFilter(b, filter) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ScheduledTime.Equal(result[j].ScheduledTime) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].ScheduledTime.Before(result[j].ScheduledTime)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matchesFilter(b models.Booking, f BookingFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if b.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && b.ScheduledTime.Before(*f.From) {
		return false
	}
	if f.To != nil && b.ScheduledTime.After(*f.To) {
		return false
	}
	return true
}

type memTx struct {
	store    *Memory
	bookings map[uuid.UUID]models.Booking
	events   []models.DomainEvent
}

func (t *memTx) lookup(id uuid.UUID) (models.Booking, bool) {
	if b, ok := t.bookings[id]; ok {
		return b, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	b, ok := t.store.bookings[id]
	return b, ok
}

func (t *memTx) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, ok := t.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

// LockResources is a no-op: InTx already holds the store-wide transaction lock
func (t *memTx) LockResources(ctx context.Context, keys ...string) error {
	return ctx.Err()
}

func (t *memTx) FindOverlapping(ctx context.Context, q OverlapQuery) ([]models.Booking, error) {
	view := make(map[uuid.UUID]models.Booking)
	t.store.mu.RLock()
	for id, b := range t.store.bookings {
		view[id] = b
	}
	t.store.mu.RUnlock()
	for id, b := range t.bookings {
		view[id] = b
	}

	result := make([]models.Booking, 0)
	for id, b := range view {
		if q.ExcludeID != nil && id == *q.ExcludeID {
			continue
		}
		if !b.Status.IsActive() || !b.Overlaps(q.Start, q.End) {
			continue
		}
		if b.StudentID == q.StudentID || b.InstructorID == q.InstructorID || b.AircraftID == q.AircraftID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduledTime.Before(result[j].ScheduledTime)
	})
	return result, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *models.Booking) error {
	if _, exists := t.lookup(b.ID); exists {
		return fmt.Errorf("failed to insert booking: duplicate id %s", b.ID)
	}
	t.bookings[b.ID] = *b
	return nil
}

func (t *memTx) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status models.BookingStatus, at time.Time) error {
	b, ok := t.lookup(id)
	if !ok {
		return ErrNotFound
	}
	b.Status = status
	b.UpdatedAt = at
	t.bookings[id] = b
	return nil
}

func (t *memTx) AppendEvents(ctx context.Context, events ...models.DomainEvent) error {
	t.events = append(t.events, events...)
	return nil
}

// --- Directory ---

func (m *Memory) GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) GetInstructor(ctx context.Context, id uuid.UUID) (*models.Instructor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.instructors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &i, nil
}

func (m *Memory) GetAircraft(ctx context.Context, id uuid.UUID) (*models.Aircraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.aircraft[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.locations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

// --- WeatherCheckStore ---

func (m *Memory) SaveWeatherCheck(ctx context.Context, check *models.WeatherCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, *check)
	return nil
}

func (m *Memory) LatestWeatherCheck(ctx context.Context, bookingID uuid.UUID) (*models.WeatherCheck, error) {
	checks, _ := m.ListWeatherChecks(ctx, bookingID, 1)
	if len(checks) == 0 {
		return nil, ErrNotFound
	}
	return &checks[0], nil
}

// ListWeatherChecks returns checks newest first
func (m *Memory) ListWeatherChecks(ctx context.Context, bookingID uuid.UUID, limit int) ([]models.WeatherCheck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.WeatherCheck, 0)
	for i := len(m.checks) - 1; i >= 0; i-- {
		if m.checks[i].BookingID == bookingID {
			result = append(result, m.checks[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CheckTime.After(result[j].CheckTime)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- EventStore ---

func (m *Memory) GetEvent(ctx context.Context, id uuid.UUID) (*models.DomainEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.events {
		if e.ID == id {
			ev := e
			return &ev, nil
		}
	}
	return nil, ErrNotFound
}

// ListEvents returns an aggregate's events in append order
func (m *Memory) ListEvents(ctx context.Context, aggregateID uuid.UUID) ([]models.DomainEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.DomainEvent, 0)
	for _, e := range m.events {
		if e.AggregateID == aggregateID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *Memory) LatestEvent(ctx context.Context, aggregateID uuid.UUID, eventType models.EventType) (*models.DomainEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if e.AggregateID == aggregateID && e.Type() == eventType {
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListUnpublished(ctx context.Context, limit int) ([]models.DomainEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.DomainEvent, 0)
	for _, e := range m.events {
		if e.PublishedAt == nil {
			result = append(result, e)
			if limit > 0 && len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (m *Memory) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if _, ok := set[m.events[i].ID]; ok && m.events[i].PublishedAt == nil {
			published := at
			m.events[i].PublishedAt = &published
		}
	}
	return nil
}

// --- OptionStore ---

func (m *Memory) SaveRescheduleOptions(ctx context.Context, options []models.RescheduleOption, event models.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range options {
		m.options[o.ID] = o
	}
	m.events = append(m.events, event)
	return nil
}

func (m *Memory) GetRescheduleOption(ctx context.Context, id uuid.UUID) (*models.RescheduleOption, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.options[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

// ListRescheduleOptions returns a booking's options, best score first
func (m *Memory) ListRescheduleOptions(ctx context.Context, bookingID uuid.UUID) ([]models.RescheduleOption, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]models.RescheduleOption, 0)
	for _, o := range m.options {
		if o.OriginalBookingID == bookingID {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].Score > result[j].Score
	})
	return result, nil
}

func (m *Memory) ResolveRescheduleOptions(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	selected, ok := m.options[id]
	if !ok {
		return ErrNotFound
	}
	for oid, o := range m.options {
		if oid == id {
			o.Status = models.OptionStatusSelected
		} else if o.ConflictEventID == selected.ConflictEventID && o.Status == models.OptionStatusPending {
			o.Status = models.OptionStatusRejected
		} else {
			continue
		}
		m.options[oid] = o
	}
	return nil
}
