// Package testutil provides in-memory repository and locker implementations
// with the same atomicity guarantees as the Postgres repositories, so service
// tests can exercise concurrent reservations without a database.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arpitshukla/eventmaster/internal/domain"
)

type MemoryStore struct {
	mu       sync.Mutex
	events   map[string]domain.Event
	bookings map[string]domain.Booking
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:   make(map[string]domain.Event),
		bookings: make(map[string]domain.Booking),
	}
}

// Seed inserts an event bypassing validation.
func (s *MemoryStore) Seed(event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
}

func (s *MemoryStore) Event(id string) (domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	return e, ok
}

type MemoryEventRepository struct {
	store *MemoryStore
}

func NewMemoryEventRepository(store *MemoryStore) *MemoryEventRepository {
	return &MemoryEventRepository{store: store}
}

func (r *MemoryEventRepository) List(ctx context.Context, futureOnly bool) ([]domain.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	events := make([]domain.Event, 0, len(r.store.events))
	for _, e := range r.store.events {
		if futureOnly && e.Date.Before(now) {
			continue
		}
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events, nil
}

func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	e, ok := r.store.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return &e, nil
}

func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.events[event.ID] = *event
	return nil
}

func (r *MemoryEventRepository) Update(ctx context.Context, event *domain.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.events[event.ID]
	if !ok {
		return domain.ErrEventNotFound
	}
	stored.Title = event.Title
	stored.Description = event.Description
	stored.Date = event.Date
	stored.Location = event.Location
	stored.Image = event.Image
	stored.PriceCents = event.PriceCents
	r.store.events[event.ID] = stored
	return nil
}

func (r *MemoryEventRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	delete(r.store.events, id)
	return nil
}

type MemoryBookingRepository struct {
	store *MemoryStore
}

func NewMemoryBookingRepository(store *MemoryStore) *MemoryBookingRepository {
	return &MemoryBookingRepository{store: store}
}

// Reserve mirrors the Postgres repository: the availability check and the
// decrement happen under one lock, so concurrent reserves cannot both pass.
func (r *MemoryBookingRepository) Reserve(ctx context.Context, booking *domain.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	event, ok := r.store.events[booking.EventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	if event.AvailableTickets < booking.NumberOfTickets {
		return domain.ErrInsufficientTickets
	}

	event.AvailableTickets -= booking.NumberOfTickets
	r.store.events[event.ID] = event

	r.store.bookings[booking.ID] = *booking
	return nil
}

func (r *MemoryBookingRepository) Cancel(ctx context.Context, bookingID string) (*domain.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	b, ok := r.store.bookings[bookingID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	if b.Status != domain.BookingStatusConfirmed {
		return nil, domain.ErrAlreadyCancelled
	}

	event, ok := r.store.events[b.EventID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}

	b.Status = domain.BookingStatusCancelled
	r.store.bookings[bookingID] = b

	event.AvailableTickets += b.NumberOfTickets
	r.store.events[event.ID] = event
	return &b, nil
}

func (r *MemoryBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	b, ok := r.store.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return &b, nil
}

func (r *MemoryBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	bookings := make([]domain.Booking, 0)
	for _, b := range r.store.bookings {
		if b.UserID == userID {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].BookingDate.After(bookings[j].BookingDate) })
	return bookings, nil
}

// MemoryLocker is a SetNX-style per-event lock for tests. Release only
// succeeds for the token that took the lock, matching the Redis locker.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]string)}
}

func (l *MemoryLocker) AcquireEventLock(ctx context.Context, eventID, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[eventID]; taken {
		return false, nil
	}
	l.held[eventID] = token
	return true, nil
}

func (l *MemoryLocker) ReleaseEventLock(ctx context.Context, eventID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[eventID] == token {
		delete(l.held, eventID)
	}
	return nil
}
