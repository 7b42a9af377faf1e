package ledger

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/arpitshukla/eventmaster/internal/clock"
	"github.com/arpitshukla/eventmaster/internal/domain"
	"github.com/arpitshukla/eventmaster/internal/kafka"
	"github.com/arpitshukla/eventmaster/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerUseCase is the inventory ledger: it owns every mutation of an
// event's ticket availability and the confirmed/cancelled state of bookings.
type LedgerUseCase interface {
	Reserve(ctx context.Context, input ReserveInput) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID string, caller domain.Identity) (*domain.Booking, error)
	Get(ctx context.Context, bookingID string, caller domain.Identity) (*domain.Booking, error)
	ListForUser(ctx context.Context, userID string) (iter.Seq[domain.Booking], error)
}

// Locker provides the per-event advisory lock. It keeps concurrent writers
// off the same event; the booking repository's conditional update remains
// the commit-point check, so a lost lock can never corrupt inventory.
// The token is unique per acquisition and release only succeeds for the
// token that took the lock, so a holder whose TTL expired cannot release
// a lock someone else has since taken.
type Locker interface {
	AcquireEventLock(ctx context.Context, eventID, token string, ttl time.Duration) (bool, error)
	ReleaseEventLock(ctx context.Context, eventID, token string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type LedgerService struct {
	bookings           repository.BookingRepository
	events             repository.EventRepository
	locker             Locker
	producer           Producer
	logger             *zap.Logger
	clock              clock.Clock
	bookingsTopic      string
	notificationsTopic string
	lockTTL            time.Duration
	lockAttempts       int
	lockRetryInterval  time.Duration
}

type ReserveInput struct {
	EventID         string `json:"event_id"`
	UserID          string `json:"user_id"`
	NumberOfTickets int    `json:"number_of_tickets"`
}

type LedgerServiceOption func(*LedgerService)

func WithNotificationsTopic(topic string) LedgerServiceOption {
	return func(s *LedgerService) {
		s.notificationsTopic = topic
	}
}

func WithClock(clk clock.Clock) LedgerServiceOption {
	return func(s *LedgerService) {
		s.clock = clk
	}
}

func NewLedgerService(
	bookings repository.BookingRepository,
	events repository.EventRepository,
	locker Locker,
	producer Producer,
	logger *zap.Logger,
	bookingsTopic string,
	lockTTL time.Duration,
	lockAttempts int,
	lockRetryInterval time.Duration,
	opts ...LedgerServiceOption,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockAttempts < 1 {
		lockAttempts = 1
	}
	service := &LedgerService{
		bookings:          bookings,
		events:            events,
		locker:            locker,
		producer:          producer,
		logger:            logger,
		clock:             clock.NewSystem(),
		bookingsTopic:     bookingsTopic,
		lockTTL:           lockTTL,
		lockAttempts:      lockAttempts,
		lockRetryInterval: lockRetryInterval,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *LedgerService) Reserve(ctx context.Context, input ReserveInput) (*domain.Booking, error) {
	if input.NumberOfTickets < 1 {
		return nil, domain.ErrInvalidTicketCount
	}

	event, err := s.events.GetByID(ctx, input.EventID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.acquireEventLock(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	booking := &domain.Booking{
		ID:              uuid.NewString(),
		EventID:         event.ID,
		UserID:          input.UserID,
		NumberOfTickets: input.NumberOfTickets,
		TotalPriceCents: event.PriceCents * int64(input.NumberOfTickets),
		BookingDate:     s.clock.Now(),
		Status:          domain.BookingStatusConfirmed,
	}

	if err := s.bookings.Reserve(ctx, booking); err != nil {
		return nil, err
	}

	s.publish(ctx, "booking_created", booking)
	return booking, nil
}

func (s *LedgerService) Cancel(ctx context.Context, bookingID string, caller domain.Identity) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.UserID != caller.UserID && !caller.IsAdmin {
		return nil, domain.ErrForbidden
	}
	if current.Status == domain.BookingStatusCancelled {
		return nil, domain.ErrAlreadyCancelled
	}

	unlock, err := s.acquireEventLock(ctx, current.EventID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// The repository re-checks the status inside its transaction, so a
	// cancel racing another cancel fails cleanly instead of restoring
	// inventory twice.
	updated, err := s.bookings.Cancel(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "booking_cancelled", updated)
	return updated, nil
}

func (s *LedgerService) Get(ctx context.Context, bookingID string, caller domain.Identity) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != caller.UserID && !caller.IsAdmin {
		return nil, domain.ErrForbidden
	}
	return booking, nil
}

// ListForUser returns a restartable sequence over a snapshot of the user's
// bookings, newest first. Concurrent reserves do not disturb an iteration
// already in progress.
func (s *LedgerService) ListForUser(ctx context.Context, userID string) (iter.Seq[domain.Booking], error) {
	snapshot, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return func(yield func(domain.Booking) bool) {
		for _, b := range snapshot {
			if !yield(b) {
				return
			}
		}
	}, nil
}

// acquireEventLock takes the per-event advisory lock with bounded retries.
// Callers that exhaust the attempts get ErrBusy and must retry; the lock is
// never waited on indefinitely.
func (s *LedgerService) acquireEventLock(ctx context.Context, eventID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	token := uuid.NewString()
	for attempt := 0; attempt < s.lockAttempts; attempt++ {
		ok, err := s.locker.AcquireEventLock(ctx, eventID, token, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire event lock: %w", err)
		}
		if ok {
			return func() {
				if err := s.locker.ReleaseEventLock(ctx, eventID, token); err != nil {
					s.logger.Warn("failed to release event lock", zap.String("event_id", eventID), zap.Error(err))
				}
			}, nil
		}
		if attempt < s.lockAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.lockRetryInterval):
			}
		}
	}
	return nil, domain.ErrBusy
}

func (s *LedgerService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingsTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:            eventType,
		BookingID:       booking.ID,
		EventID:         booking.EventID,
		UserID:          booking.UserID,
		NumberOfTickets: booking.NumberOfTickets,
		TotalPriceCents: booking.TotalPriceCents,
		Status:          string(booking.Status),
		BookingDate:     booking.BookingDate,
	}
	if err := s.producer.Publish(ctx, s.bookingsTopic, booking.ID, event); err != nil {
		s.logger.Warn("failed to publish booking event",
			zap.String("type", eventType), zap.String("booking_id", booking.ID), zap.Error(err))
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.ID, event); err != nil {
			s.logger.Warn("failed to publish notification event",
				zap.String("type", eventType), zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}
}

var _ LedgerUseCase = (*LedgerService)(nil)
