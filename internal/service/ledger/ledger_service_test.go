package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arpitshukla/eventmaster/internal/clock"
	"github.com/arpitshukla/eventmaster/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Reserve(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) Cancel(ctx context.Context, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) List(ctx context.Context, futureOnly bool) ([]domain.Event, error) {
	args := m.Called(ctx, futureOnly)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockEventRepository) Create(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) Update(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) AcquireEventLock(ctx context.Context, eventID, token string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, token, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) ReleaseEventLock(ctx context.Context, eventID, token string) error {
	args := m.Called(ctx, eventID, token)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func newTestService(bookings *MockBookingRepository, events *MockEventRepository, locker *MockLocker, producer *MockProducer) *LedgerService {
	return NewLedgerService(
		bookings, events, locker, producer, nil,
		"bookings",
		time.Second, 3, time.Millisecond,
		WithClock(clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))),
	)
}

func TestLedgerService_Reserve_Success(t *testing.T) {
	bookings := &MockBookingRepository{}
	events := &MockEventRepository{}
	locker := &MockLocker{}
	producer := &MockProducer{}
	service := newTestService(bookings, events, locker, producer)

	ctx := context.Background()
	event := &domain.Event{ID: "ev1", PriceCents: 1000, AvailableTickets: 5, TotalTickets: 5}

	events.On("GetByID", ctx, "ev1").Return(event, nil).Once()
	locker.On("AcquireEventLock", ctx, "ev1", mock.AnythingOfType("string"), time.Second).Return(true, nil).Once()
	locker.On("ReleaseEventLock", ctx, "ev1", mock.AnythingOfType("string")).Return(nil).Once()
	bookings.On("Reserve", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	producer.On("Publish", ctx, "bookings", mock.Anything, mock.Anything).Return(nil).Once()

	booking, err := service.Reserve(ctx, ReserveInput{EventID: "ev1", UserID: "userA", NumberOfTickets: 3})

	assert.NoError(t, err)
	assert.NotNil(t, booking)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, "ev1", booking.EventID)
	assert.Equal(t, "userA", booking.UserID)
	assert.Equal(t, 3, booking.NumberOfTickets)
	assert.Equal(t, int64(3000), booking.TotalPriceCents)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), booking.BookingDate)

	bookings.AssertExpectations(t)
	events.AssertExpectations(t)
	locker.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestLedgerService_Reserve_InvalidTicketCount(t *testing.T) {
	service := newTestService(&MockBookingRepository{}, &MockEventRepository{}, &MockLocker{}, &MockProducer{})
	ctx := context.Background()

	testCases := []struct {
		name    string
		tickets int
	}{
		{name: "zero", tickets: 0},
		{name: "negative", tickets: -2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			booking, err := service.Reserve(ctx, ReserveInput{EventID: "ev1", UserID: "userA", NumberOfTickets: tc.tickets})
			assert.ErrorIs(t, err, domain.ErrInvalidTicketCount)
			assert.Nil(t, booking)
		})
	}
}

func TestLedgerService_Reserve_EventNotFound(t *testing.T) {
	bookings := &MockBookingRepository{}
	events := &MockEventRepository{}
	service := newTestService(bookings, events, &MockLocker{}, &MockProducer{})

	ctx := context.Background()
	events.On("GetByID", ctx, "missing").Return(nil, domain.ErrEventNotFound).Once()

	booking, err := service.Reserve(ctx, ReserveInput{EventID: "missing", UserID: "userA", NumberOfTickets: 1})

	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	assert.Nil(t, booking)
	bookings.AssertNotCalled(t, "Reserve")
	events.AssertExpectations(t)
}

func TestLedgerService_Reserve_InsufficientTickets(t *testing.T) {
	bookings := &MockBookingRepository{}
	events := &MockEventRepository{}
	locker := &MockLocker{}
	producer := &MockProducer{}
	service := newTestService(bookings, events, locker, producer)

	ctx := context.Background()
	event := &domain.Event{ID: "ev1", PriceCents: 1000, AvailableTickets: 2, TotalTickets: 5}

	events.On("GetByID", ctx, "ev1").Return(event, nil).Once()
	locker.On("AcquireEventLock", ctx, "ev1", mock.AnythingOfType("string"), time.Second).Return(true, nil).Once()
	locker.On("ReleaseEventLock", ctx, "ev1", mock.AnythingOfType("string")).Return(nil).Once()
	bookings.On("Reserve", ctx, mock.AnythingOfType("*domain.Booking")).Return(domain.ErrInsufficientTickets).Once()

	booking, err := service.Reserve(ctx, ReserveInput{EventID: "ev1", UserID: "userB", NumberOfTickets: 3})

	assert.ErrorIs(t, err, domain.ErrInsufficientTickets)
	assert.Nil(t, booking)
	producer.AssertNotCalled(t, "Publish")
	locker.AssertExpectations(t)
}

func TestLedgerService_Reserve_Busy(t *testing.T) {
	bookings := &MockBookingRepository{}
	events := &MockEventRepository{}
	locker := &MockLocker{}
	service := newTestService(bookings, events, locker, &MockProducer{})

	ctx := context.Background()
	event := &domain.Event{ID: "ev1", PriceCents: 1000, AvailableTickets: 5}

	events.On("GetByID", ctx, "ev1").Return(event, nil).Once()
	locker.On("AcquireEventLock", ctx, "ev1", mock.AnythingOfType("string"), time.Second).Return(false, nil).Times(3)

	booking, err := service.Reserve(ctx, ReserveInput{EventID: "ev1", UserID: "userA", NumberOfTickets: 1})

	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Nil(t, booking)
	bookings.AssertNotCalled(t, "Reserve")
	locker.AssertNotCalled(t, "ReleaseEventLock")
	locker.AssertExpectations(t)
}

func TestLedgerService_Cancel_Success(t *testing.T) {
	bookings := &MockBookingRepository{}
	locker := &MockLocker{}
	producer := &MockProducer{}
	service := newTestService(bookings, &MockEventRepository{}, locker, producer)

	ctx := context.Background()
	confirmed := &domain.Booking{ID: "b1", EventID: "ev1", UserID: "userA", NumberOfTickets: 3, Status: domain.BookingStatusConfirmed}
	cancelled := &domain.Booking{ID: "b1", EventID: "ev1", UserID: "userA", NumberOfTickets: 3, Status: domain.BookingStatusCancelled}

	bookings.On("GetByID", ctx, "b1").Return(confirmed, nil).Once()
	locker.On("AcquireEventLock", ctx, "ev1", mock.AnythingOfType("string"), time.Second).Return(true, nil).Once()
	locker.On("ReleaseEventLock", ctx, "ev1", mock.AnythingOfType("string")).Return(nil).Once()
	bookings.On("Cancel", ctx, "b1").Return(cancelled, nil).Once()
	producer.On("Publish", ctx, "bookings", "b1", mock.Anything).Return(nil).Once()

	booking, err := service.Cancel(ctx, "b1", domain.Identity{UserID: "userA"})

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, booking.Status)
	bookings.AssertExpectations(t)
	locker.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestLedgerService_Cancel_Forbidden(t *testing.T) {
	bookings := &MockBookingRepository{}
	service := newTestService(bookings, &MockEventRepository{}, &MockLocker{}, &MockProducer{})

	ctx := context.Background()
	confirmed := &domain.Booking{ID: "b1", EventID: "ev1", UserID: "userA", Status: domain.BookingStatusConfirmed}
	bookings.On("GetByID", ctx, "b1").Return(confirmed, nil).Once()

	booking, err := service.Cancel(ctx, "b1", domain.Identity{UserID: "userB"})

	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Nil(t, booking)
	bookings.AssertNotCalled(t, "Cancel")
}

func TestLedgerService_Cancel_AdminAllowed(t *testing.T) {
	bookings := &MockBookingRepository{}
	locker := &MockLocker{}
	producer := &MockProducer{}
	service := newTestService(bookings, &MockEventRepository{}, locker, producer)

	ctx := context.Background()
	confirmed := &domain.Booking{ID: "b1", EventID: "ev1", UserID: "userA", Status: domain.BookingStatusConfirmed}
	cancelled := &domain.Booking{ID: "b1", EventID: "ev1", UserID: "userA", Status: domain.BookingStatusCancelled}

	bookings.On("GetByID", ctx, "b1").Return(confirmed, nil).Once()
	locker.On("AcquireEventLock", ctx, "ev1", mock.AnythingOfType("string"), time.Second).Return(true, nil).Once()
	locker.On("ReleaseEventLock", ctx, "ev1", mock.AnythingOfType("string")).Return(nil).Once()
	bookings.On("Cancel", ctx, "b1").Return(cancelled, nil).Once()
	producer.On("Publish", ctx, "bookings", "b1", mock.Anything).Return(nil).Once()

	booking, err := service.Cancel(ctx, "b1", domain.Identity{UserID: "admin", IsAdmin: true})

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, booking.Status)
}

func TestLedgerService_Cancel_AlreadyCancelled(t *testing.T) {
	bookings := &MockBookingRepository{}
	service := newTestService(bookings, &MockEventRepository{}, &MockLocker{}, &MockProducer{})

	ctx := context.Background()
	cancelled := &domain.Booking{ID: "b1", EventID: "ev1", UserID: "userA", Status: domain.BookingStatusCancelled}
	bookings.On("GetByID", ctx, "b1").Return(cancelled, nil).Once()

	booking, err := service.Cancel(ctx, "b1", domain.Identity{UserID: "userA"})

	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	assert.Nil(t, booking)
	bookings.AssertNotCalled(t, "Cancel")
}

func TestLedgerService_Cancel_NotFound(t *testing.T) {
	bookings := &MockBookingRepository{}
	service := newTestService(bookings, &MockEventRepository{}, &MockLocker{}, &MockProducer{})

	ctx := context.Background()
	bookings.On("GetByID", ctx, "missing").Return(nil, domain.ErrBookingNotFound).Once()

	booking, err := service.Cancel(ctx, "missing", domain.Identity{UserID: "userA"})

	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	assert.Nil(t, booking)
}

func TestLedgerService_Get_Authorization(t *testing.T) {
	bookings := &MockBookingRepository{}
	service := newTestService(bookings, &MockEventRepository{}, &MockLocker{}, &MockProducer{})

	ctx := context.Background()
	stored := &domain.Booking{ID: "b1", EventID: "ev1", UserID: "userA", Status: domain.BookingStatusConfirmed}
	bookings.On("GetByID", ctx, "b1").Return(stored, nil)

	testCases := []struct {
		name    string
		caller  domain.Identity
		wantErr error
	}{
		{name: "owner", caller: domain.Identity{UserID: "userA"}},
		{name: "admin", caller: domain.Identity{UserID: "someone", IsAdmin: true}},
		{name: "stranger", caller: domain.Identity{UserID: "userB"}, wantErr: domain.ErrForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			booking, err := service.Get(ctx, "b1", tc.caller)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, booking)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, "b1", booking.ID)
		})
	}
}

func TestLedgerService_ListForUser(t *testing.T) {
	bookings := &MockBookingRepository{}
	service := newTestService(bookings, &MockEventRepository{}, &MockLocker{}, &MockProducer{})

	ctx := context.Background()
	now := time.Now()
	snapshot := []domain.Booking{
		{ID: "b2", UserID: "userA", BookingDate: now},
		{ID: "b1", UserID: "userA", BookingDate: now.Add(-time.Hour)},
	}
	bookings.On("ListByUser", ctx, "userA").Return(snapshot, nil).Once()

	seq, err := service.ListForUser(ctx, "userA")
	assert.NoError(t, err)

	var ids []string
	for b := range seq {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"b2", "b1"}, ids)

	// The sequence is restartable: a second pass yields the same snapshot.
	ids = ids[:0]
	for b := range seq {
		ids = append(ids, b.ID)
		break
	}
	assert.Equal(t, []string{"b2"}, ids)
}

func TestLedgerService_Reserve_PublishFailureDoesNotFailBooking(t *testing.T) {
	bookings := &MockBookingRepository{}
	events := &MockEventRepository{}
	locker := &MockLocker{}
	producer := &MockProducer{}
	service := newTestService(bookings, events, locker, producer)

	ctx := context.Background()
	event := &domain.Event{ID: "ev1", PriceCents: 500, AvailableTickets: 10}

	events.On("GetByID", ctx, "ev1").Return(event, nil).Once()
	locker.On("AcquireEventLock", ctx, "ev1", mock.AnythingOfType("string"), time.Second).Return(true, nil).Once()
	locker.On("ReleaseEventLock", ctx, "ev1", mock.AnythingOfType("string")).Return(nil).Once()
	bookings.On("Reserve", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	producer.On("Publish", ctx, "bookings", mock.Anything, mock.Anything).Return(errors.New("kafka down")).Once()

	booking, err := service.Reserve(ctx, ReserveInput{EventID: "ev1", UserID: "userA", NumberOfTickets: 2})

	assert.NoError(t, err)
	assert.NotNil(t, booking)
}

func TestLedgerService_LockReleasedWithAcquisitionToken(t *testing.T) {
	bookings := &MockBookingRepository{}
	events := &MockEventRepository{}
	locker := &MockLocker{}
	producer := &MockProducer{}
	service := newTestService(bookings, events, locker, producer)

	ctx := context.Background()
	event := &domain.Event{ID: "ev1", PriceCents: 1000, AvailableTickets: 5}
	events.On("GetByID", ctx, "ev1").Return(event, nil).Once()
	bookings.On("Reserve", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	producer.On("Publish", ctx, "bookings", mock.Anything, mock.Anything).Return(nil).Once()

	var acquired string
	locker.On("AcquireEventLock", ctx, "ev1", mock.AnythingOfType("string"), time.Second).
		Run(func(args mock.Arguments) { acquired = args.String(2) }).
		Return(true, nil).Once()
	locker.On("ReleaseEventLock", ctx, "ev1", mock.MatchedBy(func(token string) bool {
		return token != "" && token == acquired
	})).Return(nil).Once()

	_, err := service.Reserve(ctx, ReserveInput{EventID: "ev1", UserID: "userA", NumberOfTickets: 1})

	assert.NoError(t, err)
	locker.AssertExpectations(t)
}
