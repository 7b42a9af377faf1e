package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arpitshukla/eventmaster/internal/clock"
	"github.com/arpitshukla/eventmaster/internal/domain"
	"github.com/arpitshukla/eventmaster/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventUseCase interface {
	List(ctx context.Context, futureOnly bool) ([]domain.Event, error)
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	Create(ctx context.Context, input CreateEventInput, creator domain.Identity) (*domain.Event, error)
	Update(ctx context.Context, id string, input UpdateEventInput, caller domain.Identity) (*domain.Event, error)
	Delete(ctx context.Context, id string, caller domain.Identity) error
}

type Cache interface {
	GetEvents(ctx context.Context) ([]domain.Event, error)
	SetEvents(ctx context.Context, events []domain.Event) error
	InvalidateEvents(ctx context.Context) error
}

type EventService struct {
	repo   repository.EventRepository
	cache  Cache
	logger *zap.Logger
	clock  clock.Clock
}

type CreateEventInput struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Location     string    `json:"location"`
	Image        string    `json:"image"`
	PriceCents   int64     `json:"price_cents"`
	TotalTickets int       `json:"total_tickets"`
}

type UpdateEventInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
	Image       *string    `json:"image"`
	PriceCents  *int64     `json:"price_cents"`
}

type EventServiceOption func(*EventService)

func WithClock(clk clock.Clock) EventServiceOption {
	return func(s *EventService) {
		s.clock = clk
	}
}

func NewEventService(repo repository.EventRepository, cache Cache, logger *zap.Logger, opts ...EventServiceOption) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &EventService{repo: repo, cache: cache, logger: logger, clock: clock.NewSystem()}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *EventService) List(ctx context.Context, futureOnly bool) ([]domain.Event, error) {
	// The filtered list is cheap and rarely requested, only the full list is cached.
	if !futureOnly && s.cache != nil {
		if cached, err := s.cache.GetEvents(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	events, err := s.repo.List(ctx, futureOnly)
	if err != nil {
		return nil, err
	}
	if !futureOnly && s.cache != nil {
		if err := s.cache.SetEvents(ctx, events); err != nil {
			s.logger.Warn("failed to cache events", zap.Error(err))
		}
	}
	return events, nil
}

func (s *EventService) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *EventService) Create(ctx context.Context, input CreateEventInput, creator domain.Identity) (*domain.Event, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	event := &domain.Event{
		ID:               uuid.NewString(),
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		Date:             input.Date,
		Location:         input.Location,
		Image:            input.Image,
		PriceCents:       input.PriceCents,
		TotalTickets:     input.TotalTickets,
		AvailableTickets: input.TotalTickets,
		CreatedBy:        creator.UserID,
		CreatedAt:        s.clock.Now(),
		UpdatedAt:        s.clock.Now(),
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return event, nil
}

func (s *EventService) Update(ctx context.Context, id string, input UpdateEventInput, caller domain.Identity) (*domain.Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.CreatedBy != caller.UserID && !caller.IsAdmin {
		return nil, domain.ErrForbidden
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
		}
		event.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		event.Description = *input.Description
	}
	if input.Date != nil {
		event.Date = *input.Date
	}
	if input.Location != nil {
		event.Location = *input.Location
	}
	if input.Image != nil {
		event.Image = *input.Image
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidArgument)
		}
		// Existing bookings keep the price they were sold at.
		event.PriceCents = *input.PriceCents
	}

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return event, nil
}

func (s *EventService) Delete(ctx context.Context, id string, caller domain.Identity) error {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if event.CreatedBy != caller.UserID && !caller.IsAdmin {
		return domain.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *EventService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateEvents(ctx); err != nil {
		s.logger.Warn("failed to invalidate events cache", zap.Error(err))
	}
}

func validateCreate(input CreateEventInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
	}
	if input.Date.IsZero() {
		return fmt.Errorf("%w: date is required", domain.ErrInvalidArgument)
	}
	if input.PriceCents < 0 {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidArgument)
	}
	if input.TotalTickets < 1 {
		return fmt.Errorf("%w: total tickets must be at least 1", domain.ErrInvalidArgument)
	}
	return nil
}

var _ EventUseCase = (*EventService)(nil)
