package email

import (
	"context"

	"github.com/arpitshukla/eventmaster/internal/kafka"
	"go.uber.org/zap"
)

type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	s.logger.Info("sending booking notification",
		zap.String("type", event.Type),
		zap.String("user_id", event.UserID),
		zap.String("booking_id", event.BookingID),
		zap.String("event_id", event.EventID),
		zap.Int("tickets", event.NumberOfTickets),
	)
	return nil
}
