package domain

import "errors"

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidTicketCount  = errors.New("number of tickets must be at least 1")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientTickets = errors.New("not enough tickets available")
	ErrForbidden           = errors.New("not authorized")
	ErrAlreadyCancelled    = errors.New("booking is already cancelled")
	ErrBusy                = errors.New("event is busy, retry later")
	ErrUnauthenticated     = errors.New("invalid or missing credentials")
	ErrEmailTaken          = errors.New("email is already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
)
