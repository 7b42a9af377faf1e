package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID              string
	EventID         string
	UserID          string
	NumberOfTickets int
	TotalPriceCents int64
	BookingDate     time.Time
	Status          BookingStatus
}
