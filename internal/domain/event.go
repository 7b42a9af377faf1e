package domain

import "time"

type Event struct {
	ID               string
	Title            string
	Description      string
	Date             time.Time
	Location         string
	Image            string
	PriceCents       int64
	TotalTickets     int
	AvailableTickets int
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
