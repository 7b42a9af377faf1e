package repository

import (
	"context"
	"errors"

	"github.com/arpitshukla/eventmaster/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	// Reserve decrements the event's availability and inserts the booking in
	// one transaction. The decrement is conditional on sufficient availability,
	// so two concurrent reserves can never both pass the check.
	Reserve(ctx context.Context, booking *domain.Booking) error
	// Cancel flips a confirmed booking to cancelled and restores the event's
	// availability in one transaction.
	Cancel(ctx context.Context, bookingID string) (*domain.Booking, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
}

const bookingColumns = `id, event_id, user_id, number_of_tickets, total_price_cents, booking_date, status`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Reserve(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `UPDATE events SET available_tickets = available_tickets - $2, updated_at = now()
		WHERE id=$1 AND available_tickets >= $2`, booking.EventID, booking.NumberOfTickets)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// Zero rows means either too few tickets or the event vanished
		// between the caller's read and this transaction.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id=$1)`, booking.EventID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrEventNotFound
		}
		return domain.ErrInsufficientTickets
	}

	if _, err := tx.Exec(ctx, `INSERT INTO bookings (id, event_id, user_id, number_of_tickets, total_price_cents, booking_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		booking.ID, booking.EventID, booking.UserID, booking.NumberOfTickets,
		booking.TotalPriceCents, booking.BookingDate, booking.Status); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) Cancel(ctx context.Context, bookingID string) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `UPDATE bookings SET status=$2 WHERE id=$1 AND status=$3 RETURNING `+bookingColumns,
		bookingID, domain.BookingStatusCancelled, domain.BookingStatusConfirmed)
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlreadyCancelled
		}
		return nil, err
	}

	cmd, err := tx.Exec(ctx, `UPDATE events SET available_tickets = available_tickets + $2, updated_at = now() WHERE id=$1`,
		b.EventID, b.NumberOfTickets)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrEventNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY booking_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row, b *domain.Booking) error {
	return row.Scan(&b.ID, &b.EventID, &b.UserID, &b.NumberOfTickets, &b.TotalPriceCents, &b.BookingDate, &b.Status)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
