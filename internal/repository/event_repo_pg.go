package repository

import (
	"context"
	"errors"

	"github.com/arpitshukla/eventmaster/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository interface {
	List(ctx context.Context, futureOnly bool) ([]domain.Event, error)
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	Create(ctx context.Context, event *domain.Event) error
	Update(ctx context.Context, event *domain.Event) error
	Delete(ctx context.Context, id string) error
}

const eventColumns = `id, title, description, date, location, image, price_cents, total_tickets, available_tickets, created_by, created_at, updated_at`

type PGEventRepository struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) EventRepository {
	return &PGEventRepository{db: db}
}

func (r *PGEventRepository) List(ctx context.Context, futureOnly bool) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY date`
	if futureOnly {
		query = `SELECT ` + eventColumns + ` FROM events WHERE date >= now() ORDER BY date`
	}

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var e domain.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *PGEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	row := r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id=$1`, id)
	var e domain.Event
	if err := scanEvent(row, &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *PGEventRepository) Create(ctx context.Context, event *domain.Event) error {
	return r.db.QueryRow(ctx, `INSERT INTO events (id, title, description, date, location, image, price_cents, total_tickets, available_tickets, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		event.ID, event.Title, event.Description, event.Date, event.Location, event.Image,
		event.PriceCents, event.TotalTickets, event.AvailableTickets, event.CreatedBy).
		Scan(&event.CreatedAt, &event.UpdatedAt)
}

// Update touches metadata only. Ticket availability is owned by the
// booking repository's reserve/cancel transactions.
func (r *PGEventRepository) Update(ctx context.Context, event *domain.Event) error {
	cmd, err := r.db.Exec(ctx, `UPDATE events SET title=$2, description=$3, date=$4, location=$5, image=$6, price_cents=$7, updated_at=now() WHERE id=$1`,
		event.ID, event.Title, event.Description, event.Date, event.Location, event.Image, event.PriceCents)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *PGEventRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func scanEvent(row pgx.Row, e *domain.Event) error {
	return row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Image,
		&e.PriceCents, &e.TotalTickets, &e.AvailableTickets, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
}

var _ EventRepository = (*PGEventRepository)(nil)
