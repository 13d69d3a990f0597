package events

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-io/gatehouse/internal/shared"
)

// Repository implements RepositoryPort against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListEvents(ctx context.Context, page, perPage int) ([]Event, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, organizer_id, venue, starts_at, ends_at, capacity, status, created_at, updated_at
		FROM events
		ORDER BY starts_at DESC
		LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.OrganizerID, &ev.Venue,
			&ev.StartsAt, &ev.EndsAt, &ev.Capacity, &ev.Status, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *Repository) GetEvent(ctx context.Context, id string) (*Event, error) {
	var ev Event
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, description, organizer_id, venue, starts_at, ends_at, capacity, status, created_at, updated_at
		FROM events
		WHERE id = $1`, id).Scan(&ev.ID, &ev.Title, &ev.Description, &ev.OrganizerID, &ev.Venue,
		&ev.StartsAt, &ev.EndsAt, &ev.Capacity, &ev.Status, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ev, nil
}

func (r *Repository) InsertEvent(ctx context.Context, ev Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO events (id, title, description, organizer_id, venue, starts_at, ends_at, capacity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		ev.ID, ev.Title, ev.Description, ev.OrganizerID, ev.Venue, ev.StartsAt, ev.EndsAt, ev.Capacity, ev.Status)
	return err
}

func (r *Repository) UpdateEvent(ctx context.Context, ev Event) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE events
		SET title = $2, description = $3, venue = $4, starts_at = $5, ends_at = $6, capacity = $7, updated_at = NOW()
		WHERE id = $1`,
		ev.ID, ev.Title, ev.Description, ev.Venue, ev.StartsAt, ev.EndsAt, ev.Capacity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) SetEventStatus(ctx context.Context, id, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE events SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) InsertBooking(ctx context.Context, b Booking) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bookings (id, event_id, principal_id, seats, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`,
		b.ID, b.EventID, b.PrincipalID, b.Seats, b.Status)
	return err
}

func (r *Repository) GetBooking(ctx context.Context, id string) (*Booking, error) {
	var b Booking
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, principal_id, seats, status, created_at, updated_at
		FROM bookings
		WHERE id = $1`, id).Scan(&b.ID, &b.EventID, &b.PrincipalID, &b.Seats, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repository) ListBookingsByPrincipal(ctx context.Context, principalID string) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, principal_id, seats, status, created_at, updated_at
		FROM bookings
		WHERE principal_id = $1
		ORDER BY created_at DESC`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.EventID, &b.PrincipalID, &b.Seats, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func (r *Repository) SetBookingStatus(ctx context.Context, id, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) CountBookedSeats(ctx context.Context, eventID string) (int, error) {
	var seats int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(seats), 0) FROM bookings
		WHERE event_id = $1 AND status = $2`, eventID, BookingConfirmed).Scan(&seats)
	return seats, err
}

// IsOrganizer reports whether the principal owns the event. Used as the
// ownership predicate for the "events" resource.
func (r *Repository) IsOrganizer(ctx context.Context, principalID, eventID string) (bool, error) {
	var owns bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM events WHERE id = $1 AND organizer_id = $2)`,
		eventID, principalID).Scan(&owns)
	return owns, err
}

// IsBookingHolder reports whether the principal holds the booking.
func (r *Repository) IsBookingHolder(ctx context.Context, principalID, bookingID string) (bool, error) {
	var owns bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1 AND principal_id = $2)`,
		bookingID, principalID).Scan(&owns)
	return owns, err
}
