package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gatehouse-io/gatehouse/internal/shared"
)

// RepositoryPort abstracts event persistence for the service layer.
type RepositoryPort interface {
	ListEvents(ctx context.Context, page, perPage int) ([]Event, int, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	InsertEvent(ctx context.Context, ev Event) error
	UpdateEvent(ctx context.Context, ev Event) error
	SetEventStatus(ctx context.Context, id, status string) error

	InsertBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (*Booking, error)
	ListBookingsByPrincipal(ctx context.Context, principalID string) ([]Booking, error)
	SetBookingStatus(ctx context.Context, id, status string) error
	CountBookedSeats(ctx context.Context, eventID string) (int, error)

	IsOrganizer(ctx context.Context, principalID, eventID string) (bool, error)
	IsBookingHolder(ctx context.Context, principalID, bookingID string) (bool, error)
}

// Service holds event and booking workflows.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds the event service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateEventInput carries fields for a new event.
type CreateEventInput struct {
	Title       string
	Description string
	Venue       string
	StartsAt    time.Time
	EndsAt      time.Time
	Capacity    int
}

// ListEvents returns a page of events.
func (s *Service) ListEvents(ctx context.Context, page, perPage int) ([]Event, shared.Pagination, error) {
	rows, total, err := s.repo.ListEvents(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(page, perPage, total), nil
}

// GetEvent fetches a single event.
func (s *Service) GetEvent(ctx context.Context, id string) (*Event, error) {
	return s.repo.GetEvent(ctx, id)
}

// CreateEvent stores a new draft event owned by the caller.
func (s *Service) CreateEvent(ctx context.Context, organizerID string, in CreateEventInput) (*Event, error) {
	ev := Event{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		OrganizerID: organizerID,
		Venue:       in.Venue,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		Capacity:    in.Capacity,
		Status:      StatusDraft,
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &ev, nil
}

// UpdateEvent applies editable fields to an existing event.
func (s *Service) UpdateEvent(ctx context.Context, id string, in CreateEventInput) (*Event, error) {
	ev, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	ev.Title = in.Title
	ev.Description = in.Description
	ev.Venue = in.Venue
	ev.StartsAt = in.StartsAt
	ev.EndsAt = in.EndsAt
	ev.Capacity = in.Capacity
	if err := s.repo.UpdateEvent(ctx, *ev); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return ev, nil
}

// PublishEvent opens the event for bookings.
func (s *Service) PublishEvent(ctx context.Context, id string) error {
	return s.repo.SetEventStatus(ctx, id, StatusPublished)
}

// CancelEvent closes the event. Existing bookings stay on record.
func (s *Service) CancelEvent(ctx context.Context, id string) error {
	return s.repo.SetEventStatus(ctx, id, StatusCancelled)
}

// CreateBooking reserves seats on a published event.
func (s *Service) CreateBooking(ctx context.Context, principalID, eventID string, seats int) (*Booking, error) {
	ev, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Status != StatusPublished {
		return nil, ErrEventClosed
	}
	booked, err := s.repo.CountBookedSeats(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count booked seats: %w", err)
	}
	if booked+seats > ev.Capacity {
		return nil, ErrSoldOut
	}
	b := Booking{
		ID:          uuid.NewString(),
		EventID:     eventID,
		PrincipalID: principalID,
		Seats:       seats,
		Status:      BookingConfirmed,
	}
	if err := s.repo.InsertBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return &b, nil
}

// ListBookings returns every booking held by the principal.
func (s *Service) ListBookings(ctx context.Context, principalID string) ([]Booking, error) {
	return s.repo.ListBookingsByPrincipal(ctx, principalID)
}

// GetBooking fetches a single booking.
func (s *Service) GetBooking(ctx context.Context, id string) (*Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// CancelBooking releases the seats held by a booking.
func (s *Service) CancelBooking(ctx context.Context, id string) error {
	return s.repo.SetBookingStatus(ctx, id, BookingCancelled)
}
