package events

import (
	"errors"
	"time"
)

// Event statuses.
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusCancelled = "CANCELLED"
)

// Booking statuses.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

var (
	// ErrEventClosed indicates the event no longer accepts bookings.
	ErrEventClosed = errors.New("event is not open for booking")
	// ErrSoldOut indicates the event has no remaining capacity.
	ErrSoldOut = errors.New("event is sold out")
)

// Event is a bookable occasion owned by its organizer.
type Event struct {
	ID          string
	Title       string
	Description string
	OrganizerID string
	Venue       string
	StartsAt    time.Time
	EndsAt      time.Time
	Capacity    int
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Booking reserves seats on an event for a principal.
type Booking struct {
	ID          string
	EventID     string
	PrincipalID string
	Seats       int
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
