package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-io/gatehouse/internal/shared"
)

// mockRepository keeps events and bookings in memory with error injection.
type mockRepository struct {
	events   map[string]*Event
	bookings map[string]*Booking

	getEventError   error
	insertError     error
	countSeatsError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		events:   make(map[string]*Event),
		bookings: make(map[string]*Booking),
	}
}

func (m *mockRepository) ListEvents(ctx context.Context, page, perPage int) ([]Event, int, error) {
	out := make([]Event, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, *ev)
	}
	return out, len(out), nil
}

func (m *mockRepository) GetEvent(ctx context.Context, id string) (*Event, error) {
	if m.getEventError != nil {
		return nil, m.getEventError
	}
	ev, ok := m.events[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *ev
	return &copied, nil
}

func (m *mockRepository) InsertEvent(ctx context.Context, ev Event) error {
	if m.insertError != nil {
		return m.insertError
	}
	m.events[ev.ID] = &ev
	return nil
}

func (m *mockRepository) UpdateEvent(ctx context.Context, ev Event) error {
	if _, ok := m.events[ev.ID]; !ok {
		return shared.ErrNotFound
	}
	m.events[ev.ID] = &ev
	return nil
}

func (m *mockRepository) SetEventStatus(ctx context.Context, id, status string) error {
	ev, ok := m.events[id]
	if !ok {
		return shared.ErrNotFound
	}
	ev.Status = status
	return nil
}

func (m *mockRepository) InsertBooking(ctx context.Context, b Booking) error {
	if m.insertError != nil {
		return m.insertError
	}
	m.bookings[b.ID] = &b
	return nil
}

func (m *mockRepository) GetBooking(ctx context.Context, id string) (*Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *mockRepository) ListBookingsByPrincipal(ctx context.Context, principalID string) ([]Booking, error) {
	var out []Booking
	for _, b := range m.bookings {
		if b.PrincipalID == principalID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockRepository) SetBookingStatus(ctx context.Context, id, status string) error {
	b, ok := m.bookings[id]
	if !ok {
		return shared.ErrNotFound
	}
	b.Status = status
	return nil
}

func (m *mockRepository) CountBookedSeats(ctx context.Context, eventID string) (int, error) {
	if m.countSeatsError != nil {
		return 0, m.countSeatsError
	}
	total := 0
	for _, b := range m.bookings {
		if b.EventID == eventID && b.Status == BookingConfirmed {
			total += b.Seats
		}
	}
	return total, nil
}

func (m *mockRepository) IsOrganizer(ctx context.Context, principalID, eventID string) (bool, error) {
	ev, ok := m.events[eventID]
	return ok && ev.OrganizerID == principalID, nil
}

func (m *mockRepository) IsBookingHolder(ctx context.Context, principalID, bookingID string) (bool, error) {
	b, ok := m.bookings[bookingID]
	return ok && b.PrincipalID == principalID, nil
}

var _ RepositoryPort = (*mockRepository)(nil)

func newTestService(repo *mockRepository) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func publishedEvent(id string, capacity int) *Event {
	return &Event{
		ID:          id,
		Title:       "Launch Night",
		OrganizerID: "org-1",
		Capacity:    capacity,
		Status:      StatusPublished,
		StartsAt:    time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC),
		EndsAt:      time.Date(2026, 6, 1, 23, 0, 0, 0, time.UTC),
	}
}

func TestCreateEventStartsAsDraft(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	ev, err := svc.CreateEvent(context.Background(), "org-1", CreateEventInput{
		Title:    "Launch Night",
		Venue:    "Main Hall",
		Capacity: 100,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, StatusDraft, ev.Status)
	assert.Equal(t, "org-1", ev.OrganizerID)
	assert.Contains(t, repo.events, ev.ID)
}

func TestPublishAndCancelEvent(t *testing.T) {
	repo := newMockRepository()
	repo.events["evt-1"] = &Event{ID: "evt-1", Status: StatusDraft}
	svc := newTestService(repo)

	require.NoError(t, svc.PublishEvent(context.Background(), "evt-1"))
	assert.Equal(t, StatusPublished, repo.events["evt-1"].Status)

	require.NoError(t, svc.CancelEvent(context.Background(), "evt-1"))
	assert.Equal(t, StatusCancelled, repo.events["evt-1"].Status)

	assert.ErrorIs(t, svc.PublishEvent(context.Background(), "missing"), shared.ErrNotFound)
}

func TestCreateBookingOnPublishedEvent(t *testing.T) {
	repo := newMockRepository()
	repo.events["evt-1"] = publishedEvent("evt-1", 10)
	svc := newTestService(repo)

	b, err := svc.CreateBooking(context.Background(), "c-1", "evt-1", 2)
	require.NoError(t, err)

	assert.Equal(t, BookingConfirmed, b.Status)
	assert.Equal(t, 2, b.Seats)
	assert.Contains(t, repo.bookings, b.ID)
}

func TestCreateBookingRejectsUnpublishedEvent(t *testing.T) {
	repo := newMockRepository()
	repo.events["draft"] = &Event{ID: "draft", Status: StatusDraft, Capacity: 10}
	repo.events["gone"] = &Event{ID: "gone", Status: StatusCancelled, Capacity: 10}
	svc := newTestService(repo)

	_, err := svc.CreateBooking(context.Background(), "c-1", "draft", 1)
	assert.ErrorIs(t, err, ErrEventClosed)

	_, err = svc.CreateBooking(context.Background(), "c-1", "gone", 1)
	assert.ErrorIs(t, err, ErrEventClosed)
}

func TestCreateBookingRespectsCapacity(t *testing.T) {
	repo := newMockRepository()
	repo.events["evt-1"] = publishedEvent("evt-1", 5)
	repo.bookings["b-1"] = &Booking{ID: "b-1", EventID: "evt-1", PrincipalID: "c-9", Seats: 4, Status: BookingConfirmed}
	svc := newTestService(repo)

	_, err := svc.CreateBooking(context.Background(), "c-1", "evt-1", 2)
	assert.ErrorIs(t, err, ErrSoldOut)

	// Cancelled bookings release their seats.
	repo.bookings["b-1"].Status = BookingCancelled
	_, err = svc.CreateBooking(context.Background(), "c-1", "evt-1", 2)
	assert.NoError(t, err)
}

func TestCreateBookingSeatCountFailure(t *testing.T) {
	repo := newMockRepository()
	repo.events["evt-1"] = publishedEvent("evt-1", 5)
	repo.countSeatsError = errors.New("query failed")
	svc := newTestService(repo)

	_, err := svc.CreateBooking(context.Background(), "c-1", "evt-1", 1)
	assert.Error(t, err)
}

func TestCancelBooking(t *testing.T) {
	repo := newMockRepository()
	repo.bookings["b-1"] = &Booking{ID: "b-1", EventID: "evt-1", PrincipalID: "c-1", Seats: 1, Status: BookingConfirmed}
	svc := newTestService(repo)

	require.NoError(t, svc.CancelBooking(context.Background(), "b-1"))
	assert.Equal(t, BookingCancelled, repo.bookings["b-1"].Status)
}

func TestUpdateEventAppliesEditableFields(t *testing.T) {
	repo := newMockRepository()
	repo.events["evt-1"] = publishedEvent("evt-1", 10)
	svc := newTestService(repo)

	ev, err := svc.UpdateEvent(context.Background(), "evt-1", CreateEventInput{
		Title:    "Launch Night II",
		Venue:    "Annex",
		Capacity: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, "Launch Night II", ev.Title)
	assert.Equal(t, 50, repo.events["evt-1"].Capacity)
	// Status is not editable through update.
	assert.Equal(t, StatusPublished, repo.events["evt-1"].Status)
}
