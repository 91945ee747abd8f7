package bookings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lysandra-ai-platform/internal/store"
)

type recordingNotifier struct {
	booked []store.Appointment
	err    error
}

func (n *recordingNotifier) AppointmentBooked(_ context.Context, appt store.Appointment) error {
	n.booked = append(n.booked, appt)
	return n.err
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc := NewService(mem, nil, nil)

	got, err := svc.CheckAvailability(ctx, "2025-03-10T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, Availability{Available: true, Message: "Slot is available."}, got)

	_, err = mem.CreateAppointment(ctx, store.Appointment{ClientName: "Ana", Date: "2025-03-10T10:00:00Z", Type: "Demo", Status: store.StatusPending})
	require.NoError(t, err)
	got, err = svc.CheckAvailability(ctx, "2025-03-10T10:00:00Z")
	require.NoError(t, err)
	assert.True(t, got.Available, "pending appointments do not block a slot")

	_, err = mem.CreateAppointment(ctx, store.Appointment{ClientName: "Luis", Date: "2025-03-10T10:00:00Z", Type: "Demo", Status: store.StatusConfirmed})
	require.NoError(t, err)
	got, err = svc.CheckAvailability(ctx, "2025-03-10T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, Availability{Available: false, Message: "Slot is already taken."}, got)

	got, err = svc.CheckAvailability(ctx, "2025-03-10T10:00:00.000Z")
	require.NoError(t, err)
	assert.True(t, got.Available, "dates are compared as exact strings")
}

func TestCheckAvailabilityStoreError(t *testing.T) {
	svc := NewService(store.Unavailable{}, nil, nil)
	_, err := svc.CheckAvailability(context.Background(), "2025-03-10T10:00:00Z")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrStoreUnavailable))
}

func TestBookCreatesConfirmedAppointment(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	notifier := &recordingNotifier{}
	svc := NewService(mem, notifier, nil)

	conf, err := svc.Book(ctx, "Ana", "2025-03-10T10:00:00Z", "Consultoría")
	require.NoError(t, err)
	assert.True(t, conf.Success)
	assert.NotEmpty(t, conf.AppointmentID)
	assert.Equal(t, "Appointment booked for Ana on 2025-03-10T10:00:00Z.", conf.Message)

	appts, err := mem.ListAppointments(ctx, 0)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, store.StatusConfirmed, appts[0].Status)
	assert.Equal(t, "Consultoría", appts[0].Type)

	require.Len(t, notifier.booked, 1)
	assert.Equal(t, conf.AppointmentID, notifier.booked[0].ID)
}

func TestBookDoesNotRecheckAvailability(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc := NewService(mem, nil, nil)

	_, err := svc.Book(ctx, "Ana", "2025-03-10T10:00:00Z", "Demo")
	require.NoError(t, err)
	_, err = svc.Book(ctx, "Luis", "2025-03-10T10:00:00Z", "Demo")
	require.NoError(t, err)

	n, err := mem.CountAppointments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBookNotifierFailureIsIgnored(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), &recordingNotifier{err: errors.New("smtp down")}, nil)
	conf, err := svc.Book(context.Background(), "Ana", "2025-03-10T10:00:00Z", "Demo")
	require.NoError(t, err)
	assert.True(t, conf.Success)
}

func TestBookAcceptsBlankArguments(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc := NewService(mem, nil, nil)

	conf, err := svc.Book(ctx, "", "2025-03-01T10:00:00Z", "Demo")
	require.NoError(t, err)
	assert.True(t, conf.Success)

	appts, err := mem.ListAppointments(ctx, 0)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Empty(t, appts[0].ClientName)
	assert.Equal(t, store.StatusConfirmed, appts[0].Status)
}

func TestBookStoreError(t *testing.T) {
	svc := NewService(store.Unavailable{}, nil, nil)
	_, err := svc.Book(context.Background(), "Ana", "2025-03-10T10:00:00Z", "Demo")
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
}
