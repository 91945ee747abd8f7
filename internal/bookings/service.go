// Package bookings answers availability questions and records appointments
// requested through the assistant's tools.
package bookings

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

var bookingsTracer = otel.Tracer("lysandra.internal.bookings")

const (
	msgSlotAvailable = "Slot is available."
	msgSlotTaken     = "Slot is already taken."
)

// Availability is the checkAvailability tool result.
type Availability struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// Confirmation is the bookSlot tool result.
type Confirmation struct {
	Success       bool   `json:"success"`
	AppointmentID string `json:"appointmentId"`
	Message       string `json:"message"`
}

// Notifier is told about every appointment that was booked.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appt store.Appointment) error
}

// Service checks and books appointment slots. Slots are compared by exact
// date string; no normalization is applied.
type Service struct {
	appointments store.AppointmentStore
	notifier     Notifier
	logger       *logging.Logger
}

// NewService constructs a bookings service. notifier may be nil.
func NewService(appointments store.AppointmentStore, notifier Notifier, logger *logging.Logger) *Service {
	if appointments == nil {
		panic("bookings: appointment store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{appointments: appointments, notifier: notifier, logger: logger}
}

// CheckAvailability reports whether no confirmed appointment holds date.
func (s *Service) CheckAvailability(ctx context.Context, date string) (Availability, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.check_availability")
	defer span.End()
	span.SetAttributes(attribute.String("lysandra.slot", date))

	existing, err := s.appointments.FindAppointments(ctx, date, store.StatusConfirmed)
	if err != nil {
		span.RecordError(err)
		return Availability{}, fmt.Errorf("bookings: check availability: %w", err)
	}
	if len(existing) > 0 {
		return Availability{Available: false, Message: msgSlotTaken}, nil
	}
	return Availability{Available: true, Message: msgSlotAvailable}, nil
}

// Book inserts a confirmed appointment with whatever arguments the model
// supplied, blank ones included. It does not re-check availability, so two
// concurrent bookings for the same date can both succeed.
func (s *Service) Book(ctx context.Context, name, date, apptType string) (Confirmation, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("lysandra.slot", date),
		attribute.String("lysandra.appointment_type", apptType),
	)

	appt, err := s.appointments.CreateAppointment(ctx, store.Appointment{
		ClientName: name,
		Date:       date,
		Type:       apptType,
		Status:     store.StatusConfirmed,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		return Confirmation{}, fmt.Errorf("bookings: create appointment: %w", err)
	}
	s.logger.Info("appointment booked", "appointment_id", appt.ID, "date", date, "type", apptType)

	if s.notifier != nil {
		if err := s.notifier.AppointmentBooked(ctx, appt); err != nil {
			s.logger.Warn("booking notification failed", "appointment_id", appt.ID, "error", err)
		}
	}

	return Confirmation{
		Success:       true,
		AppointmentID: appt.ID,
		Message:       fmt.Sprintf("Appointment booked for %s on %s.", name, date),
	}, nil
}
