package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// BookingNotifier emails the support inbox whenever the assistant books an
// appointment. It satisfies bookings.Notifier.
type BookingNotifier struct {
	sender    Sender
	recipient string
	logger    *logging.Logger
}

// NewBookingNotifier returns nil when there is no sender or recipient.
func NewBookingNotifier(sender Sender, recipient string, logger *logging.Logger) *BookingNotifier {
	if sender == nil || strings.TrimSpace(recipient) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{sender: sender, recipient: strings.TrimSpace(recipient), logger: logger}
}

// AppointmentBooked sends the booking summary email.
func (n *BookingNotifier) AppointmentBooked(ctx context.Context, appt store.Appointment) error {
	if n == nil {
		return nil
	}
	e := Email{
		To:      n.recipient,
		Subject: fmt.Sprintf("Nueva cita agendada: %s", appt.ClientName),
		Text:    bookingText(appt),
		HTML:    bookingHTML(appt),
	}
	if err := n.sender.Send(ctx, e); err != nil {
		return fmt.Errorf("notify: booking email: %w", err)
	}
	n.logger.Debug("booking notification sent", "appointment_id", appt.ID)
	return nil
}

func bookingText(appt store.Appointment) string {
	var b strings.Builder
	b.WriteString("Lysandra agendó una nueva cita por WhatsApp.\n\n")
	fmt.Fprintf(&b, "Cliente: %s\n", appt.ClientName)
	fmt.Fprintf(&b, "Fecha: %s\n", appt.Date)
	if appt.Type != "" {
		fmt.Fprintf(&b, "Tipo: %s\n", appt.Type)
	}
	fmt.Fprintf(&b, "Estado: %s\n", appt.Status)
	fmt.Fprintf(&b, "ID: %s\n", appt.ID)
	return b.String()
}

func bookingHTML(appt store.Appointment) string {
	return fmt.Sprintf(`<h2>Nueva cita agendada</h2>
<p><strong>Cliente:</strong> %s<br>
<strong>Fecha:</strong> %s<br>
<strong>Tipo:</strong> %s<br>
<strong>Estado:</strong> %s</p>
<p style="color:#666">ID: %s</p>`,
		html.EscapeString(appt.ClientName), html.EscapeString(appt.Date), html.EscapeString(appt.Type), html.EscapeString(appt.Status), html.EscapeString(appt.ID))
}

