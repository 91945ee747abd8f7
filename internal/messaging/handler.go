// Package messaging exposes the Twilio WhatsApp webhook.
package messaging

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/lysandra-ai-platform/internal/conversation"
	"github.com/wolfman30/lysandra-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

var twilioTracer = otel.Tracer("lysandra.internal.messaging.twilio")

const missingFromBody = "Missing From"

// Responder answers one inbound message. conversation.Orchestrator satisfies it.
type Responder interface {
	Handle(ctx context.Context, in conversation.Inbound) (conversation.Reply, error)
}

// Handler handles the WhatsApp webhook.
type Handler struct {
	authToken string
	responder Responder
	metrics   *metrics.MessagingMetrics
	logger    *logging.Logger
}

// NewHandler creates a webhook handler. Signature validation is skipped
// when authToken is empty.
func NewHandler(authToken string, responder Responder, m *metrics.MessagingMetrics, logger *logging.Logger) *Handler {
	if responder == nil {
		panic("messaging: responder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{authToken: authToken, responder: responder, metrics: m, logger: logger}
}

// WhatsAppWebhook handles POST /webhook requests and replies synchronously
// with TwiML.
func (h *Handler) WhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := twilioTracer.Start(r.Context(), "messaging.twilio.whatsapp")
	defer span.End()

	status := "replied"
	defer func() { h.metrics.ObserveInbound(status, time.Since(start).Seconds()) }()

	if h.authToken != "" && !ValidateTwilioSignature(r, h.authToken, BuildAbsoluteURL(r)) {
		status = "unauthorized"
		h.logger.Warn("invalid twilio signature")
		span.RecordError(errors.New("invalid twilio signature"))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	webhook, err := ParseTwilioWebhook(r)
	if err != nil {
		status = "apology"
		h.logger.Error("failed to parse twilio webhook", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed webhook")
		body, _ := RenderTwiML(conversation.Apology)
		writeTwiML(w, body)
		return
	}
	span.SetAttributes(
		attribute.String("lysandra.twilio.message_sid", webhook.MessageSid),
		attribute.String("lysandra.conversation_id", conversation.ConversationKey(webhook.From)),
	)

	reply, err := h.responder.Handle(ctx, conversation.Inbound{From: webhook.From, Body: webhook.Body})
	if errors.Is(err, conversation.ErrMissingSender) {
		status = "rejected"
		span.RecordError(err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(missingFromBody))
		return
	}
	if err != nil {
		reply = conversation.Reply{Text: conversation.Apology, Apology: true, Err: err}
	}
	if reply.Apology {
		status = "apology"
		if reply.Err != nil {
			span.RecordError(reply.Err)
		}
		span.SetStatus(codes.Error, "turn failed")
	}

	body, err := RenderTwiML(reply.Text)
	if err != nil {
		status = "apology"
		h.logger.Error("failed to render twiml", "error", err)
		body, _ = RenderTwiML(conversation.Apology)
	}

	h.logger.Info("whatsapp webhook answered", "conversation_id", reply.ConversationID, "status", status, "message_sid", webhook.MessageSid)
	writeTwiML(w, body)
}

func writeTwiML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
