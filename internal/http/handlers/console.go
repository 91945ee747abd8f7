package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/lysandra-ai-platform/internal/conversation"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// ConsoleSender runs one operator test message through the model.
type ConsoleSender interface {
	Send(ctx context.Context, req conversation.ConsoleRequest) conversation.ConsoleReply
}

// ConsoleHandler serves the test console over HTTP and websocket.
type ConsoleHandler struct {
	console ConsoleSender
	logger  *logging.Logger
}

func NewConsoleHandler(console ConsoleSender, logger *logging.Logger) *ConsoleHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConsoleHandler{console: console, logger: logger}
}

// SendMessage answers one message with caller-supplied history.
// POST /admin/test/message
func (h *ConsoleHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req conversation.ConsoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, conversation.ConsoleReply{Text: err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, conversation.ConsoleReply{Text: "message is required"})
		return
	}
	writeJSON(w, http.StatusOK, h.console.Send(r.Context(), req))
}

// Stream keeps a websocket open; each inbound frame is answered in order.
// GET /admin/test/ws
func (h *ConsoleHandler) Stream(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(r.Context(), conn)
	}).ServeHTTP(w, r)
}

func (h *ConsoleHandler) serveWS(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	for {
		var req conversation.ConsoleRequest
		if err := websocket.JSON.Receive(conn, &req); err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Debug("console websocket closed", "error", err)
			}
			return
		}
		var reply conversation.ConsoleReply
		if strings.TrimSpace(req.Message) == "" {
			reply = conversation.ConsoleReply{Text: "message is required"}
		} else {
			reply = h.console.Send(ctx, req)
		}
		if err := websocket.JSON.Send(conn, reply); err != nil {
			h.logger.Debug("console websocket send failed", "error", err)
			return
		}
	}
}
