// Package api provides the HTTP handlers of the sandbox chat backend: the fallback send
// endpoint, the widget configuration endpoint and the visitor websocket.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/livechat/internal/hub"
)

// Handler serves the sandbox backend routes.
type Handler struct {
	hub     *hub.Hub
	inbox   *Inbox
	widgets WidgetConfigs
	logger  *slog.Logger
}

// NewHandler creates a Handler. widgets may be nil.
func NewHandler(h *hub.Hub, widgets WidgetConfigs, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hub:     h,
		inbox:   NewInbox(),
		widgets: widgets,
		logger:  logger,
	}
}

// Inbox returns the messages recorded by the send endpoint.
func (h *Handler) Inbox() *Inbox {
	return h.inbox
}

// RegisterRoutes registers every sandbox route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sendmessage", h.SendMessage)
	r.Get("/config/widget/", h.GetWidgetConfig)
	r.Get("/ws", h.VisitorSocket)

	r.Route("/sandbox", func(r chi.Router) {
		r.Get("/messages", h.ListMessages)
		r.Post("/reply", h.AgentReply)
		r.Get("/health", h.Health)
	})
}

// Health reports the sandbox state.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"visitors": h.hub.Count(),
		"messages": h.inbox.Len(),
		"widgets":  len(h.widgets),
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
