package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// EventHandler serves the event and ticket type catalogue.
type EventHandler struct {
	svc    *service.EventService
	body   bodyValidator
	logger *logrus.Logger
}

func NewEventHandler(svc *service.EventService, validate *validator.Validate, logger *logrus.Logger) *EventHandler {
	return &EventHandler{svc: svc, body: bodyValidator{validate: validate}, logger: logger}
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := h.body.check(r.Context(), req); err != nil {
		badRequest(w, err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// CreateTicketType handles POST /events/{id}/ticket-types
func (h *EventHandler) CreateTicketType(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTicketTypeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := h.body.check(r.Context(), req); err != nil {
		badRequest(w, err.Error())
		return
	}

	tt, err := h.svc.CreateTicketType(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tt)
}

// ListTicketTypes handles GET /events/{id}/ticket-types
func (h *EventHandler) ListTicketTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.ListTicketTypes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}
