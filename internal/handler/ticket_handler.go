package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// TicketHandler serves the ticket lifecycle: issue, assign, validate, scan.
type TicketHandler struct {
	svc    *service.TicketService
	body   bodyValidator
	logger *logrus.Logger
}

func NewTicketHandler(svc *service.TicketService, validate *validator.Validate, logger *logrus.Logger) *TicketHandler {
	return &TicketHandler{svc: svc, body: bodyValidator{validate: validate}, logger: logger}
}

// Issue handles POST /events/{id}/tickets
// The ticket is assigned at issue time when the body carries a guest.
func (h *TicketHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req model.IssueTicketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := h.body.check(r.Context(), req); err != nil {
		badRequest(w, err.Error())
		return
	}

	t, err := h.svc.Issue(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTickets handles GET /events/{id}/tickets
func (h *TicketHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.svc.ListTickets(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

// Stats handles GET /events/{id}/stats
func (h *TicketHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetTicket handles GET /tickets/{code}
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	tc, err := h.svc.GetTicket(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

// QR handles GET /tickets/{code}/qr
func (h *TicketHandler) QR(w http.ResponseWriter, r *http.Request) {
	qr, err := h.svc.QRPayload(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, qr)
}

// ListValidations handles GET /tickets/{code}/validations
func (h *TicketHandler) ListValidations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ListValidations(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// Assign handles POST /tickets/{code}/assign
func (h *TicketHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var guest model.Guest
	if err := decodeJSON(w, r, &guest); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}

	t, err := h.svc.Assign(r.Context(), chi.URLParam(r, "code"), guest)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Validate handles POST /tickets/{code}/validate
// The body is optional.
func (h *TicketHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}

	tc, err := h.svc.Validate(r.Context(), chi.URLParam(r, "code"), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

// Scan handles POST /scan
func (h *TicketHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req model.ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := h.body.check(r.Context(), req); err != nil {
		badRequest(w, err.Error())
		return
	}

	tc, err := h.svc.Scan(r.Context(), req.Payload, req.ValidateRequest)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

// GenerateCode handles POST /codes
func (h *TicketHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.CodeResponse{Code: h.svc.GenerateCode()})
}
