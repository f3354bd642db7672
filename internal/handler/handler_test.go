package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/clock"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/repository/memory"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/service"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/ticketcode"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

type server struct {
	handler http.Handler
	store   *memory.Store
	clock   *clock.Manual
}

func newServer(t *testing.T) *server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	clk := clock.NewManual(now)
	store := memory.New()
	validate := validator.New()

	events := service.NewEventService(store, clk, logger, service.WithRetry(1, 0))
	tickets := service.NewTicketService(store, ticketcode.New(clk), clk, logger, service.WithRetry(1, 0))

	return &server{
		handler: NewRouter(RouterConfig{
			Events:  NewEventHandler(events, validate, logger),
			Tickets: NewTicketHandler(tickets, validate, logger),
			Health:  store,
			Logger:  logger,
		}),
		store: store,
		clock: clk,
	}
}

func (s *server) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, code, decode[model.ErrorResponse](t, rec).Code)
}

// seed creates an event a day away and one ticket type.
func (s *server) seed(t *testing.T) (model.Event, model.TicketType) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/events",
		fmt.Sprintf(`{"name":"Gala","date":%q}`, now.Add(24*time.Hour).Format(time.RFC3339)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[model.Event](t, rec)

	rec = s.do(t, http.MethodPost, "/events/"+ev.ID+"/ticket-types",
		`{"name":"VIP","price":"49.90","quantity_available":10}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return ev, decode[model.TicketType](t, rec)
}

func TestLifecycle(t *testing.T) {
	s := newServer(t)
	ev, tt := s.seed(t)

	rec := s.do(t, http.MethodPost, "/events/"+ev.ID+"/tickets", fmt.Sprintf(`{"ticket_type_id":%q}`, tt.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tk := decode[model.Ticket](t, rec)
	assert.True(t, ticketcode.Valid(tk.TicketCode))
	assert.False(t, tk.IsAssigned)

	rec = s.do(t, http.MethodPost, "/tickets/"+tk.TicketCode+"/validate", "")
	assertError(t, rec, http.StatusPreconditionRequired, "requires_assignment")

	rec = s.do(t, http.MethodPost, "/tickets/"+tk.TicketCode+"/assign", `{"name":"Ada","email":"ada@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[model.Ticket](t, rec).IsAssigned)

	rec = s.do(t, http.MethodPost, "/tickets/"+tk.TicketCode+"/assign", `{"name":"Bob","email":"bob@example.com"}`)
	assertError(t, rec, http.StatusConflict, "already_assigned")

	rec = s.do(t, http.MethodPost, "/tickets/"+tk.TicketCode+"/validate", `{"validated_by":"door-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tc := decode[model.TicketWithContext](t, rec)
	assert.Equal(t, 1, tc.UsesCount)
	assert.Equal(t, "Gala", tc.Event.Name)
	assert.Equal(t, "VIP", tc.TicketType.Name)

	rec = s.do(t, http.MethodPost, "/tickets/"+tk.TicketCode+"/validate", "")
	assertError(t, rec, http.StatusConflict, "already_used")

	rec = s.do(t, http.MethodGet, "/tickets/"+tk.TicketCode+"/validations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	recs := decode[[]model.ValidationRecord](t, rec)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].ValidatedBy)
	assert.Equal(t, "door-1", *recs[0].ValidatedBy)

	rec = s.do(t, http.MethodGet, "/events/"+ev.ID+"/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Stats{Total: 1, Used: 1, Pending: 0, Assigned: 1, Unassigned: 0}, decode[model.Stats](t, rec))
}

func TestIssueAssigned_Validation(t *testing.T) {
	s := newServer(t)
	ev, tt := s.seed(t)

	rec := s.do(t, http.MethodPost, "/events/"+ev.ID+"/tickets",
		fmt.Sprintf(`{"ticket_type_id":%q,"guest":{"name":" ","email":"ada@example.com"}}`, tt.ID))
	assertError(t, rec, http.StatusBadRequest, "invalid_argument")

	rec = s.do(t, http.MethodPost, "/events/"+ev.ID+"/tickets", `{}`)
	assertError(t, rec, http.StatusBadRequest, "invalid_argument")

	rec = s.do(t, http.MethodPost, "/events/"+ev.ID+"/tickets", `{"ticket_type_id":"x","unknown":1}`)
	assertError(t, rec, http.StatusBadRequest, "invalid_argument")

	rec = s.do(t, http.MethodPost, "/events/missing/tickets", fmt.Sprintf(`{"ticket_type_id":%q}`, tt.ID))
	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestValidate_EventExpired(t *testing.T) {
	s := newServer(t)
	ev, tt := s.seed(t)

	rec := s.do(t, http.MethodPost, "/events/"+ev.ID+"/tickets",
		fmt.Sprintf(`{"ticket_type_id":%q,"guest":{"name":"Ada","email":"ada@example.com"}}`, tt.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tk := decode[model.Ticket](t, rec)

	s.clock.Advance(48 * time.Hour)
	rec = s.do(t, http.MethodPost, "/tickets/"+tk.TicketCode+"/validate", "")
	assertError(t, rec, http.StatusGone, "event_expired")
}

func TestScan(t *testing.T) {
	s := newServer(t)
	ev, tt := s.seed(t)

	rec := s.do(t, http.MethodPost, "/events/"+ev.ID+"/tickets",
		fmt.Sprintf(`{"ticket_type_id":%q,"guest":{"name":"Ada","email":"ada@example.com"}}`, tt.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	tk := decode[model.Ticket](t, rec)

	rec = s.do(t, http.MethodGet, "/tickets/"+tk.TicketCode+"/qr", "")
	require.Equal(t, http.StatusOK, rec.Code)
	qr := decode[model.QRResponse](t, rec)
	assert.Equal(t, tk.TicketCode, qr.Code)

	body, err := json.Marshal(model.ScanRequest{Payload: qr.Payload})
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/scan", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[model.TicketWithContext](t, rec).UsesCount)

	rec = s.do(t, http.MethodPost, "/scan", fmt.Sprintf(`{"payload":%q}`, strings.ToLower(tk.TicketCode)))
	assertError(t, rec, http.StatusConflict, "already_used")

	rec = s.do(t, http.MethodPost, "/scan", `{"payload":""}`)
	assertError(t, rec, http.StatusBadRequest, "invalid_argument")

	rec = s.do(t, http.MethodPost, "/scan", `{"payload":"TKT-0000000000000-NOPE00000"}`)
	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestCatalogue(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	ev, _ := s.seed(t)

	rec = s.do(t, http.MethodGet, "/events/"+ev.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Gala", decode[model.Event](t, rec).Name)

	rec = s.do(t, http.MethodGet, "/events/"+ev.ID+"/ticket-types", "")
	require.Equal(t, http.StatusOK, rec.Code)
	types := decode[[]model.TicketType](t, rec)
	require.Len(t, types, 1)
	assert.Equal(t, "49.9", types[0].Price.String())

	rec = s.do(t, http.MethodGet, "/events/missing", "")
	assertError(t, rec, http.StatusNotFound, "not_found")

	rec = s.do(t, http.MethodPost, "/events", `{"date":"2030-05-02T09:00:00Z"}`)
	assertError(t, rec, http.StatusBadRequest, "invalid_argument")

	rec = s.do(t, http.MethodPost, "/events", `{not json`)
	assertError(t, rec, http.StatusBadRequest, "invalid_argument")
}

func TestTicket_NotFound(t *testing.T) {
	s := newServer(t)

	for _, path := range []string{"/tickets/TKT-1-X", "/tickets/TKT-1-X/qr", "/tickets/TKT-1-X/validations"} {
		rec := s.do(t, http.MethodGet, path, "")
		assertError(t, rec, http.StatusNotFound, "not_found")
	}
	rec := s.do(t, http.MethodPost, "/tickets/TKT-1-X/validate", "")
	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestGenerateCode(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/codes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	code := decode[model.CodeResponse](t, rec).Code
	assert.True(t, ticketcode.Valid(code), code)
	assert.True(t, strings.HasPrefix(code, fmt.Sprintf("TKT-%013d-", now.UnixMilli())))
}

func TestStoreUnavailable(t *testing.T) {
	s := newServer(t)
	s.store.SetFault(func(_ context.Context, op string) error {
		if op == memory.OpFindByCode {
			return errors.New("connection reset by peer")
		}
		return nil
	})

	rec := s.do(t, http.MethodGet, "/tickets/TKT-1-X", "")
	assertError(t, rec, http.StatusServiceUnavailable, "store_unavailable")
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	s.store.SetFault(func(_ context.Context, op string) error {
		if op == memory.OpPing {
			return errors.New("down")
		}
		return nil
	})
	rec = s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/scan", nil)
	req.Header.Set("Origin", "https://door.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("guest: %w", service.ErrInvalidArgument), http.StatusBadRequest},
		{service.ErrCodeSpaceExhausted, http.StatusBadRequest},
		{service.ErrAlreadyAssigned, http.StatusConflict},
		{service.ErrAlreadyUsed, http.StatusConflict},
		{service.ErrEventExpired, http.StatusGone},
		{service.ErrRequiresAssignment, http.StatusPreconditionRequired},
		{service.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, errorStatus(tc.err), tc.err.Error())
	}
}
