// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the ticket engine.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// errorStatus maps an engine error to its HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAlreadyAssigned), errors.Is(err, service.ErrAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, service.ErrEventExpired):
		return http.StatusGone
	case errors.Is(err, service.ErrRequiresAssignment):
		return http.StatusPreconditionRequired
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its status and taxonomy code. Infrastructure
// detail never reaches the client.
func respondError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	status := errorStatus(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = service.ErrStoreUnavailable.Error()
	case http.StatusInternalServerError:
		logger.WithContext(r.Context()).WithError(err).Error("unhandled error")
		msg = "internal error"
	}
	writeError(w, status, service.Reason(err), msg)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, service.Reason(service.ErrInvalidArgument), msg)
}

// bodyValidator checks request struct tags.
type bodyValidator struct {
	validate *validator.Validate
}

func (v bodyValidator) check(ctx context.Context, payload any) error {
	err := v.validate.StructCtx(ctx, payload)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = fmt.Sprintf("invalid '%s' with value '%v'", f.Field(), f.Value())
	}
	return errors.New(strings.Join(msgs, ", "))
}

// Pinger reports whether a dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health handles GET /health.
func Health(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
