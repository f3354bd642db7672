package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/clock"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/qrcodec"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/repository"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/ticketcode"
	"github.com/sirupsen/logrus"
)

// maxCodeAttempts bounds regeneration after a duplicate-code insert.
const maxCodeAttempts = 5

// TicketService drives the ticket lifecycle: issue, assign and validate.
// It keeps no mutable state of its own; concurrent callers are arbitrated by
// the store's conditional writes.
type TicketService struct {
	caller
	store Store
	codes CodeGenerator
	clock clock.Clock
}

// NewTicketService constructs a TicketService with its dependencies.
func NewTicketService(store Store, codes CodeGenerator, clk clock.Clock, logger *logrus.Logger, opts ...Option) *TicketService {
	return &TicketService{
		caller: caller{logger: logger, opts: buildOptions(opts)},
		store:  store,
		codes:  codes,
		clock:  clk,
	}
}

// GenerateCode returns a fresh ticket code without persisting anything.
func (s *TicketService) GenerateCode() string {
	return s.codes.Generate()
}

// IssueUnassigned creates a single-use ticket with no guest attached.
func (s *TicketService) IssueUnassigned(ctx context.Context, eventID, ticketTypeID string) (model.Ticket, error) {
	return s.issue(ctx, eventID, ticketTypeID, nil, model.DefaultMaxUses)
}

// IssueAssigned creates a single-use ticket already bound to guest.
func (s *TicketService) IssueAssigned(ctx context.Context, eventID, ticketTypeID string, guest model.Guest) (model.Ticket, error) {
	g, err := normalizeGuest(guest)
	if err != nil {
		return model.Ticket{}, err
	}
	return s.issue(ctx, eventID, ticketTypeID, &g, model.DefaultMaxUses)
}

// Issue creates a ticket from an API request: assigned when req.Guest is
// set, with req.MaxUses entries when given.
func (s *TicketService) Issue(ctx context.Context, eventID string, req model.IssueTicketRequest) (model.Ticket, error) {
	maxUses := model.DefaultMaxUses
	if req.MaxUses != nil {
		maxUses = *req.MaxUses
	}
	var guest *model.Guest
	if req.Guest != nil {
		g, err := normalizeGuest(*req.Guest)
		if err != nil {
			return model.Ticket{}, err
		}
		guest = &g
	}
	return s.issue(ctx, eventID, req.TicketTypeID, guest, maxUses)
}

func (s *TicketService) issue(ctx context.Context, eventID, ticketTypeID string, guest *model.Guest, maxUses int) (model.Ticket, error) {
	eventID, ticketTypeID = strings.TrimSpace(eventID), strings.TrimSpace(ticketTypeID)
	if eventID == "" || ticketTypeID == "" {
		return model.Ticket{}, invalidArgument("event id and ticket type id are required")
	}
	if maxUses < 1 {
		return model.Ticket{}, invalidArgument("max_uses must be at least 1")
	}

	err := s.retry(ctx, "get_event", func(ctx context.Context) error {
		_, err := s.store.GetEvent(ctx, eventID)
		return err
	})
	if err != nil {
		return model.Ticket{}, mapNotFound(err)
	}

	var tt model.TicketType
	err = s.retry(ctx, "get_ticket_type", func(ctx context.Context) error {
		var err error
		tt, err = s.store.GetTicketType(ctx, ticketTypeID)
		return err
	})
	if err != nil {
		return model.Ticket{}, mapNotFound(err)
	}
	if !strings.EqualFold(tt.EventID, eventID) {
		return model.Ticket{}, ErrNotFound
	}

	now := s.clock.Now()
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		t := model.Ticket{
			ID:           s.opts.newID(),
			TicketCode:   s.codes.Generate(),
			EventID:      eventID,
			TicketTypeID: ticketTypeID,
			Guest:        guest,
			IsAssigned:   guest != nil,
			MaxUses:      maxUses,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		tries := 0
		err := s.retry(ctx, "insert_ticket", func(ctx context.Context) error {
			tries++
			err := s.store.InsertTicket(ctx, t)
			// a retried insert may collide with its own earlier, committed attempt
			if errors.Is(err, repository.ErrDuplicateCode) && tries > 1 {
				if existing, ferr := s.store.FindByCode(ctx, t.TicketCode); ferr == nil && existing.ID == t.ID {
					return nil
				}
			}
			return err
		})
		switch {
		case err == nil:
			s.opts.recorder.TicketIssued(t.IsAssigned)
			s.invalidateStats(ctx, eventID)
			return t, nil
		case errors.Is(err, repository.ErrDuplicateCode):
			s.logger.WithContext(ctx).WithFields(logrus.Fields{
				"code":    t.TicketCode,
				"attempt": attempt,
			}).Warn("ticket code collision, regenerating")
		case errors.Is(err, repository.ErrInvalidReference):
			return model.Ticket{}, ErrNotFound
		default:
			return model.Ticket{}, err
		}
	}
	s.logger.WithContext(ctx).WithField("event_id", eventID).Error("ticket code space exhausted")
	return model.Ticket{}, ErrCodeSpaceExhausted
}

// Assign attaches guest to an unassigned ticket. Exactly one of several
// concurrent calls for the same code succeeds; the rest get ErrAlreadyAssigned.
func (s *TicketService) Assign(ctx context.Context, code string, guest model.Guest) (t model.Ticket, err error) {
	defer func() {
		s.opts.recorder.AssignResult(Reason(err))
		s.logOutcome(ctx, "assign", code, err)
	}()

	code = strings.TrimSpace(code)
	if code == "" {
		return model.Ticket{}, invalidArgument("ticket code is required")
	}
	g, err := normalizeGuest(guest)
	if err != nil {
		return model.Ticket{}, err
	}

	err = s.call(ctx, "conditional_assign", func(ctx context.Context) error {
		var err error
		t, err = s.store.ConditionalAssign(ctx, code, g, s.clock.Now())
		return err
	})
	switch {
	case err == nil:
		s.invalidateStats(ctx, t.EventID)
		return t, nil
	case errors.Is(err, repository.ErrNotFound):
		return model.Ticket{}, ErrNotFound
	case errors.Is(err, repository.ErrPreconditionFailed):
		return model.Ticket{}, ErrAlreadyAssigned
	default:
		return model.Ticket{}, err
	}
}

// Validate consumes one entry of the ticket identified by code. Checks run in
// order: existence, remaining uses, event date, assignment. The increment and
// its audit record are written in one transaction.
func (s *TicketService) Validate(ctx context.Context, code string, req model.ValidateRequest) (tc model.TicketWithContext, err error) {
	defer func() {
		s.opts.recorder.ValidationResult(Reason(err))
		s.logOutcome(ctx, "validate", code, err)
	}()

	code = strings.TrimSpace(code)
	if code == "" {
		return model.TicketWithContext{}, ErrNotFound
	}

	tc, err = s.find(ctx, code)
	if err != nil {
		return model.TicketWithContext{}, err
	}

	now := s.clock.Now()
	if err := checkConsumable(tc, now); err != nil {
		return model.TicketWithContext{}, err
	}

	rec := model.ValidationRecord{
		ID:          s.opts.newID(),
		TicketID:    tc.ID,
		ValidatedAt: now,
		ValidatedBy: trimmed(req.ValidatedBy),
		Location:    trimmed(req.Location),
	}
	var updated model.Ticket
	err = s.call(ctx, "consume_ticket", func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(ctx context.Context) error {
			t, err := s.store.ConditionalConsume(ctx, code, now)
			if err != nil {
				return err
			}
			updated = t
			return s.store.AppendValidation(ctx, rec)
		})
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return model.TicketWithContext{}, ErrNotFound
	case errors.Is(err, repository.ErrPreconditionFailed):
		return model.TicketWithContext{}, s.classifyLostRace(ctx, code, now)
	default:
		return model.TicketWithContext{}, err
	}

	tc.Ticket = updated
	s.invalidateStats(ctx, tc.EventID)
	s.notifyValidated(ctx, tc, rec)
	return tc, nil
}

// classifyLostRace re-reads a ticket whose conditional consume matched
// nothing and reports the first failing check.
func (s *TicketService) classifyLostRace(ctx context.Context, code string, now time.Time) error {
	tc, err := s.find(ctx, code)
	if err != nil {
		return err
	}
	if err := checkConsumable(tc, now); err != nil {
		return err
	}
	return ErrAlreadyUsed
}

func checkConsumable(tc model.TicketWithContext, now time.Time) error {
	switch {
	case tc.Exhausted():
		return ErrAlreadyUsed
	case tc.Event.Date.Before(now):
		return ErrEventExpired
	case !tc.IsAssigned:
		return ErrRequiresAssignment
	}
	return nil
}

// Scan decodes raw scanner output and validates the ticket it names.
func (s *TicketService) Scan(ctx context.Context, raw string, req model.ValidateRequest) (model.TicketWithContext, error) {
	code, err := qrcodec.Decode(raw)
	if err != nil {
		return model.TicketWithContext{}, invalidArgument("qr payload is empty")
	}
	return s.Validate(ctx, ticketcode.Normalize(code), req)
}

// GetTicket returns a ticket with its event and ticket type display fields.
func (s *TicketService) GetTicket(ctx context.Context, code string) (model.TicketWithContext, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.TicketWithContext{}, ErrNotFound
	}
	return s.find(ctx, code)
}

// QRPayload returns the scannable payload for an existing ticket.
func (s *TicketService) QRPayload(ctx context.Context, code string) (model.QRResponse, error) {
	tc, err := s.GetTicket(ctx, code)
	if err != nil {
		return model.QRResponse{}, err
	}
	payload, err := qrcodec.Encode(tc.TicketCode, s.clock.Now())
	if err != nil {
		return model.QRResponse{}, invalidArgument("%v", err)
	}
	return model.QRResponse{Code: tc.TicketCode, Payload: payload}, nil
}

// ListTickets returns the tickets of an event, newest first.
func (s *TicketService) ListTickets(ctx context.Context, eventID string) ([]model.Ticket, error) {
	if err := s.ensureEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.listByEvent(ctx, eventID)
}

// ListValidations returns the audit trail of a ticket, oldest first.
func (s *TicketService) ListValidations(ctx context.Context, code string) ([]model.ValidationRecord, error) {
	tc, err := s.GetTicket(ctx, code)
	if err != nil {
		return nil, err
	}
	var out []model.ValidationRecord
	err = s.retry(ctx, "list_validations", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListValidations(ctx, tc.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.ValidationRecord{}
	}
	return out, nil
}

func (s *TicketService) find(ctx context.Context, code string) (model.TicketWithContext, error) {
	var tc model.TicketWithContext
	err := s.retry(ctx, "find_by_code", func(ctx context.Context) error {
		var err error
		tc, err = s.store.FindByCode(ctx, code)
		return err
	})
	if err != nil {
		return model.TicketWithContext{}, mapNotFound(err)
	}
	return tc, nil
}

func (s *TicketService) ensureEvent(ctx context.Context, eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return ErrNotFound
	}
	err := s.retry(ctx, "get_event", func(ctx context.Context) error {
		_, err := s.store.GetEvent(ctx, eventID)
		return err
	})
	return mapNotFound(err)
}

func (s *TicketService) listByEvent(ctx context.Context, eventID string) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := s.retry(ctx, "list_by_event", func(ctx context.Context) error {
		var err error
		tickets, err = s.store.ListByEvent(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	return tickets, nil
}

func (s *TicketService) invalidateStats(ctx context.Context, eventID string) {
	if s.opts.cache == nil {
		return
	}
	cctx, cancel := detached(ctx)
	defer cancel()
	if err := s.opts.cache.Invalidate(cctx, eventID); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("event_id", eventID).Warn("invalidate stats cache")
	}
}

func (s *TicketService) notifyValidated(ctx context.Context, tc model.TicketWithContext, rec model.ValidationRecord) {
	if s.opts.notifier == nil {
		return
	}
	cctx, cancel := detached(ctx)
	defer cancel()
	if err := s.opts.notifier.TicketValidated(cctx, tc, rec); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("code", tc.TicketCode).Warn("publish validation")
	}
}

func (s *TicketService) logOutcome(ctx context.Context, op, code string, err error) {
	entry := s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"operation": op,
		"code":      code,
		"result":    Reason(err),
	})
	switch {
	case err == nil:
		entry.Debug("ticket " + op)
	case errors.Is(err, ErrStoreUnavailable):
		entry.WithError(err).Error("ticket " + op + " failed")
	default:
		entry.Info("ticket " + op + " rejected")
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
