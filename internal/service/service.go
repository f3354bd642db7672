// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the store.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/clock"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/repository"
	"github.com/sirupsen/logrus"
)

// EventService manages the event and ticket type catalogue.
type EventService struct {
	caller
	store EventStore
	clock clock.Clock
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(store EventStore, clk clock.Clock, logger *logrus.Logger, opts ...Option) *EventService {
	return &EventService{
		caller: caller{logger: logger, opts: buildOptions(opts)},
		store:  store,
		clock:  clk,
	}
}

// CreateEvent validates the request and stores a new event.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return model.Event{}, invalidArgument("event name is required")
	}
	if req.Date.IsZero() {
		return model.Event{}, invalidArgument("event date is required")
	}
	if req.MaxCapacity != nil && *req.MaxCapacity <= 0 {
		return model.Event{}, invalidArgument("max_capacity must be a positive integer")
	}

	now := s.clock.Now()
	e := model.Event{
		ID:          s.opts.newID(),
		Name:        req.Name,
		Description: trimmed(req.Description),
		Date:        req.Date.UTC(),
		Location:    trimmed(req.Location),
		MaxCapacity: req.MaxCapacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.call(ctx, "create_event", func(ctx context.Context) error {
		return s.store.CreateEvent(ctx, e)
	})
	if err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// ListEvents returns all events, soonest first.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := s.retry(ctx, "list_events", func(ctx context.Context) error {
		var err error
		events, err = s.store.ListEvents(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (model.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Event{}, ErrNotFound
	}
	var e model.Event
	err := s.retry(ctx, "get_event", func(ctx context.Context) error {
		var err error
		e, err = s.store.GetEvent(ctx, id)
		return err
	})
	if err != nil {
		return model.Event{}, mapNotFound(err)
	}
	return e, nil
}

// CreateTicketType adds a ticket type to an existing event.
func (s *EventService) CreateTicketType(ctx context.Context, eventID string, req model.CreateTicketTypeRequest) (model.TicketType, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return model.TicketType{}, invalidArgument("ticket type name is required")
	}
	if req.Price.IsNegative() {
		return model.TicketType{}, invalidArgument("price cannot be negative")
	}
	if req.QuantityAvailable < 0 {
		return model.TicketType{}, invalidArgument("quantity_available cannot be negative")
	}
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return model.TicketType{}, err
	}

	tt := model.TicketType{
		ID:                s.opts.newID(),
		EventID:           strings.TrimSpace(eventID),
		Name:              req.Name,
		Description:       trimmed(req.Description),
		Price:             req.Price.Round(2),
		QuantityAvailable: req.QuantityAvailable,
		CreatedAt:         s.clock.Now(),
	}
	err := s.call(ctx, "create_ticket_type", func(ctx context.Context) error {
		return s.store.CreateTicketType(ctx, tt)
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return model.TicketType{}, ErrNotFound
		}
		return model.TicketType{}, err
	}
	return tt, nil
}

// ListTicketTypes returns the ticket types of an event, cheapest first.
func (s *EventService) ListTicketTypes(ctx context.Context, eventID string) ([]model.TicketType, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	var types []model.TicketType
	err := s.retry(ctx, "list_ticket_types", func(ctx context.Context) error {
		var err error
		types, err = s.store.ListTicketTypes(ctx, strings.TrimSpace(eventID))
		return err
	})
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []model.TicketType{}
	}
	return types, nil
}
