package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
)

// EventStore persists events and ticket types.
type EventStore interface {
	CreateEvent(ctx context.Context, e model.Event) error
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (model.Event, error)
	CreateTicketType(ctx context.Context, tt model.TicketType) error
	ListTicketTypes(ctx context.Context, eventID string) ([]model.TicketType, error)
	GetTicketType(ctx context.Context, id string) (model.TicketType, error)
}

// TicketStore persists tickets. ConditionalAssign and ConditionalConsume are
// compare-and-swap writes on a single ticket: they return
// repository.ErrPreconditionFailed when the code exists but the guard does
// not hold, and repository.ErrNotFound when it does not exist.
type TicketStore interface {
	InsertTicket(ctx context.Context, t model.Ticket) error
	FindByCode(ctx context.Context, code string) (model.TicketWithContext, error)
	ConditionalAssign(ctx context.Context, code string, guest model.Guest, at time.Time) (model.Ticket, error)
	ConditionalConsume(ctx context.Context, code string, now time.Time) (model.Ticket, error)
	AppendValidation(ctx context.Context, v model.ValidationRecord) error
	ListValidations(ctx context.Context, ticketID string) ([]model.ValidationRecord, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Ticket, error)
}

// Store is everything the services need from persistence.
type Store interface {
	EventStore
	TicketStore
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
}

// CodeGenerator produces candidate ticket codes.
type CodeGenerator interface {
	Generate() string
}

// StatsCache holds short-lived per-event stats snapshots.
type StatsCache interface {
	Get(ctx context.Context, eventID string) (model.Stats, bool, error)
	Set(ctx context.Context, eventID string, stats model.Stats) error
	Invalidate(ctx context.Context, eventID string) error
}

// Notifier is told about every successful validation.
type Notifier interface {
	TicketValidated(ctx context.Context, t model.TicketWithContext, rec model.ValidationRecord) error
}

// Recorder receives lifecycle outcomes and store latencies.
type Recorder interface {
	TicketIssued(assigned bool)
	AssignResult(result string)
	ValidationResult(result string)
	ObserveStore(operation string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) TicketIssued(bool) {}
func (nopRecorder) AssignResult(string) {}
func (nopRecorder) ValidationResult(string) {}
func (nopRecorder) ObserveStore(string, time.Duration) {}
