// Package memory is an in-process Store with the same conditional-update
// contract as the Postgres repositories. All data is lost on exit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/repository"
)

// Operation names passed to a FaultFunc.
const (
	OpCreateEvent        = "create_event"
	OpListEvents         = "list_events"
	OpGetEvent           = "get_event"
	OpCreateTicketType   = "create_ticket_type"
	OpListTicketTypes    = "list_ticket_types"
	OpGetTicketType      = "get_ticket_type"
	OpInsertTicket       = "insert_ticket"
	OpFindByCode         = "find_by_code"
	OpConditionalAssign  = "conditional_assign"
	OpConditionalConsume = "conditional_consume"
	OpAppendValidation   = "append_validation"
	OpListValidations    = "list_validations"
	OpListByEvent        = "list_by_event"
	OpBeginTx            = "begin_tx"
	OpPing               = "ping"
)

// FaultFunc is consulted before every operation; a non-nil error aborts it.
type FaultFunc func(ctx context.Context, op string) error

type txKey struct{}

// txState is carried in ctx while a WithTx callback runs. The store lock is
// held for its whole duration, and undo entries roll changes back on error.
type txState struct {
	store *Store
	undo  []func()
}

// Store keeps every record in maps guarded by a single mutex.
type Store struct {
	mu          sync.Mutex
	events      map[string]model.Event
	types       map[string]model.TicketType
	tickets     map[string]*model.Ticket // by code
	ticketIDs   map[string]string        // id -> code
	validations []model.ValidationRecord

	faultMu sync.RWMutex
	fault   FaultFunc
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		events:    make(map[string]model.Event),
		types:     make(map[string]model.TicketType),
		tickets:   make(map[string]*model.Ticket),
		ticketIDs: make(map[string]string),
	}
}

// SetFault installs f; nil removes it.
func (s *Store) SetFault(f FaultFunc) {
	s.faultMu.Lock()
	s.fault = f
	s.faultMu.Unlock()
}

// begin runs the fault hook, honours ctx, and takes the store lock unless ctx
// already holds it through WithTx. The returned func releases what was taken.
func (s *Store) begin(ctx context.Context, op string) (*txState, func(), error) {
	s.faultMu.RLock()
	f := s.fault
	s.faultMu.RUnlock()
	if f != nil {
		if err := f(ctx, op); err != nil {
			return nil, nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if tx := s.txFrom(ctx); tx != nil {
		return tx, func() {}, nil
	}
	s.mu.Lock()
	return nil, s.mu.Unlock, nil
}

func (s *Store) txFrom(ctx context.Context) *txState {
	tx, _ := ctx.Value(txKey{}).(*txState)
	if tx == nil || tx.store != s {
		return nil
	}
	return tx
}

func (tx *txState) record(undo func()) {
	if tx != nil {
		tx.undo = append(tx.undo, undo)
	}
}

// WithTx runs fn holding the store lock; every change fn makes is reverted
// if it returns an error. Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}
	_, release, err := s.begin(ctx, OpBeginTx)
	if err != nil {
		return err
	}
	defer release()

	tx := &txState{store: s}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

// Ping always succeeds unless a fault is installed.
func (s *Store) Ping(ctx context.Context) error {
	_, release, err := s.begin(ctx, OpPing)
	if err != nil {
		return err
	}
	release()
	return nil
}

func (s *Store) CreateEvent(ctx context.Context, e model.Event) error {
	tx, release, err := s.begin(ctx, OpCreateEvent)
	if err != nil {
		return err
	}
	defer release()

	s.events[e.ID] = e
	tx.record(func() { delete(s.events, e.ID) })
	return nil
}

func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	_, release, err := s.begin(ctx, OpListEvents)
	if err != nil {
		return nil, err
	}
	defer release()

	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (model.Event, error) {
	_, release, err := s.begin(ctx, OpGetEvent)
	if err != nil {
		return model.Event{}, err
	}
	defer release()

	e, ok := s.events[id]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	return e, nil
}

func (s *Store) CreateTicketType(ctx context.Context, tt model.TicketType) error {
	tx, release, err := s.begin(ctx, OpCreateTicketType)
	if err != nil {
		return err
	}
	defer release()

	if _, ok := s.events[tt.EventID]; !ok {
		return repository.ErrInvalidReference
	}
	s.types[tt.ID] = tt
	tx.record(func() { delete(s.types, tt.ID) })
	return nil
}

func (s *Store) ListTicketTypes(ctx context.Context, eventID string) ([]model.TicketType, error) {
	_, release, err := s.begin(ctx, OpListTicketTypes)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []model.TicketType
	for _, tt := range s.types {
		if tt.EventID == eventID {
			out = append(out, tt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Price.Cmp(out[j].Price); c != 0 {
			return c < 0
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetTicketType(ctx context.Context, id string) (model.TicketType, error) {
	_, release, err := s.begin(ctx, OpGetTicketType)
	if err != nil {
		return model.TicketType{}, err
	}
	defer release()

	tt, ok := s.types[id]
	if !ok {
		return model.TicketType{}, repository.ErrNotFound
	}
	return tt, nil
}

func (s *Store) InsertTicket(ctx context.Context, t model.Ticket) error {
	tx, release, err := s.begin(ctx, OpInsertTicket)
	if err != nil {
		return err
	}
	defer release()

	if _, ok := s.tickets[t.TicketCode]; ok {
		return repository.ErrDuplicateCode
	}
	tt, ok := s.types[t.TicketTypeID]
	if _, evOK := s.events[t.EventID]; !ok || !evOK || tt.EventID != t.EventID {
		return repository.ErrInvalidReference
	}
	stored := cloneTicket(t)
	s.tickets[t.TicketCode] = &stored
	s.ticketIDs[t.ID] = t.TicketCode
	tx.record(func() {
		delete(s.tickets, t.TicketCode)
		delete(s.ticketIDs, t.ID)
	})
	return nil
}

func (s *Store) FindByCode(ctx context.Context, code string) (model.TicketWithContext, error) {
	_, release, err := s.begin(ctx, OpFindByCode)
	if err != nil {
		return model.TicketWithContext{}, err
	}
	defer release()

	t, ok := s.tickets[code]
	if !ok {
		return model.TicketWithContext{}, repository.ErrNotFound
	}
	e := s.events[t.EventID]
	tt := s.types[t.TicketTypeID]
	return model.TicketWithContext{
		Ticket:     cloneTicket(*t),
		Event:      model.EventSummary{Name: e.Name, Date: e.Date, Location: e.Location},
		TicketType: model.TicketTypeSummary{Name: tt.Name, Price: tt.Price},
	}, nil
}

func (s *Store) ConditionalAssign(ctx context.Context, code string, guest model.Guest, at time.Time) (model.Ticket, error) {
	tx, release, err := s.begin(ctx, OpConditionalAssign)
	if err != nil {
		return model.Ticket{}, err
	}
	defer release()

	t, ok := s.tickets[code]
	if !ok {
		return model.Ticket{}, repository.ErrNotFound
	}
	if t.IsAssigned {
		return model.Ticket{}, repository.ErrPreconditionFailed
	}
	prev := cloneTicket(*t)
	g := guest
	t.Guest = &g
	t.IsAssigned = true
	t.UpdatedAt = at
	tx.record(func() { *t = prev })
	return cloneTicket(*t), nil
}

func (s *Store) ConditionalConsume(ctx context.Context, code string, now time.Time) (model.Ticket, error) {
	tx, release, err := s.begin(ctx, OpConditionalConsume)
	if err != nil {
		return model.Ticket{}, err
	}
	defer release()

	t, ok := s.tickets[code]
	if !ok {
		return model.Ticket{}, repository.ErrNotFound
	}
	e := s.events[t.EventID]
	if !t.IsAssigned || t.UsesCount >= t.MaxUses || e.Date.Before(now) {
		return model.Ticket{}, repository.ErrPreconditionFailed
	}
	prev := cloneTicket(*t)
	t.UsesCount++
	t.UpdatedAt = now
	tx.record(func() { *t = prev })
	return cloneTicket(*t), nil
}

func (s *Store) AppendValidation(ctx context.Context, v model.ValidationRecord) error {
	tx, release, err := s.begin(ctx, OpAppendValidation)
	if err != nil {
		return err
	}
	defer release()

	if _, ok := s.ticketIDs[v.TicketID]; !ok {
		return repository.ErrInvalidReference
	}
	s.validations = append(s.validations, v)
	n := len(s.validations)
	tx.record(func() { s.validations = s.validations[:n-1] })
	return nil
}

func (s *Store) ListValidations(ctx context.Context, ticketID string) ([]model.ValidationRecord, error) {
	_, release, err := s.begin(ctx, OpListValidations)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []model.ValidationRecord
	for _, v := range s.validations {
		if v.TicketID == ticketID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store) ListByEvent(ctx context.Context, eventID string) ([]model.Ticket, error) {
	_, release, err := s.begin(ctx, OpListByEvent)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []model.Ticket
	for _, t := range s.tickets {
		if t.EventID == eventID {
			out = append(out, cloneTicket(*t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].TicketCode > out[j].TicketCode
	})
	return out, nil
}

func cloneTicket(t model.Ticket) model.Ticket {
	if t.Guest != nil {
		g := *t.Guest
		t.Guest = &g
	}
	return t
}
