// Package repository implements all database queries for the ticketing service.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateCode is returned when a ticket code is already taken.
var ErrDuplicateCode = errors.New("ticket code already exists")

// ErrPreconditionFailed is returned when a conditional update matched the
// ticket code but not its guard.
var ErrPreconditionFailed = errors.New("precondition failed")

// ErrInvalidReference is returned when a row points at a parent that does not exist.
var ErrInvalidReference = errors.New("referenced row does not exist")

// Store bundles the repositories over one pool and runs transactions that
// span them.
type Store struct {
	*EventRepository
	*TicketTypeRepository
	*TicketRepository

	pool *pgxpool.Pool
}

// NewStore constructs a Store on pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		EventRepository:      NewEventRepository(pool),
		TicketTypeRepository: NewTicketTypeRepository(pool),
		TicketRepository:     NewTicketRepository(pool),
		pool:                 pool,
	}
}

// WithTx runs fn inside a transaction. Repository calls made with the ctx
// passed to fn join it; a nested WithTx reuses the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.pool, fn)
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
