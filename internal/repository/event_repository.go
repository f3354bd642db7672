package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

const eventColumns = `id, name, description, event_date, location, max_capacity, created_at, updated_at`

// CreateEvent inserts e. The caller assigns the id and timestamps.
func (r *EventRepository) CreateEvent(ctx context.Context, e model.Event) error {
	_, err := db(ctx, r.pool).Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Name, e.Description, e.Date, e.Location, e.MaxCapacity, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents returns all events ordered by date ascending.
func (r *EventRepository) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := db(ctx, r.pool).Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY event_date ASC, created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetEvent returns a single event or ErrNotFound.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (model.Event, error) {
	row := db(ctx, r.pool).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func scanEvent(row rowScanner) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Date, &e.Location, &e.MaxCapacity, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// TicketTypeRepository handles persistence for ticket types.
type TicketTypeRepository struct {
	pool *pgxpool.Pool
}

// NewTicketTypeRepository constructs a TicketTypeRepository.
func NewTicketTypeRepository(pool *pgxpool.Pool) *TicketTypeRepository {
	return &TicketTypeRepository{pool: pool}
}

// price travels as text so NUMERIC keeps its exact scale in both directions.
const ticketTypeColumns = `id, event_id, name, description, price::text, quantity_available, created_at`

// CreateTicketType inserts tt. ErrInvalidReference if its event is missing.
func (r *TicketTypeRepository) CreateTicketType(ctx context.Context, tt model.TicketType) error {
	_, err := db(ctx, r.pool).Exec(ctx,
		`INSERT INTO ticket_types (id, event_id, name, description, price, quantity_available, created_at)
		 VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7)`,
		tt.ID, tt.EventID, tt.Name, tt.Description, tt.Price.String(), tt.QuantityAvailable, tt.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) || isInvalidUUID(err) {
			return ErrInvalidReference
		}
		return fmt.Errorf("insert ticket type: %w", err)
	}
	return nil
}

// ListTicketTypes returns the ticket types of an event ordered by price.
func (r *TicketTypeRepository) ListTicketTypes(ctx context.Context, eventID string) ([]model.TicketType, error) {
	rows, err := db(ctx, r.pool).Query(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE event_id = $1 ORDER BY price ASC, name ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	defer rows.Close()

	var types []model.TicketType
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket type: %w", err)
		}
		types = append(types, tt)
	}
	return types, rows.Err()
}

// GetTicketType returns a single ticket type or ErrNotFound.
func (r *TicketTypeRepository) GetTicketType(ctx context.Context, id string) (model.TicketType, error) {
	row := db(ctx, r.pool).QueryRow(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = $1`, id,
	)
	tt, err := scanTicketType(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return model.TicketType{}, ErrNotFound
		}
		return model.TicketType{}, fmt.Errorf("get ticket type: %w", err)
	}
	return tt, nil
}

func scanTicketType(row rowScanner) (model.TicketType, error) {
	var (
		tt    model.TicketType
		price string
	)
	if err := row.Scan(&tt.ID, &tt.EventID, &tt.Name, &tt.Description, &price, &tt.QuantityAvailable, &tt.CreatedAt); err != nil {
		return tt, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return tt, fmt.Errorf("parse price %q: %w", price, err)
	}
	tt.Price = p
	return tt, nil
}
