package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TicketRepository handles persistence for tickets and their validation log.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository constructs a TicketRepository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `t.id, t.ticket_code, t.event_id, t.ticket_type_id,
	t.guest_name, t.guest_email, t.guest_phone,
	t.is_assigned, t.uses_count, t.max_uses, t.created_at, t.updated_at`

// InsertTicket stores a new ticket. ErrDuplicateCode if the code is taken,
// ErrInvalidReference if its event or ticket type is missing.
func (r *TicketRepository) InsertTicket(ctx context.Context, t model.Ticket) error {
	var name, email, phone *string
	if t.Guest != nil {
		name, email, phone = &t.Guest.Name, &t.Guest.Email, t.Guest.Phone
	}
	_, err := db(ctx, r.pool).Exec(ctx,
		`INSERT INTO tickets (id, ticket_code, event_id, ticket_type_id,
		                      guest_name, guest_email, guest_phone,
		                      is_assigned, uses_count, max_uses, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.TicketCode, t.EventID, t.TicketTypeID,
		name, email, phone,
		t.IsAssigned, t.UsesCount, t.MaxUses, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrDuplicateCode
		case isForeignKeyViolation(err), isInvalidUUID(err):
			return ErrInvalidReference
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// FindByCode returns the ticket joined with its event and ticket type
// display fields, or ErrNotFound.
func (r *TicketRepository) FindByCode(ctx context.Context, code string) (model.TicketWithContext, error) {
	row := db(ctx, r.pool).QueryRow(ctx,
		`SELECT `+ticketColumns+`,
		        e.name, e.event_date, e.location, tt.name, tt.price::text
		 FROM tickets t
		 JOIN events e ON e.id = t.event_id
		 JOIN ticket_types tt ON tt.id = t.ticket_type_id
		 WHERE t.ticket_code = $1`,
		code,
	)

	var (
		tr    ticketRow
		out   model.TicketWithContext
		price string
	)
	dest := append(tr.dest(),
		&out.Event.Name, &out.Event.Date, &out.Event.Location, &out.TicketType.Name, &price,
	)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TicketWithContext{}, ErrNotFound
		}
		return model.TicketWithContext{}, fmt.Errorf("find ticket: %w", err)
	}
	out.Ticket = tr.ticket()

	p, err := decimal.NewFromString(price)
	if err != nil {
		return model.TicketWithContext{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	out.TicketType.Price = p
	return out, nil
}

// ConditionalAssign attaches guest to the ticket only if it is still
// unassigned. ErrPreconditionFailed if it was already assigned.
func (r *TicketRepository) ConditionalAssign(ctx context.Context, code string, guest model.Guest, at time.Time) (model.Ticket, error) {
	row := db(ctx, r.pool).QueryRow(ctx,
		`UPDATE tickets t
		 SET guest_name = $2, guest_email = $3, guest_phone = $4,
		     is_assigned = TRUE, updated_at = $5
		 WHERE t.ticket_code = $1 AND NOT t.is_assigned
		 RETURNING `+ticketColumns,
		code, guest.Name, guest.Email, guest.Phone, at,
	)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ticket{}, r.missOrNotFound(ctx, code)
		}
		return model.Ticket{}, fmt.Errorf("assign ticket: %w", err)
	}
	return t, nil
}

// ConditionalConsume increments uses_count by one only if the ticket is
// assigned, has entries left and its event date is not before now.
// ErrPreconditionFailed if any guard fails.
func (r *TicketRepository) ConditionalConsume(ctx context.Context, code string, now time.Time) (model.Ticket, error) {
	row := db(ctx, r.pool).QueryRow(ctx,
		`UPDATE tickets t
		 SET uses_count = t.uses_count + 1, updated_at = $2
		 FROM events e
		 WHERE t.ticket_code = $1
		   AND e.id = t.event_id
		   AND t.is_assigned
		   AND t.uses_count < t.max_uses
		   AND e.event_date >= $2
		 RETURNING `+ticketColumns,
		code, now,
	)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ticket{}, r.missOrNotFound(ctx, code)
		}
		return model.Ticket{}, fmt.Errorf("consume ticket: %w", err)
	}
	return t, nil
}

// missOrNotFound tells a conditional update that matched nothing apart from
// one whose ticket does not exist.
func (r *TicketRepository) missOrNotFound(ctx context.Context, code string) error {
	var exists bool
	err := db(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tickets WHERE ticket_code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check ticket: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrPreconditionFailed
}

// AppendValidation writes one audit row.
func (r *TicketRepository) AppendValidation(ctx context.Context, v model.ValidationRecord) error {
	_, err := db(ctx, r.pool).Exec(ctx,
		`INSERT INTO ticket_validations (id, ticket_id, validated_at, validated_by, validation_location)
		 VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.TicketID, v.ValidatedAt, v.ValidatedBy, v.Location,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInvalidReference
		}
		return fmt.Errorf("insert validation: %w", err)
	}
	return nil
}

// ListValidations returns the audit rows of a ticket, oldest first.
func (r *TicketRepository) ListValidations(ctx context.Context, ticketID string) ([]model.ValidationRecord, error) {
	rows, err := db(ctx, r.pool).Query(ctx,
		`SELECT id, ticket_id, validated_at, validated_by, validation_location
		 FROM ticket_validations
		 WHERE ticket_id = $1
		 ORDER BY validated_at ASC, id ASC`,
		ticketID,
	)
	if err != nil {
		return nil, fmt.Errorf("list validations: %w", err)
	}
	defer rows.Close()

	var out []model.ValidationRecord
	for rows.Next() {
		var v model.ValidationRecord
		if err := rows.Scan(&v.ID, &v.TicketID, &v.ValidatedAt, &v.ValidatedBy, &v.Location); err != nil {
			return nil, fmt.Errorf("scan validation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListByEvent returns all tickets of an event, newest first.
func (r *TicketRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Ticket, error) {
	rows, err := db(ctx, r.pool).Query(ctx,
		`SELECT `+ticketColumns+`
		 FROM tickets t
		 WHERE t.event_id = $1
		 ORDER BY t.created_at DESC, t.ticket_code DESC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// ticketRow stages a scanned ticket; the nullable guest columns become a
// Guest only for assigned tickets.
type ticketRow struct {
	t                  model.Ticket
	name, email, phone *string
}

func (tr *ticketRow) dest() []any {
	return []any{
		&tr.t.ID, &tr.t.TicketCode, &tr.t.EventID, &tr.t.TicketTypeID,
		&tr.name, &tr.email, &tr.phone,
		&tr.t.IsAssigned, &tr.t.UsesCount, &tr.t.MaxUses, &tr.t.CreatedAt, &tr.t.UpdatedAt,
	}
}

func (tr *ticketRow) ticket() model.Ticket {
	t := tr.t
	if t.IsAssigned && tr.name != nil && tr.email != nil {
		t.Guest = &model.Guest{Name: *tr.name, Email: *tr.email, Phone: tr.phone}
	}
	return t
}

func scanTicket(row rowScanner) (model.Ticket, error) {
	var tr ticketRow
	if err := row.Scan(tr.dest()...); err != nil {
		return model.Ticket{}, err
	}
	return tr.ticket(), nil
}
