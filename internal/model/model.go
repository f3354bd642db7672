// Package model defines the core domain types for the ticketing service.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMaxUses is the number of entries a ticket grants unless issued otherwise.
const DefaultMaxUses = 1

// Event is a scheduled occasion that tickets grant entry to.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Location    *string   `json:"location,omitempty"`
	MaxCapacity *int      `json:"max_capacity,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TicketType is a priced category of ticket belonging to one event.
type TicketType struct {
	ID                string          `json:"id"`
	EventID           string          `json:"event_id"`
	Name              string          `json:"name"`
	Description       *string         `json:"description,omitempty"`
	Price             decimal.Decimal `json:"price"`
	QuantityAvailable int             `json:"quantity_available"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Guest is the identity attached to a ticket on assignment.
type Guest struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// Ticket is a single admission credential identified by its code.
type Ticket struct {
	ID           string    `json:"id"`
	TicketCode   string    `json:"ticket_code"`
	EventID      string    `json:"event_id"`
	TicketTypeID string    `json:"ticket_type_id"`
	Guest        *Guest    `json:"guest,omitempty"`
	IsAssigned   bool      `json:"is_assigned"`
	UsesCount    int       `json:"uses_count"`
	MaxUses      int       `json:"max_uses"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Used reports whether the ticket has been scanned at least once.
func (t Ticket) Used() bool {
	return t.UsesCount > 0
}

// Consumable reports whether at least one entry remains.
func (t Ticket) Consumable() bool {
	return t.UsesCount < t.MaxUses
}

// Exhausted reports whether every permitted entry has been consumed.
func (t Ticket) Exhausted() bool {
	return t.UsesCount >= t.MaxUses
}

// ValidationRecord is the append-only audit row written on every successful scan.
type ValidationRecord struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	ValidatedAt time.Time `json:"validated_at"`
	ValidatedBy *string   `json:"validated_by,omitempty"`
	Location    *string   `json:"validation_location,omitempty"`
}

// EventSummary holds the event fields shown alongside a ticket.
type EventSummary struct {
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`
	Location *string   `json:"location,omitempty"`
}

// TicketTypeSummary holds the ticket type fields shown alongside a ticket.
type TicketTypeSummary struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// TicketWithContext is a ticket joined with its event and ticket type display fields.
type TicketWithContext struct {
	Ticket
	Event      EventSummary      `json:"event"`
	TicketType TicketTypeSummary `json:"ticket_type"`
}

// Stats summarises the tickets of one event.
type Stats struct {
	Total      int `json:"total"`
	Used       int `json:"used"`
	Pending    int `json:"pending"`
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string    `json:"name" validate:"required,max=200"`
	Description *string   `json:"description"`
	Date        time.Time `json:"date" validate:"required"`
	Location    *string   `json:"location"`
	MaxCapacity *int      `json:"max_capacity" validate:"omitempty,gte=1"`
}

// CreateTicketTypeRequest is the payload for adding a ticket type to an event.
type CreateTicketTypeRequest struct {
	Name              string          `json:"name" validate:"required,max=100"`
	Description       *string         `json:"description"`
	Price             decimal.Decimal `json:"price"`
	QuantityAvailable int             `json:"quantity_available" validate:"gte=0"`
}

// IssueTicketRequest is the payload for issuing a ticket. A nil Guest issues
// an unassigned ticket.
type IssueTicketRequest struct {
	TicketTypeID string `json:"ticket_type_id" validate:"required"`
	Guest        *Guest `json:"guest"`
	MaxUses      *int   `json:"max_uses" validate:"omitempty,gte=1"`
}

// ValidateRequest carries the optional identity of the scanning station.
type ValidateRequest struct {
	ValidatedBy *string `json:"validated_by"`
	Location    *string `json:"validation_location"`
}

// ScanRequest is a raw QR payload read by a scanner.
type ScanRequest struct {
	Payload string `json:"payload" validate:"required"`
	ValidateRequest
}

// QRResponse is the scannable payload for a ticket.
type QRResponse struct {
	Code    string `json:"code"`
	Payload string `json:"payload"`
}

// CodeResponse wraps a freshly generated ticket code.
type CodeResponse struct {
	Code string `json:"code"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
