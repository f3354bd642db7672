package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/clock"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventService(t *testing.T) (*EventService, *memory.Store) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := memory.New()
	return NewEventService(store, clock.NewManual(start), logger, WithRetry(2, 0)), store
}

func TestCreateEvent(t *testing.T) {
	svc, _ := newEventService(t)
	ctx := context.Background()

	blank := "  "
	loc := " Main Hall "
	ev, err := svc.CreateEvent(ctx, model.CreateEventRequest{
		Name: " Launch ", Date: start.Add(time.Hour), Description: &blank, Location: &loc,
	})
	require.NoError(t, err)
	assert.Equal(t, "Launch", ev.Name)
	assert.Nil(t, ev.Description)
	require.NotNil(t, ev.Location)
	assert.Equal(t, "Main Hall", *ev.Location)

	got, err := svc.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
}

func TestCreateEvent_Invalid(t *testing.T) {
	svc, _ := newEventService(t)
	ctx := context.Background()
	zero := 0

	for name, req := range map[string]model.CreateEventRequest{
		"blank name":    {Name: " ", Date: start},
		"missing date":  {Name: "Launch"},
		"zero capacity": {Name: "Launch", Date: start, MaxCapacity: &zero},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateEvent(ctx, req)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestListEvents_SoonestFirst(t *testing.T) {
	svc, _ := newEventService(t)
	ctx := context.Background()

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	later, err := svc.CreateEvent(ctx, model.CreateEventRequest{Name: "Later", Date: start.Add(48 * time.Hour)})
	require.NoError(t, err)
	sooner, err := svc.CreateEvent(ctx, model.CreateEventRequest{Name: "Sooner", Date: start.Add(time.Hour)})
	require.NoError(t, err)

	events, err = svc.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, sooner.ID, events[0].ID)
	assert.Equal(t, later.ID, events[1].ID)
}

func TestGetEvent_NotFound(t *testing.T) {
	svc, _ := newEventService(t)

	_, err := svc.GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetEvent(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketTypes(t *testing.T) {
	svc, _ := newEventService(t)
	ctx := context.Background()
	ev, err := svc.CreateEvent(ctx, model.CreateEventRequest{Name: "Launch", Date: start})
	require.NoError(t, err)

	_, err = svc.CreateTicketType(ctx, ev.ID, model.CreateTicketTypeRequest{Name: "VIP", Price: decimal.RequireFromString("120.005")})
	require.NoError(t, err)
	_, err = svc.CreateTicketType(ctx, ev.ID, model.CreateTicketTypeRequest{Name: "General", Price: decimal.RequireFromString("20")})
	require.NoError(t, err)

	types, err := svc.ListTicketTypes(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "General", types[0].Name)
	assert.Equal(t, "VIP", types[1].Name)
	assert.Equal(t, "120.01", types[1].Price.StringFixed(2))

	_, err = svc.CreateTicketType(ctx, "missing", model.CreateTicketTypeRequest{Name: "VIP"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateTicketType(ctx, ev.ID, model.CreateTicketTypeRequest{Name: "Refund", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.ListTicketTypes(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventService_StoreUnavailable(t *testing.T) {
	svc, store := newEventService(t)
	calls := 0
	store.SetFault(func(_ context.Context, op string) error {
		if op == memory.OpListEvents {
			calls++
			return errors.New("connection refused")
		}
		return nil
	})

	_, err := svc.ListEvents(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 2, calls)
}
