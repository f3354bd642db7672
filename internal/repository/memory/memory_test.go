package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store) (model.Event, model.TicketType) {
	t.Helper()
	ctx := context.Background()
	ev := model.Event{ID: "ev-1", Name: "Launch", Date: base, CreatedAt: base.Add(-48 * time.Hour)}
	require.NoError(t, s.CreateEvent(ctx, ev))
	tt := model.TicketType{ID: "tt-1", EventID: ev.ID, Name: "General", Price: decimal.RequireFromString("25.00")}
	require.NoError(t, s.CreateTicketType(ctx, tt))
	return ev, tt
}

func ticket(code string, assigned bool) model.Ticket {
	t := model.Ticket{
		ID:           "id-" + code,
		TicketCode:   code,
		EventID:      "ev-1",
		TicketTypeID: "tt-1",
		MaxUses:      1,
		CreatedAt:    base.Add(-24 * time.Hour),
	}
	if assigned {
		t.Guest = &model.Guest{Name: "Ada", Email: "ada@example.com"}
		t.IsAssigned = true
	}
	return t
}

func TestInsertTicket(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.InsertTicket(ctx, ticket("A", false)))
	assert.ErrorIs(t, s.InsertTicket(ctx, ticket("A", false)), repository.ErrDuplicateCode)

	orphan := ticket("B", false)
	orphan.TicketTypeID = "missing"
	assert.ErrorIs(t, s.InsertTicket(ctx, orphan), repository.ErrInvalidReference)
}

func TestFindByCode_JoinsDisplayFields(t *testing.T) {
	s := New()
	ev, tt := seed(t, s)
	ctx := context.Background()
	require.NoError(t, s.InsertTicket(ctx, ticket("A", true)))

	got, err := s.FindByCode(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, ev.Name, got.Event.Name)
	assert.True(t, ev.Date.Equal(got.Event.Date))
	assert.Equal(t, tt.Name, got.TicketType.Name)
	assert.True(t, tt.Price.Equal(got.TicketType.Price))

	_, err = s.FindByCode(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindByCode_ReturnsCopies(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()
	require.NoError(t, s.InsertTicket(ctx, ticket("A", true)))

	got, err := s.FindByCode(ctx, "A")
	require.NoError(t, err)
	got.Guest.Name = "Mallory"

	again, err := s.FindByCode(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.Guest.Name)
}

func TestConditionalAssign(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()
	require.NoError(t, s.InsertTicket(ctx, ticket("A", false)))

	got, err := s.ConditionalAssign(ctx, "A", model.Guest{Name: "Bo", Email: "bo@example.com"}, base)
	require.NoError(t, err)
	assert.True(t, got.IsAssigned)
	assert.Equal(t, "Bo", got.Guest.Name)

	_, err = s.ConditionalAssign(ctx, "A", model.Guest{Name: "Cy", Email: "cy@example.com"}, base)
	assert.ErrorIs(t, err, repository.ErrPreconditionFailed)

	_, err = s.ConditionalAssign(ctx, "missing", model.Guest{Name: "Cy", Email: "cy@example.com"}, base)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConditionalConsume_Guards(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()
	require.NoError(t, s.InsertTicket(ctx, ticket("assigned", true)))
	require.NoError(t, s.InsertTicket(ctx, ticket("open", false)))

	_, err := s.ConditionalConsume(ctx, "open", base.Add(-time.Hour))
	assert.ErrorIs(t, err, repository.ErrPreconditionFailed, "unassigned")

	_, err = s.ConditionalConsume(ctx, "assigned", base.Add(time.Minute))
	assert.ErrorIs(t, err, repository.ErrPreconditionFailed, "expired")

	got, err := s.ConditionalConsume(ctx, "assigned", base)
	require.NoError(t, err, "event date equal to now is still valid")
	assert.Equal(t, 1, got.UsesCount)

	_, err = s.ConditionalConsume(ctx, "assigned", base.Add(-time.Hour))
	assert.ErrorIs(t, err, repository.ErrPreconditionFailed, "exhausted")

	_, err = s.ConditionalConsume(ctx, "missing", base)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConditionalConsume_ConcurrentSingleWinner(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()
	require.NoError(t, s.InsertTicket(ctx, ticket("A", true)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ConditionalConsume(ctx, "A", base.Add(-time.Hour)); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()
	require.NoError(t, s.InsertTicket(ctx, ticket("A", true)))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.ConditionalConsume(ctx, "A", base.Add(-time.Hour)); err != nil {
			return err
		}
		if err := s.AppendValidation(ctx, model.ValidationRecord{ID: "v1", TicketID: "id-A", ValidatedAt: base}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.FindByCode(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsesCount)
	records, err := s.ListValidations(ctx, "id-A")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWithTx_CommitsAndNests(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()
	require.NoError(t, s.InsertTicket(ctx, ticket("A", true)))

	err := s.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.ConditionalConsume(ctx, "A", base.Add(-time.Hour)); err != nil {
			return err
		}
		return s.WithTx(ctx, func(ctx context.Context) error {
			return s.AppendValidation(ctx, model.ValidationRecord{ID: "v1", TicketID: "id-A", ValidatedAt: base})
		})
	})
	require.NoError(t, err)

	records, err := s.ListValidations(ctx, "id-A")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFault(t *testing.T) {
	s := New()
	down := errors.New("down")
	s.SetFault(func(_ context.Context, op string) error {
		if op == OpListEvents {
			return down
		}
		return nil
	})

	_, err := s.ListEvents(context.Background())
	assert.ErrorIs(t, err, down)
	assert.NoError(t, s.Ping(context.Background()))

	s.SetFault(nil)
	_, err = s.ListEvents(context.Background())
	assert.NoError(t, err)
}

func TestListByEvent_NewestFirst(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()
	older := ticket("A", false)
	newer := ticket("B", false)
	newer.CreatedAt = older.CreatedAt.Add(time.Minute)
	require.NoError(t, s.InsertTicket(ctx, older))
	require.NoError(t, s.InsertTicket(ctx, newer))

	got, err := s.ListByEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].TicketCode)
	assert.Equal(t, "A", got[1].TicketCode)
}
