package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCache_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewStatsCache(db, 5*time.Second)

	mock.ExpectGet("stats:event:ev-1").RedisNil()

	_, ok, err := c.Get(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsCache_SetThenGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewStatsCache(db, 5*time.Second)
	st := model.Stats{Total: 4, Used: 1, Pending: 3, Assigned: 2, Unassigned: 2}
	raw := `{"total":4,"used":1,"pending":3,"assigned":2,"unassigned":2}`

	mock.ExpectSet("stats:event:ev-1", raw, 5*time.Second).SetVal("OK")
	mock.ExpectGet("stats:event:ev-1").SetVal(raw)

	require.NoError(t, c.Set(context.Background(), "ev-1", st))
	got, ok, err := c.Get(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, st, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsCache_Invalidate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewStatsCache(db, time.Second)

	mock.ExpectDel("stats:event:ev-1").SetVal(1)

	require.NoError(t, c.Invalidate(context.Background(), "ev-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsCache_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewStatsCache(db, time.Second)
	down := errors.New("connection refused")

	mock.ExpectGet("stats:event:ev-1").SetErr(down)
	mock.ExpectGet("stats:event:ev-2").SetVal("{not json")
	mock.ExpectDel("stats:event:ev-1").SetErr(down)

	_, _, err := c.Get(context.Background(), "ev-1")
	assert.ErrorIs(t, err, down)
	_, ok, err := c.Get(context.Background(), "ev-2")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, c.Invalidate(context.Background(), "ev-1"), down)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, HealthCheck(context.Background(), db))

	mock.ExpectPing().SetErr(errors.New("timeout"))
	assert.Error(t, HealthCheck(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
