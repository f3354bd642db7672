package migrations_test

import (
	"context"
	"testing"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/database/migrations"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	names, err := migrations.Names()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
	assert.IsIncreasing(t, names)
}

func TestApply_Idempotent(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	require.NoError(t, migrations.Apply(ctx, pool))
	require.NoError(t, migrations.Apply(ctx, pool))

	names, err := migrations.Names()
	require.NoError(t, err)
	var recorded int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE name = ANY($1)`, names,
	).Scan(&recorded))
	assert.Equal(t, len(names), recorded)
}
