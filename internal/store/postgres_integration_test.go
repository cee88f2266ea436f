//go:build integration && postgres

package store

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSinkRoundTrip(t *testing.T) {
	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	sink := NewPostgresSink(pool)
	require.NoError(t, sink.EnsureSchema(ctx))
	_, err = pool.Exec(ctx, `TRUNCATE stocks`)
	require.NoError(t, err)

	in := fixture()
	require.NoError(t, sink.Save(ctx, in))

	in[0].Owned = "user9"
	require.NoError(t, sink.Save(ctx, in))

	out, err := sink.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
