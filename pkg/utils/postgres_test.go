package utils

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresPoolDefaults(t *testing.T) {
	p := PostgresPoolConfig{MaxOpenConns: 5}.withDefaults()
	assert.Equal(t, 5, p.MaxOpenConns)
	assert.Equal(t, 5, p.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, p.ConnMaxLifetime)
	assert.Equal(t, 5*time.Second, p.PingTimeout)

	p = PostgresPoolConfig{}.withDefaults()
	assert.Equal(t, 10, p.MaxOpenConns)
	assert.Equal(t, 10, p.MaxIdleConns)

	p = PostgresPoolConfig{MaxOpenConns: 20, MaxIdleConns: 4, ConnMaxLifetime: time.Minute}.withDefaults()
	assert.Equal(t, 4, p.MaxIdleConns)
	assert.Equal(t, time.Minute, p.ConnMaxLifetime)
}

func TestOpenPostgres_UnknownDriver(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "no-such-driver", "postgres://x", PostgresPoolConfig{})
	require.Error(t, err)
}

func TestWithTx_BeginErrorSkipsFn(t *testing.T) {
	// sql.Open does not dial; a closed pool fails at BeginTx.
	db, err := sql.Open("pgx", "postgres://u:p@127.0.0.1:1/db")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	called := false
	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		called = true
		return errors.New("unreachable")
	})
	assert.Error(t, err)
	assert.False(t, called)
}
