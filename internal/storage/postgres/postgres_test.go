package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Требует живой Postgres: SOLSTAKE_TEST_POSTGRES_URL=postgres://...
func TestStore_RoundTrip(t *testing.T) {
	dsn := os.Getenv("SOLSTAKE_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("SOLSTAKE_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()

	s, err := NewStore(ctx, dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	address := solana.NewWallet().PublicKey()
	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, `DELETE FROM pool_records WHERE pool_address=$1`, address.String())
	})

	data, err := s.Load(ctx, address)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, s.Save(ctx, address, []byte{1, 2}))
	require.NoError(t, s.Save(ctx, address, []byte{3}))

	data, err = s.Load(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, data)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, address)
}

func TestNewStore_RequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "", zaptest.NewLogger(t))
	assert.Error(t, err)
}
