package vault

//go:generate mockgen -source=vault.go -destination=mocks/mocks.go -package=mocks Vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrowd/pkg/domain"
)

func TestInMemory_DepositAndBalance(t *testing.T) {
	ctx := context.Background()
	v := NewInMemory()

	require.NoError(t, v.Deposit(ctx, 300))
	require.NoError(t, v.Deposit(ctx, 200))

	balance, err := v.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), balance)
}

func TestInMemory_Transfer(t *testing.T) {
	ctx := context.Background()
	account := domain.NewAccountID()

	t.Run("releases custody to the account", func(t *testing.T) {
		v := NewInMemory()
		require.NoError(t, v.Deposit(ctx, 500))

		require.NoError(t, v.Transfer(ctx, account, 200))

		balance, err := v.Balance(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(300), balance)
		assert.Equal(t, uint64(200), v.ReceivedBy(account))
	})

	t.Run("rejects a transfer exceeding custody", func(t *testing.T) {
		v := NewInMemory()
		require.NoError(t, v.Deposit(ctx, 100))

		err := v.Transfer(ctx, account, 101)
		require.ErrorIs(t, err, ErrInsufficientFunds)

		balance, err := v.Balance(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), balance, "failed transfer must not move funds")
	})
}

func TestInMemory_DepositOverflow(t *testing.T) {
	ctx := context.Background()
	v := NewInMemory()

	require.NoError(t, v.Deposit(ctx, ^uint64(0)))
	require.Error(t, v.Deposit(ctx, 1))
}
