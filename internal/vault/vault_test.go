package vault

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shareVault/internal/amount"
	"shareVault/internal/model"
	"shareVault/internal/storage"
)

const testAsset = model.AssetID("0x1111111111111111111111111111111111111111")

type failingStore struct {
	*storage.MemoryStore
	failSet bool
}

func (s *failingStore) Update(ctx context.Context, fn storage.UpdateFunc) error {
	if s.failSet {
		return s.MemoryStore.Update(ctx, func(current storage.Fields) ([]storage.Entry, error) {
			if _, err := fn(current); err != nil {
				return nil, err
			}
			return nil, errors.New("disk full")
		})
	}
	return s.MemoryStore.Update(ctx, fn)
}

func newTestVault(t *testing.T, opts Options) (*Vault, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	v, err := New(store, opts, nil)
	require.NoError(t, err)
	require.NoError(t, v.Initialize(context.Background(), testAsset))
	return v, store
}

func seed(t *testing.T, store storage.Store, assets, supply string) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(),
		storage.Entry{Field: storage.FieldTotalAssets, Value: assets},
		storage.Entry{Field: storage.FieldTotalSupply, Value: supply},
	))
}

func totals(t *testing.T, v *Vault) (string, string) {
	t.Helper()
	cfg, err := v.Config(context.Background())
	require.NoError(t, err)
	return cfg.TotalAssets.String(), cfg.TotalSupply.String()
}

func TestInitialize(t *testing.T) {
	v, _ := newTestVault(t, Options{FeeRate: DefaultFeeRate})

	cfg, err := v.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testAsset, cfg.AssetID)
	assert.Equal(t, int64(0), cfg.TotalAssets.Int64())
	assert.Equal(t, int64(0), cfg.TotalSupply.Int64())
	assert.Equal(t, DefaultFeeRate, cfg.FeeRate)
}

func TestInitializeTwice(t *testing.T) {
	v, store := newTestVault(t, Options{})
	before := store.Snapshot()

	err := v.Initialize(context.Background(), "0x2222222222222222222222222222222222222222")
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, before, store.Snapshot())

	cfg, err := v.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testAsset, cfg.AssetID)
}

func TestInitializeEmptyAsset(t *testing.T) {
	store := storage.NewMemoryStore()
	v, err := New(store, Options{}, nil)
	require.NoError(t, err)

	require.ErrorIs(t, v.Initialize(context.Background(), ""), ErrInvalidInput)
	assert.Empty(t, store.Snapshot())
}

func TestNotInitialized(t *testing.T) {
	v, err := New(storage.NewMemoryStore(), Options{}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = v.Deposit(ctx, big.NewInt(10))
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = v.Withdraw(ctx, big.NewInt(10))
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = v.TotalAssets(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = v.TotalSupply(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = v.Config(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestFirstDepositBootstrap(t *testing.T) {
	v, _ := newTestVault(t, Options{})

	shares, err := v.Deposit(context.Background(), big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), shares.Int64())

	assets, supply := totals(t, v)
	assert.Equal(t, "1000", assets)
	assert.Equal(t, "1000", supply)
}

func TestProRataDeposit(t *testing.T) {
	v, store := newTestVault(t, Options{})
	seed(t, store, "1000", "1000")

	shares, err := v.Deposit(context.Background(), big.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, int64(500), shares.Int64())

	assets, supply := totals(t, v)
	assert.Equal(t, "1500", assets)
	assert.Equal(t, "1500", supply)
}

func TestDepositRoundsTowardPool(t *testing.T) {
	v, store := newTestVault(t, Options{})
	seed(t, store, "1001", "1000")

	shares, err := v.Deposit(context.Background(), big.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, int64(2), shares.Int64())

	assets, supply := totals(t, v)
	assert.Equal(t, "1004", assets)
	assert.Equal(t, "1002", supply)
}

func TestWithdrawRoundsTowardPool(t *testing.T) {
	v, store := newTestVault(t, Options{})
	seed(t, store, "1000", "1001")

	paid, err := v.Withdraw(context.Background(), big.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, int64(2), paid.Int64())
}

func TestFullExitDrainsExactly(t *testing.T) {
	v, store := newTestVault(t, Options{})
	seed(t, store, "1500", "1500")
	ctx := context.Background()

	paid, err := v.Withdraw(ctx, big.NewInt(1500))
	require.NoError(t, err)
	assert.Equal(t, int64(1500), paid.Int64())

	assets, supply := totals(t, v)
	assert.Equal(t, "0", assets)
	assert.Equal(t, "0", supply)

	// The exchange rate resets after the pool empties.
	shares, err := v.Deposit(ctx, big.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), shares.Int64())
}

func TestFullExitWithAccruedValue(t *testing.T) {
	v, store := newTestVault(t, Options{})
	seed(t, store, "1003", "997")

	paid, err := v.Withdraw(context.Background(), big.NewInt(997))
	require.NoError(t, err)
	assert.Equal(t, int64(1003), paid.Int64())

	assets, supply := totals(t, v)
	assert.Equal(t, "0", assets)
	assert.Equal(t, "0", supply)
}

func TestWithdrawInsufficientShares(t *testing.T) {
	v, store := newTestVault(t, Options{})
	seed(t, store, "1000", "1000")
	before := store.Snapshot()

	_, err := v.Withdraw(context.Background(), big.NewInt(1001))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, before, store.Snapshot())
}

func TestWithdrawFromEmptyPool(t *testing.T) {
	v, store := newTestVault(t, Options{})
	before := store.Snapshot()

	_, err := v.Withdraw(context.Background(), big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, before, store.Snapshot())
}

func TestInvalidInputLeavesStateUnchanged(t *testing.T) {
	v, store := newTestVault(t, Options{})
	seed(t, store, "1000", "1000")
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{"deposit zero", func() error { _, err := v.Deposit(ctx, big.NewInt(0)); return err }},
		{"deposit negative", func() error { _, err := v.Deposit(ctx, big.NewInt(-5)); return err }},
		{"deposit nil", func() error { _, err := v.Deposit(ctx, nil); return err }},
		{"withdraw zero", func() error { _, err := v.Withdraw(ctx, big.NewInt(0)); return err }},
		{"withdraw negative", func() error { _, err := v.Withdraw(ctx, big.NewInt(-1)); return err }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := store.Snapshot()
			require.ErrorIs(t, tc.call(), ErrInvalidInput)
			assert.Equal(t, before, store.Snapshot())
		})
	}
}

func TestDepositOverflow(t *testing.T) {
	v, store := newTestVault(t, Options{})
	max := amount.MaxBig().String()
	seed(t, store, max, max)
	before := store.Snapshot()

	_, err := v.Deposit(context.Background(), big.NewInt(1))
	require.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, before, store.Snapshot())

	tooLarge := new(big.Int).Add(amount.MaxBig(), big.NewInt(1))
	_, err = v.Deposit(context.Background(), tooLarge)
	require.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, before, store.Snapshot())
}

func TestDepositLargeIntermediateProduct(t *testing.T) {
	v, store := newTestVault(t, Options{})
	half := new(big.Int).Rsh(amount.MaxBig(), 1)
	seed(t, store, half.String(), half.String())

	// amount * supply exceeds 128 bits; the quotient does not.
	shares, err := v.Deposit(context.Background(), half)
	require.NoError(t, err)
	assert.Equal(t, half.String(), shares.String())
}

func TestDepositDivisionByZeroOnCorruptState(t *testing.T) {
	v, store := newTestVault(t, Options{})
	seed(t, store, "0", "5")
	before := store.Snapshot()

	_, err := v.Deposit(context.Background(), big.NewInt(10))
	require.ErrorIs(t, err, ErrDivisionByZero)
	assert.Equal(t, before, store.Snapshot())
}

func TestZeroShareDeposit(t *testing.T) {
	t.Run("accepted by default", func(t *testing.T) {
		v, store := newTestVault(t, Options{})
		seed(t, store, "1000000", "1")

		shares, err := v.Deposit(context.Background(), big.NewInt(5))
		require.NoError(t, err)
		assert.Equal(t, int64(0), shares.Int64())

		assets, supply := totals(t, v)
		assert.Equal(t, "1000005", assets)
		assert.Equal(t, "1", supply)
	})

	t.Run("rejected when configured", func(t *testing.T) {
		v, store := newTestVault(t, Options{RejectZeroShares: true})
		seed(t, store, "1000000", "1")
		before := store.Snapshot()

		_, err := v.Deposit(context.Background(), big.NewInt(5))
		require.ErrorIs(t, err, ErrDepositTooSmall)
		assert.Equal(t, before, store.Snapshot())
	})
}

func TestStoreFailureLeavesStateUnchanged(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	v, err := New(store, Options{}, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, v.Initialize(ctx, testAsset))
	_, err = v.Deposit(ctx, big.NewInt(100))
	require.NoError(t, err)

	before := store.Snapshot()
	store.failSet = true

	_, err = v.Deposit(ctx, big.NewInt(50))
	require.Error(t, err)
	assert.Equal(t, Code(0), CodeOf(err))
	_, err = v.Withdraw(ctx, big.NewInt(50))
	require.Error(t, err)
	assert.Equal(t, before, store.Snapshot())
}

func TestInvalidFeeRate(t *testing.T) {
	_, err := New(storage.NewMemoryStore(), Options{FeeRate: MaxFeeRate + 1}, nil)
	require.ErrorIs(t, err, ErrInvalidFeeRate)

	_, err = New(storage.NewMemoryStore(), Options{FeeRate: MaxFeeRate}, nil)
	require.NoError(t, err)

	_, err = New(nil, Options{}, nil)
	require.Error(t, err)
}

func TestPreviewMatchesAndDoesNotMutate(t *testing.T) {
	v, store := newTestVault(t, Options{})
	seed(t, store, "1001", "1000")
	ctx := context.Background()
	before := store.Snapshot()

	previewShares, err := v.PreviewDeposit(ctx, big.NewInt(3))
	require.NoError(t, err)
	previewAssets, err := v.PreviewWithdraw(ctx, big.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, before, store.Snapshot())

	shares, err := v.Deposit(ctx, big.NewInt(3))
	require.NoError(t, err)
	assert.Equal(t, previewShares.String(), shares.String())

	_, err = v.PreviewWithdraw(ctx, big.NewInt(5000))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(10), previewAssets.Int64())
}

func TestSharePrice(t *testing.T) {
	v, store := newTestVault(t, Options{})
	ctx := context.Background()

	price, err := v.SharePrice(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, "1", price.String())

	seed(t, store, "1500", "1000")
	price, err = v.SharePrice(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, "1.5", price.String())
}

func TestErrorMatching(t *testing.T) {
	v, _ := newTestVault(t, Options{})

	_, err := v.Deposit(context.Background(), big.NewInt(0))
	require.Error(t, err)
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
	assert.True(t, errors.Is(err, &Error{Op: "deposit", Code: CodeInvalidInput}))
	assert.False(t, errors.Is(err, &Error{Op: "withdraw", Code: CodeInvalidInput}))
	assert.False(t, errors.Is(err, ErrOverflow))
	assert.Equal(t, "deposit: invalid input", err.Error())
	assert.Equal(t, "code 999", Code(999).String())
}
