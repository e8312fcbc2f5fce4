// Package vault implements share accounting for a single pooled-asset vault.
//
// The vault converts deposits into shares and shares back into assets using
// the pool's running totals. It never moves the underlying asset; callers
// perform transfers in the same unit of work as Deposit and Withdraw.
package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"shareVault/internal/amount"
	"shareVault/internal/model"
	"shareVault/internal/storage"
)

const (
	DefaultFeeRate uint32 = 30
	MaxFeeRate     uint32 = 10_000
)

// Options configures a Vault.
type Options struct {
	// FeeRate is reported by Config in basis points. It is not applied to
	// conversions.
	FeeRate uint32
	// RejectZeroShares fails deposits that would mint no shares.
	RejectZeroShares bool
}

// Vault owns the pool state persisted in a storage.Store. All operations are
// serialised; each either commits its full state change or none of it.
type Vault struct {
	mu     sync.Mutex
	store  storage.Store
	opts   Options
	logger *zap.Logger
}

func New(store storage.Store, opts Options, logger *zap.Logger) (*Vault, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if opts.FeeRate > MaxFeeRate {
		return nil, newError("new", CodeInvalidFeeRate, fmt.Errorf("%d bps exceeds %d", opts.FeeRate, MaxFeeRate))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Vault{store: store, opts: opts, logger: logger}, nil
}

// Initialize binds the vault to assetID and zeroes both totals. The asset
// binding is created only if absent, so racing initializers cannot replace it.
func (v *Vault) Initialize(ctx context.Context, assetID model.AssetID) error {
	const op = "initialize"
	if assetID == "" {
		return newError(op, CodeInvalidInput, fmt.Errorf("asset id is empty"))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	err := v.store.Update(ctx, func(current storage.Fields) ([]storage.Entry, error) {
		if current.Has(storage.FieldAssetID) {
			return nil, storage.ErrExists
		}
		return []storage.Entry{
			{Field: storage.FieldAssetID, Value: string(assetID), IfAbsent: true},
			{Field: storage.FieldTotalSupply, Value: "0"},
			{Field: storage.FieldTotalAssets, Value: "0"},
		}, nil
	})
	if errors.Is(err, storage.ErrExists) {
		return newError(op, CodeAlreadyInitialized, nil)
	}
	if err != nil {
		return fmt.Errorf("store initial state: %w", err)
	}

	v.logger.Debug("vault initialized", zap.String("asset_id", string(assetID)))
	return nil
}

// Deposit accounts for assets entering the pool and returns the shares minted.
func (v *Vault) Deposit(ctx context.Context, assets *big.Int) (*big.Int, error) {
	const op = "deposit"
	value, err := positive(op, assets)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	var shares uint256.Int
	next, err := v.update(ctx, op, func(state model.PoolState) (model.PoolState, error) {
		next, minted, err := v.deposit(state, value)
		shares = minted
		return next, err
	})
	if err != nil {
		return nil, err
	}

	v.logger.Debug("deposit committed",
		zap.String("assets", amount.String(value)),
		zap.String("shares", amount.String(shares)),
		zap.String("total_assets", amount.String(next.TotalAssets)),
		zap.String("total_supply", amount.String(next.TotalSupply)),
	)
	return shares.ToBig(), nil
}

// Withdraw redeems shares and returns the assets owed to the withdrawer.
// Holder-level share balances are checked by the caller.
func (v *Vault) Withdraw(ctx context.Context, shares *big.Int) (*big.Int, error) {
	const op = "withdraw"
	value, err := positive(op, shares)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	var paid uint256.Int
	next, err := v.update(ctx, op, func(state model.PoolState) (model.PoolState, error) {
		next, owed, err := ApplyWithdraw(state, value)
		paid = owed
		return next, err
	})
	if err != nil {
		return nil, err
	}

	v.logger.Debug("withdraw committed",
		zap.String("shares", amount.String(value)),
		zap.String("assets", amount.String(paid)),
		zap.String("total_assets", amount.String(next.TotalAssets)),
		zap.String("total_supply", amount.String(next.TotalSupply)),
	)
	return paid.ToBig(), nil
}

func (v *Vault) deposit(state model.PoolState, assets uint256.Int) (model.PoolState, uint256.Int, error) {
	next, shares, err := ApplyDeposit(state, assets)
	if err != nil {
		return state, uint256.Int{}, err
	}
	if shares.IsZero() && v.opts.RejectZeroShares {
		return state, uint256.Int{}, newError("deposit", CodeDepositTooSmall, nil)
	}
	return next, shares, nil
}

// update runs one read-modify-write of the pool state inside a store
// transaction. Errors from decoding or from step are returned as-is; store
// failures are wrapped.
func (v *Vault) update(ctx context.Context, op string, step func(model.PoolState) (model.PoolState, error)) (model.PoolState, error) {
	var (
		next    model.PoolState
		stepErr error
	)
	err := v.store.Update(ctx, func(current storage.Fields) ([]storage.Entry, error) {
		state, err := decodeState(op, current)
		if err == nil {
			next, err = step(state)
		}
		if err != nil {
			stepErr = err
			return nil, err
		}
		return []storage.Entry{
			{Field: storage.FieldTotalAssets, Value: amount.String(next.TotalAssets)},
			{Field: storage.FieldTotalSupply, Value: amount.String(next.TotalSupply)},
		}, nil
	})
	if stepErr != nil {
		return model.PoolState{}, stepErr
	}
	if err != nil {
		return model.PoolState{}, fmt.Errorf("commit state: %w", err)
	}
	return next, nil
}

func (v *Vault) load(ctx context.Context, op string) (model.PoolState, error) {
	fields, err := v.store.Load(ctx)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("load state: %w", err)
	}
	return decodeState(op, fields)
}

func decodeState(op string, fields storage.Fields) (model.PoolState, error) {
	assetID, err := fields.Get(storage.FieldAssetID)
	if err != nil {
		return model.PoolState{}, newError(op, CodeNotInitialized, nil)
	}
	totalAssets, err := decodeAmount(fields, storage.FieldTotalAssets)
	if err != nil {
		return model.PoolState{}, err
	}
	totalSupply, err := decodeAmount(fields, storage.FieldTotalSupply)
	if err != nil {
		return model.PoolState{}, err
	}

	return model.PoolState{
		AssetID:     model.AssetID(assetID),
		TotalAssets: totalAssets,
		TotalSupply: totalSupply,
	}, nil
}

func decodeAmount(fields storage.Fields, field storage.Field) (uint256.Int, error) {
	raw, err := fields.Get(field)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("load %s: field missing", field)
	}
	value, err := amount.Decode(raw)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("decode %s: %w", field, err)
	}
	return value, nil
}

// positive validates a caller-supplied amount.
func positive(op string, x *big.Int) (uint256.Int, error) {
	if x == nil || x.Sign() <= 0 {
		return uint256.Int{}, newError(op, CodeInvalidInput, nil)
	}
	value, err := amount.ToUint(x)
	if err != nil {
		return uint256.Int{}, arithError(op, err)
	}
	return value, nil
}
