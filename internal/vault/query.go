package vault

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"shareVault/internal/amount"
	"shareVault/internal/model"
)

// TotalAssets returns the pool's accounted holdings.
func (v *Vault) TotalAssets(ctx context.Context) (*big.Int, error) {
	state, err := v.State(ctx)
	if err != nil {
		return nil, err
	}
	return state.TotalAssets.ToBig(), nil
}

// TotalSupply returns the number of shares outstanding.
func (v *Vault) TotalSupply(ctx context.Context) (*big.Int, error) {
	state, err := v.State(ctx)
	if err != nil {
		return nil, err
	}
	return state.TotalSupply.ToBig(), nil
}

// Config returns the asset binding, both totals, and the fee rate.
func (v *Vault) Config(ctx context.Context) (model.VaultConfig, error) {
	state, err := v.State(ctx)
	if err != nil {
		return model.VaultConfig{}, err
	}
	return model.VaultConfig{
		AssetID:     state.AssetID,
		TotalSupply: state.TotalSupply.ToBig(),
		TotalAssets: state.TotalAssets.ToBig(),
		FeeRate:     v.opts.FeeRate,
	}, nil
}

// State returns a snapshot of the pool state.
func (v *Vault) State(ctx context.Context) (model.PoolState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.load(ctx, "query")
}

// PreviewDeposit returns the shares Deposit would mint right now.
func (v *Vault) PreviewDeposit(ctx context.Context, assets *big.Int) (*big.Int, error) {
	const op = "deposit"
	value, err := positive(op, assets)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	state, err := v.load(ctx, op)
	if err != nil {
		return nil, err
	}
	_, shares, err := v.deposit(state, value)
	if err != nil {
		return nil, err
	}
	return shares.ToBig(), nil
}

// PreviewWithdraw returns the assets Withdraw would pay right now.
func (v *Vault) PreviewWithdraw(ctx context.Context, shares *big.Int) (*big.Int, error) {
	const op = "withdraw"
	value, err := positive(op, shares)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	state, err := v.load(ctx, op)
	if err != nil {
		return nil, err
	}
	_, paid, err := ApplyWithdraw(state, value)
	if err != nil {
		return nil, err
	}
	return paid.ToBig(), nil
}

// SharePrice returns total_assets / total_supply rounded to places. An empty
// pool reports the bootstrap price of 1.
func (v *Vault) SharePrice(ctx context.Context, places int32) (decimal.Decimal, error) {
	state, err := v.State(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if state.Empty() {
		return decimal.NewFromInt(1), nil
	}
	return amount.Ratio(state.TotalAssets.ToBig(), state.TotalSupply.ToBig(), places), nil
}
