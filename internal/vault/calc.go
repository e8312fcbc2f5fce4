package vault

import (
	"github.com/holiman/uint256"

	"shareVault/internal/amount"
	"shareVault/internal/model"
)

// ApplyDeposit returns the state after depositing assets and the number of
// shares minted. An empty pool mints 1:1; otherwise shares are
// floor(assets * supply / totalAssets), so rounding always favours the pool.
func ApplyDeposit(state model.PoolState, assets uint256.Int) (model.PoolState, uint256.Int, error) {
	const op = "deposit"
	if assets.IsZero() {
		return state, uint256.Int{}, newError(op, CodeInvalidInput, nil)
	}

	shares := assets
	if !state.TotalSupply.IsZero() {
		var err error
		shares, err = amount.MulDiv(assets, state.TotalSupply, state.TotalAssets)
		if err != nil {
			return state, uint256.Int{}, arithError(op, err)
		}
	}

	totalAssets, err := amount.Add(state.TotalAssets, assets)
	if err != nil {
		return state, uint256.Int{}, arithError(op, err)
	}
	totalSupply, err := amount.Add(state.TotalSupply, shares)
	if err != nil {
		return state, uint256.Int{}, arithError(op, err)
	}

	next := state
	next.TotalAssets = totalAssets
	next.TotalSupply = totalSupply
	return next, shares, nil
}

// ApplyWithdraw returns the state after redeeming shares and the assets owed,
// floor(shares * totalAssets / supply). Redeeming the whole supply pays out
// exactly totalAssets.
func ApplyWithdraw(state model.PoolState, shares uint256.Int) (model.PoolState, uint256.Int, error) {
	const op = "withdraw"
	if shares.IsZero() {
		return state, uint256.Int{}, newError(op, CodeInvalidInput, nil)
	}
	if shares.Gt(&state.TotalSupply) {
		return state, uint256.Int{}, newError(op, CodeInsufficientBalance, nil)
	}

	paid, err := amount.MulDiv(shares, state.TotalAssets, state.TotalSupply)
	if err != nil {
		return state, uint256.Int{}, arithError(op, err)
	}
	if paid.Gt(&state.TotalAssets) {
		return state, uint256.Int{}, newError(op, CodeInsufficientBalance, nil)
	}

	totalAssets, err := amount.Sub(state.TotalAssets, paid)
	if err != nil {
		return state, uint256.Int{}, arithError(op, err)
	}
	totalSupply, err := amount.Sub(state.TotalSupply, shares)
	if err != nil {
		return state, uint256.Int{}, arithError(op, err)
	}

	next := state
	next.TotalAssets = totalAssets
	next.TotalSupply = totalSupply
	return next, paid, nil
}
