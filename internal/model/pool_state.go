package model

import (
	"github.com/holiman/uint256"
)

// AssetID identifies the underlying asset a vault accepts.
type AssetID string

// PoolState holds the running totals of a vault. It is a plain value so a
// snapshot can be compared with ==.
type PoolState struct {
	AssetID     AssetID
	TotalAssets uint256.Int
	TotalSupply uint256.Int
}

// Empty reports whether no shares are outstanding.
func (s PoolState) Empty() bool {
	return s.TotalSupply.IsZero()
}

// Consistent reports whether supply and assets are either both zero or both
// non-zero.
func (s PoolState) Consistent() bool {
	return s.TotalSupply.IsZero() == s.TotalAssets.IsZero()
}
