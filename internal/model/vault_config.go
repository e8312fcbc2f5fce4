package model

import "math/big"

// VaultConfig is the read-only projection returned by config queries.
type VaultConfig struct {
	AssetID     AssetID  `json:"asset_id"`
	TotalSupply *big.Int `json:"total_supply"`
	TotalAssets *big.Int `json:"total_assets"`
	FeeRate     uint32   `json:"fee_rate"`
}
