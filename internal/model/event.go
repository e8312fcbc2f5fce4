package model

const (
	OpDeposit  = "deposit"
	OpWithdraw = "withdraw"
)

// Event records a committed vault operation. Amounts are base-10 strings.
type Event struct {
	ID          string  `json:"id"`
	VaultID     string  `json:"vault_id,omitempty"`
	Op          string  `json:"op"`
	Account     string  `json:"account,omitempty"`
	AssetID     AssetID `json:"asset_id"`
	Assets      string  `json:"assets"`
	Shares      string  `json:"shares"`
	TotalAssets string  `json:"total_assets"`
	TotalSupply string  `json:"total_supply"`
	Timestamp   string  `json:"timestamp"`
}
