package model

// Direction is the side of a transfer relative to the pool.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Transfer is an instruction to move the underlying asset between an account
// and the pool.
type Transfer struct {
	ID           string    `json:"id"`
	VaultID      string    `json:"vault_id,omitempty"`
	Direction    Direction `json:"direction"`
	AssetID      AssetID   `json:"asset_id"`
	Account      string    `json:"account"`
	Amount       string    `json:"amount"`
	Compensation bool      `json:"compensation,omitempty"`
	CreatedAt    string    `json:"created_at"`
}

// Reverse returns the compensating instruction for t.
func (t Transfer) Reverse() Transfer {
	out := t
	out.Compensation = true
	if t.Direction == DirectionIn {
		out.Direction = DirectionOut
	} else {
		out.Direction = DirectionIn
	}
	return out
}
