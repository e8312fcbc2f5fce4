package replay

import (
	"math/big"

	"shareVault/internal/model"
)

// Position is one account's net activity in the journal. Shares is signed:
// the vault does not track holders, so a journal may show an account
// redeeming shares it never minted.
type Position struct {
	Account    string   `json:"account"`
	Shares     *big.Int `json:"shares"`
	Deposited  *big.Int `json:"deposited"`
	Withdrawn  *big.Int `json:"withdrawn"`
	Operations int      `json:"operations"`
}

func newPosition(account string) *Position {
	return &Position{
		Account:   account,
		Shares:    new(big.Int),
		Deposited: new(big.Int),
		Withdrawn: new(big.Int),
	}
}

// apply folds a validated event into the position.
func (p *Position) apply(op, assets, shares string) {
	a, _ := new(big.Int).SetString(assets, 10)
	s, _ := new(big.Int).SetString(shares, 10)
	switch op {
	case model.OpDeposit:
		p.Deposited.Add(p.Deposited, a)
		p.Shares.Add(p.Shares, s)
	case model.OpWithdraw:
		p.Withdrawn.Add(p.Withdrawn, a)
		p.Shares.Sub(p.Shares, s)
	}
	p.Operations++
}

func (r *Replayer) position(account string) *Position {
	p, ok := r.positions[account]
	if !ok {
		p = newPosition(account)
		r.positions[account] = p
	}
	return p
}

// Position returns a copy of account's position; an unknown account has a
// zero position.
func (r *Replayer) Position(account string) Position {
	p, ok := r.positions[account]
	if !ok {
		return *newPosition(account)
	}
	return Position{
		Account:    p.Account,
		Shares:     new(big.Int).Set(p.Shares),
		Deposited:  new(big.Int).Set(p.Deposited),
		Withdrawn:  new(big.Int).Set(p.Withdrawn),
		Operations: p.Operations,
	}
}
