// Package amount implements the bounded integer arithmetic used for pool
// accounting. Values are carried as 256-bit unsigned integers but every
// result must stay inside the signed 128-bit range so that totals can be
// exchanged with hosts that store them as i128.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	ErrNegative       = errors.New("amount is negative")
	ErrOverflow       = errors.New("amount overflow")
	ErrUnderflow      = errors.New("amount underflow")
	ErrDivisionByZero = errors.New("division by zero")
)

// Max is the largest representable amount, 2^127-1.
var Max = func() uint256.Int {
	var m uint256.Int
	m.Lsh(uint256.NewInt(1), 127)
	m.Sub(&m, uint256.NewInt(1))
	return m
}()

// MaxBig returns Max as a big.Int.
func MaxBig() *big.Int {
	return Max.ToBig()
}

// Parse reads a base-10 integer. Negative values are allowed so that callers
// can reject them with a domain error.
func Parse(input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty amount")
	}
	value, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", input)
	}
	return value, nil
}

// ToUint converts a non-negative value within [0, Max].
func ToUint(x *big.Int) (uint256.Int, error) {
	if x == nil {
		return uint256.Int{}, nil
	}
	if x.Sign() < 0 {
		return uint256.Int{}, ErrNegative
	}
	z, overflow := uint256.FromBig(x)
	if overflow || z.Gt(&Max) {
		return uint256.Int{}, ErrOverflow
	}
	return *z, nil
}

// Add returns x+y.
func Add(x, y uint256.Int) (uint256.Int, error) {
	var z uint256.Int
	if _, overflow := z.AddOverflow(&x, &y); overflow || z.Gt(&Max) {
		return uint256.Int{}, ErrOverflow
	}
	return z, nil
}

// Sub returns x-y.
func Sub(x, y uint256.Int) (uint256.Int, error) {
	var z uint256.Int
	if _, underflow := z.SubOverflow(&x, &y); underflow {
		return uint256.Int{}, ErrUnderflow
	}
	return z, nil
}

// MulDiv returns floor(x*y/d) with a full-width intermediate product.
func MulDiv(x, y, d uint256.Int) (uint256.Int, error) {
	if d.IsZero() {
		return uint256.Int{}, ErrDivisionByZero
	}
	var z uint256.Int
	if _, overflow := z.MulDivOverflow(&x, &y, &d); overflow || z.Gt(&Max) {
		return uint256.Int{}, ErrOverflow
	}
	return z, nil
}

// String renders x in base 10.
func String(x uint256.Int) string {
	return x.ToBig().String()
}

// Decode parses a stored base-10 value into the bounded range.
func Decode(input string) (uint256.Int, error) {
	value, err := Parse(input)
	if err != nil {
		return uint256.Int{}, err
	}
	return ToUint(value)
}

// Format renders an integer amount in units with the given decimals.
func Format(x *big.Int, decimals int32) string {
	if x == nil {
		return "0"
	}
	if decimals <= 0 {
		return x.String()
	}
	return decimal.NewFromBigInt(x, -decimals).StringFixed(decimals)
}

// Ratio returns num/den rounded to places. A zero denominator yields zero.
func Ratio(num, den *big.Int, places int32) decimal.Decimal {
	if num == nil || den == nil || den.Sign() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(num, 0).DivRound(decimal.NewFromBigInt(den, 0), places)
}
