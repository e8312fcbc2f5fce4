package vault

import (
	"errors"
	"fmt"

	"shareVault/internal/amount"
)

// Code is a stable numeric error code shared with hosts.
type Code uint32

const (
	CodeInvalidInput        Code = 2
	CodeInsufficientBalance Code = 3
	CodeInvalidFeeRate      Code = 302
	CodeDepositTooSmall     Code = 304
	CodeAlreadyInitialized  Code = 305
	CodeNotInitialized      Code = 306
	CodeOverflow            Code = 500
	CodeUnderflow           Code = 501
	CodeDivisionByZero      Code = 502
)

var codeNames = map[Code]string{
	CodeInvalidInput:        "invalid input",
	CodeInsufficientBalance: "insufficient balance",
	CodeInvalidFeeRate:      "invalid fee rate",
	CodeDepositTooSmall:     "deposit too small",
	CodeAlreadyInitialized:  "already initialized",
	CodeNotInitialized:      "not initialized",
	CodeOverflow:            "overflow",
	CodeUnderflow:           "underflow",
	CodeDivisionByZero:      "division by zero",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code %d", uint32(c))
}

// Error is returned for every accounting failure. Errors match the sentinels
// below by code, so errors.Is(err, ErrInvalidInput) works for any op.
type Error struct {
	Op   string
	Code Code
	Err  error
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Op == "" || t.Op == e.Op)
}

var (
	ErrInvalidInput        = &Error{Code: CodeInvalidInput}
	ErrInsufficientBalance = &Error{Code: CodeInsufficientBalance}
	ErrInvalidFeeRate      = &Error{Code: CodeInvalidFeeRate}
	ErrDepositTooSmall     = &Error{Code: CodeDepositTooSmall}
	ErrAlreadyInitialized  = &Error{Code: CodeAlreadyInitialized}
	ErrNotInitialized      = &Error{Code: CodeNotInitialized}
	ErrOverflow            = &Error{Code: CodeOverflow}
	ErrUnderflow           = &Error{Code: CodeUnderflow}
	ErrDivisionByZero      = &Error{Code: CodeDivisionByZero}
)

// CodeOf extracts the code from err, or 0 when err is not a vault error.
func CodeOf(err error) Code {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code
	}
	return 0
}

func newError(op string, code Code, err error) error {
	return &Error{Op: op, Code: code, Err: err}
}

// arithError maps amount package failures onto vault codes.
func arithError(op string, err error) error {
	switch {
	case errors.Is(err, amount.ErrOverflow):
		return newError(op, CodeOverflow, nil)
	case errors.Is(err, amount.ErrUnderflow):
		return newError(op, CodeUnderflow, nil)
	case errors.Is(err, amount.ErrDivisionByZero):
		return newError(op, CodeDivisionByZero, nil)
	case errors.Is(err, amount.ErrNegative):
		return newError(op, CodeInvalidInput, nil)
	default:
		return newError(op, CodeInvalidInput, err)
	}
}
