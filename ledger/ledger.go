// Package ledger defines the fungible-asset ledger contract consumed by the
// AMM core, together with an in-memory reference implementation used by the
// engine, the console and the test suites.
//
// An asset (and an account) is identified by a common.Address. The zero
// address is never a valid asset or account; it is reserved as the sink for
// permanently locked pool shares.
package ledger

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInvalidAmount is returned when an amount is nil or negative.
	ErrInvalidAmount = errors.New("amount must be non-nil and non-negative")
	// ErrZeroAddress is returned when the zero address is used as an asset or account.
	ErrZeroAddress = errors.New("zero address")
	// ErrInsufficientBalance is returned when a transfer exceeds the sender's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when a transferFrom exceeds the spender's allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrAssetExists is returned when registering a ledger for an already-registered asset.
	ErrAssetExists = errors.New("asset already registered")
	// ErrUnknownAsset is returned when no ledger is registered for an asset.
	ErrUnknownAsset = errors.New("unknown asset")
)

// Ledger is the capability set the core requires from a fungible-asset
// ledger: balance queries and atomic transfers, with the usual
// approve/transferFrom delegation. Implementations must apply each call
// fully or not at all, and make balance updates immediately visible.
//
// There is no ambient caller: the authenticated caller identity is always an
// explicit argument.
type Ledger interface {
	// Asset returns the identity of the asset this ledger accounts for.
	Asset() common.Address

	// BalanceOf returns the current balance of account. The returned value
	// is a copy owned by the caller.
	BalanceOf(account common.Address) *big.Int

	// Transfer moves amount from the caller's balance to the recipient.
	Transfer(from, to common.Address, amount *big.Int) error

	// Approve sets spender's allowance over owner's balance to amount.
	Approve(owner, spender common.Address, amount *big.Int) error

	// Allowance returns spender's remaining allowance over owner's balance.
	Allowance(owner, spender common.Address) *big.Int

	// TransferFrom moves amount from owner to the recipient, spending
	// spender's allowance.
	TransferFrom(spender, owner, to common.Address, amount *big.Int) error
}

// validAmount reports whether a is a usable non-negative amount.
func validAmount(a *big.Int) bool {
	return a != nil && a.Sign() >= 0
}
