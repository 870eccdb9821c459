package ledger

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAdapter is the native-asset wrapper consumed by the router: a 1:1,
// fee-less bridge between the native coin and its fungible representation.
// Both directions are atomic.
type NativeAdapter interface {
	// Asset returns the identity of the wrapped representation.
	Asset() common.Address
	// Wrap converts amount of caller's native balance into wrapped units.
	Wrap(caller common.Address, amount *big.Int) error
	// Unwrap converts amount of caller's wrapped units back into native balance.
	Unwrap(caller common.Address, amount *big.Int) error
}

// WrappedNative is an in-memory wrapped-native ledger: it implements both
// the Ledger contract for the wrapped representation and the NativeAdapter
// conversion against an underlying native coin ledger. Native units taken in
// by Wrap are held in custody under the wrapped asset's own address.
type WrappedNative struct {
	asset  common.Address
	native *Token

	mu   sync.Mutex
	book *AccountBook
}

// NewWrappedNative creates a wrapper for the native coin ledger, issuing a
// wrapped representation under the given asset identity.
func NewWrappedNative(asset common.Address, native *Token) (*WrappedNative, error) {
	if asset == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	return &WrappedNative{
		asset:  asset,
		native: native,
		book:   NewAccountBook(),
	}, nil
}

// Asset returns the identity of the wrapped representation.
func (w *WrappedNative) Asset() common.Address { return w.asset }

// Wrap pulls amount of native units from caller into custody and credits
// the same amount of wrapped units.
func (w *WrappedNative) Wrap(caller common.Address, amount *big.Int) error {
	if caller == (common.Address{}) {
		return ErrZeroAddress
	}
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if err := w.native.Transfer(caller, w.asset, amount); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	// Amount already validated; mint cannot fail.
	return w.book.Mint(caller, amount)
}

// Unwrap burns amount of caller's wrapped units and releases the same
// amount of native units from custody.
func (w *WrappedNative) Unwrap(caller common.Address, amount *big.Int) error {
	if caller == (common.Address{}) {
		return ErrZeroAddress
	}
	w.mu.Lock()
	if err := w.book.Burn(caller, amount); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()
	if err := w.native.Transfer(w.asset, caller, amount); err != nil {
		// 1:1 custody makes this unreachable; restore the burned units
		// rather than strand them.
		w.mu.Lock()
		w.book.Mint(caller, amount)
		w.mu.Unlock()
		return err
	}
	return nil
}

// BalanceOf implements Ledger for the wrapped representation.
func (w *WrappedNative) BalanceOf(account common.Address) *big.Int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.book.BalanceOf(account)
}

// TotalSupply returns the outstanding wrapped supply, which always equals
// the native units held in custody.
func (w *WrappedNative) TotalSupply() *big.Int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.book.TotalSupply()
}

// Transfer implements Ledger.
func (w *WrappedNative) Transfer(from, to common.Address, amount *big.Int) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.book.Transfer(from, to, amount)
}

// Approve implements Ledger.
func (w *WrappedNative) Approve(owner, spender common.Address, amount *big.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.book.Approve(owner, spender, amount)
}

// Allowance implements Ledger.
func (w *WrappedNative) Allowance(owner, spender common.Address) *big.Int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.book.Allowance(owner, spender)
}

// TransferFrom implements Ledger.
func (w *WrappedNative) TransferFrom(spender, owner, to common.Address, amount *big.Int) error {
	if spender == (common.Address{}) || owner == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.book.TransferFrom(spender, owner, to, amount)
}
