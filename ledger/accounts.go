package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AccountBook is a plain, non-thread-safe fungible accounting structure:
// balances, allowances and a running total supply. It backs both the
// in-memory Token ledger and the pool share sub-ledger; callers own the
// locking discipline around it.
type AccountBook struct {
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
	totalSupply *big.Int
}

// NewAccountBook creates an empty book with zero total supply.
func NewAccountBook() *AccountBook {
	return &AccountBook{
		balances:    make(map[common.Address]*big.Int),
		allowances:  make(map[common.Address]map[common.Address]*big.Int),
		totalSupply: new(big.Int),
	}
}

// TotalSupply returns a copy of the outstanding supply.
func (b *AccountBook) TotalSupply() *big.Int {
	return new(big.Int).Set(b.totalSupply)
}

// BalanceOf returns a copy of account's balance. Unknown accounts hold zero.
func (b *AccountBook) BalanceOf(account common.Address) *big.Int {
	if bal, ok := b.balances[account]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Balances returns a deep copy of every non-zero balance, keyed by account.
func (b *AccountBook) Balances() map[common.Address]*big.Int {
	out := make(map[common.Address]*big.Int, len(b.balances))
	for account, bal := range b.balances {
		if bal.Sign() != 0 {
			out[account] = new(big.Int).Set(bal)
		}
	}
	return out
}

// Mint credits amount to account and grows the total supply.
func (b *AccountBook) Mint(to common.Address, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	b.credit(to, amount)
	b.totalSupply.Add(b.totalSupply, amount)
	return nil
}

// Burn debits amount from account and shrinks the total supply.
func (b *AccountBook) Burn(from common.Address, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if b.BalanceOf(from).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	b.debit(from, amount)
	b.totalSupply.Sub(b.totalSupply, amount)
	return nil
}

// Transfer moves amount from one account to another. It fails atomically:
// on error no balance has changed.
func (b *AccountBook) Transfer(from, to common.Address, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if b.BalanceOf(from).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	b.debit(from, amount)
	b.credit(to, amount)
	return nil
}

// Approve sets spender's allowance over owner's balance.
func (b *AccountBook) Approve(owner, spender common.Address, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	perOwner, ok := b.allowances[owner]
	if !ok {
		perOwner = make(map[common.Address]*big.Int)
		b.allowances[owner] = perOwner
	}
	perOwner[spender] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns a copy of spender's remaining allowance over owner.
func (b *AccountBook) Allowance(owner, spender common.Address) *big.Int {
	if perOwner, ok := b.allowances[owner]; ok {
		if a, ok := perOwner[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

// TransferFrom moves amount from owner to the recipient, consuming
// spender's allowance. The allowance check happens before any mutation.
func (b *AccountBook) TransferFrom(spender, owner, to common.Address, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	allowance := b.Allowance(owner, spender)
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := b.Transfer(owner, to, amount); err != nil {
		return err
	}
	b.allowances[owner][spender] = allowance.Sub(allowance, amount)
	return nil
}

func (b *AccountBook) credit(account common.Address, amount *big.Int) {
	if bal, ok := b.balances[account]; ok {
		bal.Add(bal, amount)
		return
	}
	b.balances[account] = new(big.Int).Set(amount)
}

func (b *AccountBook) debit(account common.Address, amount *big.Int) {
	b.balances[account].Sub(b.balances[account], amount)
}
