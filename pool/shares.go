package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/defistate-amm-go/ledger"
)

// The liquidity-provider share balance is itself a fungible sub-ledger with
// the standard transfer/approve/transferFrom semantics. Removal relies on
// it: holders transfer shares to the pool's own account and then call
// RemoveLiquidity.

// TotalShares returns the outstanding share supply, locked floor included.
func (p *Pool) TotalShares() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shares.TotalSupply()
}

// SharesOf returns account's share balance.
func (p *Pool) SharesOf(account common.Address) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shares.BalanceOf(account)
}

// ShareBalances returns a copy of every non-zero share balance.
func (p *Pool) ShareBalances() map[common.Address]*big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shares.Balances()
}

// TransferShares moves share balance between accounts.
func (p *Pool) TransferShares(from, to common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.TransferSharesLocked(from, to, amount)
}

// TransferSharesLocked is TransferShares for a caller that already holds
// the pool's lock.
func (p *Pool) TransferSharesLocked(from, to common.Address, amount *big.Int) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return ledger.ErrZeroAddress
	}
	return p.shares.Transfer(from, to, amount)
}

// ApproveShares sets spender's allowance over owner's shares.
func (p *Pool) ApproveShares(owner, spender common.Address, amount *big.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ledger.ErrZeroAddress
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shares.Approve(owner, spender, amount)
}

// ShareAllowance returns spender's remaining allowance over owner's shares.
func (p *Pool) ShareAllowance(owner, spender common.Address) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shares.Allowance(owner, spender)
}

// TransferSharesFrom moves owner's shares to the recipient, consuming
// spender's allowance.
func (p *Pool) TransferSharesFrom(spender, owner, to common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.TransferSharesFromLocked(spender, owner, to, amount)
}

// TransferSharesFromLocked is TransferSharesFrom for a caller that already
// holds the pool's lock.
func (p *Pool) TransferSharesFromLocked(spender, owner, to common.Address, amount *big.Int) error {
	if spender == (common.Address{}) || owner == (common.Address{}) || to == (common.Address{}) {
		return ledger.ErrZeroAddress
	}
	return p.shares.TransferFrom(spender, owner, to, amount)
}
