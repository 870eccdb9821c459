package ledger

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a concurrency-safe in-memory fungible-asset ledger. It is the
// reference implementation of the Ledger contract, standing in for an
// external asset contract in the engine, the console and the tests.
type Token struct {
	asset    common.Address
	name     string
	symbol   string
	decimals uint8

	mu   sync.RWMutex
	book *AccountBook
}

// NewToken creates an empty ledger for the asset identified by asset.
func NewToken(asset common.Address, name, symbol string) (*Token, error) {
	if asset == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	return &Token{
		asset:    asset,
		name:     name,
		symbol:   symbol,
		decimals: 18,
		book:     NewAccountBook(),
	}, nil
}

// Asset returns the asset identity this ledger accounts for.
func (t *Token) Asset() common.Address { return t.asset }

// Name returns the human-readable asset name.
func (t *Token) Name() string { return t.name }

// Symbol returns the short asset symbol.
func (t *Token) Symbol() string { return t.symbol }

// Decimals returns the display precision of the asset.
func (t *Token) Decimals() uint8 { return t.decimals }

// TotalSupply returns the outstanding supply of the asset.
func (t *Token) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.book.TotalSupply()
}

// Mint credits freshly issued units to an account. The engine and tests use
// it as a faucet; a production deployment would wire a real asset contract
// behind the Ledger interface instead.
func (t *Token) Mint(to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.book.Mint(to, amount)
}

// BalanceOf implements Ledger.
func (t *Token) BalanceOf(account common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.book.BalanceOf(account)
}

// Transfer implements Ledger.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.book.Transfer(from, to, amount)
}

// Approve implements Ledger.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.book.Approve(owner, spender, amount)
}

// Allowance implements Ledger.
func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.book.Allowance(owner, spender)
}

// TransferFrom implements Ledger.
func (t *Token) TransferFrom(spender, owner, to common.Address, amount *big.Int) error {
	if spender == (common.Address{}) || owner == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.book.TransferFrom(spender, owner, to, amount)
}
