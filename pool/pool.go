// Package pool implements the single-pool reserve and share-accounting state
// machine of the AMM: deterministic constant-product pricing, proportional
// share minting and burning, and an explicit deposit-then-settle protocol
// against external asset ledgers.
package pool

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/defistate-amm-go/ledger"
)

var (
	// ErrAlreadyInitialized is returned when Init is called on an initialized pool.
	ErrAlreadyInitialized = errors.New("pool already initialized")
	// ErrNotInitialized is returned by every mutating operation before Init.
	ErrNotInitialized = errors.New("pool not initialized")
	// ErrInvalidAsset is returned when an asset identity is the zero address,
	// has no registered ledger, or does not belong to the pool.
	ErrInvalidAsset = errors.New("invalid asset")
	// ErrIdenticalAssets is returned when a pair is formed from one asset.
	ErrIdenticalAssets = errors.New("identical assets")
	// ErrUnauthorized is returned when the caller lacks the owner role.
	ErrUnauthorized = errors.New("caller is not the owner")
	// ErrNoChange is returned when a setter is called with the current value.
	ErrNoChange = errors.New("value unchanged")
	// ErrInvalidFeeRate is returned when a fee rate is not below FeeFactor.
	ErrInvalidFeeRate = errors.New("fee rate out of range")
	// ErrInsufficientInputAmount is returned when a swap settles with no new input.
	ErrInsufficientInputAmount = errors.New("insufficient input amount")
	// ErrInsufficientOutputAmount is returned when a swap's output is zero or
	// below the caller's minimum.
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
	// ErrInsufficientLiquidityMinted is returned when a contribution values to zero shares.
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	// ErrInsufficientSharesBurned is returned when the pool holds no shares to burn.
	ErrInsufficientSharesBurned = errors.New("insufficient shares burned")
	// ErrInvariantViolation is returned when a swap would shrink the reserve
	// product. Unreachable given the pricing formula; it guards against
	// reserve-reconciliation bugs.
	ErrInvariantViolation = errors.New("constant product invariant violated")
	// ErrTransferFailed wraps ledger failures surfaced through pool operations.
	ErrTransferFailed = errors.New("transfer failed")
)

// Liquidity is the capability set of a liquidity pool as seen by the router
// and other callers. Pool is the single concrete implementation.
type Liquidity interface {
	Init(tokenA, tokenB common.Address, feeRateBps uint64) error
	Quote(inputAsset common.Address, inputAmount *big.Int) (*big.Int, error)
	Swap(minAmountOut *big.Int, recipient, inputAsset common.Address) (*big.Int, error)
	AddLiquidity(recipient common.Address) (*big.Int, error)
	RemoveLiquidity(recipient common.Address) (amount0, amount1 *big.Int, err error)
	SetFeeRate(caller common.Address, feeRateBps uint64) error
}

var _ Liquidity = (*Pool)(nil)

// Pool owns the reserve and share state for exactly one unordered asset
// pair. All operations on one pool serialize behind a single mutex: the
// pricing formulas are order-sensitive, so a second concurrent swap must
// observe the first one's reserves. Distinct pools are independent.
//
// A pool never pulls funds. Callers (normally the router) transfer input
// assets to the pool's account first and then invoke AddLiquidity or Swap,
// which settle by reconciling the actual ledger balance against the stored
// reserves.
type Pool struct {
	addr  common.Address
	owner common.Address
	book  *ledger.Book

	mu          sync.Mutex
	initialized bool
	token0      common.Address
	token1      common.Address
	ledger0     ledger.Ledger
	ledger1     ledger.Ledger
	reserve0    *big.Int
	reserve1    *big.Int
	feeRateBps  uint64
	shares      *ledger.AccountBook
	updatedAt   time.Time
}

// New creates an uninitialized pool holding its funds under addr and
// resolving asset ledgers through book. owner is the only account allowed
// to change the fee rate.
func New(addr, owner common.Address, book *ledger.Book) *Pool {
	return &Pool{
		addr:     addr,
		owner:    owner,
		book:     book,
		reserve0: new(big.Int),
		reserve1: new(big.Int),
		shares:   ledger.NewAccountBook(),
	}
}

// Address returns the pool's own ledger account.
func (p *Pool) Address() common.Address { return p.addr }

// Owner returns the account authorized to configure the pool.
func (p *Pool) Owner() common.Address { return p.owner }

// Lock acquires the pool's critical section directly. Together with Unlock
// and the *Locked operation variants it lets a caller compose operations on
// one or more pools into a single atomic sequence; the router's multi-hop
// path and its pull-then-settle flows depend on it.
func (p *Pool) Lock() { p.mu.Lock() }

// Unlock releases the pool's critical section.
func (p *Pool) Unlock() { p.mu.Unlock() }

// Init assigns the canonical asset pair and fee rate, exactly once.
// The pair is stored sorted: token0 is the smaller identity by byte order.
func (p *Pool) Init(tokenA, tokenB common.Address, feeRateBps uint64) error {
	if tokenA == (common.Address{}) || tokenB == (common.Address{}) {
		return ErrInvalidAsset
	}
	if tokenA == tokenB {
		return ErrIdenticalAssets
	}
	if feeRateBps >= FeeFactor {
		return ErrInvalidFeeRate
	}

	token0, token1 := SortPair(tokenA, tokenB)
	ledger0, err := p.book.MustGet(token0)
	if err != nil {
		return fmt.Errorf("%w: no ledger for %s", ErrInvalidAsset, token0)
	}
	ledger1, err := p.book.MustGet(token1)
	if err != nil {
		return fmt.Errorf("%w: no ledger for %s", ErrInvalidAsset, token1)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return ErrAlreadyInitialized
	}
	p.token0, p.token1 = token0, token1
	p.ledger0, p.ledger1 = ledger0, ledger1
	p.feeRateBps = feeRateBps
	p.initialized = true
	p.updatedAt = time.Now()
	return nil
}

// Initialized reports whether Init has completed.
func (p *Pool) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// Tokens returns the canonical (token0, token1) pair.
func (p *Pool) Tokens() (common.Address, common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token0, p.token1
}

// FeeRate returns the pool fee rate in parts per FeeFactor.
func (p *Pool) FeeRate() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feeRateBps
}

// SetFeeRate updates the fee rate. Owner only; no-op updates are rejected.
func (p *Pool) SetFeeRate(caller common.Address, feeRateBps uint64) error {
	if caller != p.owner {
		return ErrUnauthorized
	}
	if feeRateBps >= FeeFactor {
		return ErrInvalidFeeRate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return ErrNotInitialized
	}
	if feeRateBps == p.feeRateBps {
		return ErrNoChange
	}
	p.feeRateBps = feeRateBps
	return nil
}

// LatestReserves returns a copy of the current reserves and the time of the
// last reserve update.
func (p *Pool) LatestReserves() (reserve0, reserve1 *big.Int, updatedAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.reserve0), new(big.Int).Set(p.reserve1), p.updatedAt
}

// Quote prices inputAmount of inputAsset against the current reserves. Pure:
// no state changes.
func (p *Pool) Quote(inputAsset common.Address, inputAmount *big.Int) (*big.Int, error) {
	if inputAmount == nil || inputAmount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return nil, ErrNotInitialized
	}
	reserveIn, reserveOut, err := p.orientedReserves(inputAsset)
	if err != nil {
		return nil, err
	}
	return amountOut(inputAmount, reserveIn, reserveOut, p.feeRateBps), nil
}

// AddLiquidity settles the contributions already transferred to the pool's
// account and mints shares to recipient. The newly contributed amount per
// asset is the positive difference between the pool's actual ledger balance
// and its stored reserve.
func (p *Pool) AddLiquidity(recipient common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.AddLiquidityLocked(recipient)
}

// AddLiquidityLocked is AddLiquidity for a caller that already holds the
// pool's lock.
func (p *Pool) AddLiquidityLocked(recipient common.Address) (*big.Int, error) {
	if recipient == (common.Address{}) {
		return nil, ledger.ErrZeroAddress
	}
	if !p.initialized {
		return nil, ErrNotInitialized
	}

	balance0 := p.ledger0.BalanceOf(p.addr)
	balance1 := p.ledger1.BalanceOf(p.addr)
	amount0 := positiveDelta(balance0, p.reserve0)
	amount1 := positiveDelta(balance1, p.reserve1)

	minted, locked := liquidityMinted(amount0, amount1, p.reserve0, p.reserve1, p.shares.TotalSupply())
	if minted.Sign() == 0 {
		return nil, ErrInsufficientLiquidityMinted
	}
	if locked.Sign() > 0 {
		// First mint: the locked floor belongs to nobody and is never
		// withdrawable. Crediting the zero address keeps
		// totalShares == sum of all share balances.
		p.shares.Mint(common.Address{}, locked)
	}
	p.shares.Mint(recipient, minted)

	p.reserve0.Set(balance0)
	p.reserve1.Set(balance1)
	p.updatedAt = time.Now()
	return minted, nil
}

// RemoveLiquidity burns the shares currently held by the pool itself and
// pays out the proportional slice of both reserves to recipient. Callers
// transfer their shares to the pool's account first (transfer-then-call),
// which keeps burning symmetrical with the deposit-then-settle swap path.
func (p *Pool) RemoveLiquidity(recipient common.Address) (*big.Int, *big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.RemoveLiquidityLocked(recipient)
}

// RemoveLiquidityLocked is RemoveLiquidity for a caller that already holds
// the pool's lock.
func (p *Pool) RemoveLiquidityLocked(recipient common.Address) (*big.Int, *big.Int, error) {
	if recipient == (common.Address{}) {
		return nil, nil, ledger.ErrZeroAddress
	}
	if !p.initialized {
		return nil, nil, ErrNotInitialized
	}

	burned := p.shares.BalanceOf(p.addr)
	if burned.Sign() == 0 {
		return nil, nil, ErrInsufficientSharesBurned
	}
	totalShares := p.shares.TotalSupply()
	amount0, amount1 := proportionalAmounts(burned, p.reserve0, p.reserve1, totalShares)
	if amount0.Sign() == 0 && amount1.Sign() == 0 {
		return nil, nil, ErrInsufficientSharesBurned
	}

	if err := p.ledger0.Transfer(p.addr, recipient, amount0); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrTransferFailed, p.token0, err)
	}
	if err := p.ledger1.Transfer(p.addr, recipient, amount1); err != nil {
		// Undo the first leg so a failed removal leaves state untouched.
		p.ledger0.Transfer(recipient, p.addr, amount0)
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrTransferFailed, p.token1, err)
	}
	p.shares.Burn(p.addr, burned)

	p.reserve0.Set(p.ledger0.BalanceOf(p.addr))
	p.reserve1.Set(p.ledger1.BalanceOf(p.addr))
	p.updatedAt = time.Now()
	return amount0, amount1, nil
}

// Swap settles the input amount already transferred to the pool's account,
// prices it with Quote's formula and pays the output to recipient. The
// post-swap reserve product must not fall below the pre-swap product.
func (p *Pool) Swap(minAmountOut *big.Int, recipient, inputAsset common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.SwapLocked(minAmountOut, recipient, inputAsset)
}

// SwapLocked is Swap for a caller that already holds the pool's lock.
func (p *Pool) SwapLocked(minAmountOut *big.Int, recipient, inputAsset common.Address) (*big.Int, error) {
	if recipient == (common.Address{}) {
		return nil, ledger.ErrZeroAddress
	}
	if minAmountOut == nil || minAmountOut.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if !p.initialized {
		return nil, ErrNotInitialized
	}
	reserveIn, reserveOut, err := p.orientedReserves(inputAsset)
	if err != nil {
		return nil, err
	}

	ledgerIn, ledgerOut := p.ledger0, p.ledger1
	if inputAsset == p.token1 {
		ledgerIn, ledgerOut = p.ledger1, p.ledger0
	}

	balanceIn := ledgerIn.BalanceOf(p.addr)
	amountIn := positiveDelta(balanceIn, reserveIn)
	if amountIn.Sign() == 0 {
		return nil, ErrInsufficientInputAmount
	}

	out := amountOut(amountIn, reserveIn, reserveOut, p.feeRateBps)
	if out.Sign() == 0 || out.Cmp(minAmountOut) < 0 {
		return nil, ErrInsufficientOutputAmount
	}

	newReserveIn := new(big.Int).Add(reserveIn, amountIn)
	newReserveOut := new(big.Int).Sub(reserveOut, out)
	oldProduct := new(big.Int).Mul(reserveIn, reserveOut)
	newProduct := new(big.Int).Mul(newReserveIn, newReserveOut)
	if newProduct.Cmp(oldProduct) < 0 {
		return nil, ErrInvariantViolation
	}

	if err := ledgerOut.Transfer(p.addr, recipient, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	p.reserve0.Set(p.ledger0.BalanceOf(p.addr))
	p.reserve1.Set(p.ledger1.BalanceOf(p.addr))
	p.updatedAt = time.Now()
	return out, nil
}

// Sync is the explicit settle step: it reconciles the stored reserves to the
// pool's actual ledger balances, absorbing direct transfers as donated value.
func (p *Pool) Sync() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return ErrNotInitialized
	}
	p.reserve0.Set(p.ledger0.BalanceOf(p.addr))
	p.reserve1.Set(p.ledger1.BalanceOf(p.addr))
	p.updatedAt = time.Now()
	return nil
}

// orientedReserves returns (reserveIn, reserveOut) for the given input
// asset. Callers must hold p.mu.
func (p *Pool) orientedReserves(inputAsset common.Address) (*big.Int, *big.Int, error) {
	switch inputAsset {
	case p.token0:
		return p.reserve0, p.reserve1, nil
	case p.token1:
		return p.reserve1, p.reserve0, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s is not in the pair", ErrInvalidAsset, inputAsset)
	}
}

// positiveDelta returns max(balance - reserve, 0) as a fresh value.
func positiveDelta(balance, reserve *big.Int) *big.Int {
	d := new(big.Int).Sub(balance, reserve)
	if d.Sign() < 0 {
		d.SetInt64(0)
	}
	return d
}

// SortPair returns the pair in canonical order: the smaller identity by
// byte comparison first.
func SortPair(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return tokenA, tokenB
	}
	return tokenB, tokenA
}
