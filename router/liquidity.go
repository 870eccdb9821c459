package router

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/pool"
)

// AddLiquidity pulls a balanced contribution of (tokenA, tokenB) from caller
// into the pair's pool and mints shares to caller. The requested amounts are
// upper bounds: when the pool already has reserves, the router trims the
// larger side down to the pool's current ratio before pulling anything, so
// the pool's never-refund primitive never sees a lopsided deposit.
//
// It returns the amounts actually consumed and the shares minted, and fails
// with ErrSlippageExceeded if a consumed amount falls below its minimum.
//
// The caller must have approved the router on both asset ledgers.
func (r *Router) AddLiquidity(caller, tokenA, tokenB common.Address, amountA, amountB, minAmountA, minAmountB *big.Int) (usedA, usedB, minted *big.Int, err error) {
	timer := prometheus.NewTimer(r.metrics.operationDuration.WithLabelValues("add_liquidity"))
	defer timer.ObserveDuration()
	defer func() { r.metrics.observe("add_liquidity", err) }()

	if caller == (common.Address{}) || tokenA == (common.Address{}) || tokenB == (common.Address{}) {
		return nil, nil, nil, ledger.ErrZeroAddress
	}
	if amountA == nil || amountA.Sign() <= 0 || amountB == nil || amountB.Sign() <= 0 {
		return nil, nil, nil, ErrZeroAmount
	}
	if minAmountA == nil {
		minAmountA = new(big.Int)
	}
	if minAmountB == nil {
		minAmountB = new(big.Int)
	}

	p, err := r.registry.MustGetPool(tokenA, tokenB)
	if err != nil {
		return nil, nil, nil, err
	}
	ledgerA, err := r.book.MustGet(tokenA)
	if err != nil {
		return nil, nil, nil, err
	}
	ledgerB, err := r.book.MustGet(tokenB)
	if err != nil {
		return nil, nil, nil, err
	}

	// Pull-then-settle runs under the pool's lock so a concurrent trade
	// cannot settle the caller's deposit out from under them.
	p.Lock()
	defer p.Unlock()

	usedA, usedB, err = r.balanceContribution(p.ViewLocked(), tokenA, amountA, amountB, minAmountA, minAmountB)
	if err != nil {
		return nil, nil, nil, err
	}

	undo := &undoLog{}
	if err := ledgerA.TransferFrom(r.addr, caller, p.Address(), usedA); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %s: %v", ErrTransferFailed, tokenA, err)
	}
	undo.push(func() { ledgerA.Transfer(p.Address(), caller, usedA) })

	if err := ledgerB.TransferFrom(r.addr, caller, p.Address(), usedB); err != nil {
		undo.unwind()
		return nil, nil, nil, fmt.Errorf("%w: %s: %v", ErrTransferFailed, tokenB, err)
	}
	undo.push(func() { ledgerB.Transfer(p.Address(), caller, usedB) })

	minted, err = p.AddLiquidityLocked(caller)
	if err != nil {
		undo.unwind()
		return nil, nil, nil, err
	}

	r.logger.Debug("liquidity added",
		"caller", caller, "pool", p.Address(),
		"used_a", usedA, "used_b", usedB, "shares", minted)
	return usedA, usedB, minted, nil
}

// RemoveLiquidity moves shares of the pair's pool from caller into the pool
// (transfer-then-call), burns them and pays the proportional reserve
// amounts back to caller. The expected amounts are checked against the
// minimum bounds before any share moves.
//
// The caller must have approved the router on the pool's share ledger.
func (r *Router) RemoveLiquidity(caller, tokenA, tokenB common.Address, shares, minAmountA, minAmountB *big.Int) (amountA, amountB *big.Int, err error) {
	timer := prometheus.NewTimer(r.metrics.operationDuration.WithLabelValues("remove_liquidity"))
	defer timer.ObserveDuration()
	defer func() { r.metrics.observe("remove_liquidity", err) }()

	if caller == (common.Address{}) || tokenA == (common.Address{}) || tokenB == (common.Address{}) {
		return nil, nil, ledger.ErrZeroAddress
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, nil, ErrZeroAmount
	}
	if minAmountA == nil {
		minAmountA = new(big.Int)
	}
	if minAmountB == nil {
		minAmountB = new(big.Int)
	}

	p, err := r.registry.MustGetPool(tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}

	// The pre-check, the share pull and the burn are one critical section;
	// a concurrent trade cannot shift the reserves between the expected
	// amounts being computed and the shares being redeemed.
	p.Lock()
	defer p.Unlock()

	view := p.ViewLocked()
	if view.TotalShares.Sign() == 0 {
		return nil, nil, ErrZeroAmount
	}
	expected0 := new(big.Int).Mul(shares, view.Reserve0)
	expected0.Div(expected0, view.TotalShares)
	expected1 := new(big.Int).Mul(shares, view.Reserve1)
	expected1.Div(expected1, view.TotalShares)

	expectedA, expectedB := expected0, expected1
	if tokenA == view.Token1 {
		expectedA, expectedB = expected1, expected0
	}
	if expectedA.Cmp(minAmountA) < 0 || expectedB.Cmp(minAmountB) < 0 {
		return nil, nil, ErrSlippageExceeded
	}

	undo := &undoLog{}
	if err := p.TransferSharesFromLocked(r.addr, caller, p.Address(), shares); err != nil {
		return nil, nil, fmt.Errorf("%w: shares: %v", ErrTransferFailed, err)
	}
	undo.push(func() { p.TransferSharesLocked(p.Address(), caller, shares) })

	amount0, amount1, err := p.RemoveLiquidityLocked(caller)
	if err != nil {
		undo.unwind()
		return nil, nil, err
	}

	amountA, amountB = amount0, amount1
	if tokenA == view.Token1 {
		amountA, amountB = amount1, amount0
	}
	r.logger.Debug("liquidity removed",
		"caller", caller, "pool", p.Address(),
		"shares", shares, "amount_a", amountA, "amount_b", amountB)
	return amountA, amountB, nil
}

// balanceContribution trims the requested amounts to the pool's current
// reserve ratio. On the very first deposit both amounts are taken as-is and
// set the initial price.
func (r *Router) balanceContribution(view pool.View, tokenA common.Address, amountA, amountB, minAmountA, minAmountB *big.Int) (usedA, usedB *big.Int, err error) {
	reserveA, reserveB := view.Reserve0, view.Reserve1
	if tokenA == view.Token1 {
		reserveA, reserveB = view.Reserve1, view.Reserve0
	}

	if reserveA.Sign() == 0 && reserveB.Sign() == 0 {
		return new(big.Int).Set(amountA), new(big.Int).Set(amountB), nil
	}

	optimalB := new(big.Int).Mul(amountA, reserveB)
	optimalB.Div(optimalB, reserveA)
	if optimalB.Cmp(amountB) <= 0 {
		if optimalB.Cmp(minAmountB) < 0 {
			return nil, nil, ErrSlippageExceeded
		}
		return new(big.Int).Set(amountA), optimalB, nil
	}

	optimalA := new(big.Int).Mul(amountB, reserveA)
	optimalA.Div(optimalA, reserveB)
	if optimalA.Cmp(amountA) > 0 || optimalA.Cmp(minAmountA) < 0 {
		return nil, nil, ErrSlippageExceeded
	}
	return optimalA, new(big.Int).Set(amountB), nil
}
