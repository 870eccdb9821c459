package pool

import (
	"errors"
	"math/big"
)

// FeeFactor is the fee scale: fee rates are expressed in parts per 100000,
// so a rate of 2000 is 2%.
const FeeFactor = 100000

var (
	feeFactor = big.NewInt(FeeFactor)

	// MinimumLiquidity is the share amount permanently locked on the very
	// first mint of a pool, credited to the zero address. It keeps the pool
	// first depositor from manipulating the price and keeps the share
	// supply non-zero afterwards.
	MinimumLiquidity = big.NewInt(1000)
)

var (
	// ErrInvalidAmount is returned when an input amount is nil or negative.
	ErrInvalidAmount = errors.New("amount must be non-nil and non-negative")
)

// amountOut prices an input amount against a constant-product pool with the
// fee retained in the reserves:
//
//	amountInWithFee = amountIn * (FeeFactor - feeRateBps) / FeeFactor
//	amountOut       = reserveOut * amountInWithFee / (reserveIn + amountInWithFee)
//
// Integer division truncates at each step; the order of operations is part
// of the contract and must not be "simplified".
func amountOut(amountIn, reserveIn, reserveOut *big.Int, feeRateBps uint64) *big.Int {
	feeMultiplier := new(big.Int).Sub(feeFactor, new(big.Int).SetUint64(feeRateBps))

	amountInWithFee := new(big.Int).Mul(amountIn, feeMultiplier)
	amountInWithFee.Div(amountInWithFee, feeFactor)

	denominator := new(big.Int).Add(reserveIn, amountInWithFee)
	if denominator.Sign() == 0 {
		return new(big.Int)
	}

	out := new(big.Int).Mul(reserveOut, amountInWithFee)
	return out.Div(out, denominator)
}

// liquidityMinted computes the shares to mint for a contribution of
// (amount0, amount1) against the current reserves and share supply.
//
// On the first mint the contribution is valued at the geometric mean of the
// two amounts, minus MinimumLiquidity which is locked forever. Afterwards
// the contribution is valued at the smaller of the two per-asset
// proportional shares, so a lopsided deposit is never over-rewarded; the
// excess of the larger side stays in the pool as donated value.
func liquidityMinted(amount0, amount1, reserve0, reserve1, totalShares *big.Int) (minted, locked *big.Int) {
	if totalShares.Sign() == 0 {
		product := new(big.Int).Mul(amount0, amount1)
		minted = product.Sqrt(product)
		minted.Sub(minted, MinimumLiquidity)
		if minted.Sign() < 0 {
			minted.SetInt64(0)
		}
		return minted, new(big.Int).Set(MinimumLiquidity)
	}

	if reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		// Unreachable while shares are outstanding; refuse to divide.
		return new(big.Int), new(big.Int)
	}

	share0 := new(big.Int).Mul(amount0, totalShares)
	share0.Div(share0, reserve0)
	share1 := new(big.Int).Mul(amount1, totalShares)
	share1.Div(share1, reserve1)

	if share0.Cmp(share1) < 0 {
		return share0, new(big.Int)
	}
	return share1, new(big.Int)
}

// proportionalAmounts computes the reserve slice a share amount redeems:
// shares * reserve_i / totalShares for each side, truncating.
func proportionalAmounts(shares, reserve0, reserve1, totalShares *big.Int) (amount0, amount1 *big.Int) {
	amount0 = new(big.Int).Mul(shares, reserve0)
	amount0.Div(amount0, totalShares)
	amount1 = new(big.Int).Mul(shares, reserve1)
	amount1.Div(amount1, totalShares)
	return amount0, amount1
}
