package router_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/registry"
	"github.com/defistate/defistate-amm-go/router"
)

func TestRouterAddLiquidity(t *testing.T) {
	t.Run("FirstDepositTakesBothAmounts", func(t *testing.T) {
		f := newRouterFixture(t, 1000)
		p, err := f.registry.CreatePool(f.owner, f.uni.Asset(), f.dai.Asset(), 2000)
		require.NoError(t, err)

		usedA, usedB, minted, err := f.router.AddLiquidity(f.supplier,
			f.uni.Asset(), f.dai.Asset(), whole(t, 10), whole(t, 5), nil, nil)
		require.NoError(t, err)

		assert.Equal(t, whole(t, 10), usedA)
		assert.Equal(t, whole(t, 5), usedB)
		assert.Equal(t, bigFromString(t, "7071067811865474244"), minted)
		assert.Equal(t, minted, p.SharesOf(f.supplier))

		reserve0, reserve1, _ := p.LatestReserves()
		assert.Equal(t, whole(t, 5), reserve0)
		assert.Equal(t, whole(t, 10), reserve1)
	})

	t.Run("SecondDepositTrimsToReserveRatio", func(t *testing.T) {
		f := newRouterFixture(t, 1000)
		p := f.seedPool(t, f.uni.Asset(), f.dai.Asset(), whole(t, 10), whole(t, 5))

		uniBefore := f.uni.BalanceOf(f.trader)

		// The trader offers far more UNI than the 2:1 reserve ratio needs;
		// the router only pulls the balanced portion.
		usedA, usedB, minted, err := f.router.AddLiquidity(f.trader,
			f.dai.Asset(), f.uni.Asset(), whole(t, 2), whole(t, 10), nil, nil)
		require.NoError(t, err)

		assert.Equal(t, whole(t, 2), usedA)
		assert.Equal(t, whole(t, 4), usedB)
		assert.Equal(t, bigFromString(t, "2828427124746190097"), minted)
		assert.Equal(t, new(big.Int).Sub(uniBefore, whole(t, 4)), f.uni.BalanceOf(f.trader))
		assert.Equal(t, minted, p.SharesOf(f.trader))
	})

	t.Run("TrimsTheOtherSideToo", func(t *testing.T) {
		f := newRouterFixture(t, 1000)
		f.seedPool(t, f.uni.Asset(), f.dai.Asset(), whole(t, 10), whole(t, 5))

		// Offering excess DAI against scarce UNI trims the DAI side.
		usedA, usedB, _, err := f.router.AddLiquidity(f.trader,
			f.dai.Asset(), f.uni.Asset(), whole(t, 10), whole(t, 4), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, whole(t, 2), usedA)
		assert.Equal(t, whole(t, 4), usedB)
	})

	t.Run("SlippageWhenTrimmedBelowMinimum", func(t *testing.T) {
		f := newRouterFixture(t, 1000)
		p := f.seedPool(t, f.uni.Asset(), f.dai.Asset(), whole(t, 10), whole(t, 5))

		sharesBefore := p.SharesOf(f.trader)
		uniBefore := f.uni.BalanceOf(f.trader)

		_, _, _, err := f.router.AddLiquidity(f.trader,
			f.dai.Asset(), f.uni.Asset(), whole(t, 2), whole(t, 10), nil, whole(t, 5))
		assert.ErrorIs(t, err, router.ErrSlippageExceeded)

		// Nothing was pulled.
		assert.Equal(t, sharesBefore, p.SharesOf(f.trader))
		assert.Equal(t, uniBefore, f.uni.BalanceOf(f.trader))
	})

	t.Run("RejectsBadArguments", func(t *testing.T) {
		f := newRouterFixture(t, 1000)
		f.seedPool(t, f.uni.Asset(), f.dai.Asset(), whole(t, 10), whole(t, 5))

		_, _, _, err := f.router.AddLiquidity(common.Address{},
			f.uni.Asset(), f.dai.Asset(), whole(t, 1), whole(t, 1), nil, nil)
		assert.ErrorIs(t, err, ledger.ErrZeroAddress)

		_, _, _, err = f.router.AddLiquidity(f.trader,
			f.uni.Asset(), f.dai.Asset(), big.NewInt(0), whole(t, 1), nil, nil)
		assert.ErrorIs(t, err, router.ErrZeroAmount)

		_, _, _, err = f.router.AddLiquidity(f.trader,
			f.uni.Asset(), f.bat.Asset(), whole(t, 1), whole(t, 1), nil, nil)
		assert.ErrorIs(t, err, registry.ErrPoolNotFound)
	})

	t.Run("RollsBackFirstPullWhenSecondFails", func(t *testing.T) {
		f := newRouterFixture(t, 1000)
		f.seedPool(t, f.uni.Asset(), f.dai.Asset(), whole(t, 10), whole(t, 5))

		// The poor account holds UNI but never approved DAI.
		poor := addr(8)
		require.NoError(t, f.uni.Mint(poor, whole(t, 10)))
		require.NoError(t, f.dai.Mint(poor, whole(t, 10)))
		require.NoError(t, f.uni.Approve(poor, f.router.Address(), whole(t, 10)))

		_, _, _, err := f.router.AddLiquidity(poor,
			f.uni.Asset(), f.dai.Asset(), whole(t, 2), whole(t, 1), nil, nil)
		assert.ErrorIs(t, err, router.ErrTransferFailed)
		assert.Equal(t, whole(t, 10), f.uni.BalanceOf(poor))
		assert.Equal(t, whole(t, 10), f.dai.BalanceOf(poor))
	})
}

func TestRouterRemoveLiquidity(t *testing.T) {
	t.Run("RedeemsInCallerOrientation", func(t *testing.T) {
		f := newRouterFixture(t, 1000)
		p := f.seedPool(t, f.uni.Asset(), f.dai.Asset(), whole(t, 10), whole(t, 5))
		shares := p.SharesOf(f.supplier)
		require.NoError(t, p.ApproveShares(f.supplier, f.router.Address(), shares))

		uniBefore := f.uni.BalanceOf(f.supplier)
		daiBefore := f.dai.BalanceOf(f.supplier)

		amountA, amountB, err := f.router.RemoveLiquidity(f.supplier,
			f.uni.Asset(), f.dai.Asset(), shares, nil, nil)
		require.NoError(t, err)

		// amountA follows tokenA (UNI) regardless of canonical pool order.
		assert.Equal(t, bigFromString(t, "9999999999999998585"), amountA)
		assert.Equal(t, bigFromString(t, "4999999999999999292"), amountB)
		assert.Equal(t, new(big.Int).Add(uniBefore, amountA), f.uni.BalanceOf(f.supplier))
		assert.Equal(t, new(big.Int).Add(daiBefore, amountB), f.dai.BalanceOf(f.supplier))
		assert.Equal(t, big.NewInt(0), p.SharesOf(f.supplier))
	})

	t.Run("PartialRemoval", func(t *testing.T) {
		f := newRouterFixture(t, 1000)
		p := f.seedPool(t, f.uni.Asset(), f.dai.Asset(), whole(t, 10), whole(t, 5))
		shares := p.SharesOf(f.supplier)
		require.NoError(t, p.ApproveShares(f.supplier, f.router.Address(), shares))

		half := new(big.Int).Div(shares, big.NewInt(2))
		_, _, err := f.router.RemoveLiquidity(f.supplier,
			f.uni.Asset(), f.dai.Asset(), half, nil, nil)
		require.NoError(t, err)

		remaining := new(big.Int).Sub(shares, half)
		assert.Equal(t, remaining, p.SharesOf(f.supplier))
	})

	t.Run("SlippageCheckedBeforeSharesMove", func(t *testing.T) {
		f := newRouterFixture(t, 1000)
		p := f.seedPool(t, f.uni.Asset(), f.dai.Asset(), whole(t, 10), whole(t, 5))
		shares := p.SharesOf(f.supplier)
		require.NoError(t, p.ApproveShares(f.supplier, f.router.Address(), shares))

		_, _, err := f.router.RemoveLiquidity(f.supplier,
			f.uni.Asset(), f.dai.Asset(), shares, whole(t, 10), nil)
		assert.ErrorIs(t, err, router.ErrSlippageExceeded)

		// The failed attempt consumed neither shares nor allowance.
		assert.Equal(t, shares, p.SharesOf(f.supplier))
		assert.Equal(t, shares, p.ShareAllowance(f.supplier, f.router.Address()))
	})

	t.Run("RejectsBadArguments", func(t *testing.T) {
		f := newRouterFixture(t, 1000)
		f.seedPool(t, f.uni.Asset(), f.dai.Asset(), whole(t, 10), whole(t, 5))

		_, _, err := f.router.RemoveLiquidity(f.supplier,
			f.uni.Asset(), f.dai.Asset(), big.NewInt(0), nil, nil)
		assert.ErrorIs(t, err, router.ErrZeroAmount)

		_, _, err = f.router.RemoveLiquidity(f.supplier,
			f.uni.Asset(), f.bat.Asset(), big.NewInt(1), nil, nil)
		assert.ErrorIs(t, err, registry.ErrPoolNotFound)
	})

	t.Run("FailsWithoutShareAllowance", func(t *testing.T) {
		f := newRouterFixture(t, 1000)
		p := f.seedPool(t, f.uni.Asset(), f.dai.Asset(), whole(t, 10), whole(t, 5))
		shares := p.SharesOf(f.supplier)

		_, _, err := f.router.RemoveLiquidity(f.supplier,
			f.uni.Asset(), f.dai.Asset(), shares, nil, nil)
		assert.ErrorIs(t, err, router.ErrTransferFailed)
		assert.Equal(t, shares, p.SharesOf(f.supplier))
	})
}
