package pool_test

import (
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/pool"
)

func addr(n byte) common.Address {
	var a common.Address
	a[19] = n
	return a
}

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "failed to parse big.Int from string: %s", s)
	return v
}

// poolFixture wires a two-token ledger book and one uninitialized pool.
// dai sorts below uni, so dai is token0 once the pool is initialized.
type poolFixture struct {
	book     *ledger.Book
	dai      *ledger.Token
	uni      *ledger.Token
	pool     *pool.Pool
	owner    common.Address
	supplier common.Address
	trader   common.Address
}

func newPoolFixture(t *testing.T) *poolFixture {
	t.Helper()

	f := &poolFixture{
		book:     ledger.NewBook(),
		owner:    addr(1),
		supplier: addr(2),
		trader:   addr(3),
	}

	var err error
	f.dai, err = ledger.NewToken(addr(0x10), "DAI Token", "DAI")
	require.NoError(t, err)
	f.uni, err = ledger.NewToken(addr(0x20), "UNI Token", "UNI")
	require.NoError(t, err)
	require.NoError(t, f.book.Register(f.dai))
	require.NoError(t, f.book.Register(f.uni))

	faucet := bigFromString(t, "1000000000000000000000")
	for _, holder := range []common.Address{f.supplier, f.trader} {
		require.NoError(t, f.dai.Mint(holder, faucet))
		require.NoError(t, f.uni.Mint(holder, faucet))
	}

	f.pool = pool.New(addr(0xf0), f.owner, f.book)
	return f
}

// seed initializes the pool at a 2% fee and deposits 5 DAI / 10 UNI (in
// whole-unit terms) as the supplier's first liquidity.
func (f *poolFixture) seed(t *testing.T) *big.Int {
	t.Helper()
	require.NoError(t, f.pool.Init(f.uni.Asset(), f.dai.Asset(), 2000))
	require.NoError(t, f.dai.Transfer(f.supplier, f.pool.Address(), bigFromString(t, "5000000000000000000")))
	require.NoError(t, f.uni.Transfer(f.supplier, f.pool.Address(), bigFromString(t, "10000000000000000000")))
	minted, err := f.pool.AddLiquidity(f.supplier)
	require.NoError(t, err)
	return minted
}

func TestPoolInit(t *testing.T) {
	t.Run("RejectsZeroAsset", func(t *testing.T) {
		f := newPoolFixture(t)
		err := f.pool.Init(common.Address{}, f.dai.Asset(), 2000)
		assert.ErrorIs(t, err, pool.ErrInvalidAsset)
	})

	t.Run("RejectsIdenticalAssets", func(t *testing.T) {
		f := newPoolFixture(t)
		err := f.pool.Init(f.dai.Asset(), f.dai.Asset(), 2000)
		assert.ErrorIs(t, err, pool.ErrIdenticalAssets)
	})

	t.Run("RejectsFeeAtOrAboveFactor", func(t *testing.T) {
		f := newPoolFixture(t)
		err := f.pool.Init(f.dai.Asset(), f.uni.Asset(), pool.FeeFactor)
		assert.ErrorIs(t, err, pool.ErrInvalidFeeRate)
	})

	t.Run("RejectsUnregisteredAsset", func(t *testing.T) {
		f := newPoolFixture(t)
		err := f.pool.Init(f.dai.Asset(), addr(0x99), 2000)
		assert.ErrorIs(t, err, pool.ErrInvalidAsset)
	})

	t.Run("StoresCanonicalPair", func(t *testing.T) {
		f := newPoolFixture(t)
		require.NoError(t, f.pool.Init(f.uni.Asset(), f.dai.Asset(), 2000))

		token0, token1 := f.pool.Tokens()
		assert.Equal(t, f.dai.Asset(), token0)
		assert.Equal(t, f.uni.Asset(), token1)
		assert.Equal(t, uint64(2000), f.pool.FeeRate())
		assert.True(t, f.pool.Initialized())
	})

	t.Run("RejectsSecondInit", func(t *testing.T) {
		f := newPoolFixture(t)
		require.NoError(t, f.pool.Init(f.dai.Asset(), f.uni.Asset(), 2000))
		err := f.pool.Init(f.dai.Asset(), f.uni.Asset(), 3000)
		assert.ErrorIs(t, err, pool.ErrAlreadyInitialized)
		assert.Equal(t, uint64(2000), f.pool.FeeRate())
	})
}

func TestPoolRequiresInit(t *testing.T) {
	f := newPoolFixture(t)
	one := big.NewInt(1)

	_, err := f.pool.Quote(f.dai.Asset(), one)
	assert.ErrorIs(t, err, pool.ErrNotInitialized)

	_, err = f.pool.Swap(big.NewInt(0), f.trader, f.dai.Asset())
	assert.ErrorIs(t, err, pool.ErrNotInitialized)

	_, err = f.pool.AddLiquidity(f.supplier)
	assert.ErrorIs(t, err, pool.ErrNotInitialized)

	_, _, err = f.pool.RemoveLiquidity(f.supplier)
	assert.ErrorIs(t, err, pool.ErrNotInitialized)

	assert.ErrorIs(t, f.pool.Sync(), pool.ErrNotInitialized)
	assert.ErrorIs(t, f.pool.SetFeeRate(f.owner, 500), pool.ErrNotInitialized)
}

func TestPoolAddLiquidity(t *testing.T) {
	t.Run("FirstMintLocksFloor", func(t *testing.T) {
		f := newPoolFixture(t)
		minted := f.seed(t)

		assert.Equal(t, bigFromString(t, "7071067811865474244"), minted)
		assert.Equal(t, minted, f.pool.SharesOf(f.supplier))
		assert.Equal(t, big.NewInt(1000), f.pool.SharesOf(common.Address{}))
		assert.Equal(t, bigFromString(t, "7071067811865475244"), f.pool.TotalShares())

		reserve0, reserve1, updatedAt := f.pool.LatestReserves()
		assert.Equal(t, bigFromString(t, "5000000000000000000"), reserve0)
		assert.Equal(t, bigFromString(t, "10000000000000000000"), reserve1)
		assert.False(t, updatedAt.IsZero())
	})

	t.Run("SupplyEqualsSumOfBalances", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)

		sum := new(big.Int)
		for _, bal := range f.pool.ShareBalances() {
			sum.Add(sum, bal)
		}
		assert.Equal(t, f.pool.TotalShares(), sum)
	})

	t.Run("ProportionalSecondMint", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)

		require.NoError(t, f.dai.Transfer(f.trader, f.pool.Address(), bigFromString(t, "1000000000000000000")))
		require.NoError(t, f.uni.Transfer(f.trader, f.pool.Address(), bigFromString(t, "2000000000000000000")))
		minted, err := f.pool.AddLiquidity(f.trader)
		require.NoError(t, err)

		// One fifth of the prior supply: the deposit matched the reserve
		// ratio exactly.
		assert.Equal(t, bigFromString(t, "1414213562373095048"), minted)
		assert.Equal(t, minted, f.pool.SharesOf(f.trader))
		// No further floor is locked after the first mint.
		assert.Equal(t, big.NewInt(1000), f.pool.SharesOf(common.Address{}))
	})

	t.Run("RejectsEmptyContribution", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)
		_, err := f.pool.AddLiquidity(f.trader)
		assert.ErrorIs(t, err, pool.ErrInsufficientLiquidityMinted)
	})

	t.Run("RejectsLopsidedContribution", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)

		require.NoError(t, f.uni.Transfer(f.trader, f.pool.Address(), bigFromString(t, "1000000000000000000")))
		_, err := f.pool.AddLiquidity(f.trader)
		assert.ErrorIs(t, err, pool.ErrInsufficientLiquidityMinted)
	})

	t.Run("RejectsZeroRecipient", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)
		_, err := f.pool.AddLiquidity(common.Address{})
		assert.ErrorIs(t, err, ledger.ErrZeroAddress)
	})
}

func TestPoolSwap(t *testing.T) {
	amountIn := "1000000000000000000"
	expectedOut := "446265938069216757"

	t.Run("QuoteMatchesExecution", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)

		in := bigFromString(t, amountIn)
		quoted, err := f.pool.Quote(f.uni.Asset(), in)
		require.NoError(t, err)
		assert.Equal(t, bigFromString(t, expectedOut), quoted)

		daiBefore := f.dai.BalanceOf(f.trader)
		require.NoError(t, f.uni.Transfer(f.trader, f.pool.Address(), in))
		out, err := f.pool.Swap(quoted, f.trader, f.uni.Asset())
		require.NoError(t, err)
		assert.Equal(t, quoted, out)
		assert.Equal(t, new(big.Int).Add(daiBefore, out), f.dai.BalanceOf(f.trader))

		reserve0, reserve1, _ := f.pool.LatestReserves()
		assert.Equal(t, bigFromString(t, "4553734061930783243"), reserve0)
		assert.Equal(t, bigFromString(t, "11000000000000000000"), reserve1)
		// Swaps never touch the share supply.
		assert.Equal(t, bigFromString(t, "7071067811865475244"), f.pool.TotalShares())
	})

	t.Run("ProductNeverShrinks", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)

		r0, r1, _ := f.pool.LatestReserves()
		before := new(big.Int).Mul(r0, r1)

		require.NoError(t, f.uni.Transfer(f.trader, f.pool.Address(), bigFromString(t, amountIn)))
		_, err := f.pool.Swap(big.NewInt(0), f.trader, f.uni.Asset())
		require.NoError(t, err)

		r0, r1, _ = f.pool.LatestReserves()
		after := new(big.Int).Mul(r0, r1)
		assert.GreaterOrEqual(t, after.Cmp(before), 0)
	})

	t.Run("RejectsWithoutDeposit", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)
		_, err := f.pool.Swap(big.NewInt(0), f.trader, f.uni.Asset())
		assert.ErrorIs(t, err, pool.ErrInsufficientInputAmount)
	})

	t.Run("RejectsOutputBelowMinimum", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)

		in := bigFromString(t, amountIn)
		require.NoError(t, f.uni.Transfer(f.trader, f.pool.Address(), in))
		tooHigh := new(big.Int).Add(bigFromString(t, expectedOut), big.NewInt(1))
		_, err := f.pool.Swap(tooHigh, f.trader, f.uni.Asset())
		assert.ErrorIs(t, err, pool.ErrInsufficientOutputAmount)

		// Reserves are untouched; the deposit stays unsettled and a retry
		// with an achievable minimum succeeds.
		reserve0, reserve1, _ := f.pool.LatestReserves()
		assert.Equal(t, bigFromString(t, "5000000000000000000"), reserve0)
		assert.Equal(t, bigFromString(t, "10000000000000000000"), reserve1)

		out, err := f.pool.Swap(bigFromString(t, expectedOut), f.trader, f.uni.Asset())
		require.NoError(t, err)
		assert.Equal(t, bigFromString(t, expectedOut), out)
	})

	t.Run("RejectsDustInput", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)

		require.NoError(t, f.uni.Transfer(f.trader, f.pool.Address(), big.NewInt(1)))
		_, err := f.pool.Swap(big.NewInt(0), f.trader, f.uni.Asset())
		assert.ErrorIs(t, err, pool.ErrInsufficientOutputAmount)
	})

	t.Run("RejectsForeignAsset", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)
		_, err := f.pool.Swap(big.NewInt(0), f.trader, addr(0x99))
		assert.ErrorIs(t, err, pool.ErrInvalidAsset)
	})

	t.Run("RejectsZeroRecipient", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)
		_, err := f.pool.Swap(big.NewInt(0), common.Address{}, f.uni.Asset())
		assert.ErrorIs(t, err, ledger.ErrZeroAddress)
	})
}

func TestPoolRemoveLiquidity(t *testing.T) {
	t.Run("RedeemsProportionalSlice", func(t *testing.T) {
		f := newPoolFixture(t)
		minted := f.seed(t)

		daiBefore := f.dai.BalanceOf(f.supplier)
		uniBefore := f.uni.BalanceOf(f.supplier)

		// Transfer-then-call: shares move to the pool's account, then the
		// pool burns whatever it holds.
		require.NoError(t, f.pool.TransferShares(f.supplier, f.pool.Address(), minted))
		amount0, amount1, err := f.pool.RemoveLiquidity(f.supplier)
		require.NoError(t, err)

		assert.Equal(t, bigFromString(t, "4999999999999999292"), amount0)
		assert.Equal(t, bigFromString(t, "9999999999999998585"), amount1)
		assert.Equal(t, new(big.Int).Add(daiBefore, amount0), f.dai.BalanceOf(f.supplier))
		assert.Equal(t, new(big.Int).Add(uniBefore, amount1), f.uni.BalanceOf(f.supplier))

		// Only the locked floor remains outstanding, backed by the dust
		// left behind by truncation.
		assert.Equal(t, big.NewInt(1000), f.pool.TotalShares())
		assert.Equal(t, big.NewInt(0), f.pool.SharesOf(f.supplier))
		reserve0, reserve1, _ := f.pool.LatestReserves()
		assert.Equal(t, big.NewInt(708), reserve0)
		assert.Equal(t, big.NewInt(1415), reserve1)
	})

	t.Run("RejectsWithoutShares", func(t *testing.T) {
		f := newPoolFixture(t)
		f.seed(t)
		_, _, err := f.pool.RemoveLiquidity(f.supplier)
		assert.ErrorIs(t, err, pool.ErrInsufficientSharesBurned)
	})

	t.Run("ApprovedSpenderMovesShares", func(t *testing.T) {
		f := newPoolFixture(t)
		minted := f.seed(t)
		spender := addr(7)

		require.NoError(t, f.pool.ApproveShares(f.supplier, spender, minted))
		require.NoError(t, f.pool.TransferSharesFrom(spender, f.supplier, f.pool.Address(), minted))
		assert.Equal(t, big.NewInt(0), f.pool.ShareAllowance(f.supplier, spender))

		_, _, err := f.pool.RemoveLiquidity(f.supplier)
		require.NoError(t, err)
	})
}

func TestPoolSetFeeRate(t *testing.T) {
	f := newPoolFixture(t)
	f.seed(t)

	assert.ErrorIs(t, f.pool.SetFeeRate(f.trader, 500), pool.ErrUnauthorized)
	assert.ErrorIs(t, f.pool.SetFeeRate(f.owner, 2000), pool.ErrNoChange)
	assert.ErrorIs(t, f.pool.SetFeeRate(f.owner, pool.FeeFactor), pool.ErrInvalidFeeRate)

	require.NoError(t, f.pool.SetFeeRate(f.owner, 3000))
	assert.Equal(t, uint64(3000), f.pool.FeeRate())
}

func TestPoolSync(t *testing.T) {
	f := newPoolFixture(t)
	f.seed(t)

	// A direct transfer is invisible until Sync reconciles it in as
	// donated value.
	donation := bigFromString(t, "1000000000000000000")
	require.NoError(t, f.dai.Transfer(f.trader, f.pool.Address(), donation))

	reserve0, _, _ := f.pool.LatestReserves()
	assert.Equal(t, bigFromString(t, "5000000000000000000"), reserve0)

	require.NoError(t, f.pool.Sync())
	reserve0, _, _ = f.pool.LatestReserves()
	assert.Equal(t, bigFromString(t, "6000000000000000000"), reserve0)
	// Donations never mint shares.
	assert.Equal(t, bigFromString(t, "7071067811865475244"), f.pool.TotalShares())
}

func TestPoolView(t *testing.T) {
	f := newPoolFixture(t)
	f.seed(t)

	v := f.pool.View()
	assert.Equal(t, f.pool.Address(), v.Address)
	assert.Equal(t, f.dai.Asset(), v.Token0)
	assert.Equal(t, f.uni.Asset(), v.Token1)
	assert.Equal(t, bigFromString(t, "5000000000000000000"), v.Reserve0)
	assert.Equal(t, uint64(2000), v.FeeRateBps)

	// The view owns its copies.
	v.Reserve0.SetInt64(0)
	reserve0, _, _ := f.pool.LatestReserves()
	assert.Equal(t, bigFromString(t, "5000000000000000000"), reserve0)
}

func TestPoolSnapshotRestore(t *testing.T) {
	f := newPoolFixture(t)
	f.seed(t)

	snap := f.pool.Snapshot()
	in := bigFromString(t, "1000000000000000000")
	require.NoError(t, f.uni.Transfer(f.trader, f.pool.Address(), in))
	_, err := f.pool.Swap(big.NewInt(0), f.trader, f.uni.Asset())
	require.NoError(t, err)

	f.pool.Restore(snap)
	reserve0, reserve1, _ := f.pool.LatestReserves()
	assert.Equal(t, bigFromString(t, "5000000000000000000"), reserve0)
	assert.Equal(t, bigFromString(t, "10000000000000000000"), reserve1)
}

func TestPoolConcurrentSwaps(t *testing.T) {
	f := newPoolFixture(t)
	f.seed(t)

	r0, r1, _ := f.pool.LatestReserves()
	initialProduct := new(big.Int).Mul(r0, r1)

	var wg sync.WaitGroup
	swap := func(token *ledger.Token) {
		defer wg.Done()
		in := bigFromString(t, "10000000000000000")
		if err := token.Transfer(f.trader, f.pool.Address(), in); err != nil {
			return
		}
		// A concurrent swap may settle both deposits at once; failures from
		// racing settlements are acceptable, state corruption is not.
		f.pool.Swap(big.NewInt(0), f.trader, token.Asset())
	}

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go swap(f.uni)
		go swap(f.dai)
	}
	wg.Wait()
	require.NoError(t, f.pool.Sync())

	r0, r1, _ = f.pool.LatestReserves()
	finalProduct := new(big.Int).Mul(r0, r1)
	assert.GreaterOrEqual(t, finalProduct.Cmp(initialProduct), 0)

	// Reserves always match the pool's actual holdings after Sync.
	assert.Equal(t, f.dai.BalanceOf(f.pool.Address()), r0)
	assert.Equal(t, f.uni.BalanceOf(f.pool.Address()), r1)

	sum := new(big.Int)
	for _, bal := range f.pool.ShareBalances() {
		sum.Add(sum, bal)
	}
	assert.Equal(t, f.pool.TotalShares(), sum)
}

func TestPoolLockedVariants(t *testing.T) {
	f := newPoolFixture(t)
	f.seed(t)

	// A caller holding the pool's lock composes snapshot, swap and restore
	// into one atomic sequence through the *Locked variants.
	f.pool.Lock()
	snap := f.pool.SnapshotLocked()
	require.NoError(t, f.uni.Transfer(f.trader, f.pool.Address(), bigFromString(t, "1000000000000000000")))
	out, err := f.pool.SwapLocked(big.NewInt(0), f.trader, f.uni.Asset())
	require.NoError(t, err)
	assert.Equal(t, bigFromString(t, "446265938069216757"), out)
	f.pool.RestoreLocked(snap)
	f.pool.Unlock()

	reserve0, reserve1, _ := f.pool.LatestReserves()
	assert.Equal(t, bigFromString(t, "5000000000000000000"), reserve0)
	assert.Equal(t, bigFromString(t, "10000000000000000000"), reserve1)
}
