package router

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/pool"
)

// undoLog is a compensating-action log. Actions pushed while a multi-step
// operation progresses are executed in reverse order if a later step fails,
// so no partial execution is ever observable.
type undoLog struct {
	steps []func()
}

func (u *undoLog) push(step func()) {
	u.steps = append(u.steps, step)
}

func (u *undoLog) unwind() {
	for i := len(u.steps) - 1; i >= 0; i-- {
		u.steps[i]()
	}
	u.steps = nil
}

// lockPools acquires the critical section of every distinct pool in the
// slice and returns the locked set. Acquisition follows a fixed global
// order (ascending pool address) so two trades over overlapping pools
// cannot deadlock when their paths run in opposite directions.
func lockPools(pools []*pool.Pool) []*pool.Pool {
	seen := make(map[common.Address]struct{}, len(pools))
	distinct := make([]*pool.Pool, 0, len(pools))
	for _, p := range pools {
		if _, ok := seen[p.Address()]; ok {
			continue
		}
		seen[p.Address()] = struct{}{}
		distinct = append(distinct, p)
	}
	sort.Slice(distinct, func(i, j int) bool {
		return bytes.Compare(distinct[i].Address().Bytes(), distinct[j].Address().Bytes()) < 0
	})
	for _, p := range distinct {
		p.Lock()
	}
	return distinct
}

// unlockPools releases a set locked by lockPools, in reverse order.
func unlockPools(pools []*pool.Pool) {
	for i := len(pools) - 1; i >= 0; i-- {
		pools[i].Unlock()
	}
}

// QuoteMultiHop prices inputAmount along a path of asset identities,
// feeding each hop's output into the next hop. Pure: no state changes, and
// no protocol fee is deducted (the fee applies at execution time, see
// SwapExactInput).
func (r *Router) QuoteMultiHop(path []common.Address, inputAmount *big.Int) (*big.Int, error) {
	pools, err := r.pathPools(path)
	if err != nil {
		return nil, err
	}
	amount := inputAmount
	for i, p := range pools {
		amount, err = p.Quote(path[i], amount)
		if err != nil {
			return nil, err
		}
	}
	return amount, nil
}

// SwapExactInput pulls inputAmount of path[0] from caller, skims the
// protocol fee to the fee recipient, routes the net amount through every
// hop and pays the final output of path[len-1] to caller. Execution is
// all-or-nothing: if any hop fails, every transfer and every pool mutation
// made by this call is rolled back.
//
// The caller must have approved the router on the ledger of path[0].
func (r *Router) SwapExactInput(caller common.Address, path []common.Address, inputAmount, minOutputAmount *big.Int) (out *big.Int, err error) {
	timer := prometheus.NewTimer(r.metrics.operationDuration.WithLabelValues("swap"))
	defer timer.ObserveDuration()
	defer func() { r.metrics.observe("swap", err) }()

	if caller == (common.Address{}) {
		return nil, ledger.ErrZeroAddress
	}
	if inputAmount == nil || inputAmount.Sign() < 0 {
		return nil, ledger.ErrInvalidAmount
	}
	if inputAmount.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	if minOutputAmount == nil {
		minOutputAmount = new(big.Int)
	}

	pools, err := r.pathPools(path)
	if err != nil {
		return nil, err
	}
	ledgerIn, err := r.book.MustGet(path[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	feeAmount, netAmount, feeRecipient := r.feeSplit(inputAmount)

	// The whole hop sequence is one critical section: every touched pool
	// stays locked from before the input deposit until commit or rollback,
	// so no concurrent operation can settle or clobber an in-flight hop.
	locked := lockPools(pools)
	defer unlockPools(locked)

	undo := &undoLog{}
	if feeAmount.Sign() > 0 {
		if err := ledgerIn.TransferFrom(r.addr, caller, feeRecipient, feeAmount); err != nil {
			return nil, fmt.Errorf("%w: protocol fee: %v", ErrTransferFailed, err)
		}
		undo.push(func() { ledgerIn.Transfer(feeRecipient, caller, feeAmount) })
	}

	if err := ledgerIn.TransferFrom(r.addr, caller, pools[0].Address(), netAmount); err != nil {
		undo.unwind()
		return nil, fmt.Errorf("%w: input pull: %v", ErrTransferFailed, err)
	}
	undo.push(func() { ledgerIn.Transfer(pools[0].Address(), caller, netAmount) })

	amount := netAmount
	for i, p := range pools {
		last := i == len(pools)-1
		recipient := caller
		minOut := minOutputAmount
		if !last {
			recipient = pools[i+1].Address()
			minOut = new(big.Int)
		}

		ledgerOut, err := r.book.MustGet(path[i+1])
		if err != nil {
			undo.unwind()
			return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}

		snap := p.SnapshotLocked()
		hopOut, err := p.SwapLocked(minOut, recipient, path[i])
		if err != nil {
			undo.unwind()
			if last && errors.Is(err, pool.ErrInsufficientOutputAmount) {
				return nil, fmt.Errorf("%w: %v", ErrSlippageExceeded, err)
			}
			return nil, err
		}
		undo.push(func() {
			ledgerOut.Transfer(recipient, p.Address(), hopOut)
			p.RestoreLocked(snap)
		})
		amount = hopOut
	}

	r.metrics.swapHops.Observe(float64(len(pools)))
	r.logger.Debug("swap executed",
		"caller", caller, "hops", len(pools),
		"amount_in", inputAmount, "fee", feeAmount, "amount_out", amount)
	return amount, nil
}

// pathPools resolves the pool for every adjacent pair of the path.
func (r *Router) pathPools(path []common.Address) ([]*pool.Pool, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("%w: need at least two assets, got %d", ErrInvalidPath, len(path))
	}
	pools := make([]*pool.Pool, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		p, ok := r.registry.GetPool(path[i], path[i+1])
		if !ok {
			return nil, fmt.Errorf("%w: no pool for %s/%s", ErrInvalidPath, path[i], path[i+1])
		}
		pools = append(pools, p)
	}
	return pools, nil
}
