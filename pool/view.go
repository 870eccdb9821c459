package pool

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// View is a read-only snapshot of a pool's externally observable state.
// All big.Int fields are deep copies owned by the caller.
type View struct {
	Address     common.Address `json:"address"`
	Token0      common.Address `json:"token0"`
	Token1      common.Address `json:"token1"`
	Reserve0    *big.Int       `json:"reserve0"`
	Reserve1    *big.Int       `json:"reserve1"`
	FeeRateBps  uint64         `json:"feeRateBps"`
	TotalShares *big.Int       `json:"totalShares"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// View captures the current pool state in one consistent read.
func (p *Pool) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ViewLocked()
}

// ViewLocked is View for a caller that already holds the pool's lock.
func (p *Pool) ViewLocked() View {
	return View{
		Address:     p.addr,
		Token0:      p.token0,
		Token1:      p.token1,
		Reserve0:    new(big.Int).Set(p.reserve0),
		Reserve1:    new(big.Int).Set(p.reserve1),
		FeeRateBps:  p.feeRateBps,
		TotalShares: p.shares.TotalSupply(),
		UpdatedAt:   p.updatedAt,
	}
}

// Snapshot is an opaque capture of a pool's reserve state, used by the
// router to make a multi-hop trade all-or-nothing: every touched pool is
// snapshotted before the first hop and restored if a later hop fails.
type Snapshot struct {
	reserve0  *big.Int
	reserve1  *big.Int
	updatedAt time.Time
}

// Snapshot captures the reserve state for a later Restore.
func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.SnapshotLocked()
}

// SnapshotLocked is Snapshot for a caller that already holds the pool's lock.
func (p *Pool) SnapshotLocked() Snapshot {
	return Snapshot{
		reserve0:  new(big.Int).Set(p.reserve0),
		reserve1:  new(big.Int).Set(p.reserve1),
		updatedAt: p.updatedAt,
	}
}

// Restore rewinds the reserves to a previously captured Snapshot. Share
// balances are untouched: swaps never mint or burn shares, and snapshots
// are only taken around swap sequences.
func (p *Pool) Restore(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RestoreLocked(s)
}

// RestoreLocked is Restore for a caller that already holds the pool's lock.
func (p *Pool) RestoreLocked(s Snapshot) {
	p.reserve0.Set(s.reserve0)
	p.reserve1.Set(s.reserve1)
	p.updatedAt = s.updatedAt
}
