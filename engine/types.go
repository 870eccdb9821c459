package engine

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/defistate-amm-go/pool"
)

// State is a snapshot of the exchange, the unit handed to monitoring and
// query consumers. Each pool view is internally consistent; the set as a
// whole is assembled without a global lock, since pools are independent
// units of mutual exclusion.
type State struct {
	// Timestamp is the Unix nanosecond time the snapshot was assembled.
	Timestamp uint64 `json:"timestamp"`

	// ProtocolFeeBps is the router-level fee rate at snapshot time.
	ProtocolFeeBps uint64 `json:"protocolFeeBps"`

	// FeeRecipient accrues the protocol fee.
	FeeRecipient common.Address `json:"feeRecipient"`

	// Pools holds one view per created pool, in creation order.
	Pools []pool.View `json:"pools"`
}

// PoolByAddress returns the snapshot view of the pool at addr.
func (s *State) PoolByAddress(addr common.Address) (pool.View, bool) {
	for _, v := range s.Pools {
		if v.Address == addr {
			return v, true
		}
	}
	return pool.View{}, false
}
