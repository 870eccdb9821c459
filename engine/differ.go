package engine

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/defistate-amm-go/pool"
)

// StateDiff summarizes the pool-level changes between two snapshots.
type StateDiff struct {
	FromTimestamp uint64           `json:"fromTimestamp"`
	ToTimestamp   uint64           `json:"toTimestamp"`
	Additions     []pool.View      `json:"additions,omitempty"`
	Updates       []pool.View      `json:"updates,omitempty"`
	Removals      []common.Address `json:"removals,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d StateDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Removals) == 0
}

// Diff computes the pool changes from old to new. Pools live for the
// process lifetime, so Removals stays empty in practice; the field exists
// so consumers can treat the diff shape generically.
//
// A pool counts as updated when its reserves, fee rate or share supply
// changed; the comparison is field-by-field on the few mutable fields
// rather than a reflective deep-equal.
func Diff(old, new *State) StateDiff {
	oldPools := make(map[common.Address]pool.View, len(old.Pools))
	for _, v := range old.Pools {
		oldPools[v.Address] = v
	}
	newPools := make(map[common.Address]pool.View, len(new.Pools))
	for _, v := range new.Pools {
		newPools[v.Address] = v
	}

	diff := StateDiff{
		FromTimestamp: old.Timestamp,
		ToTimestamp:   new.Timestamp,
	}

	for _, v := range new.Pools {
		prev, exists := oldPools[v.Address]
		if !exists {
			diff.Additions = append(diff.Additions, v)
			continue
		}
		if prev.Reserve0.Cmp(v.Reserve0) != 0 ||
			prev.Reserve1.Cmp(v.Reserve1) != 0 ||
			prev.FeeRateBps != v.FeeRateBps ||
			prev.TotalShares.Cmp(v.TotalShares) != 0 {
			diff.Updates = append(diff.Updates, v)
		}
	}

	for addr := range oldPools {
		if _, exists := newPools[addr]; !exists {
			diff.Removals = append(diff.Removals, addr)
		}
	}

	return diff
}
