// Package registry maps canonicalized asset pairs to liquidity pools. It is
// the factory for pools: creation derives a deterministic pool address from
// the canonical pair, initializes the pool and registers it so that lookups
// from either argument order resolve to the same instance.
package registry

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/pool"
)

var (
	// ErrPoolExists is returned when a pool for the pair already exists.
	ErrPoolExists = errors.New("pool already exists for pair")
	// ErrPoolNotFound is returned when no pool exists for the pair.
	ErrPoolNotFound = errors.New("no pool for pair")
	// ErrUnauthorized is returned when pool creation is attempted by a
	// non-owner account.
	ErrUnauthorized = errors.New("caller is not the owner")
)

// Registry owns every pool instance for the process lifetime: the pool set
// only grows, and pools are handed out by reference, never replaced.
type Registry struct {
	owner common.Address
	book  *ledger.Book

	mu       sync.RWMutex
	pools    map[PairKey]*pool.Pool
	poolList []*pool.Pool
}

// New creates an empty registry. owner is the privileged account allowed to
// create pools; it also becomes the owner of every created pool.
func New(owner common.Address, book *ledger.Book) *Registry {
	return &Registry{
		owner: owner,
		book:  book,
		pools: make(map[PairKey]*pool.Pool),
	}
}

// Owner returns the account authorized to create pools.
func (r *Registry) Owner() common.Address { return r.owner }

// CreatePool constructs, initializes and registers a pool for the pair.
// The asset rules are the pool's: zero identities and identical identities
// are rejected. Creating a second pool for the same pair fails regardless
// of argument order.
func (r *Registry) CreatePool(caller, tokenA, tokenB common.Address, feeRateBps uint64) (*pool.Pool, error) {
	if caller != r.owner {
		return nil, ErrUnauthorized
	}
	if tokenA == (common.Address{}) || tokenB == (common.Address{}) {
		return nil, pool.ErrInvalidAsset
	}
	if tokenA == tokenB {
		return nil, pool.ErrIdenticalAssets
	}

	key := NewPairKey(tokenA, tokenB)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pools[key]; exists {
		return nil, ErrPoolExists
	}

	p := pool.New(poolAddress(key), r.owner, r.book)
	if err := p.Init(tokenA, tokenB, feeRateBps); err != nil {
		return nil, err
	}

	r.pools[key] = p
	r.poolList = append(r.poolList, p)
	return p, nil
}

// GetPool returns the pool for the pair, from either argument order.
func (r *Registry) GetPool(tokenA, tokenB common.Address) (*pool.Pool, bool) {
	key := NewPairKey(tokenA, tokenB)
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[key]
	return p, ok
}

// MustGetPool returns the pool for the pair or ErrPoolNotFound.
func (r *Registry) MustGetPool(tokenA, tokenB common.Address) (*pool.Pool, error) {
	if p, ok := r.GetPool(tokenA, tokenB); ok {
		return p, nil
	}
	return nil, ErrPoolNotFound
}

// PoolExists reports whether a pool exists for the pair, from either order.
func (r *Registry) PoolExists(tokenA, tokenB common.Address) bool {
	_, ok := r.GetPool(tokenA, tokenB)
	return ok
}

// PoolAddress returns the address of the pair's pool, or the zero address
// if no pool exists.
func (r *Registry) PoolAddress(tokenA, tokenB common.Address) common.Address {
	if p, ok := r.GetPool(tokenA, tokenB); ok {
		return p.Address()
	}
	return common.Address{}
}

// PoolCount returns the number of created pools.
func (r *Registry) PoolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.poolList)
}

// AllPools returns the created pools in creation order.
func (r *Registry) AllPools() []*pool.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*pool.Pool, len(r.poolList))
	copy(out, r.poolList)
	return out
}

// poolAddress derives a deterministic account for a pool from its canonical
// pair key, so recreating the same deployment yields the same addresses.
func poolAddress(key PairKey) common.Address {
	return common.BytesToAddress(crypto.Keccak256(key.Bytes())[12:])
}
