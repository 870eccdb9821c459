package ledger

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Book is a concurrency-safe registry mapping asset identities to their
// ledgers. Pools and the router resolve the ledgers they move funds on
// through a Book.
type Book struct {
	mu      sync.RWMutex
	ledgers map[common.Address]Ledger
}

// NewBook creates an empty ledger registry.
func NewBook() *Book {
	return &Book{ledgers: make(map[common.Address]Ledger)}
}

// Register adds a ledger under its asset identity. Registering the zero
// address or an already-registered asset fails.
func (b *Book) Register(l Ledger) error {
	asset := l.Asset()
	if asset == (common.Address{}) {
		return ErrZeroAddress
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.ledgers[asset]; exists {
		return ErrAssetExists
	}
	b.ledgers[asset] = l
	return nil
}

// Get returns the ledger registered for asset, if any.
func (b *Book) Get(asset common.Address) (Ledger, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	l, ok := b.ledgers[asset]
	return l, ok
}

// MustGet returns the ledger for asset or ErrUnknownAsset.
func (b *Book) MustGet(asset common.Address) (Ledger, error) {
	if l, ok := b.Get(asset); ok {
		return l, nil
	}
	return nil, ErrUnknownAsset
}

// Assets returns the registered asset identities in unspecified order.
func (b *Book) Assets() []common.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()
	assets := make([]common.Address, 0, len(b.ledgers))
	for asset := range b.ledgers {
		assets = append(assets, asset)
	}
	return assets
}
