// Package engine assembles the exchange: the ledger book, the pool
// registry, the router and the wrapped-native adapter, behind one
// constructor and one snapshot query.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/pool"
	"github.com/defistate/defistate-amm-go/registry"
	"github.com/defistate/defistate-amm-go/router"
)

// Config holds everything needed to assemble an exchange.
type Config struct {
	// Owner is the privileged account: it creates pools and configures fees.
	Owner common.Address

	// FeeRecipient accrues the protocol fee; defaults to Owner when zero.
	FeeRecipient common.Address

	// OwnerFeeBps is the initial protocol fee rate in parts per pool.FeeFactor.
	OwnerFeeBps uint64

	Logger     router.Logger
	Registerer prometheus.Registerer
}

// Engine is the assembled exchange. It owns the ledger book and the native
// coin ledger, and exposes the registry and router it wires together.
type Engine struct {
	owner    common.Address
	book     *ledger.Book
	native   *ledger.Token
	wrapped  *ledger.WrappedNative
	registry *registry.Registry
	router   *router.Router
	logger   router.Logger
}

// New assembles an exchange: a fresh ledger book, a native coin ledger with
// its wrapped representation registered for pooling, an empty registry and
// a router configured per cfg.
func New(cfg *Config) (*Engine, error) {
	if cfg.Owner == (common.Address{}) {
		return nil, fmt.Errorf("config: Owner: %w", ledger.ErrZeroAddress)
	}
	if cfg.Logger == nil {
		return nil, errors.New("config: Logger cannot be nil")
	}
	if cfg.Registerer == nil {
		return nil, errors.New("config: Registerer cannot be nil")
	}
	feeRecipient := cfg.FeeRecipient
	if feeRecipient == (common.Address{}) {
		feeRecipient = cfg.Owner
	}

	book := ledger.NewBook()

	native, err := ledger.NewToken(derivedAddress("native-coin"), "Native Coin", "NATIVE")
	if err != nil {
		return nil, err
	}
	wrapped, err := ledger.NewWrappedNative(derivedAddress("wrapped-native"), native)
	if err != nil {
		return nil, err
	}
	if err := book.Register(wrapped); err != nil {
		return nil, err
	}

	reg := registry.New(cfg.Owner, book)
	cfg.Registerer.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "engine_pools",
		Help: "Number of created liquidity pools.",
	}, func() float64 { return float64(reg.PoolCount()) }))

	rtr, err := router.New(&router.Config{
		Registry:     reg,
		Book:         book,
		Native:       wrapped,
		Owner:        cfg.Owner,
		FeeRecipient: feeRecipient,
		OwnerFeeBps:  cfg.OwnerFeeBps,
		Logger:       cfg.Logger,
		Registerer:   cfg.Registerer,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		owner:    cfg.Owner,
		book:     book,
		native:   native,
		wrapped:  wrapped,
		registry: reg,
		router:   rtr,
		logger:   cfg.Logger,
	}, nil
}

// Owner returns the privileged account.
func (e *Engine) Owner() common.Address { return e.owner }

// Book returns the ledger book assets are registered in.
func (e *Engine) Book() *ledger.Book { return e.book }

// Registry returns the pool registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Router returns the trade router.
func (e *Engine) Router() *router.Router { return e.router }

// NativeAsset returns the identity of the wrapped-native asset.
func (e *Engine) NativeAsset() common.Address { return e.wrapped.Asset() }

// NativeLedger returns the underlying native coin ledger; its Mint is the
// faucet demo deployments fund accounts from.
func (e *Engine) NativeLedger() *ledger.Token { return e.native }

// DeployToken creates and registers a fresh in-memory token ledger under a
// deterministic asset identity derived from its symbol.
func (e *Engine) DeployToken(name, symbol string) (*ledger.Token, error) {
	t, err := ledger.NewToken(derivedAddress("token/"+symbol), name, symbol)
	if err != nil {
		return nil, err
	}
	if err := e.book.Register(t); err != nil {
		return nil, err
	}
	e.logger.Info("token deployed", "symbol", symbol, "asset", t.Asset())
	return t, nil
}

// CreatePool creates a pool for the pair. Owner only, per registry rules.
func (e *Engine) CreatePool(caller, tokenA, tokenB common.Address, feeRateBps uint64) (*pool.Pool, error) {
	p, err := e.registry.CreatePool(caller, tokenA, tokenB, feeRateBps)
	if err != nil {
		return nil, err
	}
	token0, token1 := p.Tokens()
	e.logger.Info("pool created",
		"pool", p.Address(), "token0", token0, "token1", token1, "fee_bps", feeRateBps)
	return p, nil
}

// State assembles a snapshot of every pool plus the router fee configuration.
func (e *Engine) State() *State {
	pools := e.registry.AllPools()
	views := make([]pool.View, 0, len(pools))
	for _, p := range pools {
		views = append(views, p.View())
	}
	return &State{
		Timestamp:      uint64(time.Now().UnixNano()),
		ProtocolFeeBps: e.router.OwnerFeeBps(),
		FeeRecipient:   e.router.FeeRecipient(),
		Pools:          views,
	}
}

// derivedAddress maps a label to a deterministic nonzero account identity.
func derivedAddress(label string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("defistate-amm-go/" + label))[12:])
}
