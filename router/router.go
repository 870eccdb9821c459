// Package router composes single-pool swaps into multi-hop trades, applies
// the protocol-level fee on top of each pool's embedded fee, enforces
// slippage bounds and wraps the native asset. The router is stateless beyond
// its configuration: pools own all reserve and share state.
package router

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/defistate-amm-go/ledger"
	"github.com/defistate/defistate-amm-go/pool"
	"github.com/defistate/defistate-amm-go/registry"
)

var (
	// ErrZeroAmount is returned when a trade or liquidity amount is zero.
	ErrZeroAmount = errors.New("amount is zero")
	// ErrInvalidPath is returned when a path is shorter than two assets or
	// an adjacent pair has no pool.
	ErrInvalidPath = errors.New("invalid path")
	// ErrSlippageExceeded is returned when execution falls outside the
	// caller's minimum-output or minimum-consumed bounds.
	ErrSlippageExceeded = errors.New("slippage exceeded")
	// ErrUnauthorized is returned when fee configuration is attempted by a
	// non-owner account.
	ErrUnauthorized = errors.New("caller is not the owner")
	// ErrNoChange is returned when a setter is called with the current value.
	ErrNoChange = errors.New("value unchanged")
	// ErrInvalidFeeRate is returned when the protocol fee rate is not below
	// pool.FeeFactor.
	ErrInvalidFeeRate = errors.New("fee rate out of range")
	// ErrTransferFailed wraps ledger failures surfaced through router operations.
	ErrTransferFailed = errors.New("transfer failed")
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the router's collaborators and initial fee configuration.
type Config struct {
	Registry *registry.Registry
	Book     *ledger.Book
	Native   ledger.NativeAdapter

	// Owner may reconfigure the protocol fee; FeeRecipient accrues it.
	Owner        common.Address
	FeeRecipient common.Address
	OwnerFeeBps  uint64

	Logger     Logger
	Registerer prometheus.Registerer
}

// validate checks that required collaborators are present.
func (c *Config) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Book == nil {
		return errors.New("config: Book cannot be nil")
	}
	if c.Native == nil {
		return errors.New("config: Native cannot be nil")
	}
	if c.Owner == (common.Address{}) {
		return fmt.Errorf("config: Owner: %w", ledger.ErrZeroAddress)
	}
	if c.FeeRecipient == (common.Address{}) {
		return fmt.Errorf("config: FeeRecipient: %w", ledger.ErrZeroAddress)
	}
	if c.OwnerFeeBps >= pool.FeeFactor {
		return ErrInvalidFeeRate
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Registerer == nil {
		return errors.New("config: Registerer cannot be nil")
	}
	return nil
}

// Router orchestrates trades and liquidity operations over the pool
// registry. Callers grant the router an allowance on the input ledgers; the
// router then moves funds directly between caller, fee recipient and pools.
type Router struct {
	addr     common.Address
	owner    common.Address
	registry *registry.Registry
	book     *ledger.Book
	native   ledger.NativeAdapter
	logger   Logger
	metrics  *Metrics

	mu           sync.RWMutex
	ownerFeeBps  uint64
	feeRecipient common.Address
}

// New constructs a router from a configuration, returning an error if the
// configuration is invalid.
func New(cfg *Config) (*Router, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Router{
		addr:         routerAddress(),
		owner:        cfg.Owner,
		registry:     cfg.Registry,
		book:         cfg.Book,
		native:       cfg.Native,
		logger:       cfg.Logger,
		metrics:      NewMetrics(cfg.Registerer),
		ownerFeeBps:  cfg.OwnerFeeBps,
		feeRecipient: cfg.FeeRecipient,
	}, nil
}

// Address returns the router's own account identity: the spender callers
// approve on their asset and share ledgers.
func (r *Router) Address() common.Address { return r.addr }

// Owner returns the account authorized to configure the protocol fee.
func (r *Router) Owner() common.Address { return r.owner }

// OwnerFeeBps returns the protocol fee rate in parts per pool.FeeFactor.
func (r *Router) OwnerFeeBps() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ownerFeeBps
}

// FeeRecipient returns the account accruing the protocol fee.
func (r *Router) FeeRecipient() common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.feeRecipient
}

// SetOwnerFee updates the protocol fee rate. Owner only; the no-op guard
// mirrors the pool's fee setter.
func (r *Router) SetOwnerFee(caller common.Address, feeBps uint64) error {
	if caller != r.owner {
		return ErrUnauthorized
	}
	if feeBps >= pool.FeeFactor {
		return ErrInvalidFeeRate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if feeBps == r.ownerFeeBps {
		return ErrNoChange
	}
	r.logger.Info("protocol fee updated", "old_bps", r.ownerFeeBps, "new_bps", feeBps)
	r.ownerFeeBps = feeBps
	return nil
}

// SetFeeRecipient updates the account accruing the protocol fee. Owner only.
func (r *Router) SetFeeRecipient(caller, recipient common.Address) error {
	if caller != r.owner {
		return ErrUnauthorized
	}
	if recipient == (common.Address{}) {
		return ledger.ErrZeroAddress
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if recipient == r.feeRecipient {
		return ErrNoChange
	}
	r.feeRecipient = recipient
	return nil
}

// ComputeProtocolFee splits a gross input amount into the protocol fee and
// the net amount that reaches the pools:
//
//	feeAmount = grossAmount * ownerFeeBps / pool.FeeFactor
//	netAmount = grossAmount - feeAmount
//
// The protocol fee is taken once, on the input side, before any pool-level
// fee applies.
func (r *Router) ComputeProtocolFee(grossAmount *big.Int) (feeAmount, netAmount *big.Int) {
	r.mu.RLock()
	feeBps := r.ownerFeeBps
	r.mu.RUnlock()

	feeAmount = new(big.Int).Mul(grossAmount, new(big.Int).SetUint64(feeBps))
	feeAmount.Div(feeAmount, big.NewInt(pool.FeeFactor))
	netAmount = new(big.Int).Sub(grossAmount, feeAmount)
	return feeAmount, netAmount
}

// feeSplit reads the fee configuration once and splits the gross amount.
func (r *Router) feeSplit(grossAmount *big.Int) (feeAmount, netAmount *big.Int, recipient common.Address) {
	r.mu.RLock()
	feeBps := r.ownerFeeBps
	recipient = r.feeRecipient
	r.mu.RUnlock()

	feeAmount = new(big.Int).Mul(grossAmount, new(big.Int).SetUint64(feeBps))
	feeAmount.Div(feeAmount, big.NewInt(pool.FeeFactor))
	netAmount = new(big.Int).Sub(grossAmount, feeAmount)
	return feeAmount, netAmount, recipient
}

// routerAddress derives the router's fixed account identity.
func routerAddress() common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("defistate-amm-go/router"))[12:])
}
