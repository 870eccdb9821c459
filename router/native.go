package router

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Native-asset entry points. Each one is the corresponding token-denominated
// operation with the native asset converted through the adapter immediately
// before or after: the adapter is a 1:1, fee-less wrapper that either
// succeeds fully or not at all, so these wrappers inherit the all-or-nothing
// guarantees of the underlying operation.
//
// Wrapped units pass through the caller's own account, so the caller must
// have approved the router on the wrapped ledger as well.

// AddLiquidityNative wraps amountNative of caller's native balance and adds
// liquidity to the (token, wrapped-native) pool. Any wrapped amount the pool
// ratio did not consume is unwrapped straight back to caller.
func (r *Router) AddLiquidityNative(caller, token common.Address, amountToken, amountNative, minAmountToken, minAmountNative *big.Int) (usedToken, usedNative, minted *big.Int, err error) {
	if amountNative == nil || amountNative.Sign() <= 0 {
		return nil, nil, nil, ErrZeroAmount
	}
	if err := r.native.Wrap(caller, amountNative); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: wrap: %v", ErrTransferFailed, err)
	}

	usedToken, usedNative, minted, err = r.AddLiquidity(caller, token, r.native.Asset(), amountToken, amountNative, minAmountToken, minAmountNative)
	if err != nil {
		if uerr := r.native.Unwrap(caller, amountNative); uerr != nil {
			r.logger.Error("native unwrap compensation failed",
				"caller", caller, "amount", amountNative, "error", uerr)
		}
		return nil, nil, nil, err
	}

	if leftover := new(big.Int).Sub(amountNative, usedNative); leftover.Sign() > 0 {
		if err := r.native.Unwrap(caller, leftover); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: unwrap refund: %v", ErrTransferFailed, err)
		}
	}
	return usedToken, usedNative, minted, nil
}

// RemoveLiquidityNative removes liquidity from the (token, wrapped-native)
// pool and unwraps the native side of the payout back to caller.
func (r *Router) RemoveLiquidityNative(caller, token common.Address, shares, minAmountToken, minAmountNative *big.Int) (amountToken, amountNative *big.Int, err error) {
	amountToken, amountNative, err = r.RemoveLiquidity(caller, token, r.native.Asset(), shares, minAmountToken, minAmountNative)
	if err != nil {
		return nil, nil, err
	}
	if err := r.native.Unwrap(caller, amountNative); err != nil {
		return nil, nil, fmt.Errorf("%w: unwrap: %v", ErrTransferFailed, err)
	}
	return amountToken, amountNative, nil
}

// SwapExactNativeInput wraps inputAmount of caller's native balance and
// routes it along path, which must start with the wrapped-native asset.
func (r *Router) SwapExactNativeInput(caller common.Address, path []common.Address, inputAmount, minOutputAmount *big.Int) (*big.Int, error) {
	if len(path) < 2 || path[0] != r.native.Asset() {
		return nil, fmt.Errorf("%w: path must start with the wrapped native asset", ErrInvalidPath)
	}
	if inputAmount == nil || inputAmount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if err := r.native.Wrap(caller, inputAmount); err != nil {
		return nil, fmt.Errorf("%w: wrap: %v", ErrTransferFailed, err)
	}
	out, err := r.SwapExactInput(caller, path, inputAmount, minOutputAmount)
	if err != nil {
		if uerr := r.native.Unwrap(caller, inputAmount); uerr != nil {
			r.logger.Error("native unwrap compensation failed",
				"caller", caller, "amount", inputAmount, "error", uerr)
		}
		return nil, err
	}
	return out, nil
}

// SwapExactInputForNative routes inputAmount along path, which must end
// with the wrapped-native asset, and unwraps the output to caller.
func (r *Router) SwapExactInputForNative(caller common.Address, path []common.Address, inputAmount, minOutputAmount *big.Int) (*big.Int, error) {
	if len(path) < 2 || path[len(path)-1] != r.native.Asset() {
		return nil, fmt.Errorf("%w: path must end with the wrapped native asset", ErrInvalidPath)
	}
	out, err := r.SwapExactInput(caller, path, inputAmount, minOutputAmount)
	if err != nil {
		return nil, err
	}
	if err := r.native.Unwrap(caller, out); err != nil {
		return nil, fmt.Errorf("%w: unwrap: %v", ErrTransferFailed, err)
	}
	return out, nil
}
