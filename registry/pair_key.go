package registry

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/defistate-amm-go/pool"
)

// PairKey is a fixed-size 40-byte container identifying an unordered asset
// pair: the two 20-byte asset identities concatenated in canonical order
// (smaller identity first, by byte comparison).
//
// Because construction always sorts, NewPairKey(A, B) == NewPairKey(B, A),
// which makes the key usable directly as a map key for order-insensitive
// pool lookups.
type PairKey [40]byte

// NewPairKey builds the canonical key for an asset pair.
func NewPairKey(tokenA, tokenB common.Address) PairKey {
	token0, token1 := pool.SortPair(tokenA, tokenB)
	var key PairKey
	copy(key[:20], token0.Bytes())
	copy(key[20:], token1.Bytes())
	return key
}

// Tokens returns the canonical (token0, token1) pair stored in the key.
func (k PairKey) Tokens() (common.Address, common.Address) {
	return common.BytesToAddress(k[:20]), common.BytesToAddress(k[20:])
}

// Bytes returns the raw underlying byte slice.
func (k PairKey) Bytes() []byte {
	return k[:]
}

// String returns the hex string representation of the key.
func (k PairKey) String() string {
	return "0x" + hex.EncodeToString(k[:])
}

// MarshalJSON serializes the key as a hex string.
func (k PairKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses a hex string (optional "0x" prefix) into the key.
func (k *PairKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimPrefix(s, "0x")

	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != len(k) {
		return errors.New("pair key must be exactly 40 bytes")
	}
	copy(k[:], b)
	return nil
}
