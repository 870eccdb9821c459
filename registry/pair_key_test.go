package registry

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPairKeyIsOrderInsensitive(t *testing.T) {
	tokenA := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenB := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	keyAB := NewPairKey(tokenA, tokenB)
	keyBA := NewPairKey(tokenB, tokenA)
	assert.Equal(t, keyAB, keyBA)

	token0, token1 := keyAB.Tokens()
	assert.Equal(t, tokenA, token0)
	assert.Equal(t, tokenB, token1)
}

func TestPairKeyString(t *testing.T) {
	tokenA := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenB := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	key := NewPairKey(tokenB, tokenA)
	assert.Equal(t,
		"0x00000000000000000000000000000000000000aa00000000000000000000000000000000000000bb",
		key.String())
}

func TestPairKeyJSONRoundTrip(t *testing.T) {
	key := NewPairKey(
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
	)

	data, err := json.Marshal(key)
	require.NoError(t, err)

	var decoded PairKey
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, key, decoded)
}

func TestPairKeyUnmarshalRejectsBadInput(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "TooShort", input: `"0x1234"`},
		{name: "NotHex", input: `"0xzz"`},
		{name: "NotAString", input: `42`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var key PairKey
			assert.Error(t, json.Unmarshal([]byte(tc.input), &key))
		})
	}
}
