// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestEmptyPayloadHash(t *testing.T) {
	require := require.New(t)

	h, err := New().Hash()
	require.NoError(err)

	// offset (0x20) followed by a zero length.
	encoded := make([]byte, 64)
	encoded[31] = 0x20
	require.Equal(common.Hash(crypto.Keccak256Hash(encoded)), h)
	require.Equal(common.HexToHash("0x569e75fc77c1a856f6daaf9e69d8a9566ca34aa47f9133711ce065a571af0cfd"), h)
}

// The expected words are the standard ABI layout produced by
// defaultAbiCoder.encode(['tuple(address to,uint256 value,bytes data,uint8 operation,uint256 salt)[]'], [calls]),
// which is what proposals on the settlement chain commit to.
func TestPayloadKnownVector(t *testing.T) {
	require := require.New(t)

	p := New(
		Call{
			To:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
			Value:     *uint256.NewInt(1),
			Data:      []byte{0xde, 0xad, 0xbe, 0xef},
			Operation: OperationCall,
			Salt:      *uint256.NewInt(42),
		},
		Call{
			To:        common.HexToAddress("0x2222222222222222222222222222222222222222"),
			Operation: OperationDelegateCall,
			Salt:      *uint256.NewInt(7),
		},
	)

	expected := common.FromHex(strings.Join([]string{
		"0000000000000000000000000000000000000000000000000000000000000020", // offset of the array
		"0000000000000000000000000000000000000000000000000000000000000002", // length
		"0000000000000000000000000000000000000000000000000000000000000040", // offset of call 0
		"0000000000000000000000000000000000000000000000000000000000000120", // offset of call 1
		"0000000000000000000000001111111111111111111111111111111111111111", // to
		"0000000000000000000000000000000000000000000000000000000000000001", // value
		"00000000000000000000000000000000000000000000000000000000000000a0", // offset of data
		"0000000000000000000000000000000000000000000000000000000000000000", // operation
		"000000000000000000000000000000000000000000000000000000000000002a", // salt
		"0000000000000000000000000000000000000000000000000000000000000004", // data length
		"deadbeef00000000000000000000000000000000000000000000000000000000", // data
		"0000000000000000000000002222222222222222222222222222222222222222", // to
		"0000000000000000000000000000000000000000000000000000000000000000", // value
		"00000000000000000000000000000000000000000000000000000000000000a0", // offset of data
		"0000000000000000000000000000000000000000000000000000000000000001", // operation
		"0000000000000000000000000000000000000000000000000000000000000007", // salt
		"0000000000000000000000000000000000000000000000000000000000000000", // data length
	}, ""))

	encoded, err := p.Encode()
	require.NoError(err)
	require.Equal(expected, encoded)

	h, err := p.Hash()
	require.NoError(err)
	require.Equal(common.HexToHash("0x70d201336ca56182e4a21eced92926ef1cf5031f41defa5ba9c02c816b92ef50"), h)
}

func TestPayloadHashCommitsToEveryField(t *testing.T) {
	base := Call{
		To:    common.HexToAddress("0x1"),
		Value: *uint256.NewInt(1),
		Data:  []byte{0xde, 0xad},
		Salt:  *uint256.NewInt(1),
	}
	baseHash, err := New(base).Hash()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Call)
	}{
		{name: "to", mutate: func(c *Call) { c.To = common.HexToAddress("0x2") }},
		{name: "value", mutate: func(c *Call) { c.Value = *uint256.NewInt(2) }},
		{name: "data", mutate: func(c *Call) { c.Data = []byte{0xde} }},
		{name: "operation", mutate: func(c *Call) { c.Operation = OperationDelegateCall }},
		{name: "salt", mutate: func(c *Call) { c.Salt = *uint256.NewInt(2) }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := base
			test.mutate(&c)
			h, err := New(c).Hash()
			require.NoError(t, err)
			require.NotEqual(t, baseHash, h)
		})
	}
}

func TestPayloadHashOrderSensitive(t *testing.T) {
	require := require.New(t)

	a := Call{To: common.HexToAddress("0xa")}
	b := Call{To: common.HexToAddress("0xb")}

	ab, err := New(a, b).Hash()
	require.NoError(err)
	ba, err := New(b, a).Hash()
	require.NoError(err)
	again, err := New(a, b).Hash()
	require.NoError(err)

	require.NotEqual(ab, ba)
	require.Equal(ab, again)
}

func TestPayloadVerify(t *testing.T) {
	require := require.New(t)

	require.NoError(New(Call{Operation: OperationDelegateCall}).Verify())
	require.ErrorIs(New(Call{}, Call{Operation: 2}).Verify(), ErrUnknownOperation)
}
