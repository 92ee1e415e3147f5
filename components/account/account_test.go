// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package account

import (
	"encoding/json"
	"testing"

	"github.com/luxfi/crypto"
	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func TestAccountEqualityIncludesType(t *testing.T) {
	require := require.New(t)

	addr := ids.GenerateTestShortID()
	lux := Lux(addr)
	eth := Ethereum(common.Address(addr))

	require.Equal(addr, eth.Address)
	require.NotEqual(lux, eth)
	require.NotEqual(lux.Key(), eth.Key())
	require.Len(lux.Key(), KeyLen)
}

func TestAccountVerify(t *testing.T) {
	require := require.New(t)

	require.NoError(Lux(ids.ShortEmpty).Verify())
	require.NoError(Ethereum(common.Address{}).Verify())
	require.ErrorIs(Account{Type: 7}.Verify(), ErrUnknownAddressType)
}

func TestAccountString(t *testing.T) {
	require := require.New(t)

	eth := Ethereum(common.HexToAddress("0x0000000000000000000000000000000000000123"))
	require.Equal("eth:0x0000000000000000000000000000000000000123", eth.String())
	require.Contains(Lux(ids.ShortEmpty).String(), "lux:")
}

func TestAccountParse(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectedErr error
	}{
		{
			name:  "ethereum",
			input: "eth:0x0000000000000000000000000000000000000123",
		},
		{
			name:  "lux",
			input: Lux(ids.GenerateTestShortID()).String(),
		},
		{
			name:        "missing separator",
			input:       "0x0000000000000000000000000000000000000123",
			expectedErr: ErrMalformedAccount,
		},
		{
			name:        "short ethereum address",
			input:       "eth:0x0123",
			expectedErr: ErrMalformedAccount,
		},
		{
			name:        "bad lux address",
			input:       "lux:not-cb58",
			expectedErr: ErrMalformedAccount,
		},
		{
			name:        "unknown type",
			input:       "btc:1abc",
			expectedErr: ErrUnknownAddressType,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			parsed, err := Parse(test.input)
			require.ErrorIs(err, test.expectedErr)
			if test.expectedErr != nil {
				return
			}
			require.Equal(test.input, parsed.String())
		})
	}
}

func TestAccountJSON(t *testing.T) {
	require := require.New(t)

	type wrapper struct {
		Owner Account `json:"owner"`
	}
	in := wrapper{Owner: Ethereum(common.HexToAddress("0x0000000000000000000000000000000000000456"))}
	b, err := json.Marshal(in)
	require.NoError(err)
	require.JSONEq(`{"owner":"eth:0x0000000000000000000000000000000000000456"}`, string(b))

	var out wrapper
	require.NoError(json.Unmarshal(b, &out))
	require.Equal(in, out)
}

func TestPublicKeyText(t *testing.T) {
	require := require.New(t)

	sk, err := secp256k1.NewPrivateKey()
	require.NoError(err)

	pk := PublicKeyFromSecp256k1(sk.PublicKey())
	b, err := json.Marshal(pk)
	require.NoError(err)

	var parsed PublicKey
	require.NoError(json.Unmarshal(b, &parsed))
	require.Equal(pk, parsed)

	_, err = ToPublicKey(pk[:32])
	require.ErrorIs(err, ErrInvalidPublicKeyLen)
}

func TestRecoverMatchesNativeAddress(t *testing.T) {
	require := require.New(t)

	sk, err := secp256k1.NewPrivateKey()
	require.NoError(err)

	digest := make([]byte, 32)
	digest[0] = 1
	sig, err := sk.SignHash(digest)
	require.NoError(err)

	pub, err := Recover(digest, sig)
	require.NoError(err)

	addr, err := LuxAddressOf(pub)
	require.NoError(err)
	require.Equal(sk.PublicKey().Address(), addr)
	require.Equal(PublicKeyFromSecp256k1(sk.PublicKey()), Compress(pub))
}

func TestRecoverMatchesEthAddress(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.NoError(err)

	digest := make([]byte, 32)
	digest[31] = 7
	sig, err := crypto.Sign(digest, key)
	require.NoError(err)

	pub, err := Recover(digest, sig)
	require.NoError(err)
	require.Equal(EthAddressOf(&key.PublicKey), EthAddressOf(pub))
	require.Equal(common.Address(crypto.PubkeyToAddress(key.PublicKey)), EthAddressOf(pub))
}
