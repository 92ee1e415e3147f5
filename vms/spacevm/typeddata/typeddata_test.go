// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package typeddata

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/governance/components/account"
	"github.com/luxfi/governance/components/proposal"
)

var testDomain = Domain{
	Name:              "governance",
	Version:           "1",
	ChainID:           1337,
	VerifyingContract: common.HexToAddress("0x00000000000000000000000000000000000a0a0a"),
}

func TestDomainSeparatorKnownVector(t *testing.T) {
	d := Domain{
		Name:              "Ether Mail",
		Version:           "1",
		ChainID:           1,
		VerifyingContract: common.HexToAddress("0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"),
	}
	require.Equal(
		t,
		common.HexToHash("0xf2cee375fa42b42143804025fc449deafd50cc031ca257e0b194a650a912090f"),
		d.Separator(),
	)
}

func newPropose(author account.Account) *Propose {
	return &Propose{
		Space:             ids.GenerateTestID(),
		Author:            author,
		MetadataURI:       "ipfs://proposal",
		ExecutionStrategy: proposal.Strategy{Address: common.HexToAddress("0x1"), Params: []byte{1, 2, 3}},
		Salt:              *uint256.NewInt(1),
	}
}

func TestVerifyEthereumOwner(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	owner := account.Ethereum(account.EthAddressOf(&key.PublicKey))

	msg := newPropose(owner)
	sig, err := SignEthereum(testDomain, msg, key)
	require.NoError(err)

	require.True(Verify(testDomain, msg, sig, OwnerSigner(owner)))

	other, err := crypto.GenerateKey()
	require.NoError(err)
	require.False(Verify(testDomain, msg, sig, OwnerSigner(account.Ethereum(account.EthAddressOf(&other.PublicKey)))))

	// Same address bytes interpreted as a settlement-native account.
	require.False(Verify(testDomain, msg, sig, OwnerSigner(account.Lux(owner.Address))))
}

func TestVerifyLuxOwner(t *testing.T) {
	require := require.New(t)

	key, err := secp256k1.NewPrivateKey()
	require.NoError(err)
	owner := account.Lux(key.PublicKey().Address())

	msg := &Vote{
		Space:      ids.GenerateTestID(),
		Voter:      owner,
		ProposalID: 1,
		Choice:     proposal.For,
		UserVotingStrategies: []proposal.IndexedStrategy{
			{Index: 0},
			{Index: 1, Params: []byte{0xff}},
		},
	}
	sig, err := SignLux(testDomain, msg, key)
	require.NoError(err)
	require.True(Verify(testDomain, msg, sig, OwnerSigner(owner)))

	msg.Choice = proposal.Against
	require.False(Verify(testDomain, msg, sig, OwnerSigner(owner)))
}

func TestVerifySessionKey(t *testing.T) {
	require := require.New(t)

	key, err := secp256k1.NewPrivateKey()
	require.NoError(err)
	pk := account.PublicKeyFromSecp256k1(key.PublicKey())

	msg := &UpdateProposal{
		Space:       ids.GenerateTestID(),
		Author:      account.Ethereum(common.HexToAddress("0x123")),
		ProposalID:  3,
		MetadataURI: "ipfs://updated",
	}
	sig, err := SignLux(testDomain, msg, key)
	require.NoError(err)
	require.True(Verify(testDomain, msg, sig, SessionKeySigner(pk)))

	other, err := secp256k1.NewPrivateKey()
	require.NoError(err)
	require.False(Verify(testDomain, msg, sig, SessionKeySigner(account.PublicKeyFromSecp256k1(other.PublicKey()))))
}

func TestVerifyRejectsForeignDomain(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	owner := account.Ethereum(account.EthAddressOf(&key.PublicKey))

	msg := newPropose(owner)
	sig, err := SignEthereum(testDomain, msg, key)
	require.NoError(err)

	otherChain := testDomain
	otherChain.ChainID++
	require.False(Verify(otherChain, msg, sig, OwnerSigner(owner)))

	otherContract := testDomain
	otherContract.VerifyingContract = common.HexToAddress("0xb0b")
	require.False(Verify(otherContract, msg, sig, OwnerSigner(owner)))
}

func TestVerifyRejectsMalformedSignatures(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := account.Ethereum(account.EthAddressOf(&key.PublicKey))

	msg := newPropose(owner)
	sig, err := SignEthereum(testDomain, msg, key)
	require.NoError(t, err)

	highS := func() []byte {
		n := crypto.S256().Params().N
		s := new(big.Int).SetBytes(sig[32:64])
		s.Sub(n, s)

		out := make([]byte, SignatureLen)
		copy(out, sig[:32])
		s.FillBytes(out[32:64])
		out[64] = sig[64] ^ 1
		return out
	}

	tests := []struct {
		name string
		sig  []byte
	}{
		{name: "empty", sig: nil},
		{name: "short", sig: sig[:64]},
		{name: "long", sig: append(append([]byte{}, sig...), 0)},
		{name: "legacy v", sig: append(append([]byte{}, sig[:64]...), sig[64]+27)},
		{name: "zero r", sig: append(make([]byte, 32), sig[32:]...)},
		{name: "high s", sig: highS()},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.False(t, Verify(testDomain, msg, test.sig, OwnerSigner(owner)))
		})
	}
}

func TestHashStructDistinguishesKinds(t *testing.T) {
	require := require.New(t)

	owner := account.Ethereum(common.HexToAddress("0x123"))
	pk := account.PublicKey{0x02}

	auth := &SessionKeyAuth{
		ChainID:          testDomain.ChainID,
		Authenticator:    testDomain.VerifyingContract,
		Owner:            owner,
		SessionPublicKey: pk,
	}
	revoke := &SessionKeyRevoke{
		ChainID:          testDomain.ChainID,
		Authenticator:    testDomain.VerifyingContract,
		Owner:            owner,
		SessionPublicKey: pk,
	}
	require.NotEqual(auth.HashStruct(), revoke.HashStruct())
	require.Equal(KindSessionKeyAuth, auth.Kind())
	require.Equal(KindSessionKeyRevoke, revoke.Kind())

	auth2 := *auth
	auth2.SessionDuration = 1
	require.NotEqual(auth.HashStruct(), auth2.HashStruct())
}
