// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package typeddata implements structured-data hashing and signature
// verification for governance actions.
package typeddata

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/luxfi/crypto"
	"github.com/luxfi/crypto/secp256k1"

	"github.com/luxfi/governance/components/account"
)

// SignatureLen is the length of an r || s || v signature.
const SignatureLen = 65

// Signer is the identity a signature is checked against. It is either an
// account owner or a session public key.
type Signer struct {
	owner      account.Account
	sessionKey *account.PublicKey
}

func OwnerSigner(owner account.Account) Signer {
	return Signer{owner: owner}
}

func SessionKeySigner(pk account.PublicKey) Signer {
	return Signer{sessionKey: &pk}
}

// Verify reports whether sig over msg under domain was produced by signer.
// Malformed, non-canonical and mismatched signatures all yield false.
func Verify(domain Domain, msg Message, sig []byte, signer Signer) bool {
	if !canonical(sig) {
		return false
	}
	digest := Digest(domain, msg)
	pub, err := account.Recover(digest[:], sig)
	if err != nil {
		return false
	}

	if signer.sessionKey != nil {
		return account.Compress(pub) == *signer.sessionKey
	}

	switch signer.owner.Type {
	case account.EthereumAddress:
		return account.EthAddressOf(pub) == signer.owner.EthAddress()
	case account.LuxAddress:
		addr, err := account.LuxAddressOf(pub)
		return err == nil && addr == signer.owner.Address
	default:
		return false
	}
}

// canonical rejects signatures with a bad length, an out of range r or s,
// a high s or a recovery id outside {0, 1}.
func canonical(sig []byte) bool {
	if len(sig) != SignatureLen {
		return false
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	return crypto.ValidateSignatureValues(sig[64], r, s, true)
}

// SignEthereum signs msg with an Ethereum key.
func SignEthereum(domain Domain, msg Message, key *ecdsa.PrivateKey) ([]byte, error) {
	digest := Digest(domain, msg)
	return crypto.Sign(digest[:], key)
}

// SignLux signs msg with a settlement-native key. Session keys sign this
// way as well.
func SignLux(domain Domain, msg Message, key *secp256k1.PrivateKey) ([]byte, error) {
	digest := Digest(domain, msg)
	return key.SignHash(digest[:])
}
