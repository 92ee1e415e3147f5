// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package account

import (
	"crypto/ecdsa"

	"github.com/luxfi/crypto"
	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

// Compress returns the compressed form of a recovered public key.
func Compress(pub *ecdsa.PublicKey) PublicKey {
	var out PublicKey
	copy(out[:], crypto.CompressPubkey(pub))
	return out
}

// LuxAddressOf derives the settlement-native address of pub.
func LuxAddressOf(pub *ecdsa.PublicKey) (ids.ShortID, error) {
	return ids.ToShortID(hash.PubkeyBytesToAddress(crypto.CompressPubkey(pub)))
}

// EthAddressOf derives the keccak address of pub.
func EthAddressOf(pub *ecdsa.PublicKey) common.Address {
	return common.Address(crypto.PubkeyToAddress(*pub))
}

// Recover returns the public key that produced the r || s || v signature
// over digest.
func Recover(digest, sig []byte) (*ecdsa.PublicKey, error) {
	return crypto.SigToPub(digest, sig)
}
