// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package account

import (
	"errors"
	"fmt"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/geth/common/hexutil"
)

// PublicKeyLen is the length of a compressed secp256k1 public key.
const PublicKeyLen = 33

var ErrInvalidPublicKeyLen = errors.New("invalid public key length")

// PublicKey is a compressed secp256k1 public key used as a session key.
type PublicKey [PublicKeyLen]byte

func PublicKeyFromSecp256k1(pk *secp256k1.PublicKey) PublicKey {
	var out PublicKey
	copy(out[:], pk.Bytes())
	return out
}

func ToPublicKey(b []byte) (PublicKey, error) {
	var out PublicKey
	if len(b) != PublicKeyLen {
		return out, fmt.Errorf("%w: %d", ErrInvalidPublicKeyLen, len(b))
	}
	copy(out[:], b)
	return out, nil
}

func (k PublicKey) String() string {
	return hexutil.Encode(k[:])
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return err
	}
	parsed, err := ToPublicKey(b)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
