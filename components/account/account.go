// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package account identifies the principals that author proposals, cast
// votes and own session keys.
package account

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

// KeyLen is the length of the byte key produced by [Account.Key].
const KeyLen = 1 + ids.ShortIDLen

var (
	ErrUnknownAddressType = errors.New("unknown address type")
	ErrMalformedAccount   = errors.New("malformed account")
)

// AddressType selects the signature scheme an account is controlled by.
type AddressType uint8

const (
	// LuxAddress is a settlement-native account. Its address is the
	// ripemd160(sha256) digest of a compressed secp256k1 public key.
	LuxAddress AddressType = iota
	// EthereumAddress is a foreign account whose address is the last 20
	// bytes of keccak256 over an uncompressed secp256k1 public key.
	EthereumAddress
)

func (t AddressType) String() string {
	switch t {
	case LuxAddress:
		return "lux"
	case EthereumAddress:
		return "eth"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

func (t AddressType) Verify() error {
	if t > EthereumAddress {
		return fmt.Errorf("%w: %d", ErrUnknownAddressType, uint8(t))
	}
	return nil
}

// Account is a tagged address. Two accounts are equal only when both the
// type and the address bytes match.
type Account struct {
	Type    AddressType `serialize:"true" json:"type"`
	Address ids.ShortID `serialize:"true" json:"address"`
}

func Lux(addr ids.ShortID) Account {
	return Account{Type: LuxAddress, Address: addr}
}

func Ethereum(addr common.Address) Account {
	return Account{Type: EthereumAddress, Address: ids.ShortID(addr)}
}

func (a Account) Verify() error {
	return a.Type.Verify()
}

// EthAddress returns the address bytes in EVM form regardless of type.
func (a Account) EthAddress() common.Address {
	return common.Address(a.Address)
}

// Key returns type || address, suitable for use as a database key prefix.
func (a Account) Key() []byte {
	k := make([]byte, KeyLen)
	k[0] = byte(a.Type)
	copy(k[1:], a.Address[:])
	return k
}

func (a Account) String() string {
	if a.Type == EthereumAddress {
		return a.Type.String() + ":" + a.EthAddress().Hex()
	}
	return a.Type.String() + ":" + a.Address.String()
}

// Parse is the inverse of [Account.String].
func Parse(s string) (Account, error) {
	typ, addr, ok := strings.Cut(s, ":")
	if !ok {
		return Account{}, fmt.Errorf("%w: %q", ErrMalformedAccount, s)
	}
	switch typ {
	case LuxAddress.String():
		short, err := ids.ShortFromString(addr)
		if err != nil {
			return Account{}, fmt.Errorf("%w: %w", ErrMalformedAccount, err)
		}
		return Lux(short), nil
	case EthereumAddress.String():
		if !common.IsHexAddress(addr) {
			return Account{}, fmt.Errorf("%w: %q", ErrMalformedAccount, addr)
		}
		return Ethereum(common.HexToAddress(addr)), nil
	default:
		return Account{}, fmt.Errorf("%w: %q", ErrUnknownAddressType, typ)
	}
}

func (a Account) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Account) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
