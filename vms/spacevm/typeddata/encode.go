// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package typeddata

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	"github.com/luxfi/governance/components/account"
	"github.com/luxfi/governance/components/proposal"
)

const (
	accountType         = "Account(uint8 addressType,address addr)"
	strategyType        = "Strategy(address addr,bytes params)"
	indexedStrategyType = "IndexedStrategy(uint8 index,bytes params)"
)

var (
	accountTypeHash         = keccak([]byte(accountType))
	strategyTypeHash        = keccak([]byte(strategyType))
	indexedStrategyTypeHash = keccak([]byte(indexedStrategyType))
)

func keccak(data ...[]byte) common.Hash {
	return common.Hash(crypto.Keccak256Hash(data...))
}

// encoder accumulates 32-byte words of an encodeData sequence.
type encoder struct {
	buf []byte
}

func newEncoder(typeHash common.Hash) *encoder {
	e := &encoder{buf: make([]byte, 0, 8*common.HashLength)}
	return e.word(typeHash)
}

func (e *encoder) word(h common.Hash) *encoder {
	e.buf = append(e.buf, h[:]...)
	return e
}

func (e *encoder) uint64(v uint64) *encoder {
	return e.word(common.Hash(uint256.NewInt(v).Bytes32()))
}

func (e *encoder) uint256(v *uint256.Int) *encoder {
	return e.word(common.Hash(v.Bytes32()))
}

func (e *encoder) address(a common.Address) *encoder {
	return e.word(common.BytesToHash(a[:]))
}

func (e *encoder) id(id ids.ID) *encoder {
	return e.word(common.Hash(id))
}

func (e *encoder) string(s string) *encoder {
	return e.word(keccak([]byte(s)))
}

func (e *encoder) bytes(b []byte) *encoder {
	return e.word(keccak(b))
}

func (e *encoder) hash() common.Hash {
	return keccak(e.buf)
}

func hashAccount(a account.Account) common.Hash {
	return newEncoder(accountTypeHash).
		uint64(uint64(a.Type)).
		address(a.EthAddress()).
		hash()
}

func hashStrategy(s proposal.Strategy) common.Hash {
	return newEncoder(strategyTypeHash).
		address(s.Address).
		bytes(s.Params).
		hash()
}

// hashIndexedStrategies encodes an array of structs as the keccak of the
// concatenated struct hashes.
func hashIndexedStrategies(strategies []proposal.IndexedStrategy) common.Hash {
	buf := make([]byte, 0, len(strategies)*common.HashLength)
	for _, s := range strategies {
		h := newEncoder(indexedStrategyTypeHash).
			uint64(uint64(s.Index)).
			bytes(s.Params).
			hash()
		buf = append(buf, h[:]...)
	}
	return keccak(buf)
}
