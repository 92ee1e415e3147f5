// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package typeddata

import "github.com/luxfi/geth/common"

const domainType = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"

var domainTypeHash = keccak([]byte(domainType))

// Domain binds signatures to one authenticator deployment on one chain.
type Domain struct {
	Name              string         `json:"name"`
	Version           string         `json:"version"`
	ChainID           uint64         `json:"chainId"`
	VerifyingContract common.Address `json:"verifyingContract"`
}

func (d Domain) Separator() common.Hash {
	return newEncoder(domainTypeHash).
		string(d.Name).
		string(d.Version).
		uint64(d.ChainID).
		address(d.VerifyingContract).
		hash()
}

// Digest is keccak256(0x19 0x01 || separator || hashStruct(msg)).
func Digest(d Domain, msg Message) common.Hash {
	sep := d.Separator()
	structHash := msg.HashStruct()

	buf := make([]byte, 0, 2+2*common.HashLength)
	buf = append(buf, 0x19, 0x01)
	buf = append(buf, sep[:]...)
	buf = append(buf, structHash[:]...)
	return keccak(buf)
}
