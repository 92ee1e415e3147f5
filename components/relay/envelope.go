// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package relay

import (
	"fmt"

	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/ids"
)

// Envelope is an unsigned warp message attested by a relayer key.
type Envelope struct {
	UnsignedMessage []byte                       `serialize:"true" json:"unsignedMessage"`
	Signature       [secp256k1.SignatureLen]byte `serialize:"true" json:"signature"`
}

// ID is the hash the relayer signs.
func (e *Envelope) ID() ids.ID {
	return ids.ID(hash.ComputeHash256Array(e.UnsignedMessage))
}

func (e *Envelope) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, e)
}

func ParseEnvelope(b []byte) (*Envelope, error) {
	e := &Envelope{}
	if _, err := Codec.Unmarshal(b, e); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	return e, nil
}
