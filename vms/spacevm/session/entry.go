// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"fmt"

	"github.com/luxfi/governance/components/account"
)

type State uint8

const (
	Absent State = iota
	Active
	Expired
	Revoked
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Active:
		return "active"
	case Expired:
		return "expired"
	case Revoked:
		return "revoked"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Entry is the registry record for one (owner, session key) pair.
type Entry struct {
	Owner     account.Account   `serialize:"true" json:"owner"`
	PublicKey account.PublicKey `serialize:"true" json:"sessionPublicKey"`
	ExpiresAt uint64            `serialize:"true" json:"expiresAt"`
	Revoked   bool              `serialize:"true" json:"revoked"`
}

// State returns the lifecycle state at now. A session is still active at
// exactly its expiry timestamp.
func (e *Entry) State(now uint64) State {
	switch {
	case e == nil:
		return Absent
	case e.Revoked:
		return Revoked
	case now > e.ExpiresAt:
		return Expired
	default:
		return Active
	}
}

func (e *Entry) IsLive(now uint64) bool {
	return e.State(now) == Active
}

func entryKey(owner account.Account, pk account.PublicKey) []byte {
	k := make([]byte, 0, account.KeyLen+account.PublicKeyLen)
	k = append(k, owner.Key()...)
	return append(k, pk[:]...)
}
