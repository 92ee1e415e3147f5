// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"

	"github.com/luxfi/governance/components/account"
)

var saltUsed = []byte{1}

// Salts is the set of (owner, salt) pairs that have been consumed.
type Salts struct {
	db database.Database
}

func NewSalts(db database.Database) *Salts {
	return &Salts{db: db}
}

func saltKey(owner account.Account, salt *uint256.Int) []byte {
	s := salt.Bytes32()
	k := make([]byte, 0, account.KeyLen+len(s))
	k = append(k, owner.Key()...)
	return append(k, s[:]...)
}

func (s *Salts) Used(owner account.Account, salt *uint256.Int) (bool, error) {
	return s.db.Has(saltKey(owner, salt))
}

// Consume marks the salt used, failing with ErrSaltReused if it already
// was.
func (s *Salts) Consume(owner account.Account, salt *uint256.Int) error {
	used, err := s.Used(owner, salt)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: %s by %s", ErrSaltReused, salt.Hex(), owner)
	}
	return s.db.Put(saltKey(owner, salt), saltUsed)
}
