// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package session manages delegated session keys for account owners.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/governance/components/account"
	"github.com/luxfi/governance/vms/spacevm/typeddata"

	safemath "github.com/luxfi/math"
)

const DefaultCacheSize = 1024

var (
	entryPrefix = []byte("entry")
	saltPrefix  = []byte("salt")

	ErrInvalidSignature   = errors.New("invalid signature")
	ErrSaltReused         = errors.New("salt already used")
	ErrWrongAuthenticator = errors.New("message addressed to another authenticator")
	ErrDurationOverflow   = errors.New("session duration overflows expiry")
	ErrUnknownSession     = errors.New("session key not registered for owner")
)

// Registry stores session keys per owner. All state transitions are
// authorized by a typed-data signature from either the owner or the
// session key itself.
type Registry struct {
	log    log.Logger
	domain typeddata.Domain

	lock    sync.RWMutex
	entries database.Database
	salts   *Salts
	cache   *lru.Cache[ids.ID, *Entry]
}

func NewRegistry(logger log.Logger, db database.Database, domain typeddata.Domain, cacheSize int) *Registry {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Registry{
		log:     logger,
		domain:  domain,
		entries: prefixdb.New(entryPrefix, db),
		salts:   NewSalts(prefixdb.New(saltPrefix, db)),
		cache:   lru.NewCache[ids.ID, *Entry](cacheSize),
	}
}

func (r *Registry) Domain() typeddata.Domain {
	return r.domain
}

// RegisterWithOwnerSig installs or overwrites the session key named in
// msg, valid until now + msg.SessionDuration.
func (r *Registry) RegisterWithOwnerSig(now uint64, msg *typeddata.SessionKeyAuth, sig []byte) error {
	if err := r.checkAddressee(msg.ChainID, msg.Authenticator); err != nil {
		return err
	}
	if !typeddata.Verify(r.domain, msg, sig, typeddata.OwnerSigner(msg.Owner)) {
		return ErrInvalidSignature
	}
	expiresAt, err := safemath.Add64(now, msg.SessionDuration)
	if err != nil {
		return fmt.Errorf("%w: now %d, duration %d", ErrDurationOverflow, now, msg.SessionDuration)
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	err = r.withSalt(msg.Owner, &msg.Salt, func() error {
		return r.put(&Entry{
			Owner:     msg.Owner,
			PublicKey: msg.SessionPublicKey,
			ExpiresAt: expiresAt,
		})
	})
	if err != nil {
		return err
	}

	r.log.Info("registered session key",
		log.Stringer("owner", msg.Owner),
		log.Stringer("sessionKey", msg.SessionPublicKey),
		log.Uint64("expiresAt", expiresAt),
	)
	return nil
}

// RevokeWithOwnerSig revokes a session key on the owner's signature.
func (r *Registry) RevokeWithOwnerSig(now uint64, msg *typeddata.SessionKeyRevoke, sig []byte) error {
	if err := r.checkAddressee(msg.ChainID, msg.Authenticator); err != nil {
		return err
	}
	if !typeddata.Verify(r.domain, msg, sig, typeddata.OwnerSigner(msg.Owner)) {
		return ErrInvalidSignature
	}
	return r.revoke(now, msg, false)
}

// RevokeWithSessionKeySig lets a session key revoke itself. The key does
// not have to be live, but it must have been registered by msg.Owner:
// otherwise any key could spend the owner's salts.
func (r *Registry) RevokeWithSessionKeySig(now uint64, msg *typeddata.SessionKeyRevoke, sig []byte) error {
	if err := r.checkAddressee(msg.ChainID, msg.Authenticator); err != nil {
		return err
	}
	if !typeddata.Verify(r.domain, msg, sig, typeddata.SessionKeySigner(msg.SessionPublicKey)) {
		return ErrInvalidSignature
	}
	return r.revoke(now, msg, true)
}

// revoke tombstones the entry. An absent entry is tombstoned only on the
// owner's signature.
func (r *Registry) revoke(now uint64, msg *typeddata.SessionKeyRevoke, selfSigned bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	err := r.withSalt(msg.Owner, &msg.Salt, func() error {
		entry, err := r.get(msg.Owner, msg.SessionPublicKey)
		if err != nil {
			return err
		}
		if entry == nil && selfSigned {
			return fmt.Errorf("%w: %s for %s", ErrUnknownSession, msg.SessionPublicKey, msg.Owner)
		}
		if entry == nil {
			entry = &Entry{
				Owner:     msg.Owner,
				PublicKey: msg.SessionPublicKey,
				ExpiresAt: now,
			}
		}
		revoked := *entry
		revoked.Revoked = true
		return r.put(&revoked)
	})
	if err != nil {
		return err
	}

	r.log.Info("revoked session key",
		log.Stringer("owner", msg.Owner),
		log.Stringer("sessionKey", msg.SessionPublicKey),
	)
	return nil
}

// IsLive reports whether pk may act for owner at now. Lookup failures are
// treated as not live.
func (r *Registry) IsLive(owner account.Account, pk account.PublicKey, now uint64) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	entry, err := r.get(owner, pk)
	if err != nil {
		r.log.Warn("failed to read session key",
			log.Stringer("owner", owner),
			log.Err(err),
		)
		return false
	}
	return entry.IsLive(now)
}

// Entry returns the stored record, or nil if the key was never
// registered or revoked.
func (r *Registry) Entry(owner account.Account, pk account.PublicKey) (*Entry, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.get(owner, pk)
}

// WithSalt runs fn if (owner, salt) is unused and consumes the salt only
// when fn succeeds.
func (r *Registry) WithSalt(owner account.Account, salt *uint256.Int, fn func() error) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.withSalt(owner, salt, fn)
}

func (r *Registry) SaltUsed(owner account.Account, salt *uint256.Int) (bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.salts.Used(owner, salt)
}

func (r *Registry) withSalt(owner account.Account, salt *uint256.Int, fn func() error) error {
	used, err := r.salts.Used(owner, salt)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: %s by %s", ErrSaltReused, salt.Hex(), owner)
	}
	if err := fn(); err != nil {
		return err
	}
	return r.salts.Consume(owner, salt)
}

func (r *Registry) checkAddressee(chainID uint64, authenticator common.Address) error {
	if chainID != r.domain.ChainID || authenticator != r.domain.VerifyingContract {
		return fmt.Errorf("%w: chain %d, authenticator %s", ErrWrongAuthenticator, chainID, authenticator)
	}
	return nil
}

func (r *Registry) get(owner account.Account, pk account.PublicKey) (*Entry, error) {
	key := entryKey(owner, pk)
	id := ids.ID(hash.ComputeHash256Array(key))
	if entry, ok := r.cache.Get(id); ok {
		return entry, nil
	}

	b, err := r.entries.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entry := &Entry{}
	if _, err := Codec.Unmarshal(b, entry); err != nil {
		return nil, fmt.Errorf("couldn't parse session entry: %w", err)
	}
	r.cache.Put(id, entry)
	return entry, nil
}

func (r *Registry) put(entry *Entry) error {
	b, err := Codec.Marshal(CodecVersion, entry)
	if err != nil {
		return err
	}
	key := entryKey(entry.Owner, entry.PublicKey)
	if err := r.entries.Put(key, b); err != nil {
		return err
	}
	r.cache.Put(ids.ID(hash.ComputeHash256Array(key)), entry)
	return nil
}
