package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/macroforge/license-backend/internal/repository/ports"
)

// AccountState is the authorization-relevant slice of an account, stamped
// with the instant it was read from the store.
type AccountState struct {
	Active      bool
	ExpiresAt   *time.Time
	DisplayName string
	CachedAt    time.Time
}

// AccountCache shields the account store from read amplification on the
// validation hot path. Entries are evicted lazily on read and proactively by
// the janitor. A single coarse lock is enough: critical sections only copy
// small structs.
type AccountCache struct {
	accounts ports.AccountRepository
	ttl      time.Duration

	mu      sync.Mutex
	entries map[string]AccountState

	now func() time.Time
}

const defaultAccountCacheTTL = 5 * time.Minute

func NewAccountCache(accounts ports.AccountRepository, ttl time.Duration) *AccountCache {
	if ttl <= 0 {
		ttl = defaultAccountCacheTTL
	}
	return &AccountCache{
		accounts: accounts,
		ttl:      ttl,
		entries:  make(map[string]AccountState),
		now:      time.Now,
	}
}

// GetAccountState returns a fresh-enough snapshot of the account, reading the
// store at most once per TTL window per key. On a store outage the previous
// snapshot is returned if one exists; a missing account is authoritative and
// never falls back.
func (c *AccountCache) GetAccountState(ctx context.Context, accountKey string) (AccountState, error) {
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[accountKey]
	if ok && now.Sub(entry.CachedAt) <= c.ttl {
		c.mu.Unlock()
		return entry, nil
	}
	if ok {
		delete(c.entries, accountKey)
	}
	c.mu.Unlock()

	account, err := c.accounts.FindByKey(ctx, accountKey)
	if err != nil {
		if isNotFound(err) {
			c.Invalidate(accountKey)
			return AccountState{}, ErrAccountNotFound
		}
		if ok {
			return entry, nil
		}
		return AccountState{}, fmt.Errorf("%w: account read failed: %v", ErrStoreUnavailable, err)
	}

	state := AccountState{
		Active:      account.Active,
		ExpiresAt:   account.ExpiresAt,
		DisplayName: account.DisplayName,
		CachedAt:    now,
	}

	c.mu.Lock()
	c.entries[accountKey] = state
	c.mu.Unlock()

	return state, nil
}

// Refresh installs a snapshot without touching the store, stamped at the
// current instant. Used by the issuer, which has just read the account.
func (c *AccountCache) Refresh(accountKey string, state AccountState) {
	state.CachedAt = c.now()

	c.mu.Lock()
	c.entries[accountKey] = state
	c.mu.Unlock()
}

func (c *AccountCache) Invalidate(accountKey string) {
	c.mu.Lock()
	delete(c.entries, accountKey)
	c.mu.Unlock()
}

// PruneExpired drops entries older than the TTL and reports how many were
// removed.
func (c *AccountCache) PruneExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.CachedAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
