package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/macroforge/license-backend/internal/domain"
	"github.com/macroforge/license-backend/internal/repository/ports"
	"github.com/macroforge/license-backend/internal/util"
)

var (
	ErrNoSuchSession    = errors.New("no such session")
	ErrSessionExpired   = errors.New("session expired")
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountDisabled  = errors.New("account disabled")
	ErrAccountExpired   = errors.New("account expired")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// LicensePolicy holds the timing knobs of the session lifecycle. Zero fields
// fall back to the defaults below.
type LicensePolicy struct {
	SessionTTL              time.Duration
	FullValidationInterval  time.Duration
	ExpiryCheckInterval     time.Duration
	ApproachingExpiryWindow time.Duration
	RenewalThreshold        time.Duration
}

const (
	defaultSessionTTL              = time.Hour
	defaultFullValidationInterval  = 5 * time.Minute
	defaultExpiryCheckInterval     = 3 * time.Minute
	defaultApproachingExpiryWindow = 30 * time.Minute
	defaultRenewalThreshold        = 5 * time.Minute
)

func (p LicensePolicy) withDefaults() LicensePolicy {
	if p.SessionTTL <= 0 {
		p.SessionTTL = defaultSessionTTL
	}
	if p.FullValidationInterval <= 0 {
		p.FullValidationInterval = defaultFullValidationInterval
	}
	if p.ExpiryCheckInterval <= 0 {
		p.ExpiryCheckInterval = defaultExpiryCheckInterval
	}
	if p.ApproachingExpiryWindow <= 0 {
		p.ApproachingExpiryWindow = defaultApproachingExpiryWindow
	}
	if p.RenewalThreshold <= 0 {
		p.RenewalThreshold = defaultRenewalThreshold
	}
	return p
}

// LicenseService issues and validates client sessions. Validation is tiered:
// most calls are settled from the session row alone, and the account store is
// consulted only when the full-check interval has elapsed or the cached
// account expiry is close.
type LicenseService struct {
	sessions ports.SessionRepository
	cache    *AccountCache
	accounts ports.AccountRepository
	policy   LicensePolicy

	now func() time.Time
}

func NewLicenseService(sessions ports.SessionRepository, accounts ports.AccountRepository, cache *AccountCache, policy LicensePolicy) *LicenseService {
	return &LicenseService{
		sessions: sessions,
		cache:    cache,
		accounts: accounts,
		policy:   policy.withDefaults(),
		now:      time.Now,
	}
}

// IssueSession exchanges a raw license key for a session token. The account
// is always read from the store here; login is the one moment a real-time
// check is mandatory.
func (s *LicenseService) IssueSession(ctx context.Context, rawLicenseKey, clientFingerprint string) (*domain.Session, error) {
	accountKey, err := util.DeriveAccountKey(rawLicenseKey)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	account, err := s.accounts.FindByKey(ctx, accountKey)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: account lookup failed: %v", ErrStoreUnavailable, err)
	}

	now := s.now()
	if !account.Active {
		return nil, ErrAccountDisabled
	}
	if account.Expired(now) {
		return nil, ErrAccountExpired
	}

	token, err := util.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	session := &domain.Session{
		Token:                  token,
		AccountKey:             accountKey,
		ClientFingerprint:      clientFingerprint,
		CreatedAt:              now,
		ExpiresAt:              now.Add(s.policy.SessionTTL),
		LastActivityAt:         now,
		LastFullCheckAt:        now,
		CachedAccountActive:    account.Active,
		CachedAccountExpiresAt: account.ExpiresAt,
	}

	stored, err := s.sessions.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("%w: session create failed: %v", ErrStoreUnavailable, err)
	}

	s.cache.Refresh(accountKey, AccountState{
		Active:      account.Active,
		ExpiresAt:   account.ExpiresAt,
		DisplayName: account.DisplayName,
	})

	return stored, nil
}

// Validate decides whether the bearer of token may keep using the product.
// On a grant the returned session reflects the updated activity and expiry.
func (s *LicenseService) Validate(ctx context.Context, token string) (*domain.Session, error) {
	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoSuchSession
		}
		return nil, fmt.Errorf("%w: session lookup failed: %v", ErrStoreUnavailable, err)
	}

	now := s.now()

	if session.Expired(now) {
		s.discard(ctx, token)
		return nil, ErrSessionExpired
	}
	if session.AccountSnapshotExpired(now) {
		s.discard(ctx, token)
		return nil, ErrAccountExpired
	}

	if s.fullCheckDue(session, now) {
		state, err := s.cache.GetAccountState(ctx, session.AccountKey)
		switch {
		case err == nil:
			if !state.Active {
				s.discard(ctx, token)
				return nil, ErrAccountDisabled
			}
			if state.ExpiresAt != nil && !now.Before(*state.ExpiresAt) {
				s.discard(ctx, token)
				return nil, ErrAccountExpired
			}
			session.CachedAccountActive = state.Active
			session.CachedAccountExpiresAt = state.ExpiresAt
			session.LastFullCheckAt = now
		case errors.Is(err, ErrAccountNotFound):
			s.discard(ctx, token)
			return nil, ErrAccountNotFound
		default:
			// Store outage. The snapshot on the session already passed the
			// quick checks above, so stay up and let the next full check
			// settle it.
			log.Printf("license: degraded validation for account %s: %v", session.AccountKey, err)
		}
	}

	session.LastActivityAt = now
	if session.ExpiresAt.Sub(now) < s.policy.RenewalThreshold {
		session.ExpiresAt = now.Add(s.policy.SessionTTL)
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		// The decision is already made; losing one activity update only
		// delays renewal until the next call.
		log.Printf("license: session update failed for account %s: %v", session.AccountKey, err)
	}

	return session, nil
}

// Logout removes the session. Unknown tokens are not an error.
func (s *LicenseService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil && !isNotFound(err) {
		return fmt.Errorf("%w: session delete failed: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// TerminateAllSessions revokes every live session of an account and drops its
// cache entry. This is the path that makes disable and delete take effect
// immediately instead of at the next full check.
func (s *LicenseService) TerminateAllSessions(ctx context.Context, accountKey string) (int64, error) {
	count, err := s.sessions.DeleteByAccount(ctx, accountKey)
	if err != nil {
		return 0, fmt.Errorf("%w: session purge failed: %v", ErrStoreUnavailable, err)
	}
	s.cache.Invalidate(accountKey)
	return count, nil
}

// fullCheckDue applies the two triggers for consulting the account store: the
// periodic interval, and an approaching account expiry combined with enough
// idle time that the snapshot may have gone stale.
func (s *LicenseService) fullCheckDue(session *domain.Session, now time.Time) bool {
	lastCheck := session.LastFullCheckAt
	if lastCheck.IsZero() {
		lastCheck = session.CreatedAt
	}
	if now.Sub(lastCheck) > s.policy.FullValidationInterval {
		return true
	}
	if session.CachedAccountExpiresAt != nil &&
		session.CachedAccountExpiresAt.Sub(now) <= s.policy.ApproachingExpiryWindow &&
		now.Sub(session.LastActivityAt) > s.policy.ExpiryCheckInterval {
		return true
	}
	return false
}

func (s *LicenseService) discard(ctx context.Context, token string) {
	if err := s.sessions.Delete(ctx, token); err != nil && !isNotFound(err) {
		log.Printf("license: failed to discard session: %v", err)
	}
}
