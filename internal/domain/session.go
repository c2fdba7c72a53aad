package domain

import (
	"time"
)

// Session binds a bearer token to an account, together with a snapshot of the
// account fields needed to authorize requests without re-reading the account
// on every call.
type Session struct {
	ID                     int64      `db:"id" json:"id"`
	Token                  string     `db:"token" json:"token"`
	AccountKey             string     `db:"account_key" json:"account_key"`
	ClientFingerprint      string     `db:"client_fingerprint" json:"client_fingerprint"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt              time.Time  `db:"expires_at" json:"expires_at"`
	LastActivityAt         time.Time  `db:"last_activity_at" json:"last_activity_at"`
	LastFullCheckAt        time.Time  `db:"last_full_check_at" json:"last_full_check_at"`
	CachedAccountActive    bool       `db:"cached_account_active" json:"cached_account_active"`
	CachedAccountExpiresAt *time.Time `db:"cached_account_expires_at" json:"cached_account_expires_at,omitempty"`
}

// Expired reports whether the session itself has reached its expiry at the
// given instant. The boundary instant counts as expired.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AccountSnapshotExpired reports whether the cached account expiry, if any,
// has been reached at the given instant.
func (s *Session) AccountSnapshotExpired(now time.Time) bool {
	return s.CachedAccountExpiresAt != nil && !now.Before(*s.CachedAccountExpiresAt)
}
