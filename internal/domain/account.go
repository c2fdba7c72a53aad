package domain

import (
	"time"
)

// Account is the authoritative record of a purchased license. The account key
// is the hex SHA-256 of the raw license key; the raw key itself is never
// stored.
type Account struct {
	AccountKey  string     `db:"account_key" json:"account_key"`
	DisplayName string     `db:"display_name" json:"display_name"`
	Email       string     `db:"email" json:"email"`
	Active      bool       `db:"active" json:"active"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the account's expiry has been reached at the given
// instant. An expiry exactly equal to now counts as expired; a nil expiry
// never does.
func (a *Account) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}
