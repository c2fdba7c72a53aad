package http

import (
	"time"

	"github.com/macroforge/license-backend/internal/domain"
)

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid license key"`
}

// LoginRequest is the body of the client login call.
type LoginRequest struct {
	LicenseKey        string `json:"license_key" example:"3f2504e0-4f89-11d3-9a0c-0305e82c3301"`
	ClientFingerprint string `json:"client_fingerprint,omitempty" example:"win64-9f3a"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Token     string    `json:"token" example:"kHq-Vb2mPz41xWfJX0aGN3cdT9uYsEi8oLrR5wQjM7A"`
	ExpiresAt time.Time `json:"expires_at" example:"2025-06-01T13:00:00Z"`
}

// ValidateResponse is returned when a session is still good.
type ValidateResponse struct {
	Valid     bool      `json:"valid" example:"true"`
	ExpiresAt time.Time `json:"expires_at" example:"2025-06-01T13:00:00Z"`
}

// SessionResponse describes the caller's own session. The bearer token is
// never echoed back.
type SessionResponse struct {
	AccountKey        string     `json:"account_key"`
	ClientFingerprint string     `json:"client_fingerprint,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	LastActivityAt    time.Time  `json:"last_activity_at"`
	AccountExpiresAt  *time.Time `json:"account_expires_at,omitempty"`
}

func buildSessionResponse(session *domain.Session) SessionResponse {
	return SessionResponse{
		AccountKey:        session.AccountKey,
		ClientFingerprint: session.ClientFingerprint,
		CreatedAt:         session.CreatedAt,
		ExpiresAt:         session.ExpiresAt,
		LastActivityAt:    session.LastActivityAt,
		AccountExpiresAt:  session.CachedAccountExpiresAt,
	}
}

// AdminLoginRequest is the body of the admin email login.
type AdminLoginRequest struct {
	Email    string `json:"email" example:"ops@example.com"`
	Password string `json:"password"`
}

// AdminGoogleLoginRequest carries a Google ID token.
type AdminGoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

// AdminTokenResponse is returned by the admin login endpoints.
type AdminTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email" example:"ops@example.com"`
}

// AccountResponse is the admin view of an account.
type AccountResponse struct {
	AccountKey  string     `json:"account_key"`
	DisplayName string     `json:"display_name" example:"Macro Workshop"`
	Email       string     `json:"email,omitempty" example:"customer@example.com"`
	Active      bool       `json:"active" example:"true"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func buildAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		AccountKey:  account.AccountKey,
		DisplayName: account.DisplayName,
		Email:       account.Email,
		Active:      account.Active,
		ExpiresAt:   account.ExpiresAt,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
}

// AccountCreateRequest is the body of the account provisioning call.
type AccountCreateRequest struct {
	DisplayName string     `json:"display_name" example:"Macro Workshop"`
	Email       string     `json:"email,omitempty" example:"customer@example.com"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// AccountCreatedResponse includes the raw license key. This is the only place
// it ever appears; it cannot be recovered afterwards.
type AccountCreatedResponse struct {
	Account    AccountResponse `json:"account"`
	LicenseKey string          `json:"license_key" example:"3f2504e0-4f89-11d3-9a0c-0305e82c3301"`
}

// AccountActiveRequest toggles the active flag.
type AccountActiveRequest struct {
	Active bool `json:"active"`
}

// AccountExpiryRequest moves or clears the account expiry.
type AccountExpiryRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

// AdminCreateRequest provisions a console admin.
type AdminCreateRequest struct {
	Email    string  `json:"email" example:"new-ops@example.com"`
	FullName *string `json:"full_name,omitempty"`
	Password string  `json:"password"`
}

// TerminateSessionsResponse reports how many sessions were revoked.
type TerminateSessionsResponse struct {
	Terminated int64 `json:"terminated" example:"3"`
}
