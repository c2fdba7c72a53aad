package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/google/uuid"
	"google.golang.org/api/idtoken"

	"github.com/macroforge/license-backend/internal/domain"
	"github.com/macroforge/license-backend/internal/repository/ports"
	"github.com/macroforge/license-backend/internal/util"
)

var (
	ErrAdminInvalidCredentials = errors.New("invalid email or password")
	ErrAdminExists             = errors.New("admin user already exists")
	ErrAccountExists           = errors.New("account already exists for this license key")
	ErrImportEmpty             = errors.New("import file contains no accounts")
	ErrImportTooLarge          = errors.New("import file exceeds the row limit")
)

const importRowLimit = 500

// LicenseKeySender delivers a freshly minted license key to the customer.
type LicenseKeySender interface {
	SendLicenseKey(ctx context.Context, email, displayName, licenseKey string, expiresAt *time.Time) error
}

// sessionTerminator is the slice of the license service the admin side needs.
type sessionTerminator interface {
	TerminateAllSessions(ctx context.Context, accountKey string) (int64, error)
}

// AdminService backs the operator console: admin sign-in, account
// provisioning, and the revocation paths that must take effect immediately.
type AdminService struct {
	admins    ports.AdminUserRepository
	accounts  ports.AccountRepository
	sessions  sessionTerminator
	mailer    LicenseKeySender
	jwt       *util.JWTManager
	googleAud string

	validateGoogleToken func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
	now                 func() time.Time
}

func NewAdminService(admins ports.AdminUserRepository, accounts ports.AccountRepository, sessions sessionTerminator, mailer LicenseKeySender, jwtManager *util.JWTManager, googleAudience string) *AdminService {
	return &AdminService{
		admins:              admins,
		accounts:            accounts,
		sessions:            sessions,
		mailer:              mailer,
		jwt:                 jwtManager,
		googleAud:           googleAudience,
		validateGoogleToken: validateGoogleIDToken,
		now:                 time.Now,
	}
}

func validateGoogleIDToken(ctx context.Context, idToken, audience string) (*idtoken.Payload, error) {
	return idtoken.Validate(ctx, idToken, audience)
}

type AdminLoginResult struct {
	Token     string
	ExpiresAt time.Time
	Admin     *domain.AdminUser
}

func (s *AdminService) LoginWithEmail(ctx context.Context, email, password string) (*AdminLoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrAdminInvalidCredentials
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAdminInvalidCredentials
		}
		return nil, fmt.Errorf("%w: admin lookup failed: %v", ErrStoreUnavailable, err)
	}

	if !util.VerifyAdminPassword(password, admin.PasswordSalt, admin.PasswordHash) {
		return nil, ErrAdminInvalidCredentials
	}

	return s.issueAdminToken(admin)
}

// LoginWithGoogle accepts a Google ID token for a pre-provisioned admin.
// Unknown Google identities are rejected rather than auto-created.
func (s *AdminService) LoginWithGoogle(ctx context.Context, rawIDToken string) (*AdminLoginResult, error) {
	payload, err := s.validateGoogleToken(ctx, rawIDToken, s.googleAud)
	if err != nil {
		return nil, ErrAdminInvalidCredentials
	}

	email, _ := payload.Claims["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrAdminInvalidCredentials
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAdminInvalidCredentials
		}
		return nil, fmt.Errorf("%w: admin lookup failed: %v", ErrStoreUnavailable, err)
	}

	return s.issueAdminToken(admin)
}

func (s *AdminService) issueAdminToken(admin *domain.AdminUser) (*AdminLoginResult, error) {
	token, expiresAt, err := s.jwt.Generate(admin.ID, admin.Email, admin.FullName)
	if err != nil {
		return nil, fmt.Errorf("sign admin token: %w", err)
	}
	return &AdminLoginResult{Token: token, ExpiresAt: expiresAt, Admin: admin}, nil
}

func (s *AdminService) CreateAdminUser(ctx context.Context, email string, fullName *string, password string) (*domain.AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("email is required")
	}
	if err := util.ValidateAdminPassword(password); err != nil {
		return nil, err
	}

	hash, salt, err := util.DeriveAdminPassword(password)
	if err != nil {
		return nil, err
	}

	admin, err := s.admins.Create(ctx, email, fullName, hash, salt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAdminExists
		}
		return nil, fmt.Errorf("%w: admin create failed: %v", ErrStoreUnavailable, err)
	}
	return admin, nil
}

type AccountCreateInput struct {
	DisplayName string
	Email       string
	ExpiresAt   *time.Time
}

// CreateAccount provisions an account under a freshly generated license key.
// The raw key is returned exactly once and only its hash is stored; if a
// customer email is on file the key is mailed there too.
func (s *AdminService) CreateAccount(ctx context.Context, input AccountCreateInput) (*domain.Account, string, error) {
	if strings.TrimSpace(input.DisplayName) == "" {
		return nil, "", errors.New("display name is required")
	}

	licenseKey := uuid.NewString()
	accountKey, err := util.DeriveAccountKey(licenseKey)
	if err != nil {
		return nil, "", err
	}

	account := &domain.Account{
		AccountKey:  accountKey,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		Active:      true,
		ExpiresAt:   input.ExpiresAt,
	}

	stored, err := s.accounts.Create(ctx, account)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, "", ErrAccountExists
		}
		return nil, "", fmt.Errorf("%w: account create failed: %v", ErrStoreUnavailable, err)
	}

	if s.mailer != nil && stored.Email != "" {
		if err := s.mailer.SendLicenseKey(ctx, stored.Email, stored.DisplayName, licenseKey, stored.ExpiresAt); err != nil {
			log.Printf("admin: license key mail to %s failed: %v", stored.Email, err)
		}
	}

	return stored, licenseKey, nil
}

func (s *AdminService) GetAccount(ctx context.Context, accountKey string) (*domain.Account, error) {
	account, err := s.accounts.FindByKey(ctx, accountKey)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: account lookup failed: %v", ErrStoreUnavailable, err)
	}
	return account, nil
}

func (s *AdminService) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	accounts, err := s.accounts.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: account list failed: %v", ErrStoreUnavailable, err)
	}
	return accounts, nil
}

// SetAccountActive flips the active flag. Disabling also revokes every live
// session so the change is felt before any full-check interval elapses.
func (s *AdminService) SetAccountActive(ctx context.Context, accountKey string, active bool) (*domain.Account, error) {
	account, err := s.accounts.SetActive(ctx, accountKey, active)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: account update failed: %v", ErrStoreUnavailable, err)
	}

	if !active {
		if _, err := s.sessions.TerminateAllSessions(ctx, accountKey); err != nil {
			log.Printf("admin: session purge after disable failed for %s: %v", accountKey, err)
		}
	}
	return account, nil
}

// ExtendAccount moves or clears the account expiry. A nil expiresAt makes the
// account perpetual.
func (s *AdminService) ExtendAccount(ctx context.Context, accountKey string, expiresAt *time.Time) (*domain.Account, error) {
	account, err := s.accounts.SetExpiry(ctx, accountKey, expiresAt)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: account update failed: %v", ErrStoreUnavailable, err)
	}
	return account, nil
}

// DeleteAccount revokes all sessions first so no client outlives the row.
func (s *AdminService) DeleteAccount(ctx context.Context, accountKey string) error {
	if _, err := s.sessions.TerminateAllSessions(ctx, accountKey); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, accountKey); err != nil {
		if isNotFound(err) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: account delete failed: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *AdminService) TerminateSessions(ctx context.Context, accountKey string) (int64, error) {
	return s.sessions.TerminateAllSessions(ctx, accountKey)
}

type accountImportRow struct {
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type ImportRowResult struct {
	Row         int    `json:"row"`
	DisplayName string `json:"display_name"`
	AccountKey  string `json:"account_key,omitempty"`
	LicenseKey  string `json:"license_key,omitempty"`
	Error       string `json:"error,omitempty"`
}

type ImportResult struct {
	DryRun  bool              `json:"dry_run"`
	Total   int               `json:"total"`
	Created int               `json:"created"`
	Failed  int               `json:"failed"`
	Rows    []ImportRowResult `json:"rows"`
}

// ImportAccounts provisions accounts in bulk from a YAML document. With
// dryRun set, rows are validated but nothing is written or mailed.
func (s *AdminService) ImportAccounts(ctx context.Context, contents []byte, dryRun bool) (*ImportResult, error) {
	var rows []accountImportRow
	if err := yaml.Unmarshal(contents, &rows); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrImportEmpty
	}
	if len(rows) > importRowLimit {
		return nil, ErrImportTooLarge
	}

	result := &ImportResult{DryRun: dryRun, Total: len(rows)}
	for i, row := range rows {
		entry := ImportRowResult{Row: i + 1, DisplayName: strings.TrimSpace(row.DisplayName)}

		if entry.DisplayName == "" {
			entry.Error = "display name is required"
			result.Failed++
			result.Rows = append(result.Rows, entry)
			continue
		}

		if !dryRun {
			account, licenseKey, err := s.CreateAccount(ctx, AccountCreateInput{
				DisplayName: row.DisplayName,
				Email:       row.Email,
				ExpiresAt:   row.ExpiresAt,
			})
			if err != nil {
				entry.Error = err.Error()
				result.Failed++
				result.Rows = append(result.Rows, entry)
				continue
			}
			entry.AccountKey = account.AccountKey
			entry.LicenseKey = licenseKey
		}

		result.Created++
		result.Rows = append(result.Rows, entry)
	}

	return result, nil
}
