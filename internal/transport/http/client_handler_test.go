package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/macroforge/license-backend/internal/domain"
	"github.com/macroforge/license-backend/internal/service"
	"github.com/macroforge/license-backend/internal/util"
)

const testLicenseKey = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

type memAccountRepo struct {
	accounts map[string]domain.Account
	downErr  error
}

func (r *memAccountRepo) FindByKey(_ context.Context, key string) (*domain.Account, error) {
	if r.downErr != nil {
		return nil, r.downErr
	}
	account, ok := r.accounts[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &account, nil
}

func (r *memAccountRepo) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	stored := *account
	r.accounts[stored.AccountKey] = stored
	return &stored, nil
}

func (r *memAccountRepo) SetActive(_ context.Context, key string, active bool) (*domain.Account, error) {
	account, ok := r.accounts[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	account.Active = active
	r.accounts[key] = account
	return &account, nil
}

func (r *memAccountRepo) SetExpiry(_ context.Context, key string, expiresAt *time.Time) (*domain.Account, error) {
	account, ok := r.accounts[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	account.ExpiresAt = expiresAt
	r.accounts[key] = account
	return &account, nil
}

func (r *memAccountRepo) Delete(_ context.Context, key string) error {
	delete(r.accounts, key)
	return nil
}

func (r *memAccountRepo) List(_ context.Context, _, _ int) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		accounts = append(accounts, account)
	}
	return accounts, nil
}

type memSessionRepo struct {
	sessions map[string]domain.Session
	nextID   int64
}

func (r *memSessionRepo) Create(_ context.Context, session *domain.Session) (*domain.Session, error) {
	r.nextID++
	stored := *session
	stored.ID = r.nextID
	r.sessions[stored.Token] = stored
	return &stored, nil
}

func (r *memSessionRepo) FindByToken(_ context.Context, token string) (*domain.Session, error) {
	session, ok := r.sessions[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &session, nil
}

func (r *memSessionRepo) Update(_ context.Context, session *domain.Session) error {
	r.sessions[session.Token] = *session
	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, token string) error {
	delete(r.sessions, token)
	return nil
}

func (r *memSessionRepo) DeleteTokens(_ context.Context, tokens []string) error {
	for _, token := range tokens {
		delete(r.sessions, token)
	}
	return nil
}

func (r *memSessionRepo) DeleteByAccount(_ context.Context, accountKey string) (int64, error) {
	var removed int64
	for token, session := range r.sessions {
		if session.AccountKey == accountKey {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (r *memSessionRepo) ListByAccount(_ context.Context, accountKey string) ([]domain.Session, error) {
	sessions := []domain.Session{}
	for _, session := range r.sessions {
		if session.AccountKey == accountKey {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (r *memSessionRepo) ListExpired(_ context.Context, before time.Time, limit int) ([]domain.Session, error) {
	sessions := []domain.Session{}
	for _, session := range r.sessions {
		if !before.Before(session.ExpiresAt) {
			sessions = append(sessions, session)
			if len(sessions) == limit {
				break
			}
		}
	}
	return sessions, nil
}

func newLicenseTestServer(t *testing.T) (*echo.Echo, *memAccountRepo) {
	t.Helper()
	accounts := &memAccountRepo{accounts: map[string]domain.Account{}}
	sessions := &memSessionRepo{sessions: map[string]domain.Session{}}

	accountKey, err := util.DeriveAccountKey(testLicenseKey)
	if err != nil {
		t.Fatalf("derive account key: %v", err)
	}
	accounts.accounts[accountKey] = domain.Account{
		AccountKey:  accountKey,
		DisplayName: "Macro Workshop",
		Active:      true,
	}

	cache := service.NewAccountCache(accounts, 5*time.Minute)
	licenses := service.NewLicenseService(sessions, accounts, cache, service.LicensePolicy{})

	e := echo.New()
	RegisterLicense(e, licenses)
	return e, accounts
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLoginEndpoint(t *testing.T) {
	t.Run("issues a token for a valid key", func(t *testing.T) {
		e, _ := newLicenseTestServer(t)

		rec := doJSON(t, e, http.MethodPost, "/v1/license/login", `{"license_key":"`+testLicenseKey+`","client_fingerprint":"win64"}`, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expires_at"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp.Token) != 43 {
			t.Fatalf("expected a 43-char token, got %q", resp.Token)
		}
		if resp.ExpiresAt.IsZero() {
			t.Fatal("expected an expiry timestamp")
		}
	})

	t.Run("rejects an unknown key", func(t *testing.T) {
		e, _ := newLicenseTestServer(t)

		rec := doJSON(t, e, http.MethodPost, "/v1/license/login", `{"license_key":"ffffffff-0000-0000-0000-000000000000"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects a missing key", func(t *testing.T) {
		e, _ := newLicenseTestServer(t)

		rec := doJSON(t, e, http.MethodPost, "/v1/license/login", `{}`, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("reports an outage as 503", func(t *testing.T) {
		e, accounts := newLicenseTestServer(t)
		accounts.downErr = context.DeadlineExceeded

		rec := doJSON(t, e, http.MethodPost, "/v1/license/login", `{"license_key":"`+testLicenseKey+`"}`, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestValidateEndpoint(t *testing.T) {
	login := func(t *testing.T, e *echo.Echo) string {
		t.Helper()
		rec := doJSON(t, e, http.MethodPost, "/v1/license/login", `{"license_key":"`+testLicenseKey+`"}`, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode login response: %v", err)
		}
		return resp.Token
	}

	t.Run("accepts a live session", func(t *testing.T) {
		e, _ := newLicenseTestServer(t)
		token := login(t, e)

		rec := doJSON(t, e, http.MethodPost, "/v1/license/validate", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("gives the uniform denial for a bad token", func(t *testing.T) {
		e, _ := newLicenseTestServer(t)

		rec := doJSON(t, e, http.MethodPost, "/v1/license/validate", "", "not-a-real-token")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), deniedMessage) {
			t.Fatalf("expected the uniform denial message, got %s", rec.Body.String())
		}
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		e, _ := newLicenseTestServer(t)
		token := login(t, e)

		rec := doJSON(t, e, http.MethodPost, "/v1/license/logout", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("logout: expected 200, got %d", rec.Code)
		}

		rec = doJSON(t, e, http.MethodPost, "/v1/license/validate", "", token)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 after logout, got %d", rec.Code)
		}
	})

	t.Run("session endpoint omits the token", func(t *testing.T) {
		e, _ := newLicenseTestServer(t)
		token := login(t, e)

		rec := doJSON(t, e, http.MethodGet, "/v1/license/session", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), token) {
			t.Fatal("session response must not echo the bearer token")
		}
	})
}
