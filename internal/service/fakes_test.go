package service

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"time"

	"github.com/macroforge/license-backend/internal/domain"
)

type fakeAccountRepo struct {
	mu        sync.Mutex
	accounts  map[string]domain.Account
	findErr   error
	createErr error
	findCalls int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[string]domain.Account{}}
}

func (r *fakeAccountRepo) put(account domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.AccountKey] = account
}

func (r *fakeAccountRepo) FindByKey(_ context.Context, accountKey string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	account, ok := r.accounts[accountKey]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &account, nil
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	stored := *account
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.accounts[stored.AccountKey] = stored
	return &stored, nil
}

func (r *fakeAccountRepo) SetActive(_ context.Context, accountKey string, active bool) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[accountKey]
	if !ok {
		return nil, sql.ErrNoRows
	}
	account.Active = active
	r.accounts[accountKey] = account
	return &account, nil
}

func (r *fakeAccountRepo) SetExpiry(_ context.Context, accountKey string, expiresAt *time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[accountKey]
	if !ok {
		return nil, sql.ErrNoRows
	}
	account.ExpiresAt = expiresAt
	r.accounts[accountKey] = account
	return &account, nil
}

func (r *fakeAccountRepo) Delete(_ context.Context, accountKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[accountKey]; !ok {
		return sql.ErrNoRows
	}
	delete(r.accounts, accountKey)
	return nil
}

func (r *fakeAccountRepo) List(_ context.Context, limit, offset int) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	accounts := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		accounts = append(accounts, account)
	}
	if offset >= len(accounts) {
		return []domain.Account{}, nil
	}
	accounts = accounts[offset:]
	if len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	nextID   int64

	findErr          error
	createErr        error
	updateErr        error
	deleteErr        error
	deleteByAccErr   error
	listExpiredErr   error
	findCalls        int
	updateCalls      int
	deleteTokenCalls int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]domain.Session{}}
}

func (r *fakeSessionRepo) get(token string) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[token]
	return session, ok
}

func (r *fakeSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *fakeSessionRepo) Create(_ context.Context, session *domain.Session) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	stored := *session
	stored.ID = r.nextID
	r.sessions[stored.Token] = stored
	return &stored, nil
}

func (r *fakeSessionRepo) FindByToken(_ context.Context, token string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	session, ok := r.sessions[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &session, nil
}

func (r *fakeSessionRepo) Update(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.sessions[session.Token]; ok {
		r.sessions[session.Token] = *session
	}
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.sessions, token)
	return nil
}

func (r *fakeSessionRepo) DeleteTokens(_ context.Context, tokens []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteTokenCalls++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for _, token := range tokens {
		delete(r.sessions, token)
	}
	return nil
}

func (r *fakeSessionRepo) DeleteByAccount(_ context.Context, accountKey string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteByAccErr != nil {
		return 0, r.deleteByAccErr
	}
	var removed int64
	for token, session := range r.sessions {
		if session.AccountKey == accountKey {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeSessionRepo) ListByAccount(_ context.Context, accountKey string) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions := []domain.Session{}
	for _, session := range r.sessions {
		if session.AccountKey == accountKey {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (r *fakeSessionRepo) ListExpired(_ context.Context, before time.Time, limit int) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listExpiredErr != nil {
		return nil, r.listExpiredErr
	}
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

type uploadedObject struct {
	bucket      string
	objectName  string
	contentType string
	payload     []byte
}

type fakeObjectStorage struct {
	mu        sync.Mutex
	uploads   []uploadedObject
	uploadErr error
}

func (s *fakeObjectStorage) Upload(_ context.Context, bucket, objectName, contentType string, reader io.Reader, _ int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	payload, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	s.uploads = append(s.uploads, uploadedObject{bucket: bucket, objectName: objectName, contentType: contentType, payload: payload})
	return objectName, nil
}

type sentLicenseKey struct {
	email       string
	displayName string
	licenseKey  string
	expiresAt   *time.Time
}

type fakeLicenseMailer struct {
	mu      sync.Mutex
	sent    []sentLicenseKey
	sendErr error
}

func (m *fakeLicenseMailer) SendLicenseKey(_ context.Context, email, displayName, licenseKey string, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentLicenseKey{email: email, displayName: displayName, licenseKey: licenseKey, expiresAt: expiresAt})
	return nil
}

type fakeTerminator struct {
	mu           sync.Mutex
	terminated   []string
	count        int64
	terminateErr error
}

func (t *fakeTerminator) TerminateAllSessions(_ context.Context, accountKey string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminateErr != nil {
		return 0, t.terminateErr
	}
	t.terminated = append(t.terminated, accountKey)
	return t.count, nil
}
